package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nhle/taskclient/internal/model"
)

// FakeAPI is an in-memory stand-in for the task service, served over a
// real HTTP listener. It speaks the same routes and JSON shapes, storing
// ids under "_id" like the production deployment.
type FakeAPI struct {
	server   *httptest.Server
	requests atomic.Int64

	mu       sync.Mutex
	tasks    []model.Task
	users    map[string]fakeUser
	tokens   map[string]string
	failNext []cannedResponse
	lastAuth string
	lastReq  *http.Request
}

type fakeUser struct {
	id       string
	name     string
	email    string
	password string
}

type cannedResponse struct {
	status int
	body   gin.H
}

// NewFakeAPI starts the fake service and stops it when the test ends.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &FakeAPI{
		users:  make(map[string]fakeUser),
		tokens: make(map[string]string),
	}
	f.server = httptest.NewServer(f.router())
	t.Cleanup(f.server.Close)
	return f
}

// URL is the API root to hand to api.NewClient.
func (f *FakeAPI) URL() string {
	return f.server.URL + "/api"
}

// RequestCount is the number of HTTP requests received so far.
func (f *FakeAPI) RequestCount() int {
	return int(f.requests.Load())
}

// LastAuthorization returns the Authorization header of the most recent
// request.
func (f *FakeAPI) LastAuthorization() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth
}

// LastRequest returns a clone of the most recent request's headers and URL.
func (f *FakeAPI) LastRequest() *http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReq
}

// AddUser registers an account and returns a valid token for it.
func (f *FakeAPI) AddUser(name, email, password string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.users[email] = fakeUser{id: uuid.NewString(), name: name, email: email, password: password}
	token := uuid.NewString()
	f.tokens[token] = email
	return token
}

// RevokeToken makes token invalid for subsequent requests.
func (f *FakeAPI) RevokeToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
}

// Seed appends tasks, assigning ids to those without one. It returns the
// stored copies.
func (f *FakeAPI) Seed(tasks ...model.Task) []model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.Status == "" {
			t.Status = model.DefaultStatus
		}
		if t.Priority == "" {
			t.Priority = model.DefaultPriority
		}
		f.tasks = append(f.tasks, t)
		out = append(out, t)
	}
	return out
}

// Tasks returns a copy of the stored tasks.
func (f *FakeAPI) Tasks() []model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Task(nil), f.tasks...)
}

// FailNext makes the next request answer with status and body instead of
// being handled. Calls queue up.
func (f *FakeAPI) FailNext(status int, body gin.H) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = append(f.failNext, cannedResponse{status: status, body: body})
}

func (f *FakeAPI) router() *gin.Engine {
	r := gin.New()
	r.Use(f.record)

	g := r.Group("/api")
	g.POST("/users/register", f.register)
	g.POST("/users/login", f.login)

	tasks := g.Group("/tasks", f.requireToken)
	tasks.GET("", f.listTasks)
	tasks.POST("", f.createTask)
	tasks.PUT("/:id", f.updateTask)
	tasks.DELETE("/:id", f.deleteTask)
	return r
}

func (f *FakeAPI) record(c *gin.Context) {
	f.requests.Add(1)

	f.mu.Lock()
	f.lastAuth = c.GetHeader("Authorization")
	f.lastReq = c.Request.Clone(c.Request.Context())
	var canned *cannedResponse
	if len(f.failNext) > 0 {
		canned = &f.failNext[0]
		f.failNext = f.failNext[1:]
	}
	f.mu.Unlock()

	if canned != nil {
		if canned.body == nil {
			c.AbortWithStatus(canned.status)
			return
		}
		c.AbortWithStatusJSON(canned.status, canned.body)
		return
	}
	c.Next()
}

func (f *FakeAPI) requireToken(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	f.mu.Lock()
	_, known := f.tokens[token]
	f.mu.Unlock()
	if !ok || !known {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No token, authorization denied"})
		return
	}
	c.Next()
}

func (f *FakeAPI) register(c *gin.Context) {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Email == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Please provide name, email and password"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[body.Email]; exists {
		c.JSON(http.StatusBadRequest, gin.H{"message": "User already exists"})
		return
	}
	u := fakeUser{id: uuid.NewString(), name: body.Name, email: body.Email, password: body.Password}
	f.users[body.Email] = u
	c.JSON(http.StatusCreated, gin.H{"_id": u.id, "name": u.name, "email": u.email})
}

func (f *FakeAPI) login(c *gin.Context) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[body.Email]
	if !ok || u.password != body.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}
	token := uuid.NewString()
	f.tokens[token] = u.email
	c.JSON(http.StatusOK, gin.H{"token": token, "user": gin.H{"_id": u.id, "name": u.name, "email": u.email}})
}

func (f *FakeAPI) listTasks(c *gin.Context) {
	title := strings.ToLower(c.Query("title"))

	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]gin.H, 0, len(f.tasks))
	for _, t := range f.tasks {
		if title != "" && !strings.Contains(strings.ToLower(t.Title), title) {
			continue
		}
		out = append(out, taskJSON(t))
	}
	c.JSON(http.StatusOK, out)
}

type taskBody struct {
	Title       *string     `json:"title"`
	Description *string     `json:"description"`
	Deadline    *model.Date `json:"deadline"`
	Status      *string     `json:"status"`
	Priority    *string     `json:"priority"`
}

func (f *FakeAPI) createTask(c *gin.Context) {
	var body taskBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Malformed task"})
		return
	}
	if body.Title == nil || strings.TrimSpace(*body.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Title is required"})
		return
	}

	t := model.Task{ID: uuid.NewString(), Title: *body.Title}
	if msg := applyBody(&t, body); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": msg})
		return
	}

	f.mu.Lock()
	f.tasks = append(f.tasks, t)
	f.mu.Unlock()
	c.JSON(http.StatusCreated, taskJSON(t))
}

func (f *FakeAPI) updateTask(c *gin.Context) {
	var body taskBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Malformed task"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID != c.Param("id") {
			continue
		}
		updated := f.tasks[i]
		if msg := applyBody(&updated, body); msg != "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": msg})
			return
		}
		f.tasks[i] = updated
		c.JSON(http.StatusOK, taskJSON(updated))
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
}

func (f *FakeAPI) deleteTask(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == c.Param("id") {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			c.JSON(http.StatusOK, gin.H{"message": "Task removed"})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
}

func applyBody(t *model.Task, body taskBody) string {
	if body.Title != nil {
		if strings.TrimSpace(*body.Title) == "" {
			return "Title is required"
		}
		t.Title = *body.Title
	}
	if body.Description != nil {
		t.Description = *body.Description
	}
	if body.Deadline != nil {
		t.Deadline = *body.Deadline
	}
	if body.Status != nil {
		s, err := model.ParseStatus(*body.Status)
		if err != nil {
			return "Invalid status"
		}
		t.Status = s
	}
	if body.Priority != nil {
		p, err := model.ParsePriority(*body.Priority)
		if err != nil {
			return "Invalid priority"
		}
		t.Priority = p
	}
	if t.Status == "" {
		t.Status = model.DefaultStatus
	}
	if t.Priority == "" {
		t.Priority = model.DefaultPriority
	}
	return ""
}

func taskJSON(t model.Task) gin.H {
	h := gin.H{
		"_id":         t.ID,
		"title":       t.Title,
		"description": t.Description,
		"status":      string(t.Status),
		"priority":    string(t.Priority),
	}
	if !t.Deadline.IsZero() {
		h["deadline"] = t.Deadline.Time().Format("2006-01-02T15:04:05.000Z")
	}
	return h
}
