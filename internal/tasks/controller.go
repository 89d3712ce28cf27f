// Package tasks holds the authoritative task collection and its loading
// state. Every mutation is followed by a full reload from the service.
package tasks

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/taskclient/internal/api"
	"github.com/nhle/taskclient/internal/model"
	"github.com/nhle/taskclient/internal/view"
)

var (
	// ErrSuperseded is returned by a refresh whose response arrived after a
	// newer refresh had been issued. Its result was discarded.
	ErrSuperseded = errors.New("refresh superseded by a newer one")

	// ErrClosed is returned once the controller has been closed.
	ErrClosed = errors.New("task controller closed")
)

// ReloadError reports that a mutation was applied by the service but the
// reload that followed it failed.
type ReloadError struct {
	Err error
}

func (e *ReloadError) Error() string { return "reloading after change: " + e.Err.Error() }

func (e *ReloadError) Unwrap() error { return e.Err }

// Applied reports whether err still means the mutation itself succeeded.
func Applied(err error) bool {
	var re *ReloadError
	return err == nil || errors.As(err, &re)
}

// Repository is the remote task service. *api.Client satisfies it.
type Repository interface {
	List(ctx context.Context, opts api.ListOptions) ([]model.Task, error)
	Create(ctx context.Context, draft model.Draft) (*model.Task, error)
	Update(ctx context.Context, id string, patch model.Patch) (*model.Task, error)
	Delete(ctx context.Context, id string) error
}

// Cache persists the last good collection between runs.
// *store.SQLiteStore satisfies it.
type Cache interface {
	SaveSnapshot(ctx context.Context, owner string, tasks []model.Task) error
	LoadSnapshot(ctx context.Context, owner string) ([]model.Task, time.Time, error)
}

// State is the lifecycle of the collection.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Snapshot is a point-in-time copy of the controller.
type Snapshot struct {
	State State
	Tasks []model.Task

	// Err is the last refresh failure while State is StateError.
	Err error

	// Cached is set while Tasks come from the local cache rather than a
	// refresh made in this session.
	Cached bool

	// UpdatedAt is when Tasks were fetched from the service.
	UpdatedAt time.Time

	TitleFilter string
}

// Option configures a Controller.
type Option func(*Controller)

// WithCache saves every successful refresh under owner and enables Restore.
func WithCache(cache Cache, owner string) Option {
	return func(c *Controller) {
		c.cache = cache
		c.owner = owner
	}
}

// WithLogger sets the controller's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithClock overrides the clock used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller owns the task collection shown to the user.
//
// Overlapping refreshes are not serialized. Each is numbered when issued,
// and only the latest issued one may write its result.
type Controller struct {
	repo   Repository
	cache  Cache
	owner  string
	logger *zap.Logger
	now    func() time.Time

	mu          sync.Mutex
	state       State
	tasks       []model.Task
	err         error
	cached      bool
	updatedAt   time.Time
	titleFilter string
	seq         uint64
	closed      bool
}

// NewController returns an Idle controller with an empty collection.
func NewController(repo Repository, opts ...Option) *Controller {
	c := &Controller{
		repo:   repo,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh reloads the collection. On failure the previous collection is
// kept and the state becomes StateError.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.seq++
	seq := c.seq
	c.state = StateLoading
	c.err = nil
	filter := c.titleFilter
	c.mu.Unlock()

	tasks, err := c.repo.List(ctx, api.ListOptions{Title: filter})

	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case seq != c.seq:
		c.mu.Unlock()
		c.logger.Debug("discarding superseded refresh", zap.Uint64("seq", seq))
		return ErrSuperseded
	case err != nil:
		c.state = StateError
		c.err = err
		c.mu.Unlock()
		c.logger.Warn("refresh failed", zap.Uint64("seq", seq), zap.Error(err))
		return err
	}

	c.tasks = tasks
	c.state = StateReady
	c.err = nil
	c.cached = false
	c.updatedAt = c.now()
	c.mu.Unlock()

	c.logger.Debug("refreshed tasks", zap.Uint64("seq", seq), zap.Int("count", len(tasks)))
	c.saveSnapshot(ctx, tasks)
	return nil
}

func (c *Controller) saveSnapshot(ctx context.Context, tasks []model.Task) {
	if c.cache == nil {
		return
	}
	if err := c.cache.SaveSnapshot(ctx, c.owner, tasks); err != nil {
		c.logger.Warn("saving task snapshot", zap.String("owner", c.owner), zap.Error(err))
	}
}

// Create adds a task and reloads. If the task was created but the reload
// failed, both the task and a *ReloadError are returned.
func (c *Controller) Create(ctx context.Context, draft model.Draft) (*model.Task, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	task, err := c.repo.Create(ctx, draft)
	if err != nil {
		return nil, err
	}
	return task, c.refreshAfterMutation(ctx)
}

// Update patches a task and reloads. Errors leave the collection untouched.
func (c *Controller) Update(ctx context.Context, id string, patch model.Patch) (*model.Task, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	task, err := c.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	return task, c.refreshAfterMutation(ctx)
}

// Delete removes a task and reloads.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if c.isClosed() {
		return ErrClosed
	}
	if err := c.repo.Delete(ctx, id); err != nil {
		return err
	}
	return c.refreshAfterMutation(ctx)
}

// Toggle flips a task between completed and in-progress, based on the
// copy in the current collection.
func (c *Controller) Toggle(ctx context.Context, id string) (*model.Task, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	var (
		current model.Task
		found   bool
	)
	for _, t := range c.tasks {
		if t.ID == id {
			current, found = t, true
			break
		}
	}
	c.mu.Unlock()

	if !found {
		return nil, &api.Error{Kind: api.KindNotFound, Op: "toggle task", Err: errors.New("task " + id + " is not in the list")}
	}
	return c.Update(ctx, id, model.StatusPatch(current.Status.Toggled()))
}

// refreshAfterMutation reloads after a successful mutation. A newer
// refresh already reflects the mutation, so being superseded is fine.
func (c *Controller) refreshAfterMutation(ctx context.Context) error {
	err := c.Refresh(ctx)
	switch {
	case err == nil, errors.Is(err, ErrSuperseded):
		return nil
	case errors.Is(err, ErrClosed):
		return err
	}
	return &ReloadError{Err: err}
}

// SetTitleFilter sets the server-side title filter used by later refreshes.
func (c *Controller) SetTitleFilter(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.titleFilter = title
}

// Restore seeds an Idle, empty controller from the cache. It reports
// whether anything was restored.
func (c *Controller) Restore(ctx context.Context) (bool, error) {
	if c.cache == nil {
		return false, nil
	}
	if !c.restorable() {
		return false, nil
	}

	tasks, fetchedAt, err := c.cache.LoadSnapshot(ctx, c.owner)
	if err != nil {
		return false, err
	}
	if len(tasks) == 0 {
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state != StateIdle || len(c.tasks) > 0 {
		return false, nil
	}
	c.tasks = tasks
	c.cached = true
	c.updatedAt = fetchedAt
	return true, nil
}

func (c *Controller) restorable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.state == StateIdle && len(c.tasks) == 0
}

// Snapshot returns a copy of the controller's current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:       c.state,
		Tasks:       append([]model.Task(nil), c.tasks...),
		Err:         c.err,
		Cached:      c.cached,
		UpdatedAt:   c.updatedAt,
		TitleFilter: c.titleFilter,
	}
}

// View derives the displayed sequence from the current collection.
func (c *Controller) View(q view.Query) []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return view.Apply(c.tasks, q)
}

// Close tears the controller down. Results still in flight are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.seq++
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
