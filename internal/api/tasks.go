package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/nhle/taskclient/internal/model"
)

// ListOptions narrows a task listing on the server side.
type ListOptions struct {
	// Title, when set, asks the server for tasks whose title contains it.
	Title string
}

// List returns every task visible to the current credential, in the
// order the server sent them.
func (c *Client) List(ctx context.Context, opts ListOptions) ([]model.Task, error) {
	const op = "list tasks"

	var query url.Values
	if t := strings.TrimSpace(opts.Title); t != "" {
		query = url.Values{"title": {t}}
	}

	var payload taskList
	err := c.do(ctx, request{
		op:     op,
		method: http.MethodGet,
		path:   "/tasks",
		query:  query,
		auth:   true,
		result: &payload,
	})
	if err != nil {
		return nil, err
	}

	tasks := make([]model.Task, 0, len(payload))
	seen := make(map[string]bool, len(payload))
	for _, p := range payload {
		task, err := p.toTask()
		if err != nil {
			return nil, &Error{Kind: KindServerFault, Op: op, Err: err}
		}
		if seen[task.ID] {
			continue
		}
		seen[task.ID] = true
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Create submits a new task. Omitted status and priority default to
// in-progress and low; a deadline, when given, must not be in the past.
func (c *Client) Create(ctx context.Context, draft model.Draft) (*model.Task, error) {
	const op = "create task"

	if _, ok := c.creds.Get(); !ok {
		return nil, unauthenticated(op)
	}
	draft = draft.WithDefaults()
	if msg := c.validateDraft(draft); msg != "" {
		return nil, invalid(op, msg)
	}

	var payload taskPayload
	err := c.do(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   "/tasks",
		auth:   true,
		body:   draft,
		result: &payload,
	})
	if err != nil {
		return nil, err
	}
	return decodeTask(op, payload)
}

// Update applies patch to the task with the given id and returns the
// server's updated copy.
func (c *Client) Update(ctx context.Context, id string, patch model.Patch) (*model.Task, error) {
	const op = "update task"

	if _, ok := c.creds.Get(); !ok {
		return nil, unauthenticated(op)
	}
	if strings.TrimSpace(id) == "" {
		return nil, invalid(op, "task id is required")
	}
	if msg := validatePatch(patch); msg != "" {
		return nil, invalid(op, msg)
	}

	var payload taskPayload
	err := c.do(ctx, request{
		op:     op,
		method: http.MethodPut,
		path:   "/tasks/" + url.PathEscape(id),
		auth:   true,
		body:   patch,
		result: &payload,
	})
	if err != nil {
		return nil, err
	}
	return decodeTask(op, payload)
}

// Delete removes the task with the given id.
func (c *Client) Delete(ctx context.Context, id string) error {
	const op = "delete task"

	if _, ok := c.creds.Get(); !ok {
		return unauthenticated(op)
	}
	if strings.TrimSpace(id) == "" {
		return invalid(op, "task id is required")
	}

	return c.do(ctx, request{
		op:     op,
		method: http.MethodDelete,
		path:   "/tasks/" + url.PathEscape(id),
		auth:   true,
	})
}

func decodeTask(op string, p taskPayload) (*model.Task, error) {
	task, err := p.toTask()
	if err != nil {
		return nil, &Error{Kind: KindServerFault, Op: op, Err: err}
	}
	return &task, nil
}

// validateDraft returns a user-facing message for the first problem
// found, or "".
func (c *Client) validateDraft(d model.Draft) string {
	switch {
	case strings.TrimSpace(d.Title) == "":
		return "Title is required."
	case strings.TrimSpace(d.Description) == "":
		return "Description is required."
	case !d.Status.Valid():
		return "Status must be in-progress or completed."
	case !d.Priority.Valid():
		return "Priority must be low, medium or high."
	case !d.Deadline.IsZero() && d.Deadline.Before(model.Today(c.now())):
		return "Deadline cannot be in the past."
	}
	return ""
}

func validatePatch(p model.Patch) string {
	switch {
	case p.IsEmpty():
		return "Nothing to update."
	case p.Title != nil && strings.TrimSpace(*p.Title) == "":
		return "Title is required."
	case p.Status != nil && !p.Status.Valid():
		return "Status must be in-progress or completed."
	case p.Priority != nil && !p.Priority.Valid():
		return "Priority must be low, medium or high."
	}
	return ""
}
