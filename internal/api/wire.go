package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/nhle/taskclient/internal/model"
)

// taskPayload is a task as the service sends it. Document stores put the
// identifier in "_id"; other deployments use "id".
type taskPayload struct {
	ID          string     `json:"id"`
	DocumentID  string     `json:"_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Deadline    model.Date `json:"deadline"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
}

// toTask validates the payload against the model invariants.
func (p taskPayload) toTask() (model.Task, error) {
	id := p.ID
	if id == "" {
		id = p.DocumentID
	}
	if id == "" {
		return model.Task{}, fmt.Errorf("task without id")
	}
	if p.Title == "" {
		return model.Task{}, fmt.Errorf("task %s without title", id)
	}

	status := model.DefaultStatus
	if p.Status != "" {
		s, err := model.ParseStatus(p.Status)
		if err != nil {
			return model.Task{}, fmt.Errorf("task %s: %w", id, err)
		}
		status = s
	}

	priority := model.DefaultPriority
	if p.Priority != "" {
		pr, err := model.ParsePriority(p.Priority)
		if err != nil {
			return model.Task{}, fmt.Errorf("task %s: %w", id, err)
		}
		priority = pr
	}

	return model.Task{
		ID:          id,
		Title:       p.Title,
		Description: p.Description,
		Deadline:    p.Deadline,
		Status:      status,
		Priority:    priority,
	}, nil
}

// taskList decodes either a bare JSON array of tasks or an object
// wrapping it under "tasks".
type taskList []taskPayload

func (l *taskList) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			Tasks []taskPayload `json:"tasks"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return err
		}
		if wrapped.Tasks == nil {
			return fmt.Errorf("object response without tasks field")
		}
		*l = wrapped.Tasks
		return nil
	}
	var plain []taskPayload
	if err := json.Unmarshal(trimmed, &plain); err != nil {
		return err
	}
	*l = plain
	return nil
}

// userPayload is the user record returned by registration and login.
type userPayload struct {
	ID         string `json:"id"`
	DocumentID string `json:"_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
}

// loginPayload is the login response. Some deployments nest the identity
// under "user".
type loginPayload struct {
	Token string       `json:"token"`
	Name  string       `json:"name"`
	Email string       `json:"email"`
	User  *userPayload `json:"user"`
}
