package tasklist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskclient/internal/model"
	"github.com/nhle/taskclient/internal/theme"
)

// TaskItem wraps a model.Task so it can be used in a bubbles/list.
type TaskItem struct {
	Task model.Task
}

// FilterValue returns the string used for fuzzy filtering.
func (i TaskItem) FilterValue() string { return i.Task.Title }

// Title returns the task title for the list.
func (i TaskItem) Title() string { return i.Task.Title }

// Description returns a short summary line for the list.
func (i TaskItem) Description() string {
	parts := []string{string(i.Task.Status), string(i.Task.Priority)}
	if !i.Task.Deadline.IsZero() {
		parts = append(parts, "due "+i.Task.Deadline.String())
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering task lines.
type ItemDelegate struct {
	// now decides which deadlines are overdue.
	now func() time.Time
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single task line: check mark, status, priority, title,
// deadline.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(TaskItem)
	if !ok {
		return
	}
	fmt.Fprint(w, renderLine(ti.Task, index == m.Index(), d.now()))
}

func renderLine(t model.Task, selected bool, now time.Time) string {
	check := "○"
	title := t.Title
	if t.IsCompleted() {
		check = "✓"
		title = theme.DoneTitleStyle.Render(title)
	}

	status := theme.StatusStyle(t.Status).Render(statusLabel(t.Status))
	priority := theme.PriorityStyle(t.Priority).Render(priorityLabel(t.Priority))

	deadline := ""
	if !t.Deadline.IsZero() {
		overdue := t.IsOverdue(now)
		label := " due " + t.Deadline.Time().Format("Jan 02")
		if overdue {
			label += " OVERDUE"
		}
		deadline = theme.DeadlineStyle(overdue).Render(label)
	}

	line := fmt.Sprintf("%s %s %s %s%s", check, status, priority, title, deadline)
	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

// statusLabel returns a fixed-width label so titles line up.
func statusLabel(s model.Status) string {
	switch s {
	case model.StatusCompleted:
		return "DONE"
	default:
		return "OPEN"
	}
}

// priorityLabel returns a short label for the given priority.
func priorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "HI"
	case model.PriorityMedium:
		return "MD"
	case model.PriorityLow:
		return "LO"
	default:
		return "??"
	}
}

// relativeTime returns a human-friendly age such as "5m" or "2d".
func relativeTime(since time.Duration) string {
	switch {
	case since < time.Minute:
		return "moments"
	case since < time.Hour:
		return fmt.Sprintf("%dm", int(since.Minutes()))
	case since < 24*time.Hour:
		return fmt.Sprintf("%dh", int(since.Hours()))
	default:
		return fmt.Sprintf("%dd", int(since.Hours()/24))
	}
}

// Ensure the delegate satisfies the list interface.
var _ list.ItemDelegate = ItemDelegate{}
