package cli

import (
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nhle/taskclient/internal/model"
	"github.com/nhle/taskclient/internal/theme"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// renderTable lays tasks out one per row. Overdue deadlines are flagged.
func renderTable(tasks []model.Task, now time.Time) string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		deadline := "-"
		if !t.Deadline.IsZero() {
			deadline = t.Deadline.String()
			if t.IsOverdue(now) {
				deadline += " (overdue)"
			}
		}
		rows = append(rows, []string{t.ID, string(t.Status), string(t.Priority), deadline, t.Title})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorSubtle)).
		Headers("ID", "STATUS", "PRIORITY", "DEADLINE", "TITLE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Render()
}
