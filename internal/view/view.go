// Package view derives the displayed task sequence from the collection and
// the user's search, status filter and sort choice. Everything here is pure.
package view

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nhle/taskclient/internal/model"
)

// StatusFilter restricts the view to one status, or StatusAll.
type StatusFilter string

// StatusAll disables status filtering.
const StatusAll StatusFilter = "all"

// StatusFilters lists the filters in the order the UI cycles through them.
var StatusFilters = []StatusFilter{
	StatusAll,
	StatusFilter(model.StatusInProgress),
	StatusFilter(model.StatusCompleted),
}

// ParseStatusFilter accepts "all", "" or any spelling model.ParseStatus
// understands.
func ParseStatusFilter(s string) (StatusFilter, error) {
	trimmed := strings.ToLower(strings.TrimSpace(s))
	if trimmed == "" || trimmed == string(StatusAll) {
		return StatusAll, nil
	}
	status, err := model.ParseStatus(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid status filter %q: use all, in-progress or completed", s)
	}
	return StatusFilter(status), nil
}

// Next returns the filter after f in StatusFilters, wrapping around.
func (f StatusFilter) Next() StatusFilter {
	return cycle(StatusFilters, f.normalized())
}

func (f StatusFilter) normalized() StatusFilter {
	if f == "" {
		return StatusAll
	}
	return f
}

func (f StatusFilter) matches(t model.Task) bool {
	f = f.normalized()
	return f == StatusAll || model.Status(f) == t.Status
}

// SortKey selects the ordering of the view.
type SortKey string

// Sort keys.
const (
	SortNone     SortKey = "none"
	SortDeadline SortKey = "deadline"
	SortPriority SortKey = "priority"
)

// SortKeys lists the keys in the order the UI cycles through them.
var SortKeys = []SortKey{SortNone, SortDeadline, SortPriority}

// ParseSortKey accepts "", "none", "deadline" or "priority".
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "", SortNone:
		return SortNone, nil
	case SortDeadline, SortPriority:
		return k, nil
	default:
		return "", fmt.Errorf("invalid sort %q: use none, deadline or priority", s)
	}
}

// Next returns the key after k in SortKeys, wrapping around.
func (k SortKey) Next() SortKey {
	if k == "" {
		k = SortNone
	}
	return cycle(SortKeys, k)
}

// Query is everything the user can change about the view.
type Query struct {
	Search string
	Status StatusFilter
	Sort   SortKey
}

// IsZero reports whether q leaves the collection unchanged.
func (q Query) IsZero() bool {
	return strings.TrimSpace(q.Search) == "" &&
		q.Status.normalized() == StatusAll &&
		(q.Sort == "" || q.Sort == SortNone)
}

// Apply filters by search term and status, then sorts. The input is never
// modified and the result is always a fresh slice.
func Apply(tasks []model.Task, q Query) []model.Task {
	term := strings.ToLower(q.Search)

	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if !q.Status.matches(t) {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(t.Title+"\n"+t.Description), term) {
			continue
		}
		out = append(out, t)
	}

	switch q.Sort {
	case SortDeadline:
		slices.SortStableFunc(out, compareDeadline)
	case SortPriority:
		slices.SortStableFunc(out, func(a, b model.Task) int {
			return a.Priority.Rank() - b.Priority.Rank()
		})
	}
	return out
}

// compareDeadline orders by calendar date with undated tasks last.
func compareDeadline(a, b model.Task) int {
	switch {
	case a.Deadline.IsZero() && b.Deadline.IsZero():
		return 0
	case a.Deadline.IsZero():
		return 1
	case b.Deadline.IsZero():
		return -1
	default:
		return a.Deadline.Compare(b.Deadline)
	}
}

func cycle[T comparable](values []T, cur T) T {
	i := slices.Index(values, cur)
	return values[(i+1)%len(values)]
}
