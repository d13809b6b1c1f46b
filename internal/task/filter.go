package task

import (
	"sort"
	"strings"
)

const (
	StatusAll        = "all"
	StatusCompleted  = "completed"
	StatusIncomplete = "incomplete"
)

const (
	SortByPriority = "priority"
	SortByDueDate  = "dueDate"
	SortByCreated  = "created"
	SortByUpdated  = "updated"
	SortByTitle    = "title"
)

// Filter narrows and orders a task listing. It is transient per-session
// state, never persisted.
type Filter struct {
	Status   string // all | completed | incomplete
	Priority string // all | high | medium | low
	Search   string
	Overdue  bool
	SortBy   string // priority | dueDate | created | updated | title
}

func DefaultFilter() Filter {
	return Filter{
		Status:   StatusAll,
		Priority: "all",
		SortBy:   SortByCreated,
	}
}

// FilterPatch merges into a Filter shallowly: set fields overwrite,
// unset fields leave the current value alone.
type FilterPatch struct {
	Status   *string
	Priority *string
	Search   *string
	Overdue  *bool
	SortBy   *string
}

func (f Filter) Merge(p FilterPatch) Filter {
	if p.Status != nil {
		f.Status = *p.Status
	}
	if p.Priority != nil {
		f.Priority = *p.Priority
	}
	if p.Search != nil {
		f.Search = *p.Search
	}
	if p.Overdue != nil {
		f.Overdue = *p.Overdue
	}
	if p.SortBy != nil {
		f.SortBy = *p.SortBy
	}
	return f
}

func (f Filter) matches(t *Task) bool {
	switch strings.ToLower(strings.TrimSpace(f.Status)) {
	case "", StatusAll:
	case StatusCompleted:
		if !t.Completed() {
			return false
		}
	case StatusIncomplete:
		if t.Completed() {
			return false
		}
	}

	switch p := strings.ToLower(strings.TrimSpace(f.Priority)); p {
	case "", "all":
	default:
		if string(t.Priority()) != p {
			return false
		}
	}

	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		title := strings.ToLower(t.Title())
		desc := strings.ToLower(t.Description())
		if !strings.Contains(title, q) && !strings.Contains(desc, q) {
			return false
		}
	}

	if f.Overdue && !t.IsOverdue() {
		return false
	}
	return true
}

// sortTasks orders in place, stable. Tie-break rules:
//   - priority: descending weight, then most recently created first
//   - dueDate: ascending, tasks without a due date last
//   - created / updated: most recent first
//   - title: case-folded ascending
//
// The input arrives in insertion order and the sort is stable, so equal
// keys keep that order deterministically.
func sortTasks(tasks []*Task, sortBy string) {
	less := func(a, b *Task) bool { return a.CreatedAt().After(b.CreatedAt()) }

	switch strings.TrimSpace(sortBy) {
	case SortByPriority:
		less = func(a, b *Task) bool {
			wa, wb := a.Priority().Weight(), b.Priority().Weight()
			if wa != wb {
				return wa > wb
			}
			return a.CreatedAt().After(b.CreatedAt())
		}
	case SortByDueDate:
		less = func(a, b *Task) bool {
			da, db := a.DueDate(), b.DueDate()
			switch {
			case da == nil && db == nil:
				return false
			case da == nil:
				return false
			case db == nil:
				return true
			default:
				return *da < *db
			}
		}
	case SortByUpdated:
		less = func(a, b *Task) bool { return a.UpdatedAt().After(b.UpdatedAt()) }
	case SortByTitle:
		less = func(a, b *Task) bool {
			return strings.ToLower(a.Title()) < strings.ToLower(b.Title())
		}
	case SortByCreated, "":
		// default comparator
	}

	sort.SliceStable(tasks, func(i, j int) bool { return less(tasks[i], tasks[j]) })
}
