package task

import (
	"errors"
	"strings"
	"time"

	"taskdeck/internal/clock"
	"taskdeck/internal/model"
)

var ErrNotFound = errors.New("task not found")

// ValidationError carries the ordered list of human-readable messages a
// mutation was rejected with. State is never touched on rejection.
type ValidationError struct {
	Field  string
	Errors []string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "invalid " + e.Field + ": " + strings.Join(e.Errors, "; ")
	}
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// Task wraps the flat persisted record with validated mutation. All writes
// go through setters, Update or the completion toggles; every successful
// mutation touches UpdatedAt.
type Task struct {
	clk clock.Clock
	rec model.Record
}

// FromRecord rebuilds a task from its persisted form.
func FromRecord(clk clock.Clock, rec model.Record) *Task {
	return &Task{clk: clk, rec: rec.Clone()}
}

func (t *Task) ID() model.TaskID         { return t.rec.ID }
func (t *Task) Type() model.TaskType     { return t.rec.Type }
func (t *Task) Title() string            { return t.rec.Title }
func (t *Task) Description() string      { return t.rec.Description }
func (t *Task) Priority() model.Priority { return t.rec.Priority }
func (t *Task) DueDate() *string         { return t.rec.DueDate }
func (t *Task) Completed() bool          { return t.rec.Completed }
func (t *Task) CreatedAt() time.Time     { return t.rec.CreatedAt }
func (t *Task) UpdatedAt() time.Time     { return t.rec.UpdatedAt }
func (t *Task) CompletedAt() *time.Time  { return t.rec.CompletedAt }

// Record returns a deep copy of the persisted form, round-trip exact for
// core and variant fields.
func (t *Task) Record() model.Record { return t.rec.Clone() }

func (t *Task) touch() {
	t.rec.UpdatedAt = t.clk.Now()
}

func (t *Task) SetTitle(title string) error {
	title = strings.TrimSpace(title)
	if msgs := checkTitle(title); len(msgs) > 0 {
		return &ValidationError{Field: "title", Errors: msgs}
	}
	t.rec.Title = title
	t.touch()
	return nil
}

func (t *Task) SetDescription(desc string) error {
	desc = strings.TrimSpace(desc)
	if msgs := checkDescription(desc); len(msgs) > 0 {
		return &ValidationError{Field: "description", Errors: msgs}
	}
	t.rec.Description = desc
	t.touch()
	return nil
}

func (t *Task) SetPriority(p model.Priority) error {
	if !p.Valid() {
		return &ValidationError{Field: "priority", Errors: []string{msgBadPriority}}
	}
	t.rec.Priority = p
	t.touch()
	return nil
}

// SetDueDate assigns a calendar date, or clears it when due is empty.
// A date in the past (relative to the injected clock) is rejected.
func (t *Task) SetDueDate(due string) error {
	due = strings.TrimSpace(due)
	if due == "" {
		t.rec.DueDate = nil
		t.touch()
		return nil
	}
	if msgs := checkDueDate(due, t.clk.Now()); len(msgs) > 0 {
		return &ValidationError{Field: "dueDate", Errors: msgs}
	}
	t.rec.DueDate = &due
	t.touch()
	return nil
}

// MarkComplete is idempotent: completing a completed task is a no-op and
// does not touch UpdatedAt.
func (t *Task) MarkComplete() {
	if t.rec.Completed {
		return
	}
	now := t.clk.Now()
	t.rec.Completed = true
	t.rec.CompletedAt = &now
	t.rec.UpdatedAt = now
}

func (t *Task) MarkIncomplete() {
	if !t.rec.Completed {
		return
	}
	t.rec.Completed = false
	t.rec.CompletedAt = nil
	t.touch()
}

func (t *Task) ToggleComplete() {
	if t.rec.Completed {
		t.MarkIncomplete()
	} else {
		t.MarkComplete()
	}
}

// IsOverdue is derived, never stored: a due date exists, the task is not
// completed, and the due date is before today.
func (t *Task) IsOverdue() bool {
	if t.rec.Completed || t.rec.DueDate == nil {
		return false
	}
	today := t.clk.Now().Format(model.DateLayout)
	return *t.rec.DueDate < today
}

// Patch is a partial update. nil pointer => "no change"; for DueDate an
// empty string clears the date.
type Patch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && p.DueDate == nil
}

// Update applies the allow-listed fields of p. Validation runs over the
// whole patch first so a failed update never applies partially.
func (t *Task) Update(p Patch) error {
	res := ValidateUpdate(p, t.clk.Now())
	if !res.Valid {
		return &ValidationError{Errors: res.Errors}
	}
	if p.Title != nil {
		t.rec.Title = res.Sanitized.Title
	}
	if p.Description != nil {
		t.rec.Description = res.Sanitized.Description
	}
	if p.Priority != nil {
		t.rec.Priority = res.Sanitized.Priority
	}
	if p.DueDate != nil {
		t.rec.DueDate = res.Sanitized.DueDate
	}
	t.touch()
	return nil
}

// SetMetadata stores an opaque extension value under key.
func (t *Task) SetMetadata(key string, value any) {
	if key == "" {
		return
	}
	if t.rec.Metadata == nil {
		t.rec.Metadata = map[string]any{}
	}
	t.rec.Metadata[key] = value
	t.touch()
}

func (t *Task) Metadata(key string) (any, bool) {
	v, ok := t.rec.Metadata[key]
	return v, ok
}
