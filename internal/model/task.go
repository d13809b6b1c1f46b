package model

import (
	"time"
)

type TaskID string

// DateLayout is the calendar-date layout used for due dates.
const DateLayout = "2006-01-02"

type TaskType string

const (
	TypeBasic     TaskType = "basic"
	TypeUrgent    TaskType = "urgent"
	TypeRecurring TaskType = "recurring"
	TypeProject   TaskType = "project"
)

func (t TaskType) Valid() bool {
	switch t {
	case TypeBasic, TypeUrgent, TypeRecurring, TypeProject:
		return true
	}
	return false
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Weight orders priorities for sorting: high=3, medium=2, low=1.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

type RecurrencePattern string

const (
	RecurDaily   RecurrencePattern = "daily"
	RecurWeekly  RecurrencePattern = "weekly"
	RecurMonthly RecurrencePattern = "monthly"
	RecurYearly  RecurrencePattern = "yearly"
)

func (p RecurrencePattern) Valid() bool {
	switch p {
	case RecurDaily, RecurWeekly, RecurMonthly, RecurYearly:
		return true
	}
	return false
}

// Record is the flat persisted form of a task. Variant fields live on the
// same record, discriminated by Type, because the stored collection is a
// single array of flat JSON objects.
type Record struct {
	ID          TaskID     `json:"id"`
	Type        TaskType   `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	DueDate     *string    `json:"dueDate,omitempty"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt"`

	IsUrgent        bool `json:"isUrgent,omitempty"`
	EscalationLevel int  `json:"escalationLevel,omitempty"`

	RecurrencePattern  RecurrencePattern `json:"recurrencePattern,omitempty"`
	RecurrenceInterval int               `json:"recurrenceInterval,omitempty"`
	MaxOccurrences     *int              `json:"maxOccurrences,omitempty"`
	CurrentOccurrence  int               `json:"currentOccurrence,omitempty"`
	NextDueDate        *string           `json:"nextDueDate,omitempty"`

	ProjectName    string   `json:"projectName,omitempty"`
	Milestone      string   `json:"milestone,omitempty"`
	EstimatedHours *float64 `json:"estimatedHours,omitempty"`
	Dependencies   []TaskID `json:"dependencies,omitempty"`
	ActualHours    float64  `json:"actualHours,omitempty"`
	Progress       int      `json:"progress,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// Clone returns a deep copy so callers can hand records out without
// exposing shared slices or maps.
func (r Record) Clone() Record {
	out := r
	if r.DueDate != nil {
		v := *r.DueDate
		out.DueDate = &v
	}
	if r.CompletedAt != nil {
		v := *r.CompletedAt
		out.CompletedAt = &v
	}
	if r.MaxOccurrences != nil {
		v := *r.MaxOccurrences
		out.MaxOccurrences = &v
	}
	if r.NextDueDate != nil {
		v := *r.NextDueDate
		out.NextDueDate = &v
	}
	if r.EstimatedHours != nil {
		v := *r.EstimatedHours
		out.EstimatedHours = &v
	}
	if r.Dependencies != nil {
		out.Dependencies = append([]TaskID{}, r.Dependencies...)
	}
	if r.Metadata != nil {
		out.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
