package task

import (
	"strings"
	"time"

	"taskdeck/internal/clock"
	"taskdeck/internal/model"
)

const (
	maxTitleLen       = 100
	maxDescriptionLen = 500
)

const (
	msgTitleRequired = "title is required"
	msgTitleTooLong  = "title must be 100 characters or fewer"
	msgDescTooLong   = "description must be 500 characters or fewer"
	msgBadPriority   = "priority must be one of high, medium, low"
	msgBadDueDate    = "due date must be a valid date in YYYY-MM-DD format"
	msgDueDateInPast = "due date must not be in the past"
)

// Input carries raw creation fields before validation. Variant-specific
// fields are ignored by core validation and checked by the type's creator.
type Input struct {
	Title       string
	Description string
	Priority    string
	DueDate     string

	EscalationLevel int

	RecurrencePattern  string
	RecurrenceInterval int
	MaxOccurrences     *int

	ProjectName    string
	Milestone      string
	EstimatedHours *float64
	ActualHours    float64
	Progress       int
	Dependencies   []string
}

// Sanitized is the trimmed, defaulted form of the core fields. It is only
// meaningful when the enclosing result is valid.
type Sanitized struct {
	Title       string
	Description string
	Priority    model.Priority
	DueDate     *string
}

type ValidationResult struct {
	Valid     bool
	Errors    []string
	Sanitized Sanitized
}

func checkTitle(title string) []string {
	switch {
	case title == "":
		return []string{msgTitleRequired}
	case len([]rune(title)) > maxTitleLen:
		return []string{msgTitleTooLong}
	}
	return nil
}

func checkDescription(desc string) []string {
	if len([]rune(desc)) > maxDescriptionLen {
		return []string{msgDescTooLong}
	}
	return nil
}

func checkDueDate(due string, now time.Time) []string {
	d, err := time.ParseInLocation(model.DateLayout, due, now.Location())
	if err != nil {
		return []string{msgBadDueDate}
	}
	if d.Before(clock.StartOfDay(now)) {
		return []string{msgDueDateInPast}
	}
	return nil
}

// Validate checks the core fields of a creation input. It is pure: the
// input is never mutated, errors accumulate in field order, and the
// sanitized output is only used when every check passes. Priority defaults
// to medium when absent.
func Validate(in Input, now time.Time) ValidationResult {
	var errs []string

	title := strings.TrimSpace(in.Title)
	errs = append(errs, checkTitle(title)...)

	desc := strings.TrimSpace(in.Description)
	errs = append(errs, checkDescription(desc)...)

	priority := model.PriorityMedium
	if raw := strings.TrimSpace(in.Priority); raw != "" {
		priority = model.Priority(strings.ToLower(raw))
		if !priority.Valid() {
			errs = append(errs, msgBadPriority)
		}
	}

	var due *string
	if raw := strings.TrimSpace(in.DueDate); raw != "" {
		if msgs := checkDueDate(raw, now); len(msgs) > 0 {
			errs = append(errs, msgs...)
		} else {
			due = &raw
		}
	}

	if len(errs) > 0 {
		return ValidationResult{Valid: false, Errors: errs}
	}
	return ValidationResult{
		Valid: true,
		Sanitized: Sanitized{
			Title:       title,
			Description: desc,
			Priority:    priority,
			DueDate:     due,
		},
	}
}

// ValidateUpdate applies the same rules as Validate but only to the fields
// present in the patch; absent fields pass through untouched.
func ValidateUpdate(p Patch, now time.Time) ValidationResult {
	var errs []string
	var out Sanitized

	if p.Title != nil {
		out.Title = strings.TrimSpace(*p.Title)
		errs = append(errs, checkTitle(out.Title)...)
	}
	if p.Description != nil {
		out.Description = strings.TrimSpace(*p.Description)
		errs = append(errs, checkDescription(out.Description)...)
	}
	if p.Priority != nil {
		out.Priority = model.Priority(strings.ToLower(strings.TrimSpace(*p.Priority)))
		if !out.Priority.Valid() {
			errs = append(errs, msgBadPriority)
		}
	}
	if p.DueDate != nil {
		if raw := strings.TrimSpace(*p.DueDate); raw != "" {
			if msgs := checkDueDate(raw, now); len(msgs) > 0 {
				errs = append(errs, msgs...)
			} else {
				out.DueDate = &raw
			}
		}
	}

	if len(errs) > 0 {
		return ValidationResult{Valid: false, Errors: errs}
	}
	return ValidationResult{Valid: true, Sanitized: out}
}
