package task

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskdeck/internal/clock"
	"taskdeck/internal/model"
)

var ErrUnknownType = errors.New("unknown task type")

// VariantError reports variant-specific structural violations. It is raised
// only after core validation has passed, so callers can tell the two stages
// apart.
type VariantError struct {
	Type   model.TaskType
	Errors []string
}

func (e *VariantError) Error() string {
	return fmt.Sprintf("invalid %s task: %s", e.Type, strings.Join(e.Errors, "; "))
}

// Creator builds one task variant. ApplyDefaults runs before validation so
// validation always observes a fully-defaulted input.
type Creator interface {
	ApplyDefaults(in Input) Input
	CreateTask(in Input) (*Task, error)
}

// Factory dispatches creation to a Creator registered per type string.
// Callers may register new types without modifying the factory.
type Factory struct {
	clk      clock.Clock
	creators map[model.TaskType]Creator
}

func NewFactory(clk clock.Clock) *Factory {
	f := &Factory{
		clk:      clk,
		creators: map[model.TaskType]Creator{},
	}
	f.Register(model.TypeBasic, &basicCreator{f})
	f.Register(model.TypeUrgent, &urgentCreator{f})
	f.Register(model.TypeRecurring, &recurringCreator{f})
	f.Register(model.TypeProject, &projectCreator{f})
	return f
}

func (f *Factory) Register(typ model.TaskType, c Creator) {
	f.creators[typ] = c
}

func (f *Factory) Create(typ model.TaskType, in Input) (*Task, error) {
	c, ok := f.creators[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	return c.CreateTask(c.ApplyDefaults(in))
}

// newTask runs core validation and builds the shared base of every variant.
func (f *Factory) newTask(typ model.TaskType, in Input) (*Task, error) {
	now := f.clk.Now()
	res := Validate(in, now)
	if !res.Valid {
		return nil, &ValidationError{Errors: res.Errors}
	}
	rec := model.Record{
		ID:          model.TaskID(uuid.NewString()),
		Type:        typ,
		Title:       res.Sanitized.Title,
		Description: res.Sanitized.Description,
		Priority:    res.Sanitized.Priority,
		DueDate:     res.Sanitized.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return &Task{clk: f.clk, rec: rec}, nil
}

type basicCreator struct {
	f *Factory
}

func (c *basicCreator) ApplyDefaults(in Input) Input { return in }

func (c *basicCreator) CreateTask(in Input) (*Task, error) {
	return c.f.newTask(model.TypeBasic, in)
}

type urgentCreator struct {
	f *Factory
}

// ApplyDefaults escalates priority to high and pulls the due date in to
// tomorrow when neither was given.
func (c *urgentCreator) ApplyDefaults(in Input) Input {
	if strings.TrimSpace(in.Priority) == "" {
		in.Priority = string(model.PriorityHigh)
	}
	if strings.TrimSpace(in.DueDate) == "" {
		in.DueDate = c.f.clk.Now().AddDate(0, 0, 1).Format(model.DateLayout)
	}
	if in.EscalationLevel == 0 {
		in.EscalationLevel = 1
	}
	return in
}

func (c *urgentCreator) CreateTask(in Input) (*Task, error) {
	t, err := c.f.newTask(model.TypeUrgent, in)
	if err != nil {
		return nil, err
	}
	var errs []string
	if in.EscalationLevel < 1 {
		errs = append(errs, "escalation level must be at least 1")
	}
	if len(errs) > 0 {
		return nil, &VariantError{Type: model.TypeUrgent, Errors: errs}
	}
	t.rec.IsUrgent = true
	t.rec.EscalationLevel = in.EscalationLevel
	return t, nil
}

type recurringCreator struct {
	f *Factory
}

func (c *recurringCreator) ApplyDefaults(in Input) Input {
	if in.RecurrenceInterval == 0 {
		in.RecurrenceInterval = 1
	}
	if strings.TrimSpace(in.RecurrencePattern) == "" {
		in.RecurrencePattern = string(model.RecurDaily)
	}
	return in
}

func (c *recurringCreator) CreateTask(in Input) (*Task, error) {
	t, err := c.f.newTask(model.TypeRecurring, in)
	if err != nil {
		return nil, err
	}

	pattern := model.RecurrencePattern(strings.ToLower(strings.TrimSpace(in.RecurrencePattern)))
	var errs []string
	if !pattern.Valid() {
		errs = append(errs, "recurrence pattern must be one of daily, weekly, monthly, yearly")
	}
	if in.RecurrenceInterval < 1 {
		errs = append(errs, "recurrence interval must be at least 1")
	}
	if in.MaxOccurrences != nil && *in.MaxOccurrences < 1 {
		errs = append(errs, "max occurrences must be at least 1")
	}
	if len(errs) > 0 {
		return nil, &VariantError{Type: model.TypeRecurring, Errors: errs}
	}

	t.rec.RecurrencePattern = pattern
	t.rec.RecurrenceInterval = in.RecurrenceInterval
	t.rec.MaxOccurrences = in.MaxOccurrences
	t.rec.CurrentOccurrence = 1
	if t.rec.DueDate != nil {
		next, err := NextDueDate(*t.rec.DueDate, pattern, in.RecurrenceInterval)
		if err != nil {
			return nil, &VariantError{Type: model.TypeRecurring, Errors: []string{err.Error()}}
		}
		t.rec.NextDueDate = &next
	}
	return t, nil
}

type projectCreator struct {
	f *Factory
}

func (c *projectCreator) ApplyDefaults(in Input) Input {
	if in.Dependencies == nil {
		in.Dependencies = []string{}
	}
	return in
}

func (c *projectCreator) CreateTask(in Input) (*Task, error) {
	t, err := c.f.newTask(model.TypeProject, in)
	if err != nil {
		return nil, err
	}
	var errs []string
	if in.EstimatedHours != nil && *in.EstimatedHours < 0 {
		errs = append(errs, "estimated hours must not be negative")
	}
	if in.ActualHours < 0 {
		errs = append(errs, "actual hours must not be negative")
	}
	if in.Progress < 0 || in.Progress > 100 {
		errs = append(errs, "progress must be between 0 and 100")
	}
	if len(errs) > 0 {
		return nil, &VariantError{Type: model.TypeProject, Errors: errs}
	}

	t.rec.ProjectName = strings.TrimSpace(in.ProjectName)
	t.rec.Milestone = strings.TrimSpace(in.Milestone)
	t.rec.EstimatedHours = in.EstimatedHours
	t.rec.ActualHours = in.ActualHours
	t.rec.Progress = in.Progress
	deps := make([]model.TaskID, 0, len(in.Dependencies))
	for _, d := range in.Dependencies {
		if d = strings.TrimSpace(d); d != "" {
			deps = append(deps, model.TaskID(d))
		}
	}
	t.rec.Dependencies = deps
	return t, nil
}

// NextDueDate advances a calendar date by interval units of the pattern:
// days, weeks, calendar months or calendar years.
func NextDueDate(due string, pattern model.RecurrencePattern, interval int) (string, error) {
	d, err := time.Parse(model.DateLayout, due)
	if err != nil {
		return "", fmt.Errorf("due date must be YYYY-MM-DD")
	}
	switch pattern {
	case model.RecurDaily:
		d = d.AddDate(0, 0, interval)
	case model.RecurWeekly:
		d = d.AddDate(0, 0, 7*interval)
	case model.RecurMonthly:
		d = d.AddDate(0, interval, 0)
	case model.RecurYearly:
		d = d.AddDate(interval, 0, 0)
	default:
		return "", fmt.Errorf("unknown recurrence pattern %q", pattern)
	}
	return d.Format(model.DateLayout), nil
}
