package task

import (
	"taskdeck/internal/model"
)

// Builder is a fluent accumulator over factory inputs. Build hands the
// accumulated data to the factory and resets, so one builder instance is
// reusable immediately after each build.
type Builder struct {
	factory *Factory
	typ     model.TaskType
	in      Input
}

func NewBuilder(f *Factory) *Builder {
	b := &Builder{factory: f}
	b.reset()
	return b
}

func (b *Builder) reset() {
	b.typ = model.TypeBasic
	b.in = Input{}
}

func (b *Builder) OfType(typ model.TaskType) *Builder {
	b.typ = typ
	return b
}

func (b *Builder) Title(title string) *Builder {
	b.in.Title = title
	return b
}

func (b *Builder) Description(desc string) *Builder {
	b.in.Description = desc
	return b
}

func (b *Builder) Priority(p string) *Builder {
	b.in.Priority = p
	return b
}

func (b *Builder) DueDate(due string) *Builder {
	b.in.DueDate = due
	return b
}

func (b *Builder) EscalationLevel(level int) *Builder {
	b.in.EscalationLevel = level
	return b
}

func (b *Builder) Recurrence(pattern string, interval int) *Builder {
	b.in.RecurrencePattern = pattern
	b.in.RecurrenceInterval = interval
	return b
}

func (b *Builder) MaxOccurrences(n int) *Builder {
	b.in.MaxOccurrences = &n
	return b
}

func (b *Builder) Project(name, milestone string) *Builder {
	b.in.ProjectName = name
	b.in.Milestone = milestone
	return b
}

func (b *Builder) EstimatedHours(hours float64) *Builder {
	b.in.EstimatedHours = &hours
	return b
}

func (b *Builder) ActualHours(hours float64) *Builder {
	b.in.ActualHours = hours
	return b
}

func (b *Builder) Progress(pct int) *Builder {
	b.in.Progress = pct
	return b
}

func (b *Builder) DependsOn(ids ...string) *Builder {
	b.in.Dependencies = append(b.in.Dependencies, ids...)
	return b
}

// Build creates the task and resets the builder regardless of outcome.
func (b *Builder) Build() (*Task, error) {
	typ, in := b.typ, b.in
	b.reset()
	return b.factory.Create(typ, in)
}
