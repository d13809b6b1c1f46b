package task

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"taskdeck/internal/clock"
	"taskdeck/internal/eventbus"
	"taskdeck/internal/model"
	"taskdeck/internal/storage"
)

// DefaultAutoSaveInterval is the debounce quiet window for auto-save.
const DefaultAutoSaveInterval = 500 * time.Millisecond

// Repository owns the authoritative in-memory task map, persists through
// the storage service and emits domain events on the bus. Mutations
// schedule a debounced auto-save: a pending flush is cancelled and
// rescheduled on each new mutation, so bursts coalesce into one write.
type Repository struct {
	mu     sync.Mutex
	clk    clock.Clock
	bus    *eventbus.Bus
	store  *storage.Service
	logger *zap.Logger

	autosave time.Duration
	tasks    map[model.TaskID]*Task

	// Insertion order is the final sort tie-break, so listings stay
	// deterministic across calls. seq survives Update and ToggleCompletion;
	// Load assigns it in stored order.
	seq     map[model.TaskID]uint64
	nextSeq uint64

	dirty     bool
	saveTimer *time.Timer
	closed    bool
}

func NewRepository(store *storage.Service, bus *eventbus.Bus, clk clock.Clock, logger *zap.Logger, autosave time.Duration) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if autosave <= 0 {
		autosave = DefaultAutoSaveInterval
	}
	return &Repository{
		clk:      clk,
		bus:      bus,
		store:    store,
		logger:   logger,
		autosave: autosave,
		tasks:    map[model.TaskID]*Task{},
		seq:      map[model.TaskID]uint64{},
	}
}

// Load replaces the in-memory map from the persisted collection and emits
// tasks:loaded. A storage failure is emitted as storage:error and re-raised.
func (r *Repository) Load(ctx context.Context) error {
	records, err := r.store.Load(ctx)
	if err != nil {
		r.bus.Emit(EventStorageError, err, "load")
		return err
	}

	r.mu.Lock()
	r.tasks = make(map[model.TaskID]*Task, len(records))
	r.seq = make(map[model.TaskID]uint64, len(records))
	r.nextSeq = 0
	for _, rec := range records {
		r.tasks[rec.ID] = FromRecord(r.clk, rec)
		r.seq[rec.ID] = r.nextSeq
		r.nextSeq++
	}
	loaded := r.listLocked()
	r.dirty = false
	r.mu.Unlock()

	r.bus.Emit(EventTasksLoaded, loaded)
	return nil
}

// Save persists immediately, bypassing the debounce window.
func (r *Repository) Save(ctx context.Context) error {
	r.mu.Lock()
	r.stopTimerLocked()
	records := r.recordsLocked()
	r.mu.Unlock()

	if err := r.store.Save(ctx, records); err != nil {
		r.bus.Emit(EventStorageError, err, "save")
		return err
	}

	r.mu.Lock()
	r.dirty = false
	r.mu.Unlock()

	r.bus.Emit(EventTasksSaved, len(records))
	return nil
}

// Add stores a factory-built task, schedules auto-save and emits
// task:added.
func (r *Repository) Add(t *Task) *Task {
	r.mu.Lock()
	if _, ok := r.seq[t.ID()]; !ok {
		r.seq[t.ID()] = r.nextSeq
		r.nextSeq++
	}
	r.tasks[t.ID()] = t
	r.scheduleSaveLocked()
	r.mu.Unlock()

	r.bus.Emit(EventTaskAdded, t)
	return t
}

// Get returns the task for id, or ErrNotFound.
func (r *Repository) Get(id model.TaskID) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, nil
}

// Update applies a validated patch. A rejected patch leaves the stored
// task untouched.
func (r *Repository) Update(id model.TaskID, p Patch) (*Task, error) {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	old := t.Record()
	if err := t.Update(p); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.scheduleSaveLocked()
	r.mu.Unlock()

	r.bus.Emit(EventTaskUpdated, t, old)
	return t, nil
}

// Delete removes the task, schedules auto-save and emits task:deleted.
func (r *Repository) Delete(id model.TaskID) (*Task, error) {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.tasks, id)
	delete(r.seq, id)
	r.scheduleSaveLocked()
	r.mu.Unlock()

	r.bus.Emit(EventTaskDeleted, id, t)
	return t, nil
}

// ToggleCompletion flips completion and emits task:completed or
// task:uncompleted accordingly.
func (r *Repository) ToggleCompletion(id model.TaskID) (*Task, error) {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	t.ToggleComplete()
	completed := t.Completed()
	r.scheduleSaveLocked()
	r.mu.Unlock()

	if completed {
		r.bus.Emit(EventTaskCompleted, t)
	} else {
		r.bus.Emit(EventTaskUncompleted, t)
	}
	return t, nil
}

// ByFilter returns a fresh ordered slice; the stored collection is never
// mutated. Pipeline: status, priority, case-insensitive substring search
// over title+description, overdue, then sort.
func (r *Repository) ByFilter(f Filter) []*Task {
	r.mu.Lock()
	all := r.listLocked()
	r.mu.Unlock()

	out := make([]*Task, 0, len(all))
	for _, t := range all {
		if f.matches(t) {
			out = append(out, t)
		}
	}
	sortTasks(out, f.SortBy)

	r.bus.Emit(EventTasksFiltered, out, f)
	return out
}

// List returns every task ordered by the default sort.
func (r *Repository) List() []*Task {
	r.mu.Lock()
	out := r.listLocked()
	r.mu.Unlock()

	sortTasks(out, SortByCreated)
	return out
}

// Len reports the current task count.
func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Close flushes any debounced save synchronously. Changes inside the
// debounce window are not lost on orderly shutdown.
func (r *Repository) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.stopTimerLocked()
	dirty := r.dirty
	r.mu.Unlock()

	if !dirty {
		return nil
	}
	return r.Save(ctx)
}

// listLocked returns the tasks in insertion order, never map order.
func (r *Repository) listLocked() []*Task {
	out := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return r.seq[out[i].ID()] < r.seq[out[j].ID()]
	})
	return out
}

func (r *Repository) recordsLocked() []model.Record {
	out := make([]model.Record, 0, len(r.tasks))
	for _, t := range r.listLocked() {
		out = append(out, t.Record())
	}
	return out
}

// scheduleSaveLocked moves the repository to dirty-scheduled: any pending
// flush is cancelled and the quiet window restarts.
func (r *Repository) scheduleSaveLocked() {
	r.dirty = true
	if r.closed {
		return
	}
	r.stopTimerLocked()
	r.saveTimer = time.AfterFunc(r.autosave, r.flush)
}

func (r *Repository) stopTimerLocked() {
	if r.saveTimer != nil {
		r.saveTimer.Stop()
		r.saveTimer = nil
	}
}

func (r *Repository) flush() {
	r.mu.Lock()
	if !r.dirty || r.closed {
		r.mu.Unlock()
		return
	}
	records := r.recordsLocked()
	r.dirty = false
	r.saveTimer = nil
	r.mu.Unlock()

	if err := r.store.Save(context.Background(), records); err != nil {
		r.logger.Warn("auto-save failed", zap.Error(err))
		r.mu.Lock()
		r.dirty = true
		r.mu.Unlock()
		r.bus.Emit(EventStorageError, err, "autosave")
		return
	}
	r.logger.Debug("auto-saved tasks", zap.Int("count", len(records)))
	r.bus.Emit(EventTasksSaved, len(records))
}
