package task

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskdeck/internal/clock"
	"taskdeck/internal/eventbus"
	"taskdeck/internal/model"
	"taskdeck/internal/storage"
)

type repoFixture struct {
	clk     *clock.FakeClock
	bus     *eventbus.Bus
	kv      *storage.MemoryKV
	store   *storage.Service
	factory *Factory
	repo    *Repository
}

// newRepoFixture wires a repository against in-memory storage. The hour-long
// auto-save window keeps the debounce timer inert unless a test overrides it.
func newRepoFixture(t *testing.T, autosave time.Duration) *repoFixture {
	t.Helper()
	if autosave == 0 {
		autosave = time.Hour
	}
	clk := testClock()
	bus := eventbus.New(zap.NewNop())
	kv := storage.NewMemoryKV()
	store := storage.NewService(kv, clk, zap.NewNop())
	return &repoFixture{
		clk:     clk,
		bus:     bus,
		kv:      kv,
		store:   store,
		factory: NewFactory(clk),
		repo:    NewRepository(store, bus, clk, zap.NewNop(), autosave),
	}
}

func (fx *repoFixture) add(t *testing.T, title string, in Input) *Task {
	t.Helper()
	in.Title = title
	task, err := fx.factory.Create(model.TypeBasic, in)
	require.NoError(t, err)
	return fx.repo.Add(task)
}

// eventRecorder collects emissions under a mutex so listeners fired from the
// auto-save timer goroutine are safe to inspect.
type eventRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *eventRecorder) listen(bus *eventbus.Bus, names ...string) {
	for _, name := range names {
		name := name
		bus.On(name, func(args ...any) {
			r.mu.Lock()
			r.events = append(r.events, name)
			r.mu.Unlock()
		})
	}
}

func (r *eventRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestRepository_AddEmitsAndStores(t *testing.T) {
	fx := newRepoFixture(t, 0)
	rec := &eventRecorder{}
	rec.listen(fx.bus, EventTaskAdded)

	created := fx.add(t, "Buy milk", Input{})

	got, err := fx.repo.Get(created.ID())
	require.NoError(t, err)
	assert.Same(t, created, got)
	assert.Equal(t, []string{EventTaskAdded}, rec.snapshot())
	assert.Equal(t, 1, fx.repo.Len())
}

func TestRepository_GetUnknown(t *testing.T) {
	fx := newRepoFixture(t, 0)

	_, err := fx.repo.Get("missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "missing")
}

func TestRepository_Update(t *testing.T) {
	fx := newRepoFixture(t, 0)
	created := fx.add(t, "Buy milk", Input{})

	var oldTitle string
	fx.bus.On(EventTaskUpdated, func(args ...any) {
		old := args[1].(model.Record)
		oldTitle = old.Title
	})

	title := "Buy oat milk"
	updated, err := fx.repo.Update(created.ID(), Patch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Buy oat milk", updated.Title())
	assert.Equal(t, "Buy milk", oldTitle, "update event carries the prior record")
}

func TestRepository_UpdateRejectedLeavesTaskUnchanged(t *testing.T) {
	fx := newRepoFixture(t, 0)
	created := fx.add(t, "Buy milk", Input{Priority: "low"})
	rec := &eventRecorder{}
	rec.listen(fx.bus, EventTaskUpdated)

	bad := "critical"
	_, err := fx.repo.Update(created.ID(), Patch{Priority: &bad})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	got, err := fx.repo.Get(created.ID())
	require.NoError(t, err)
	assert.Equal(t, model.PriorityLow, got.Priority())
	assert.Empty(t, rec.snapshot(), "rejected patch emits no update event")
}

func TestRepository_UpdateUnknownLeavesCollectionUnchanged(t *testing.T) {
	fx := newRepoFixture(t, 0)
	fx.add(t, "Buy milk", Input{})

	title := "x"
	_, err := fx.repo.Update("missing", Patch{Title: &title})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, fx.repo.Len())
}

func TestRepository_Delete(t *testing.T) {
	fx := newRepoFixture(t, 0)
	created := fx.add(t, "Buy milk", Input{})
	rec := &eventRecorder{}
	rec.listen(fx.bus, EventTaskDeleted)

	removed, err := fx.repo.Delete(created.ID())
	require.NoError(t, err)
	assert.Same(t, created, removed)
	assert.Equal(t, 0, fx.repo.Len())
	assert.Equal(t, []string{EventTaskDeleted}, rec.snapshot())

	_, err = fx.repo.Delete(created.ID())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_ToggleCompletion(t *testing.T) {
	fx := newRepoFixture(t, 0)
	created := fx.add(t, "Buy milk", Input{})
	rec := &eventRecorder{}
	rec.listen(fx.bus, EventTaskCompleted, EventTaskUncompleted)

	toggled, err := fx.repo.ToggleCompletion(created.ID())
	require.NoError(t, err)
	assert.True(t, toggled.Completed())

	_, err = fx.repo.ToggleCompletion(created.ID())
	require.NoError(t, err)
	assert.False(t, created.Completed())

	assert.Equal(t, []string{EventTaskCompleted, EventTaskUncompleted}, rec.snapshot())
}

func TestRepository_ByFilterStatus(t *testing.T) {
	fx := newRepoFixture(t, 0)
	a := fx.add(t, "done one", Input{})
	fx.add(t, "open one", Input{})
	_, err := fx.repo.ToggleCompletion(a.ID())
	require.NoError(t, err)

	f := DefaultFilter()
	f.Status = StatusCompleted
	out := fx.repo.ByFilter(f)
	require.Len(t, out, 1)
	assert.Equal(t, "done one", out[0].Title())

	f.Status = StatusIncomplete
	out = fx.repo.ByFilter(f)
	require.Len(t, out, 1)
	assert.Equal(t, "open one", out[0].Title())

	assert.Equal(t, 2, fx.repo.Len(), "filtering never mutates the collection")
}

func TestRepository_ByFilterSearch(t *testing.T) {
	fx := newRepoFixture(t, 0)
	fx.add(t, "Buy milk", Input{})
	fx.add(t, "Call plumber", Input{Description: "kitchen sink leaks MILK everywhere"})
	fx.add(t, "Read book", Input{})

	f := DefaultFilter()
	f.Search = "milk"
	out := fx.repo.ByFilter(f)
	assert.Len(t, out, 2, "search is case-insensitive over title and description")
}

func TestRepository_ByFilterSortPriority(t *testing.T) {
	fx := newRepoFixture(t, 0)
	fx.add(t, "low early", Input{Priority: "low"})
	fx.clk.Advance(time.Minute)
	fx.add(t, "high", Input{Priority: "high"})
	fx.clk.Advance(time.Minute)
	fx.add(t, "low late", Input{Priority: "low"})

	f := DefaultFilter()
	f.SortBy = SortByPriority
	out := fx.repo.ByFilter(f)
	require.Len(t, out, 3)
	assert.Equal(t, "high", out[0].Title())
	assert.Equal(t, "low late", out[1].Title(), "equal priorities fall back to newest-first")
	assert.Equal(t, "low early", out[2].Title())
}

func TestRepository_ByFilterSortDueDate(t *testing.T) {
	fx := newRepoFixture(t, 0)
	fx.add(t, "no due", Input{})
	fx.add(t, "later", Input{DueDate: "2026-04-01"})
	fx.add(t, "sooner", Input{DueDate: "2026-03-05"})

	f := DefaultFilter()
	f.SortBy = SortByDueDate
	out := fx.repo.ByFilter(f)
	require.Len(t, out, 3)
	assert.Equal(t, "sooner", out[0].Title())
	assert.Equal(t, "later", out[1].Title())
	assert.Equal(t, "no due", out[2].Title(), "tasks without a due date sort last")
}

func TestRepository_SortTieBreaksFollowInsertionOrder(t *testing.T) {
	fx := newRepoFixture(t, 0)

	// Identical due date, priority and CreatedAt: nothing but insertion
	// order can break the tie.
	titles := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel"}
	for _, title := range titles {
		fx.add(t, title, Input{Priority: "medium", DueDate: "2026-03-10"})
	}

	for _, sortBy := range []string{SortByDueDate, SortByPriority, SortByCreated, SortByUpdated} {
		f := DefaultFilter()
		f.SortBy = sortBy
		want := fx.repo.ByFilter(f)
		for i := 0; i < 30; i++ {
			got := fx.repo.ByFilter(f)
			require.Equal(t, len(want), len(got))
			for j := range want {
				assert.Same(t, want[j], got[j], "sort %s call %d position %d", sortBy, i, j)
			}
		}
	}

	f := DefaultFilter()
	f.SortBy = SortByDueDate
	out := fx.repo.ByFilter(f)
	got := make([]string, 0, len(out))
	for _, task := range out {
		got = append(got, task.Title())
	}
	assert.Equal(t, titles, got, "equal keys keep insertion order")
}

func TestRepository_InsertionOrderSurvivesSaveLoad(t *testing.T) {
	fx := newRepoFixture(t, 0)
	titles := []string{"third", "first", "second"}
	for _, title := range titles {
		fx.add(t, title, Input{})
	}

	ctx := context.Background()
	require.NoError(t, fx.repo.Save(ctx))
	require.NoError(t, fx.repo.Load(ctx))

	f := DefaultFilter()
	f.SortBy = SortByDueDate
	out := fx.repo.ByFilter(f)
	got := make([]string, 0, len(out))
	for _, task := range out {
		got = append(got, task.Title())
	}
	assert.Equal(t, titles, got)
}

func TestRepository_SaveAndLoadRoundTrip(t *testing.T) {
	fx := newRepoFixture(t, 0)
	fx.add(t, "Buy milk", Input{Priority: "high"})
	fx.add(t, "Read book", Input{})
	rec := &eventRecorder{}
	rec.listen(fx.bus, EventTasksSaved, EventTasksLoaded)

	ctx := context.Background()
	require.NoError(t, fx.repo.Save(ctx))

	fresh := NewRepository(fx.store, fx.bus, fx.clk, zap.NewNop(), time.Hour)
	require.NoError(t, fresh.Load(ctx))
	assert.Equal(t, 2, fresh.Len())

	got := fresh.List()
	titles := make([]string, 0, len(got))
	for _, task := range got {
		titles = append(titles, task.Title())
	}
	assert.ElementsMatch(t, []string{"Buy milk", "Read book"}, titles)
	assert.Equal(t, []string{EventTasksSaved, EventTasksLoaded}, rec.snapshot())
}

func TestRepository_LoadReplacesCollection(t *testing.T) {
	fx := newRepoFixture(t, 0)
	fx.add(t, "persisted", Input{})
	require.NoError(t, fx.repo.Save(context.Background()))

	fx.add(t, "only in memory", Input{})
	require.Equal(t, 2, fx.repo.Len())

	require.NoError(t, fx.repo.Load(context.Background()))
	assert.Equal(t, 1, fx.repo.Len(), "load replaces the in-memory collection")
}

func TestRepository_SaveFailureEmitsStorageError(t *testing.T) {
	fx := newRepoFixture(t, 0)
	fx.add(t, "Buy milk", Input{})
	rec := &eventRecorder{}
	rec.listen(fx.bus, EventStorageError)

	fx.kv.FailWrites = true
	err := fx.repo.Save(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{EventStorageError}, rec.snapshot())
}

func TestRepository_AutoSaveDebounce(t *testing.T) {
	fx := newRepoFixture(t, 20*time.Millisecond)
	rec := &eventRecorder{}
	rec.listen(fx.bus, EventTasksSaved)

	fx.add(t, "one", Input{})
	fx.add(t, "two", Input{})
	fx.add(t, "three", Input{})

	assert.Empty(t, rec.snapshot(), "nothing persists inside the quiet window")

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, []string{EventTasksSaved}, rec.snapshot(), "a burst coalesces into one write")

	records, err := fx.store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestRepository_CloseFlushesPendingSave(t *testing.T) {
	fx := newRepoFixture(t, time.Hour)
	fx.add(t, "not yet flushed", Input{})

	require.NoError(t, fx.repo.Close(context.Background()))

	records, err := fx.store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "not yet flushed", records[0].Title)

	// Idempotent.
	require.NoError(t, fx.repo.Close(context.Background()))
}
