package task

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"taskdeck/internal/eventbus"
	"taskdeck/internal/model"
	"taskdeck/internal/storage"
)

// ServiceError tags a failed operation with its name so observers can tell
// which call path broke.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *ServiceError) Unwrap() error { return e.Err }

// Service orchestrates the factory, repository and storage. It validates
// update payloads before delegating (creation validates inside the
// factory/creator chain), wraps repository failures with the operation
// name, emits a diagnostic event and re-raises. Nothing is swallowed.
type Service struct {
	repo    *Repository
	factory *Factory
	store   *storage.Service
	bus     *eventbus.Bus
	logger  *zap.Logger
}

func NewService(repo *Repository, factory *Factory, store *storage.Service, bus *eventbus.Bus, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		factory: factory,
		store:   store,
		bus:     bus,
		logger:  logger,
	}
}

func (s *Service) fail(op string, err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		s.bus.Emit(EventValidationError, verr.Error(), verr.Field)
	}
	s.bus.Emit(EventServiceError, err.Error(), op)
	s.logger.Warn("operation failed", zap.String("op", op), zap.Error(err))
	return &ServiceError{Op: op, Err: err}
}

// Create builds a task of the given type and stores it.
func (s *Service) Create(ctx context.Context, typ model.TaskType, in Input) (*Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, s.fail("create", err)
	}
	t, err := s.factory.Create(typ, in)
	if err != nil {
		return nil, s.fail("create", err)
	}
	return s.repo.Add(t), nil
}

// Update validates the patch, then delegates to the repository.
func (s *Service) Update(ctx context.Context, id model.TaskID, p Patch) (*Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, s.fail("update", err)
	}
	if res := ValidateUpdate(p, s.factory.clk.Now()); !res.Valid {
		return nil, s.fail("update", &ValidationError{Errors: res.Errors})
	}
	t, err := s.repo.Update(id, p)
	if err != nil {
		return nil, s.fail("update", err)
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, id model.TaskID) (*Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, s.fail("delete", err)
	}
	t, err := s.repo.Delete(id)
	if err != nil {
		return nil, s.fail("delete", err)
	}
	return t, nil
}

func (s *Service) Toggle(ctx context.Context, id model.TaskID) (*Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, s.fail("toggle", err)
	}
	t, err := s.repo.ToggleCompletion(id)
	if err != nil {
		return nil, s.fail("toggle", err)
	}
	return t, nil
}

func (s *Service) Get(id model.TaskID) (*Task, error) {
	t, err := s.repo.Get(id)
	if err != nil {
		return nil, s.fail("get", err)
	}
	return t, nil
}

func (s *Service) List(f Filter) []*Task {
	return s.repo.ByFilter(f)
}

func (s *Service) Stats() Stats {
	return s.repo.Stats()
}

// Backup returns a versioned snapshot of the persisted collection. Current
// in-memory state is flushed first so the snapshot is not stale.
func (s *Service) Backup(ctx context.Context) (string, error) {
	if err := s.repo.Save(ctx); err != nil {
		return "", s.fail("backup", err)
	}
	snap, err := s.store.Backup(ctx)
	if err != nil {
		return "", s.fail("backup", err)
	}
	return snap, nil
}

// Restore replaces the persisted collection from a snapshot and reloads
// the in-memory map. A malformed snapshot aborts with nothing applied.
func (s *Service) Restore(ctx context.Context, snapshot string) error {
	if err := s.store.Restore(ctx, snapshot); err != nil {
		return s.fail("restore", err)
	}
	if err := s.repo.Load(ctx); err != nil {
		return s.fail("restore", err)
	}
	return nil
}

// ExportICS renders the task's calendar entry.
func (s *Service) ExportICS(id model.TaskID) (string, error) {
	t, err := s.repo.Get(id)
	if err != nil {
		return "", s.fail("export", err)
	}
	ics, err := BuildCalendarICS(t, s.factory.clk.Now())
	if err != nil {
		return "", s.fail("export", err)
	}
	return ics, nil
}
