package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"taskdeck/internal/clock"
	"taskdeck/internal/model"
)

const (
	tasksKey = "taskdeck_tasks"
	probeKey = "taskdeck_probe"

	// BackupVersion tags the snapshot format.
	BackupVersion = "2.0"
)

// Snapshot is the backup wire format: the persisted collection plus a
// timestamp and format version.
type Snapshot struct {
	Data      []model.Record `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version"`
}

// Service wraps the byte store with the engine's persistence operations.
// Availability is probed once at construction with a write/delete round
// trip; when the probe fails, Save fails immediately and Load degrades to
// "no data" without touching the store.
type Service struct {
	kv        KV
	clk       clock.Clock
	logger    *zap.Logger
	available bool
}

func NewService(kv KV, clk clock.Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{kv: kv, clk: clk, logger: logger}
	s.available = s.probe()
	if !s.available {
		s.logger.Warn("storage unavailable, persistence disabled")
	}
	return s
}

func (s *Service) probe() bool {
	if err := s.kv.Set(probeKey, []byte("1")); err != nil {
		return false
	}
	if err := s.kv.Delete(probeKey); err != nil {
		return false
	}
	return true
}

func (s *Service) Available() bool { return s.available }

// Save persists the full collection.
func (s *Service) Save(ctx context.Context, records []model.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.available {
		return ErrUnavailable
	}
	if records == nil {
		records = []model.Record{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if err := s.kv.Set(tasksKey, b); err != nil {
		return err
	}
	return nil
}

// Load returns the persisted collection, or nil when nothing is stored.
// Read and parse failures degrade to nil and are logged, never raised.
func (s *Service) Load(ctx context.Context) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.available {
		return nil, nil
	}
	b, ok, err := s.kv.Get(tasksKey)
	if err != nil {
		s.logger.Warn("storage read failed, treating as empty", zap.Error(err))
		return nil, nil
	}
	if !ok {
		return nil, nil
	}
	var records []model.Record
	if err := json.Unmarshal(b, &records); err != nil {
		s.logger.Warn("stored data corrupt, treating as empty", zap.Error(err))
		return nil, nil
	}
	return records, nil
}

// Clear deletes the persisted collection.
func (s *Service) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.available {
		return ErrUnavailable
	}
	return s.kv.Delete(tasksKey)
}

// Backup serializes the stored collection into a versioned snapshot, or
// returns the empty string when nothing is stored.
func (s *Service) Backup(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !s.available {
		return "", ErrUnavailable
	}
	b, ok, err := s.kv.Get(tasksKey)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	var records []model.Record
	if err := json.Unmarshal(b, &records); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	snap := Snapshot{
		Data:      records,
		Timestamp: s.clk.Now().UTC(),
		Version:   BackupVersion,
	}
	out, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return string(out), nil
}

// Restore parses a snapshot and re-saves the embedded collection. A
// snapshot without a data array fails with ErrInvalidBackup and leaves the
// stored collection untouched.
func (s *Service) Restore(ctx context.Context, snapshot string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.available {
		return ErrUnavailable
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(snapshot), &raw); err != nil {
		return fmt.Errorf("%w: not a JSON object", ErrInvalidBackup)
	}
	data, ok := raw["data"]
	if !ok || string(data) == "null" {
		return fmt.Errorf("%w: missing data field", ErrInvalidBackup)
	}
	var records []model.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("%w: data is not a task array", ErrInvalidBackup)
	}
	return s.Save(ctx, records)
}
