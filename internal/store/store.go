package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Proton-105/leave-bot/internal/domain"
	apperrors "github.com/Proton-105/leave-bot/internal/errors"
	"github.com/Proton-105/leave-bot/pkg/metrics"
)

// ErrNotFound is returned by Get when the user has no stored request.
var ErrNotFound = errors.New("leave request not found")

// Store owns the completed leave requests. Every Put rewrites the whole mapping to the backend.
type Store struct {
	mu      sync.Mutex
	backend Backend
	log     *slog.Logger
	records map[string]domain.LeaveRequest
}

// Open loads all records from backend. An empty backend is initialised with "{}".
func Open(ctx context.Context, backend Backend, log *slog.Logger) (*Store, error) {
	if backend == nil {
		return nil, errors.New("store backend is nil")
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Store{
		backend: backend,
		log:     log,
		records: make(map[string]domain.LeaveRequest),
	}

	data, err := backend.Read(ctx)
	switch {
	case errors.Is(err, ErrBackendEmpty):
		if err := s.flushLocked(ctx); err != nil {
			return nil, fmt.Errorf("initialise empty store: %w", err)
		}
		log.Info("leave store initialised empty")
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("load leave store: %w", err)
	}

	if err := json.Unmarshal(data, &s.records); err != nil {
		return nil, fmt.Errorf("decode leave store: %w", err)
	}
	if s.records == nil {
		s.records = make(map[string]domain.LeaveRequest)
	}

	metrics.SetSubmittedRequests(len(s.records))
	log.Info("leave store loaded", slog.Int("records", len(s.records)))

	return s, nil
}

// Put stores record for userID, replacing any previous record, and writes the full mapping back.
// The in-memory mapping is rolled back when the write fails.
func (s *Store) Put(ctx context.Context, userID string, record domain.LeaveRequest) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid leave request: %w", err)
	}
	if record.UserID != userID {
		return fmt.Errorf("record user %q does not match key %q", record.UserID, userID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.records[userID]
	s.records[userID] = record

	err := apperrors.WithRetry(ctx, func() error {
		if err := s.flushLocked(ctx); err != nil {
			return apperrors.NewStorageError(err)
		}
		return nil
	})
	metrics.RecordStoreWrite(err)
	if err != nil {
		if existed {
			s.records[userID] = previous
		} else {
			delete(s.records, userID)
		}
		s.log.Error("failed to write leave store", slog.String("user_id", userID), slog.Any("error", err))
		return err
	}

	metrics.SetSubmittedRequests(len(s.records))
	return nil
}

// Get returns the stored record for userID.
func (s *Store) Get(userID string) (domain.LeaveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[userID]
	if !ok {
		return domain.LeaveRequest{}, ErrNotFound
	}

	return record, nil
}

// All returns a copy of every stored record ordered by user id.
func (s *Store) All() []domain.LeaveRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.LeaveRequest, 0, len(s.records))
	for _, record := range s.records {
		result = append(result, record)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })

	return result
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// HealthCheck verifies that the backend is readable.
func (s *Store) HealthCheck(ctx context.Context) error {
	if _, err := s.backend.Read(ctx); err != nil && !errors.Is(err, ErrBackendEmpty) {
		return err
	}
	return nil
}

func (s *Store) flushLocked(ctx context.Context) error {
	data, err := json.MarshalIndent(s.records, "", "    ")
	if err != nil {
		return fmt.Errorf("encode leave store: %w", err)
	}

	return s.backend.Write(ctx, data)
}
