package repository

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/client-service/internal/domain"
)

// memorySessionTokenRepository keeps records in process memory. Used by
// tests and for DSN-less local runs. Locking is per entry; there is no
// whole-store lock, so requests for distinct tokens never serialize
// against each other.
type memorySessionTokenRepository struct {
	entries sync.Map // token -> *memoryTokenEntry
}

type memoryTokenEntry struct {
	mu     sync.Mutex
	record domain.SessionTokenRecord
}

// NewMemorySessionTokenRepository returns an in-memory implementation.
func NewMemorySessionTokenRepository() SessionTokenRepository {
	return &memorySessionTokenRepository{}
}

func (r *memorySessionTokenRepository) Create(_ context.Context, token string, userID int64, username string) (*domain.SessionTokenRecord, error) {
	now := time.Now().UTC()
	entry, _ := r.entries.LoadOrStore(token, &memoryTokenEntry{})
	e := entry.(*memoryTokenEntry)

	e.mu.Lock()
	defer e.mu.Unlock()
	created := e.record.CreatedAt
	if created.IsZero() {
		created = now
	}
	e.record = domain.SessionTokenRecord{
		Token:      token,
		UserID:     userID,
		Username:   username,
		Status:     domain.TokenStatusActive,
		LastUsedAt: now,
		CreatedAt:  created,
	}
	record := e.record
	return &record, nil
}

func (r *memorySessionTokenRepository) Get(_ context.Context, token string) (*domain.SessionTokenRecord, error) {
	entry, ok := r.entries.Load(token)
	if !ok {
		return nil, ErrTokenNotFound
	}
	e := entry.(*memoryTokenEntry)

	e.mu.Lock()
	defer e.mu.Unlock()
	record := e.record
	return &record, nil
}

func (r *memorySessionTokenRepository) Touch(_ context.Context, token string) (*domain.SessionTokenRecord, error) {
	entry, ok := r.entries.Load(token)
	if !ok {
		return nil, ErrTokenNotFound
	}
	e := entry.(*memoryTokenEntry)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.record.Status != domain.TokenStatusInvalid {
		e.record.Status = domain.TokenStatusValid
		e.record.LastUsedAt = time.Now().UTC()
	}
	record := e.record
	return &record, nil
}

func (r *memorySessionTokenRepository) Invalidate(ctx context.Context, token string) (bool, error) {
	return r.SetStatus(ctx, token, domain.TokenStatusInvalid)
}

func (r *memorySessionTokenRepository) SetStatus(_ context.Context, token string, status domain.TokenStatus) (bool, error) {
	entry, ok := r.entries.Load(token)
	if !ok {
		return false, nil
	}
	e := entry.(*memoryTokenEntry)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.record.Status = status
	return true, nil
}
