package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/storefront/internal/models"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Record is one persisted session.
type Record struct {
	ID        uuid.UUID
	Data      []byte
	ExpiresAt time.Time
}

// Store persists session records.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*Record, error)
	Put(ctx context.Context, rec Record) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// GormStore keeps sessions in Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open database.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	var row models.Session
	err := s.db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", id, time.Now()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &Record{ID: row.ID, Data: row.Data, ExpiresAt: row.ExpiresAt}, nil
}

func (s *GormStore) Put(ctx context.Context, rec Record) error {
	row := models.Session{ID: rec.ID, Data: rec.Data, ExpiresAt: rec.ExpiresAt}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "expires_at", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.db.WithContext(ctx).Delete(&models.Session{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *GormStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.Session{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	recs map[uuid.UUID]Record
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: map[uuid.UUID]Record{}}
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok || !rec.ExpiresAt.After(time.Now()) {
		return nil, ErrNotFound
	}
	rec.Data = append([]byte(nil), rec.Data...)
	return &rec, nil
}

func (s *MemoryStore) Put(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Data = append([]byte(nil), rec.Data...)
	s.recs[rec.ID] = rec
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, id)
	return nil
}

func (s *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, rec := range s.recs {
		if !rec.ExpiresAt.After(now) {
			delete(s.recs, id)
			n++
		}
	}
	return n, nil
}
