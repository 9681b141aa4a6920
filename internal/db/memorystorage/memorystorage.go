// Package memorystorage keeps users and their conversations in process
// memory. It backs the "memory" storage mode and end-to-end tests.
package memorystorage

import (
	"context"
	"fmt"
	"sync"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/userpurge/internal/models"
)

type conversation struct {
	owner  string
	record models.DependentRecord
}

// MemoryStorage is a mutex-guarded user and conversation store.
type MemoryStorage struct {
	mu            sync.RWMutex
	users         map[string]struct{}
	conversations map[models.DependentRecord]conversation
	failing       map[models.DependentRecord]error
}

// New returns an empty MemoryStorage.
func New() *MemoryStorage {
	return &MemoryStorage{
		users:         map[string]struct{}{},
		conversations: map[models.DependentRecord]conversation{},
		failing:       map[models.DependentRecord]error{},
	}
}

// SaveUser stores a user record.
func (s *MemoryStorage) SaveUser(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = struct{}{}
	return nil
}

// SaveRecord stores a conversation owned by email.
func (s *MemoryStorage) SaveRecord(_ context.Context, email string, record models.DependentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[record] = conversation{owner: email, record: record}
	return nil
}

// FailDeletesOf makes every later DeleteRecord of record return err.
func (s *MemoryStorage) FailDeletesOf(record models.DependentRecord, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[record] = err
}

// HasUser reports whether a user record exists for email.
func (s *MemoryStorage) HasUser(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[email]
	return ok, nil
}

// DeleteUser removes the user record of email if present.
func (s *MemoryStorage) DeleteUser(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, email)
	return nil
}

// FindByOwner returns the conversations owned by email.
func (s *MemoryStorage) FindByOwner(_ context.Context, email string) ([]models.DependentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := funk.Filter(funk.Values(s.conversations), func(c conversation) bool {
		return c.owner == email
	}).([]conversation)

	return funk.Map(owned, func(c conversation) models.DependentRecord {
		return c.record
	}).([]models.DependentRecord), nil
}

// DeleteRecord removes one conversation.
func (s *MemoryStorage) DeleteRecord(_ context.Context, record models.DependentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failing[record]; ok {
		return fmt.Errorf("deleting conversation %s: %w", record.PrimaryKey, err)
	}
	delete(s.conversations, record)

	return nil
}

// Ping always succeeds.
func (s *MemoryStorage) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (s *MemoryStorage) Close() error {
	return nil
}
