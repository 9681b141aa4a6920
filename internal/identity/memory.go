package identity

import (
	"context"
	"sync"

	"github.com/patric-chuzhbe/userpurge/internal/models"
)

// Memory is an in-process identity provider for local runs and tests.
type Memory struct {
	mu    sync.Mutex
	users map[string]struct{}
}

// NewMemory returns a provider that already knows usernames.
func NewMemory(usernames ...string) *Memory {
	m := &Memory{users: make(map[string]struct{}, len(usernames))}
	for _, username := range usernames {
		m.users[username] = struct{}{}
	}

	return m
}

// AddUser registers username.
func (m *Memory) AddUser(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[username] = struct{}{}
}

// HasUser reports whether username is registered.
func (m *Memory) HasUser(username string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[username]
	return ok
}

// DeleteUser removes username or returns models.ErrUserNotFound.
func (m *Memory) DeleteUser(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[username]; !ok {
		return models.ErrUserNotFound
	}
	delete(m.users, username)

	return nil
}
