// Package mocks provides testify-based mocks of the collaborators the
// deletion service and the router depend on.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/userpurge/internal/models"
)

// IdentityMock mocks the identity provider.
type IdentityMock struct {
	mock.Mock
}

// DeleteUser mocks removing an identity.
func (m *IdentityMock) DeleteUser(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

// UserStoreMock mocks the user record store.
type UserStoreMock struct {
	mock.Mock
}

// DeleteUser mocks removing a user record.
func (m *UserStoreMock) DeleteUser(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

// ConversationStoreMock mocks the conversation store.
//
// OnDeleteRecord, when set, replaces the testify handler for DeleteRecord.
// Concurrent fan-out tests use it to observe calls without ordering
// assumptions.
type ConversationStoreMock struct {
	mock.Mock

	OnDeleteRecord func(ctx context.Context, record models.DependentRecord) error
}

// FindByOwner mocks the secondary index lookup.
func (m *ConversationStoreMock) FindByOwner(ctx context.Context, email string) ([]models.DependentRecord, error) {
	args := m.Called(ctx, email)
	records, _ := args.Get(0).([]models.DependentRecord)
	return records, args.Error(1)
}

// DeleteRecord mocks removing one conversation.
func (m *ConversationStoreMock) DeleteRecord(ctx context.Context, record models.DependentRecord) error {
	if m.OnDeleteRecord != nil {
		return m.OnDeleteRecord(ctx, record)
	}
	args := m.Called(ctx, record)
	return args.Error(0)
}

// HeaderProviderMock mocks the CORS header service.
type HeaderProviderMock struct {
	mock.Mock
}

// Headers mocks fetching CORS headers.
func (m *HeaderProviderMock) Headers(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	headers, _ := args.Get(0).(map[string]string)
	return headers, args.Error(1)
}
