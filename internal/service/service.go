// Package service deletes a user account across the identity provider, the
// user store and the conversation store.
package service

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/patric-chuzhbe/userpurge/internal/logger"
	"github.com/patric-chuzhbe/userpurge/internal/models"
)

type identityProvider interface {
	DeleteUser(ctx context.Context, username string) error
}

type userStore interface {
	DeleteUser(ctx context.Context, email string) error
}

type conversationStore interface {
	FindByOwner(ctx context.Context, email string) ([]models.DependentRecord, error)
	DeleteRecord(ctx context.Context, record models.DependentRecord) error
}

// Service runs the account deletion sequence.
type Service struct {
	identity           identityProvider
	users              userStore
	conversations      conversationStore
	maxParallelDeletes int
}

// Option tunes a Service.
type Option func(*Service)

// WithMaxParallelDeletes caps how many conversation deletes run at once.
// Zero or less means no cap.
func WithMaxParallelDeletes(n int) Option {
	return func(s *Service) {
		s.maxParallelDeletes = n
	}
}

// New returns a Service using the given collaborators.
func New(
	identity identityProvider,
	users userStore,
	conversations conversationStore,
	opts ...Option,
) *Service {
	s := &Service{
		identity:      identity,
		users:         users,
		conversations: conversations,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// DeleteAccount removes the identity, the user record and every conversation
// of req.Email, stopping at the first failing step. Nothing is rolled back:
// a failure after the identity delete leaves the account partly removed.
//
// The returned error wraps models.ErrInvalidRequest for a missing email and
// models.ErrUserNotFound when the identity provider has no such account.
func (s *Service) DeleteAccount(ctx context.Context, req models.DeletionRequest) error {
	if req.Email == "" {
		return models.ErrInvalidRequest
	}

	log := logger.FromContext(ctx).With("email", req.Email)

	if err := s.identity.DeleteUser(ctx, req.Email); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			log.Infow("identity not found", "error", err)
			return err
		}
		log.Errorw("deleting identity", "error", err)
		return err
	}
	log.Debug("identity deleted")

	if err := s.users.DeleteUser(ctx, req.Email); err != nil {
		log.Errorw("deleting user record", "error", err)
		return err
	}
	log.Debug("user record deleted")

	records, err := s.conversations.FindByOwner(ctx, req.Email)
	if err != nil {
		log.Errorw("looking up conversations", "error", err)
		return err
	}

	if err := s.deleteRecords(ctx, records); err != nil {
		log.Errorw("deleting conversations", "count", len(records), "error", err)
		return err
	}

	log.Infow("account deleted", "conversations", len(records))

	return nil
}

// deleteRecords deletes every record concurrently and waits for all of them.
// The group has no derived context, so one failure does not cancel the
// deletes still in flight.
func (s *Service) deleteRecords(ctx context.Context, records []models.DependentRecord) error {
	var g errgroup.Group
	if s.maxParallelDeletes > 0 {
		g.SetLimit(s.maxParallelDeletes)
	}

	for _, record := range records {
		record := record
		g.Go(func() error {
			return s.conversations.DeleteRecord(ctx, record)
		})
	}

	return g.Wait()
}
