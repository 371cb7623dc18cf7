// Package mocks provides testify mocks of the repository interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/maheshrc27/igscheduler/internal/models"
	"github.com/stretchr/testify/mock"
)

type PostRepository struct {
	mock.Mock
}

func (m *PostRepository) Create(ctx context.Context, post *models.ScheduledPost) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *PostRepository) GetByID(ctx context.Context, id string) (*models.ScheduledPost, error) {
	args := m.Called(ctx, id)
	if post, ok := args.Get(0).(*models.ScheduledPost); ok {
		return post, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PostRepository) List(ctx context.Context, status models.PostStatus) ([]*models.ScheduledPost, error) {
	args := m.Called(ctx, status)
	if posts, ok := args.Get(0).([]*models.ScheduledPost); ok {
		return posts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PostRepository) ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error) {
	args := m.Called(ctx, now)
	if posts, ok := args.Get(0).([]*models.ScheduledPost); ok {
		return posts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PostRepository) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *PostRepository) MarkPublished(ctx context.Context, id, postID string, now time.Time) error {
	args := m.Called(ctx, id, postID, now)
	return args.Error(0)
}

func (m *PostRepository) MarkFailed(ctx context.Context, id, message string, now time.Time) error {
	args := m.Called(ctx, id, message, now)
	return args.Error(0)
}

func (m *PostRepository) Reschedule(ctx context.Context, id string, scheduledFor, staleBefore, now time.Time) (bool, error) {
	args := m.Called(ctx, id, scheduledFor, staleBefore, now)
	return args.Bool(0), args.Error(1)
}

func (m *PostRepository) Remove(ctx context.Context, id string, staleBefore time.Time) (bool, error) {
	args := m.Called(ctx, id, staleBefore)
	return args.Bool(0), args.Error(1)
}

type CredentialRepository struct {
	mock.Mock
}

func (m *CredentialRepository) GetByAccountID(ctx context.Context, accountID string) (*models.Credential, error) {
	args := m.Called(ctx, accountID)
	if c, ok := args.Get(0).(*models.Credential); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CredentialRepository) Upsert(ctx context.Context, c *models.Credential) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *CredentialRepository) ListExpiring(ctx context.Context, before time.Time) ([]*models.Credential, error) {
	args := m.Called(ctx, before)
	if credentials, ok := args.Get(0).([]*models.Credential); ok {
		return credentials, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CredentialRepository) SetToken(ctx context.Context, accountID, oldAccessToken, accessToken string, expiresAt time.Time) error {
	args := m.Called(ctx, accountID, oldAccessToken, accessToken, expiresAt)
	return args.Error(0)
}
