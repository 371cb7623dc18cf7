package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/igscheduler/internal/models"
	"github.com/maheshrc27/igscheduler/internal/repository"
	"github.com/maheshrc27/igscheduler/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrPostNotFound     = errors.New("post not found")
	ErrPostNotRetryable = errors.New("only failed or stalled posts can be retried")
	ErrPostInProgress   = errors.New("post is being published")
	ErrInvalidStatus    = errors.New("invalid status filter")
)

type PostService interface {
	Create(ctx context.Context, pc *transfer.PostCreation) (*models.ScheduledPost, error)
	List(ctx context.Context, status string) ([]*models.ScheduledPost, error)
	Get(ctx context.Context, id string) (*models.ScheduledPost, error)
	Retry(ctx context.Context, id string, at *time.Time) error
	Remove(ctx context.Context, id string) error
}

// StaleProcessingAfter is how long a post may stay in processing before it is
// considered abandoned. It must exceed the longest publish workflow.
const StaleProcessingAfter = 15 * time.Minute

type postService struct {
	pr  repository.PostRepository
	now func() time.Time
}

func NewPostService(pr repository.PostRepository) PostService {
	return &postService{
		pr:  pr,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *postService) Create(ctx context.Context, pc *transfer.PostCreation) (*models.ScheduledPost, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return nil, err
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Error(err.Error())
		return nil, err
	}

	now := time.Now().UTC()
	post := &models.ScheduledPost{
		ID:           id,
		AccountID:    pc.AccountID,
		Type:         models.PostType(pc.Type),
		Caption:      pc.Caption,
		ScheduledFor: pc.ScheduledFor.UTC(),
		MediaURLs:    pc.MediaURLs,
		MediaCount:   len(pc.MediaURLs),
		Status:       models.PostStatusScheduled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := post.Validate(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	if err := s.pr.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}

	slog.Info("post scheduled", "post", post.ID, "type", post.Type, "scheduled_for", post.ScheduledFor)
	return post, nil
}

func (s *postService) List(ctx context.Context, status string) ([]*models.ScheduledPost, error) {
	switch models.PostStatus(status) {
	case "", models.PostStatusScheduled, models.PostStatusProcessing, models.PostStatusPublished, models.PostStatusFailed:
	default:
		return nil, ErrInvalidStatus
	}
	return s.pr.List(ctx, models.PostStatus(status))
}

func (s *postService) Get(ctx context.Context, id string) (*models.ScheduledPost, error) {
	post, err := s.pr.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	return post, nil
}

// Retry puts a failed post back in the queue, due at the given time or now.
// A post stuck in processing longer than StaleProcessingAfter is requeued the
// same way. Failed posts are never retried automatically.
func (s *postService) Retry(ctx context.Context, id string, at *time.Time) error {
	now := s.now()
	scheduledFor := now
	if at != nil && !at.IsZero() {
		scheduledFor = at.UTC()
	}

	ok, err := s.pr.Reschedule(ctx, id, scheduledFor, now.Add(-StaleProcessingAfter), now)
	if err != nil {
		return err
	}
	if ok {
		slog.Info("post rescheduled", "post", id, "scheduled_for", scheduledFor)
		return nil
	}

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return ErrPostNotRetryable
}

func (s *postService) Remove(ctx context.Context, id string) error {
	ok, err := s.pr.Remove(ctx, id, s.now().Add(-StaleProcessingAfter))
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return ErrPostInProgress
}
