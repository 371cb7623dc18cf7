package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/maheshrc27/igscheduler/internal/models"
	"github.com/maheshrc27/igscheduler/internal/repository"
)

// Publisher runs the publish workflow matching a post's type.
type Publisher interface {
	Publish(ctx context.Context, post *models.ScheduledPost) (string, error)
}

// PublishJob is the scheduler tick: it finds due posts and moves each one from
// scheduled through processing to published or failed.
type PublishJob struct {
	pr        repository.PostRepository
	publisher Publisher
	now       func() time.Time

	// running is held for the duration of a tick and forever after Stop.
	running  sync.Mutex
	stopOnce sync.Once
	stopped  chan struct{}
}

func NewPublishJob(pr repository.PostRepository, publisher Publisher) *PublishJob {
	return &PublishJob{
		pr:        pr,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
		stopped:   make(chan struct{}),
	}
}

// Run is the cron entry point.
func (j *PublishJob) Run() {
	j.Tick(context.Background())
}

// Tick processes every due post once, sequentially in store order. Errors never
// escape: a failed query ends the tick, a failed post is recorded on the post.
func (j *PublishJob) Tick(ctx context.Context) {
	if !j.running.TryLock() {
		slog.Info("previous publish tick still running, skipping")
		return
	}
	defer j.running.Unlock()

	slog.Info("checking scheduled posts")

	posts, err := j.pr.ListDue(ctx, j.now())
	if err != nil {
		slog.Error("failed to list due posts", "error", err)
		sentry.CaptureException(fmt.Errorf("list due posts: %w", err))
		return
	}

	if len(posts) == 0 {
		slog.Info("no posts due")
		return
	}

	for _, post := range posts {
		j.process(ctx, post)
	}
}

// Stop waits for an in-flight tick and prevents further ones. It may be
// called again after a timeout to keep waiting for the same tick.
func (j *PublishJob) Stop(ctx context.Context) error {
	j.stopOnce.Do(func() {
		go func() {
			j.running.Lock()
			close(j.stopped)
		}()
	})

	select {
	case <-j.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *PublishJob) process(ctx context.Context, post *models.ScheduledPost) {
	log := slog.With("post", post.ID, "type", post.Type, "account_id", post.AccountID)

	claimed, err := j.pr.Claim(ctx, post.ID, j.now())
	if err != nil {
		log.Error("failed to claim post", "error", err)
		sentry.CaptureException(fmt.Errorf("claim post %s: %w", post.ID, err))
		return
	}
	if !claimed {
		log.Info("post claimed elsewhere, skipping")
		return
	}

	log.Info("processing post")

	postID, err := j.publish(ctx, post)
	if err != nil {
		log.Error("failed to publish post", "error", err)
		sentry.CaptureException(fmt.Errorf("publish post %s: %w", post.ID, err))

		if markErr := j.pr.MarkFailed(ctx, post.ID, err.Error(), j.now()); markErr != nil {
			log.Error("failed to mark post as failed", "error", markErr)
			return
		}
		log.Info("post marked as failed")
		return
	}

	if err := j.pr.MarkPublished(ctx, post.ID, postID, j.now()); err != nil {
		log.Error("failed to mark post as published", "post_id", postID, "error", err)
		sentry.CaptureException(fmt.Errorf("mark post %s published as %s: %w", post.ID, postID, err))
		return
	}
	log.Info("post published", "post_id", postID)
}

func (j *PublishJob) publish(ctx context.Context, post *models.ScheduledPost) (postID string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while publishing: %v", r)
		}
	}()
	return j.publisher.Publish(ctx, post)
}
