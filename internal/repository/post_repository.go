package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/igscheduler/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, post *models.ScheduledPost) error
	GetByID(ctx context.Context, id string) (*models.ScheduledPost, error)
	List(ctx context.Context, status models.PostStatus) ([]*models.ScheduledPost, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error)
	Claim(ctx context.Context, id string, now time.Time) (bool, error)
	MarkPublished(ctx context.Context, id, postID string, now time.Time) error
	MarkFailed(ctx context.Context, id, message string, now time.Time) error
	Reschedule(ctx context.Context, id string, scheduledFor, staleBefore, now time.Time) (bool, error)
	Remove(ctx context.Context, id string, staleBefore time.Time) (bool, error)
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, account_id, type, caption, scheduled_for, media_urls, media_count, status, post_id, error, created_at, updated_at`

func (r *postRepository) Create(ctx context.Context, post *models.ScheduledPost) error {
	query := `
		INSERT INTO scheduled_posts (id, account_id, type, caption, scheduled_for, media_urls, media_count, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		post.ID,
		post.AccountID,
		post.Type,
		post.Caption,
		post.ScheduledFor,
		pq.Array(post.MediaURLs),
		post.MediaCount,
		post.Status,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM scheduled_posts WHERE id = $1`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) List(ctx context.Context, status models.PostStatus) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM scheduled_posts`
	args := []interface{}{}

	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY scheduled_for DESC`

	return r.query(ctx, query, args...)
}

// ListDue returns scheduled posts whose time has come, oldest first.
func (r *postRepository) ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM scheduled_posts
		WHERE status = $1 AND scheduled_for <= $2
		ORDER BY scheduled_for, created_at`
	return r.query(ctx, query, models.PostStatusScheduled, now)
}

// Claim moves a post from scheduled to processing. It reports false when the
// post was no longer scheduled, e.g. another scheduler claimed it first.
func (r *postRepository) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3 AND status = $4
	`
	return r.exec(ctx, query, models.PostStatusProcessing, now, id, models.PostStatusScheduled)
}

func (r *postRepository) MarkPublished(ctx context.Context, id, postID string, now time.Time) error {
	query := `
		UPDATE scheduled_posts
		SET status = $1,
			post_id = $2,
			updated_at = $3
		WHERE id = $4 AND status = $5
	`
	return r.transition(ctx, query, models.PostStatusPublished, postID, now, id, models.PostStatusProcessing)
}

func (r *postRepository) MarkFailed(ctx context.Context, id, message string, now time.Time) error {
	query := `
		UPDATE scheduled_posts
		SET status = $1,
			error = $2,
			updated_at = $3
		WHERE id = $4 AND status = $5
	`
	return r.transition(ctx, query, models.PostStatusFailed, message, now, id, models.PostStatusProcessing)
}

// Reschedule puts a failed post back in the queue. A post left in processing
// since before staleBefore is treated as abandoned and requeued too.
func (r *postRepository) Reschedule(ctx context.Context, id string, scheduledFor, staleBefore, now time.Time) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $1,
			scheduled_for = $2,
			error = '',
			updated_at = $3
		WHERE id = $4
			AND (status = $5 OR (status = $6 AND updated_at < $7))
	`
	return r.exec(ctx, query, models.PostStatusScheduled, scheduledFor, now, id,
		models.PostStatusFailed, models.PostStatusProcessing, staleBefore)
}

// Remove deletes a post unless a scheduler claimed it after staleBefore.
func (r *postRepository) Remove(ctx context.Context, id string, staleBefore time.Time) (bool, error) {
	query := `DELETE FROM scheduled_posts WHERE id = $1 AND (status <> $2 OR updated_at < $3)`
	return r.exec(ctx, query, id, models.PostStatusProcessing, staleBefore)
}

func (r *postRepository) transition(ctx context.Context, query string, args ...interface{}) error {
	ok, err := r.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidTransition
	}
	return nil
}

func (r *postRepository) exec(ctx context.Context, query string, args ...interface{}) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *postRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.ScheduledPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(row rowScanner) (*models.ScheduledPost, error) {
	var post models.ScheduledPost
	err := row.Scan(
		&post.ID,
		&post.AccountID,
		&post.Type,
		&post.Caption,
		&post.ScheduledFor,
		pq.Array(&post.MediaURLs),
		&post.MediaCount,
		&post.Status,
		&post.PostID,
		&post.Error,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &post, nil
}
