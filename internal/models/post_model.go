package models

import (
	"errors"
	"fmt"
	"time"
)

type PostType string

const (
	PostTypeSingle   PostType = "single"
	PostTypeCarousel PostType = "carousel"
	PostTypeReel     PostType = "reel"
	PostTypeStory    PostType = "story"
)

type PostStatus string

const (
	PostStatusScheduled  PostStatus = "scheduled"
	PostStatusProcessing PostStatus = "processing"
	PostStatusPublished  PostStatus = "published"
	PostStatusFailed     PostStatus = "failed"
)

// MaxCarouselItems is the largest carousel the Graph API accepts.
const MaxCarouselItems = 10

type ScheduledPost struct {
	ID           string     `db:"id" json:"id" bson:"_id"`
	AccountID    string     `db:"account_id" json:"account_id" bson:"accountId"`
	Type         PostType   `db:"type" json:"type" bson:"type"`
	Caption      string     `db:"caption" json:"caption" bson:"caption"`
	ScheduledFor time.Time  `db:"scheduled_for" json:"scheduled_for" bson:"scheduledFor"`
	MediaURLs    []string   `db:"media_urls" json:"media_urls" bson:"mediaUrls"`
	MediaCount   int        `db:"media_count" json:"media_count" bson:"mediaCount"`
	Status       PostStatus `db:"status" json:"status" bson:"status"`
	PostID       string     `db:"post_id" json:"post_id,omitempty" bson:"postId,omitempty"`
	Error        string     `db:"error" json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at" bson:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at" bson:"updatedAt"`
}

var (
	ErrUnknownPostType = errors.New("unknown post type")
	ErrMissingAccount  = errors.New("account id is required")
	ErrMissingCaption  = errors.New("caption is required")
	ErrMissingSchedule = errors.New("scheduled time is required")
	ErrMediaCount      = errors.New("media count does not match media urls")
	ErrMediaURLs       = errors.New("invalid number of media urls")
	ErrEmptyMediaURL   = errors.New("media url cannot be empty")
)

func (t PostType) Valid() bool {
	switch t {
	case PostTypeSingle, PostTypeCarousel, PostTypeReel, PostTypeStory:
		return true
	}
	return false
}

// Terminal reports whether no further transition is made automatically.
func (s PostStatus) Terminal() bool {
	return s == PostStatusPublished || s == PostStatusFailed
}

// Validate checks a post before it is queued.
func (p *ScheduledPost) Validate() error {
	if !p.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPostType, p.Type)
	}
	if p.AccountID == "" {
		return ErrMissingAccount
	}
	if p.Caption == "" && p.Type != PostTypeStory {
		return ErrMissingCaption
	}
	if p.ScheduledFor.IsZero() {
		return ErrMissingSchedule
	}
	if p.MediaCount != len(p.MediaURLs) {
		return ErrMediaCount
	}

	n := len(p.MediaURLs)
	switch p.Type {
	case PostTypeCarousel:
		if n < 2 || n > MaxCarouselItems {
			return fmt.Errorf("%w: carousel takes 2 to %d, got %d", ErrMediaURLs, MaxCarouselItems, n)
		}
	default:
		if n != 1 {
			return fmt.Errorf("%w: %s takes 1, got %d", ErrMediaURLs, p.Type, n)
		}
	}

	for _, u := range p.MediaURLs {
		if u == "" {
			return ErrEmptyMediaURL
		}
	}
	return nil
}
