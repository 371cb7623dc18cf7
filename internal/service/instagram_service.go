package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	config "github.com/maheshrc27/igscheduler/configs"
	"github.com/maheshrc27/igscheduler/internal/models"
	"github.com/maheshrc27/igscheduler/internal/transfer"
	"golang.org/x/time/rate"
)

const (
	mediaTypeCarousel = "CAROUSEL"
	mediaTypeReels    = "REELS"
	mediaTypeStories  = "STORIES"

	storyKindImage = "image"
	storyKindVideo = "video"
)

var (
	ErrNoMedia          = errors.New("post has no media")
	ErrContainerMissing = errors.New("failed to create media object")
	ErrCarouselMissing  = errors.New("failed to create carousel container")
	ErrPublishMissing   = errors.New("failed to publish media: no post id returned")
)

// UnsupportedPostTypeError is returned by Publish for a type it has no
// workflow for.
type UnsupportedPostTypeError struct {
	Type models.PostType
}

func (e *UnsupportedPostTypeError) Error() string {
	return fmt.Sprintf("Unsupported post type: %s", e.Type)
}

// APIError is a non-2xx answer of the Graph API.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status code from Instagram: %d", e.StatusCode)
	}
	return fmt.Sprintf("Instagram API error (status %d, code %d): %s", e.StatusCode, e.Code, e.Message)
}

// InstagramService publishes posts through the container based content
// publishing API. Every workflow returns the published media id or an error.
type InstagramService interface {
	Publish(ctx context.Context, post *models.ScheduledPost) (string, error)
	PublishSingle(ctx context.Context, accountID, imageURL, caption string) (string, error)
	PublishCarousel(ctx context.Context, accountID string, imageURLs []string, caption string) (string, error)
	PublishReel(ctx context.Context, accountID, videoURL, caption string) (string, error)
	PublishStory(ctx context.Context, accountID, mediaURL string) (string, error)
	RefreshToken(ctx context.Context, accessToken string) (*transfer.InstagramRefreshedToken, error)
}

type InstagramOption func(*instagramService)

func WithHTTPClient(c *http.Client) InstagramOption {
	return func(s *instagramService) { s.client = c }
}

// WithSleeper replaces the wait used between container polls and before
// publishing image stories.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) InstagramOption {
	return func(s *instagramService) { s.sleep = sleep }
}

type instagramService struct {
	cfg     config.Instagram
	tokens  TokenSource
	client  *http.Client
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewInstagramService(cfg config.Instagram, tokens TokenSource, opts ...InstagramOption) InstagramService {
	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}

	s := &instagramService{
		cfg:     cfg,
		tokens:  tokens,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(limit, 1),
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *instagramService) Publish(ctx context.Context, post *models.ScheduledPost) (string, error) {
	if len(post.MediaURLs) == 0 && post.Type.Valid() {
		return "", ErrNoMedia
	}

	switch post.Type {
	case models.PostTypeSingle:
		return s.PublishSingle(ctx, post.AccountID, post.MediaURLs[0], post.Caption)
	case models.PostTypeCarousel:
		return s.PublishCarousel(ctx, post.AccountID, post.MediaURLs, post.Caption)
	case models.PostTypeReel:
		return s.PublishReel(ctx, post.AccountID, post.MediaURLs[0], post.Caption)
	case models.PostTypeStory:
		return s.PublishStory(ctx, post.AccountID, post.MediaURLs[0])
	default:
		return "", &UnsupportedPostTypeError{Type: post.Type}
	}
}

func (s *instagramService) PublishSingle(ctx context.Context, accountID, imageURL, caption string) (string, error) {
	token, err := s.tokens.Token(ctx, accountID)
	if err != nil {
		return "", err
	}

	containerID, err := s.createContainer(ctx, accountID, map[string]interface{}{
		"image_url":    imageURL,
		"caption":      caption,
		"access_token": token.AccessToken,
	})
	if err != nil {
		return "", err
	}
	if containerID == "" {
		return "", ErrContainerMissing
	}

	return s.publishContainer(ctx, accountID, containerID, token.AccessToken)
}

// PublishCarousel creates one item container per image, then the parent
// container referencing them. Any failed item aborts before the parent exists.
func (s *instagramService) PublishCarousel(ctx context.Context, accountID string, imageURLs []string, caption string) (string, error) {
	token, err := s.tokens.Token(ctx, accountID)
	if err != nil {
		return "", err
	}

	containerIDs := make([]string, 0, len(imageURLs))
	for _, imageURL := range imageURLs {
		containerID, err := s.createContainer(ctx, accountID, map[string]interface{}{
			"image_url":        imageURL,
			"is_carousel_item": true,
			"access_token":     token.AccessToken,
		})
		if err != nil {
			return "", fmt.Errorf("failed to create media container for %s: %w", imageURL, err)
		}
		if containerID == "" {
			return "", fmt.Errorf("failed to create media container for %s", imageURL)
		}
		containerIDs = append(containerIDs, containerID)
	}

	carouselID, err := s.createContainer(ctx, accountID, map[string]interface{}{
		"media_type":   mediaTypeCarousel,
		"caption":      caption,
		"children":     strings.Join(containerIDs, ","),
		"access_token": token.AccessToken,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCarouselMissing, err)
	}
	if carouselID == "" {
		return "", ErrCarouselMissing
	}

	return s.publishContainer(ctx, accountID, carouselID, token.AccessToken)
}

func (s *instagramService) PublishReel(ctx context.Context, accountID, videoURL, caption string) (string, error) {
	token, err := s.tokens.Token(ctx, accountID)
	if err != nil {
		return "", err
	}

	containerID, err := s.createContainer(ctx, accountID, map[string]interface{}{
		"media_type":   mediaTypeReels,
		"video_url":    videoURL,
		"caption":      caption,
		"access_token": token.AccessToken,
	})
	if err != nil {
		return "", err
	}
	if containerID == "" {
		return "", ErrContainerMissing
	}

	if err := s.awaitContainer(ctx, containerID, token.AccessToken, reelReadiness); err != nil {
		return "", fmt.Errorf("media %w", err)
	}

	return s.publishContainer(ctx, accountID, containerID, token.AccessToken)
}

// PublishStory publishes an image or video story. Video containers are polled;
// image containers only get a short settle delay.
func (s *instagramService) PublishStory(ctx context.Context, accountID, mediaURL string) (string, error) {
	token, err := s.tokens.Token(ctx, accountID)
	if err != nil {
		return "", err
	}

	kind := storyMediaKind(mediaURL)
	payload := map[string]interface{}{
		"media_type":   mediaTypeStories,
		"access_token": token.AccessToken,
	}
	if kind == storyKindImage {
		payload["image_url"] = mediaURL
	} else {
		payload["video_url"] = mediaURL
	}

	containerID, err := s.createContainer(ctx, accountID, payload)
	if err != nil {
		return "", err
	}
	if containerID == "" {
		return "", ErrContainerMissing
	}

	if kind == storyKindVideo {
		if err := s.awaitContainer(ctx, containerID, token.AccessToken, storyVideoReadiness); err != nil {
			return "", fmt.Errorf("video %w", err)
		}
	} else if err := s.sleep(ctx, storySettleDelay); err != nil {
		return "", err
	}

	return s.publishContainer(ctx, accountID, containerID, token.AccessToken)
}

// RefreshToken exchanges a long-lived token for a new one.
func (s *instagramService) RefreshToken(ctx context.Context, accessToken string) (*transfer.InstagramRefreshedToken, error) {
	params := url.Values{}
	params.Set("grant_type", "ig_refresh_token")
	params.Set("access_token", accessToken)

	reqURL := fmt.Sprintf("%s/refresh_access_token?%s", s.cfg.GraphURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	var result transfer.InstagramRefreshedToken
	if err := s.do(req, &result); err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, errors.New("no access token returned from Instagram")
	}
	return &result, nil
}

func (s *instagramService) createContainer(ctx context.Context, accountID string, payload map[string]interface{}) (string, error) {
	var result transfer.InstagramContainer
	if err := s.postJSON(ctx, s.endpoint(accountID, "media"), payload, &result); err != nil {
		return "", err
	}
	slog.Info("media container created", "account_id", accountID, "container_id", result.ID)
	return result.ID, nil
}

func (s *instagramService) containerStatus(ctx context.Context, containerID, accessToken string) (string, error) {
	params := url.Values{}
	params.Set("fields", "status_code")
	params.Set("access_token", accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint(containerID)+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	var result transfer.InstagramContainerStatus
	if err := s.do(req, &result); err != nil {
		return "", err
	}
	return result.StatusCode, nil
}

func (s *instagramService) publishContainer(ctx context.Context, accountID, containerID, accessToken string) (string, error) {
	var result transfer.InstagramContainer
	err := s.postJSON(ctx, s.endpoint(accountID, "media_publish"), map[string]interface{}{
		"creation_id":  containerID,
		"access_token": accessToken,
	}, &result)
	if err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", ErrPublishMissing
	}

	slog.Info("media published", "account_id", accountID, "container_id", containerID, "post_id", result.ID)
	return result.ID, nil
}

func (s *instagramService) endpoint(segments ...string) string {
	return fmt.Sprintf("%s/%s/%s", s.cfg.GraphURL, s.cfg.APIVersion, strings.Join(segments, "/"))
}

func (s *instagramService) postJSON(ctx context.Context, reqURL string, payload map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return s.do(req, out)
}

func (s *instagramService) do(req *http.Request, out interface{}) error {
	if err := s.limiter.Wait(req.Context()); err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp transfer.InstagramErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil {
			apiErr.Code = errResp.Error.Code
			apiErr.Message = errResp.Error.Message
		}
		slog.Info(apiErr.Error(), "url", req.URL.Path)
		return apiErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}

// storyMediaKind tells image stories from video stories by the URL's file
// extension, falling back to looking for "video" anywhere in the URL.
func storyMediaKind(mediaURL string) string {
	if u, err := url.Parse(mediaURL); err == nil {
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
		if ext != "" {
			if kind := filetype.GetType(ext); kind != types.Unknown {
				switch kind.MIME.Type {
				case "video":
					return storyKindVideo
				case "image":
					return storyKindImage
				}
			}
		}
	}

	if strings.Contains(mediaURL, "video") {
		return storyKindVideo
	}
	return storyKindImage
}
