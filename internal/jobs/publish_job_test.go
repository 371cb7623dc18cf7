package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maheshrc27/igscheduler/internal/models"
	"github.com/maheshrc27/igscheduler/internal/repository/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, post *models.ScheduledPost) (string, error) {
	args := m.Called(ctx, post)
	return args.String(0), args.Error(1)
}

var tickTime = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func newTestPublishJob(repo *mocks.PostRepository, publisher *MockPublisher) *PublishJob {
	j := NewPublishJob(repo, publisher)
	j.now = func() time.Time { return tickTime }
	return j
}

func duePost(id string, postType models.PostType) *models.ScheduledPost {
	return &models.ScheduledPost{
		ID:           id,
		AccountID:    "1789",
		Type:         postType,
		Caption:      "caption",
		ScheduledFor: tickTime.Add(-time.Minute),
		MediaURLs:    []string{"https://cdn.example.com/" + id + ".jpg"},
		MediaCount:   1,
		Status:       models.PostStatusScheduled,
	}
}

func TestTickNoDuePosts(t *testing.T) {
	repo := new(mocks.PostRepository)
	publisher := new(MockPublisher)
	repo.On("ListDue", mock.Anything, tickTime).Return([]*models.ScheduledPost{}, nil)

	newTestPublishJob(repo, publisher).Tick(context.Background())

	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "MarkPublished", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestTickQueryFailureEndsTick(t *testing.T) {
	repo := new(mocks.PostRepository)
	publisher := new(MockPublisher)
	repo.On("ListDue", mock.Anything, tickTime).Return(nil, errors.New("server selection timeout"))

	assert.NotPanics(t, func() {
		newTestPublishJob(repo, publisher).Tick(context.Background())
	})

	repo.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything, mock.Anything)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestTickPublishesDuePost(t *testing.T) {
	repo := new(mocks.PostRepository)
	publisher := new(MockPublisher)
	post := duePost("a", models.PostTypeSingle)

	repo.On("ListDue", mock.Anything, tickTime).Return([]*models.ScheduledPost{post}, nil)
	repo.On("Claim", mock.Anything, "a", tickTime).Return(true, nil).Once()
	publisher.On("Publish", mock.Anything, post).Return("17900001", nil).Once()
	repo.On("MarkPublished", mock.Anything, "a", "17900001", tickTime).Return(nil).Once()

	newTestPublishJob(repo, publisher).Tick(context.Background())

	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestTickFailureDoesNotBlockNextPost(t *testing.T) {
	repo := new(mocks.PostRepository)
	publisher := new(MockPublisher)
	a := duePost("a", models.PostTypeReel)
	b := duePost("b", models.PostTypeSingle)

	repo.On("ListDue", mock.Anything, tickTime).Return([]*models.ScheduledPost{a, b}, nil)
	repo.On("Claim", mock.Anything, "a", tickTime).Return(true, nil)
	repo.On("Claim", mock.Anything, "b", tickTime).Return(true, nil)
	publisher.On("Publish", mock.Anything, a).Return("", errors.New("media processing timed out"))
	publisher.On("Publish", mock.Anything, b).Return("17900002", nil)
	repo.On("MarkFailed", mock.Anything, "a", "media processing timed out", tickTime).Return(nil).Once()
	repo.On("MarkPublished", mock.Anything, "b", "17900002", tickTime).Return(nil).Once()

	newTestPublishJob(repo, publisher).Tick(context.Background())

	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestTickRecordsUnsupportedType(t *testing.T) {
	repo := new(mocks.PostRepository)
	publisher := new(MockPublisher)
	post := duePost("a", "poll")

	repo.On("ListDue", mock.Anything, tickTime).Return([]*models.ScheduledPost{post}, nil)
	repo.On("Claim", mock.Anything, "a", tickTime).Return(true, nil)
	publisher.On("Publish", mock.Anything, post).Return("", errors.New("Unsupported post type: poll"))
	repo.On("MarkFailed", mock.Anything, "a", "Unsupported post type: poll", tickTime).Return(nil).Once()

	newTestPublishJob(repo, publisher).Tick(context.Background())

	repo.AssertExpectations(t)
}

func TestTickSkipsPostClaimedElsewhere(t *testing.T) {
	repo := new(mocks.PostRepository)
	publisher := new(MockPublisher)
	a := duePost("a", models.PostTypeSingle)
	b := duePost("b", models.PostTypeSingle)

	repo.On("ListDue", mock.Anything, tickTime).Return([]*models.ScheduledPost{a, b}, nil)
	repo.On("Claim", mock.Anything, "a", tickTime).Return(false, nil)
	repo.On("Claim", mock.Anything, "b", tickTime).Return(false, errors.New("connection reset"))

	newTestPublishJob(repo, publisher).Tick(context.Background())

	repo.AssertExpectations(t)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestTickRecoversPublisherPanic(t *testing.T) {
	repo := new(mocks.PostRepository)
	publisher := new(MockPublisher)
	a := duePost("a", models.PostTypeSingle)
	b := duePost("b", models.PostTypeSingle)

	repo.On("ListDue", mock.Anything, tickTime).Return([]*models.ScheduledPost{a, b}, nil)
	repo.On("Claim", mock.Anything, mock.Anything, tickTime).Return(true, nil)
	publisher.On("Publish", mock.Anything, a).Run(func(mock.Arguments) { panic("nil map") }).Return("", nil)
	publisher.On("Publish", mock.Anything, b).Return("17900003", nil)
	repo.On("MarkFailed", mock.Anything, "a", "panic while publishing: nil map", tickTime).Return(nil).Once()
	repo.On("MarkPublished", mock.Anything, "b", "17900003", tickTime).Return(nil).Once()

	newTestPublishJob(repo, publisher).Tick(context.Background())

	repo.AssertExpectations(t)
}

func TestTickSkippedWhileRunning(t *testing.T) {
	repo := new(mocks.PostRepository)
	j := newTestPublishJob(repo, new(MockPublisher))

	j.running.Lock()
	j.Tick(context.Background())
	j.running.Unlock()

	repo.AssertNotCalled(t, "ListDue", mock.Anything, mock.Anything)
}

func TestStopBlocksLaterTicks(t *testing.T) {
	repo := new(mocks.PostRepository)
	j := newTestPublishJob(repo, new(MockPublisher))

	require.NoError(t, j.Stop(context.Background()))
	j.Tick(context.Background())

	repo.AssertNotCalled(t, "ListDue", mock.Anything, mock.Anything)
}

func TestStopTimesOutDuringTick(t *testing.T) {
	j := newTestPublishJob(new(mocks.PostRepository), new(MockPublisher))
	j.running.Lock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, j.Stop(ctx), context.DeadlineExceeded)
}

func TestStopResumesAfterTimeout(t *testing.T) {
	repo := new(mocks.PostRepository)
	j := newTestPublishJob(repo, new(MockPublisher))
	j.running.Lock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, j.Stop(ctx), context.DeadlineExceeded)

	j.running.Unlock()
	require.NoError(t, j.Stop(context.Background()))
	require.NoError(t, j.Stop(context.Background()))

	j.Tick(context.Background())
	repo.AssertNotCalled(t, "ListDue", mock.Anything, mock.Anything)
}
