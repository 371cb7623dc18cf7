package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/igscheduler/internal/api/handlers"
	"github.com/maheshrc27/igscheduler/internal/api/middleware"
	"github.com/maheshrc27/igscheduler/internal/models"
	"github.com/maheshrc27/igscheduler/internal/repository/mocks"
	"github.com/maheshrc27/igscheduler/internal/service"
	"github.com/maheshrc27/igscheduler/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecretKey = "0123456789abcdef0123456789abcdef"

func newTestApp(t *testing.T, pr *mocks.PostRepository, cr *mocks.CredentialRepository) (*fiber.App, string) {
	t.Helper()

	app := fiber.New()
	SetupRoutes(app, middleware.NewAuthMiddleware(testSecretKey), Handlers{
		Post:    handlers.NewPostHandler(service.NewPostService(pr)),
		Account: handlers.NewAccountHandler(service.NewCredentialService(testSecretKey, cr)),
	})

	token, err := utils.GenerateToken(testSecretKey, "operator", time.Hour)
	require.NoError(t, err)
	return app, token
}

func request(method, target, body, token string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func TestHealthIsPublic(t *testing.T) {
	app, _ := newTestApp(t, new(mocks.PostRepository), new(mocks.CredentialRepository))

	resp, err := app.Test(request(http.MethodGet, "/health", "", ""))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAPIRequiresToken(t *testing.T) {
	app, _ := newTestApp(t, new(mocks.PostRepository), new(mocks.CredentialRepository))

	resp, err := app.Test(request(http.MethodGet, "/api/posts", "", ""))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(request(http.MethodGet, "/api/posts", "", "not-a-jwt"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	other, err := utils.GenerateToken("fedcba9876543210fedcba9876543210", "operator", time.Hour)
	require.NoError(t, err)
	resp, err = app.Test(request(http.MethodGet, "/api/posts", "", other))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCreatePost(t *testing.T) {
	pr := new(mocks.PostRepository)
	app, token := newTestApp(t, pr, new(mocks.CredentialRepository))
	pr.On("Create", mock.Anything, mock.AnythingOfType("*models.ScheduledPost")).Return(nil).Once()

	body := `{"account_id":"1789","type":"carousel","caption":"hello","scheduled_for":"2026-10-16T09:00:00Z",` +
		`"media_urls":["https://cdn.example.com/a.jpg","https://cdn.example.com/b.jpg"]}`
	resp, err := app.Test(request(http.MethodPost, "/api/posts", body, token))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var post models.ScheduledPost
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&post))
	assert.NotEmpty(t, post.ID)
	assert.Equal(t, models.PostStatusScheduled, post.Status)
	assert.Equal(t, 2, post.MediaCount)
	pr.AssertExpectations(t)
}

func TestCreatePostRejectsInvalid(t *testing.T) {
	pr := new(mocks.PostRepository)
	app, token := newTestApp(t, pr, new(mocks.CredentialRepository))

	body := `{"account_id":"1789","type":"carousel","caption":"hello","scheduled_for":"2026-10-16T09:00:00Z",` +
		`"media_urls":["https://cdn.example.com/a.jpg"]}`
	resp, err := app.Test(request(http.MethodPost, "/api/posts", body, token))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(request(http.MethodPost, "/api/posts", "{", token))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	pr.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestListPostsRejectsUnknownStatus(t *testing.T) {
	app, token := newTestApp(t, new(mocks.PostRepository), new(mocks.CredentialRepository))

	resp, err := app.Test(request(http.MethodGet, "/api/posts?status=archived", "", token))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetPostNotFound(t *testing.T) {
	pr := new(mocks.PostRepository)
	app, token := newTestApp(t, pr, new(mocks.CredentialRepository))
	pr.On("GetByID", mock.Anything, "missing").Return(nil, nil)

	resp, err := app.Test(request(http.MethodGet, "/api/posts/missing", "", token))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRetryPost(t *testing.T) {
	pr := new(mocks.PostRepository)
	app, token := newTestApp(t, pr, new(mocks.CredentialRepository))

	at := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	pr.On("Reschedule", mock.Anything, "failed-post", at, mock.Anything, mock.Anything).Return(true, nil).Once()
	pr.On("Reschedule", mock.Anything, "published-post", mock.Anything, mock.Anything, mock.Anything).Return(false, nil).Once()
	pr.On("GetByID", mock.Anything, "published-post").
		Return(&models.ScheduledPost{ID: "published-post", Status: models.PostStatusPublished}, nil)

	resp, err := app.Test(request(http.MethodPost, "/api/posts/failed-post/retry", `{"scheduled_for":"2026-10-16T09:00:00Z"}`, token))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(request(http.MethodPost, "/api/posts/published-post/retry", "", token))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	pr.AssertExpectations(t)
}

func TestRemovePost(t *testing.T) {
	pr := new(mocks.PostRepository)
	app, token := newTestApp(t, pr, new(mocks.CredentialRepository))
	pr.On("Remove", mock.Anything, "queued", mock.Anything).Return(true, nil)

	resp, err := app.Test(request(http.MethodDelete, "/api/posts/queued", "", token))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestSaveAccount(t *testing.T) {
	cr := new(mocks.CredentialRepository)
	app, token := newTestApp(t, new(mocks.PostRepository), cr)
	cr.On("Upsert", mock.Anything, mock.MatchedBy(func(c *models.Credential) bool {
		return c.AccountID == "1789" && c.AccessToken != "IGAAtoken"
	})).Return(nil).Once()

	body := `{"account_id":"1789","username":"shop","access_token":"IGAAtoken","expires_at":"2026-12-01T00:00:00Z"}`
	resp, err := app.Test(request(http.MethodPost, "/api/accounts", body, token))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	cr.AssertExpectations(t)
}

func TestMediaRouteDisabledWithoutStorage(t *testing.T) {
	app, token := newTestApp(t, new(mocks.PostRepository), new(mocks.CredentialRepository))

	resp, err := app.Test(request(http.MethodPost, "/api/media", "", token))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
