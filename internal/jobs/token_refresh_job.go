package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/igscheduler/internal/models"
	"github.com/maheshrc27/igscheduler/internal/repository"
	"github.com/maheshrc27/igscheduler/internal/transfer"
	"github.com/maheshrc27/igscheduler/pkg/utils"
)

// TokenRefresher exchanges a long-lived access token for a fresh one.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, accessToken string) (*transfer.InstagramRefreshedToken, error)
}

type TokenRefreshJob struct {
	cr        repository.CredentialRepository
	ig        TokenRefresher
	secretKey []byte
	window    time.Duration
	now       func() time.Time
}

func NewTokenRefreshJob(cr repository.CredentialRepository, ig TokenRefresher, secretKey string, window time.Duration) *TokenRefreshJob {
	return &TokenRefreshJob{
		cr:        cr,
		ig:        ig,
		secretKey: []byte(secretKey),
		window:    window,
		now:       time.Now,
	}
}

// RefreshTokens renews every token expiring within the window. Tokens that
// already expired cannot be refreshed and need the account to reconnect.
func (j *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()
	now := j.now()

	credentials, err := j.cr.ListExpiring(ctx, now.Add(j.window))
	if err != nil {
		slog.Error("failed to list expiring credentials", "error", err)
		return
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 10)

	for _, c := range credentials {
		if c.ExpiresAt.Before(now) {
			slog.Info("token already expired, account must reconnect", "account_id", c.AccountID)
			continue
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(c *models.Credential) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := j.refresh(ctx, c); err != nil {
				slog.Info("unable to refresh Instagram token", "account_id", c.AccountID, "error", err)
			}
		}(c)
	}

	wg.Wait()
}

func (j *TokenRefreshJob) refresh(ctx context.Context, c *models.Credential) error {
	accessToken, err := utils.Decrypt(c.AccessToken, j.secretKey)
	if err != nil {
		return err
	}

	refreshed, err := j.ig.RefreshToken(ctx, accessToken)
	if err != nil {
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(refreshed.AccessToken), j.secretKey)
	if err != nil {
		return err
	}

	expiresAt := j.now().Add(time.Duration(refreshed.ExpiresIn) * time.Second)
	if err := j.cr.SetToken(ctx, c.AccountID, c.AccessToken, encryptedAccessToken, expiresAt); err != nil {
		return err
	}

	slog.Info("Instagram token refreshed", "account_id", c.AccountID, "expires_at", expiresAt)
	return nil
}
