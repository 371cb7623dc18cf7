package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maheshrc27/igscheduler/internal/models"
	"github.com/maheshrc27/igscheduler/internal/repository/mocks"
	"github.com/maheshrc27/igscheduler/internal/transfer"
	"github.com/maheshrc27/igscheduler/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func encryptedCredential(t *testing.T, token string, expiresAt time.Time) *models.Credential {
	t.Helper()
	encrypted, err := utils.Encrypt([]byte(token), []byte(testSecret))
	require.NoError(t, err)
	return &models.Credential{AccountID: "1789", AccessToken: encrypted, ExpiresAt: expiresAt}
}

func TestCredentialToken(t *testing.T) {
	repo := new(mocks.CredentialRepository)
	expiresAt := time.Now().Add(24 * time.Hour)
	repo.On("GetByAccountID", mock.Anything, "1789").Return(encryptedCredential(t, "tok", expiresAt), nil)

	token, err := NewCredentialService(testSecret, repo).Token(context.Background(), "1789")
	require.NoError(t, err)

	assert.Equal(t, "tok", token.AccessToken)
	assert.True(t, token.Expiry.Equal(expiresAt))
	repo.AssertExpectations(t)
}

func TestCredentialTokenAccountNotFound(t *testing.T) {
	repo := new(mocks.CredentialRepository)
	repo.On("GetByAccountID", mock.Anything, "404").Return(nil, nil)

	_, err := NewCredentialService(testSecret, repo).Token(context.Background(), "404")

	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.EqualError(t, err, "Instagram account not found")
}

func TestCredentialTokenExpired(t *testing.T) {
	repo := new(mocks.CredentialRepository)
	repo.On("GetByAccountID", mock.Anything, "1789").Return(encryptedCredential(t, "tok", time.Now().Add(-time.Hour)), nil)

	_, err := NewCredentialService(testSecret, repo).Token(context.Background(), "1789")

	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestCredentialTokenUnreadable(t *testing.T) {
	repo := new(mocks.CredentialRepository)
	repo.On("GetByAccountID", mock.Anything, "1789").Return(&models.Credential{
		AccountID:   "1789",
		AccessToken: "IGAAplaintextTokenFromOldDeployment",
		ExpiresAt:   time.Now().Add(24 * time.Hour),
	}, nil)

	_, err := NewCredentialService(testSecret, repo).Token(context.Background(), "1789")

	assert.ErrorIs(t, err, ErrCredentialNotSaved)
}

func TestCredentialTokenOtherKey(t *testing.T) {
	repo := new(mocks.CredentialRepository)
	repo.On("GetByAccountID", mock.Anything, "1789").Return(encryptedCredential(t, "tok", time.Now().Add(time.Hour)), nil)

	_, err := NewCredentialService("fedcba9876543210fedcba9876543210", repo).Token(context.Background(), "1789")

	assert.ErrorIs(t, err, ErrCredentialNotSaved)
}

func TestCredentialTokenStoreError(t *testing.T) {
	repo := new(mocks.CredentialRepository)
	repo.On("GetByAccountID", mock.Anything, "1789").Return(nil, errors.New("connection refused"))

	_, err := NewCredentialService(testSecret, repo).Token(context.Background(), "1789")

	assert.ErrorContains(t, err, "connection refused")
}

func TestCredentialSaveEncrypts(t *testing.T) {
	repo := new(mocks.CredentialRepository)
	expiresAt := time.Now().Add(60 * 24 * time.Hour)
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(c *models.Credential) bool {
		plain, err := utils.Decrypt(c.AccessToken, []byte(testSecret))
		return err == nil && plain == "tok" && c.AccountID == "1789" && c.Username == "shop"
	})).Return(nil)

	err := NewCredentialService(testSecret, repo).Save(context.Background(), &transfer.CredentialCreation{
		AccountID:   "1789",
		Username:    "shop",
		AccessToken: "tok",
		ExpiresAt:   expiresAt,
	})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCredentialSaveRejectsIncomplete(t *testing.T) {
	repo := new(mocks.CredentialRepository)
	svc := NewCredentialService(testSecret, repo)

	assert.Error(t, svc.Save(context.Background(), &transfer.CredentialCreation{AccountID: "1789"}))
	assert.Error(t, svc.Save(context.Background(), &transfer.CredentialCreation{AccountID: "1789", AccessToken: "tok"}))
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}
