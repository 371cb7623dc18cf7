package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/igscheduler/internal/models"
	"github.com/maheshrc27/igscheduler/internal/repository"
	"github.com/maheshrc27/igscheduler/internal/transfer"
	"github.com/maheshrc27/igscheduler/pkg/utils"
	"golang.org/x/oauth2"
)

var (
	ErrAccountNotFound    = errors.New("Instagram account not found")
	ErrTokenExpired       = errors.New("Instagram access token expired")
	ErrCredentialNotSaved = errors.New("stored access token is unreadable, save the account again")
)

// TokenSource resolves the publishing token of an account.
type TokenSource interface {
	Token(ctx context.Context, accountID string) (*oauth2.Token, error)
}

type CredentialService interface {
	TokenSource
	Save(ctx context.Context, cc *transfer.CredentialCreation) error
}

type credentialService struct {
	secretKey []byte
	cr        repository.CredentialRepository
}

func NewCredentialService(secretKey string, cr repository.CredentialRepository) CredentialService {
	return &credentialService{
		secretKey: []byte(secretKey),
		cr:        cr,
	}
}

func (s *credentialService) Token(ctx context.Context, accountID string) (*oauth2.Token, error) {
	credential, err := s.cr.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if credential == nil {
		return nil, ErrAccountNotFound
	}

	// Tokens written by another key or by older deployments in plaintext
	// cannot be decrypted and need to go through Save again.
	accessToken, err := utils.Decrypt(credential.AccessToken, s.secretKey)
	if err != nil {
		slog.Info("failed to decrypt access token", "account_id", accountID, "error", err)
		return nil, ErrCredentialNotSaved
	}

	token := &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		Expiry:      credential.ExpiresAt,
	}
	if !token.Valid() {
		return nil, ErrTokenExpired
	}
	return token, nil
}

func (s *credentialService) Save(ctx context.Context, cc *transfer.CredentialCreation) error {
	if cc == nil || cc.AccountID == "" || cc.AccessToken == "" {
		err := errors.New("account id and access token are required")
		slog.Info(err.Error())
		return err
	}
	if cc.ExpiresAt.IsZero() {
		err := errors.New("token expiry is required")
		slog.Info(err.Error())
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(cc.AccessToken), s.secretKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	return s.cr.Upsert(ctx, &models.Credential{
		AccountID:   cc.AccountID,
		Username:    cc.Username,
		AccessToken: encryptedAccessToken,
		ExpiresAt:   cc.ExpiresAt,
	})
}
