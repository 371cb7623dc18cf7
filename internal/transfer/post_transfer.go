package transfer

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type PostCreation struct {
	AccountID    string    `json:"account_id"`
	Type         string    `json:"type"`
	Caption      string    `json:"caption"`
	ScheduledFor time.Time `json:"scheduled_for"`
	MediaURLs    []string  `json:"media_urls"`
}

type PostReschedule struct {
	ScheduledFor *time.Time `json:"scheduled_for"`
}

type CredentialCreation struct {
	AccountID   string    `json:"account_id"`
	Username    string    `json:"username"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type MediaUpload struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	MIME string `json:"mime"`
}

type CustomClaims struct {
	jwt.RegisteredClaims
}
