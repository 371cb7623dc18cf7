package models

import "time"

// Credential holds the publishing token of one Instagram professional account.
// AccessToken is stored encrypted.
type Credential struct {
	AccountID   string    `db:"account_id" json:"account_id" bson:"user_id"`
	Username    string    `db:"username" json:"username" bson:"username"`
	AccessToken string    `db:"access_token" json:"-" bson:"access_token"`
	ExpiresAt   time.Time `db:"expires_at" json:"expires_at" bson:"expires_time"`
	CreatedAt   time.Time `db:"created_at" json:"created_at" bson:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at" bson:"updatedAt"`
}
