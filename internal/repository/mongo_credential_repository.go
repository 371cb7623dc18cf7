package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/igscheduler/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoCredentialRepository struct {
	collection *mongo.Collection
}

func NewMongoCredentialRepository(db *mongo.Database) CredentialRepository {
	return &mongoCredentialRepository{collection: db.Collection(credentialsCollection)}
}

func (r *mongoCredentialRepository) GetByAccountID(ctx context.Context, accountID string) (*models.Credential, error) {
	var c models.Credential
	err := r.collection.FindOne(ctx, bson.M{"user_id": accountID}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &c, nil
}

func (r *mongoCredentialRepository) Upsert(ctx context.Context, c *models.Credential) error {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"username":     c.Username,
			"access_token": c.AccessToken,
			"expires_time": c.ExpiresAt,
			"updatedAt":    now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"user_id": c.AccountID}, update, options.Update().SetUpsert(true))
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *mongoCredentialRepository) ListExpiring(ctx context.Context, before time.Time) ([]*models.Credential, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"expires_time": bson.M{"$lt": before}})
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer cursor.Close(ctx)

	var credentials []*models.Credential
	if err := cursor.All(ctx, &credentials); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return credentials, nil
}

func (r *mongoCredentialRepository) SetToken(ctx context.Context, accountID, oldAccessToken, accessToken string, expiresAt time.Time) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"user_id": accountID, "access_token": oldAccessToken},
		bson.M{"$set": bson.M{"access_token": accessToken, "expires_time": expiresAt, "updatedAt": time.Now()}},
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if result.MatchedCount != 1 {
		slog.Info("no documents matched; token may have been refreshed already", "account_id", accountID)
		return ErrTokenChanged
	}
	return nil
}
