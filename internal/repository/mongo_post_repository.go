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

const (
	postsCollection       = "scheduledposts"
	credentialsCollection = "instagramcredentials"
)

type mongoPostRepository struct {
	collection *mongo.Collection
}

func NewMongoPostRepository(db *mongo.Database) PostRepository {
	return &mongoPostRepository{collection: db.Collection(postsCollection)}
}

// EnsureMongoIndexes creates the indexes the scheduler queries rely on.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(postsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "scheduledFor", Value: 1}}},
		{Keys: bson.D{{Key: "accountId", Value: 1}}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(credentialsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "expires_time", Value: 1}}},
	})
	return err
}

func (r *mongoPostRepository) Create(ctx context.Context, post *models.ScheduledPost) error {
	if _, err := r.collection.InsertOne(ctx, post); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *mongoPostRepository) GetByID(ctx context.Context, id string) (*models.ScheduledPost, error) {
	var post models.ScheduledPost
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &post, nil
}

func (r *mongoPostRepository) List(ctx context.Context, status models.PostStatus) ([]*models.ScheduledPost, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "scheduledFor", Value: -1}})
	return r.find(ctx, filter, opts)
}

func (r *mongoPostRepository) ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error) {
	filter := bson.M{
		"status":       models.PostStatusScheduled,
		"scheduledFor": bson.M{"$lte": now},
	}
	opts := options.Find().SetSort(bson.D{{Key: "scheduledFor", Value: 1}, {Key: "createdAt", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *mongoPostRepository) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	return r.update(ctx,
		bson.M{"_id": id, "status": models.PostStatusScheduled},
		bson.M{"status": models.PostStatusProcessing, "updatedAt": now},
	)
}

func (r *mongoPostRepository) MarkPublished(ctx context.Context, id, postID string, now time.Time) error {
	ok, err := r.update(ctx,
		bson.M{"_id": id, "status": models.PostStatusProcessing},
		bson.M{"status": models.PostStatusPublished, "postId": postID, "updatedAt": now},
	)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidTransition
	}
	return nil
}

func (r *mongoPostRepository) MarkFailed(ctx context.Context, id, message string, now time.Time) error {
	ok, err := r.update(ctx,
		bson.M{"_id": id, "status": models.PostStatusProcessing},
		bson.M{"status": models.PostStatusFailed, "error": message, "updatedAt": now},
	)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidTransition
	}
	return nil
}

func (r *mongoPostRepository) Reschedule(ctx context.Context, id string, scheduledFor, staleBefore, now time.Time) (bool, error) {
	return r.update(ctx,
		bson.M{"_id": id, "$or": bson.A{
			bson.M{"status": models.PostStatusFailed},
			staleProcessing(staleBefore),
		}},
		bson.M{"status": models.PostStatusScheduled, "scheduledFor": scheduledFor, "error": "", "updatedAt": now},
	)
}

func (r *mongoPostRepository) Remove(ctx context.Context, id string, staleBefore time.Time) (bool, error) {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "$or": bson.A{
		bson.M{"status": bson.M{"$ne": models.PostStatusProcessing}},
		staleProcessing(staleBefore),
	}})
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return result.DeletedCount == 1, nil
}

// staleProcessing matches posts claimed before staleBefore and never finished.
func staleProcessing(staleBefore time.Time) bson.M {
	return bson.M{"status": models.PostStatusProcessing, "updatedAt": bson.M{"$lt": staleBefore}}
}

func (r *mongoPostRepository) update(ctx context.Context, filter, set bson.M) (bool, error) {
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return result.MatchedCount == 1, nil
}

func (r *mongoPostRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.ScheduledPost, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer cursor.Close(ctx)

	var posts []*models.ScheduledPost
	if err := cursor.All(ctx, &posts); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}
