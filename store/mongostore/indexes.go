package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// EnsureIndexes creates the unique and lookup indexes. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_username"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		},
		{
			Keys: bson.D{{Key: "provider", Value: 1}, {Key: "providerId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_provider_identity").
				SetPartialFilterExpression(bson.M{"provider": bson.M{"$exists": true}}),
		},
	})
	if err != nil {
		return err
	}

	_, err = s.posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "author", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("author_created")},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("created_desc")},
	})
	if err != nil {
		return err
	}

	_, err = s.comments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "post", Value: 1}, {Key: "createdAt", Value: 1}},
		Options: options.Index().SetName("post_created"),
	})
	return err
}
