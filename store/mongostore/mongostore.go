// Package mongostore implements store.Store on MongoDB. Follow edges and likes are embedded
// arrays kept in step by multi-document transactions.
package mongostore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/cppla/socialnet/models"
	"github.com/cppla/socialnet/store"
)

// Store is the MongoDB-backed store.
type Store struct {
	client   *mongo.Client
	users    *mongo.Collection
	posts    *mongo.Collection
	comments *mongo.Collection
	useTx    bool
}

var _ store.Store = (*Store)(nil)

// Options tunes a Store.
type Options struct {
	// DisableTransactions runs multi-document writes one after another. Standalone servers
	// have no transactions; in that mode a crash between writes can leave a half-applied edge.
	DisableTransactions bool
}

// New opens the collections of database dbName and ensures their indexes.
func New(ctx context.Context, client *mongo.Client, dbName string, opts Options) (*Store, error) {
	db := client.Database(dbName)
	s := &Store{
		client:   client,
		users:    db.Collection("users"),
		posts:    db.Collection("posts"),
		comments: db.Collection("comments"),
		useTx:    !opts.DisableTransactions,
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// withTx runs fn inside a session transaction; the driver retries transient commit errors.
func (s *Store) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.useTx {
		return fn(ctx)
	}
	sess, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc context.Context) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func parseID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.NilObjectID, store.ErrNotFound
	}
	return oid, nil
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	}
	return err
}

func docExists(ctx context.Context, col *mongo.Collection, id bson.ObjectID) (bool, error) {
	n, err := col.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	return n > 0, err
}

// ---- users ----

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	doc := userDoc{
		ID:             bson.NewObjectID(),
		Username:       u.Username,
		Email:          u.Email,
		Password:       u.PasswordHash,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		Provider:       u.Provider,
		ProviderID:     u.ProviderID,
		Followers:      []bson.ObjectID{},
		Following:      []bson.ObjectID{},
		Posts:          []bson.ObjectID{},
		LikedPosts:     []bson.ObjectID{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		return mapErr(err)
	}
	*u = doc.toModel()
	return nil
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapErr(err)
	}
	u := doc.toModel()
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.findUser(ctx, bson.M{"_id": oid})
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"username": username})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *Store) GetUserByProvider(ctx context.Context, provider, providerID string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"provider": provider, "providerId": providerID})
}

func (s *Store) findUsers(ctx context.Context, filter bson.M, opts ...options.Lister[options.FindOptions]) ([]models.User, error) {
	cur, err := s.users.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.User, len(docs))
	for i := range docs {
		out[i] = docs[i].toModel()
	}
	return out, nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []models.User{}, nil
	}
	return s.findUsers(ctx, bson.M{"_id": bson.M{"$in": oids}})
}

func (s *Store) UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.Username != nil {
		set["username"] = *upd.Username
	}
	if upd.Bio != nil {
		set["bio"] = *upd.Bio
	}
	if upd.ProfilePicture != nil {
		set["profilePicture"] = *upd.ProfilePicture
	}
	var doc userDoc
	err = s.users.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		return nil, mapErr(err)
	}
	u := doc.toModel()
	return &u, nil
}

func (s *Store) LinkProvider(ctx context.Context, id, provider, providerID string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"provider":   provider,
		"providerId": providerID,
		"updatedAt":  time.Now().UTC(),
	}})
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	re := bson.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"username": re},
		bson.M{"email": re},
	}}
	return s.findUsers(ctx, filter, options.Find().SetSort(bson.D{{Key: "username", Value: 1}}).SetLimit(int64(limit)))
}

func (s *Store) SuggestUsers(ctx context.Context, userID string, limit int) ([]models.User, error) {
	me, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	exclude := append(objectIDs(me.Following), objectIDs([]string{me.ID})...)
	return s.findUsers(ctx, bson.M{"_id": bson.M{"$nin": exclude}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(int64(limit)))
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	return s.users.CountDocuments(ctx, bson.M{})
}

// Follow adds both halves of the edge. The actor-side write is conditional on the edge
// being absent, so of two racing follows only one passes it.
func (s *Store) Follow(ctx context.Context, actorID, targetID string) error {
	actor, err := parseID(actorID)
	if err != nil {
		return err
	}
	target, err := parseID(targetID)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(ctx context.Context) error {
		ok, err := docExists(ctx, s.users, target)
		if err != nil {
			return err
		}
		if !ok {
			return store.ErrNotFound
		}
		now := time.Now().UTC()
		res, err := s.users.UpdateOne(ctx,
			bson.M{"_id": actor, "following": bson.M{"$ne": target}},
			bson.M{"$addToSet": bson.M{"following": target}, "$set": bson.M{"updatedAt": now}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			if ok, err := docExists(ctx, s.users, actor); err != nil {
				return err
			} else if !ok {
				return store.ErrNotFound
			}
			return store.ErrAlreadyFollowing
		}
		_, err = s.users.UpdateOne(ctx,
			bson.M{"_id": target},
			bson.M{"$addToSet": bson.M{"followers": actor}, "$set": bson.M{"updatedAt": now}},
		)
		return err
	})
}

func (s *Store) Unfollow(ctx context.Context, actorID, targetID string) error {
	actor, err := parseID(actorID)
	if err != nil {
		return err
	}
	target, err := parseID(targetID)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(ctx context.Context) error {
		ok, err := docExists(ctx, s.users, target)
		if err != nil {
			return err
		}
		if !ok {
			return store.ErrNotFound
		}
		now := time.Now().UTC()
		res, err := s.users.UpdateOne(ctx,
			bson.M{"_id": actor, "following": target},
			bson.M{"$pull": bson.M{"following": target}, "$set": bson.M{"updatedAt": now}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return store.ErrNotFollowing
		}
		_, err = s.users.UpdateOne(ctx,
			bson.M{"_id": target},
			bson.M{"$pull": bson.M{"followers": actor}, "$set": bson.M{"updatedAt": now}},
		)
		return err
	})
}

// ---- posts ----

func (s *Store) CreatePost(ctx context.Context, p *models.Post) error {
	author, err := parseID(p.Author)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	doc := postDoc{
		ID:        bson.NewObjectID(),
		Content:   p.Content,
		Image:     p.Image,
		Author:    author,
		Likes:     []bson.ObjectID{},
		Comments:  []bson.ObjectID{},
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.withTx(ctx, func(ctx context.Context) error {
		if _, err := s.posts.InsertOne(ctx, doc); err != nil {
			return err
		}
		res, err := s.users.UpdateOne(ctx, bson.M{"_id": author}, bson.M{"$push": bson.M{"posts": doc.ID}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			_, _ = s.posts.DeleteOne(ctx, bson.M{"_id": doc.ID})
			return store.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	*p = doc.toModel()
	return nil
}

func (s *Store) GetPost(ctx context.Context, id string) (*models.Post, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var doc postDoc
	if err := s.posts.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, mapErr(err)
	}
	p := doc.toModel()
	return &p, nil
}

func (s *Store) findPosts(ctx context.Context, filter bson.M, opts ...options.Lister[options.FindOptions]) ([]models.Post, error) {
	cur, err := s.posts.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []postDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Post, len(docs))
	for i := range docs {
		out[i] = docs[i].toModel()
	}
	return out, nil
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

func (s *Store) ListPosts(ctx context.Context, offset, limit int) ([]models.Post, int64, error) {
	total, err := s.posts.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}
	posts, err := s.findPosts(ctx, bson.M{},
		options.Find().SetSort(newestFirst).SetSkip(int64(offset)).SetLimit(int64(limit)))
	return posts, total, err
}

func (s *Store) ListPostsByAuthor(ctx context.Context, authorID string) ([]models.Post, error) {
	author, err := parseID(authorID)
	if err != nil {
		return []models.Post{}, nil
	}
	return s.findPosts(ctx, bson.M{"author": author}, options.Find().SetSort(newestFirst))
}

func (s *Store) UpdatePost(ctx context.Context, p *models.Post) error {
	oid, err := parseID(p.ID)
	if err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	res, err := s.posts.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"content":   p.Content,
		"image":     p.Image,
		"tags":      tags,
		"updatedAt": p.UpdatedAt,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeletePost removes comments first and the post last, so no comment outlives its post.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(ctx context.Context) error {
		var doc postDoc
		if err := s.posts.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
			return mapErr(err)
		}
		if _, err := s.comments.DeleteMany(ctx, bson.M{"post": oid}); err != nil {
			return err
		}
		if _, err := s.users.UpdateMany(ctx, bson.M{"likedPosts": oid}, bson.M{"$pull": bson.M{"likedPosts": oid}}); err != nil {
			return err
		}
		if _, err := s.users.UpdateOne(ctx, bson.M{"_id": doc.Author}, bson.M{"$pull": bson.M{"posts": oid}}); err != nil {
			return err
		}
		_, err := s.posts.DeleteOne(ctx, bson.M{"_id": oid})
		return err
	})
}

// toggleLike flips user's membership in the likes array of the document id. The add is
// conditional on absence, so each call commits exactly one direction.
func toggleLike(ctx context.Context, col *mongo.Collection, id, user bson.ObjectID) (bool, error) {
	res, err := col.UpdateOne(ctx,
		bson.M{"_id": id, "likes": bson.M{"$ne": user}},
		bson.M{"$addToSet": bson.M{"likes": user}},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	res, err = col.UpdateOne(ctx,
		bson.M{"_id": id, "likes": user},
		bson.M{"$pull": bson.M{"likes": user}},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		return false, store.ErrNotFound
	}
	return false, nil
}

func (s *Store) TogglePostLike(ctx context.Context, postID, userID string) (bool, error) {
	post, err := parseID(postID)
	if err != nil {
		return false, err
	}
	user, err := parseID(userID)
	if err != nil {
		return false, err
	}
	liked := false
	err = s.withTx(ctx, func(ctx context.Context) error {
		var err error
		liked, err = toggleLike(ctx, s.posts, post, user)
		if err != nil {
			return err
		}
		mirror := bson.M{"$pull": bson.M{"likedPosts": post}}
		if liked {
			mirror = bson.M{"$addToSet": bson.M{"likedPosts": post}}
		}
		_, err = s.users.UpdateOne(ctx, bson.M{"_id": user}, mirror)
		return err
	})
	return liked, err
}

func (s *Store) CountPosts(ctx context.Context) (int64, error) {
	return s.posts.CountDocuments(ctx, bson.M{})
}

// ---- comments ----

// CreateComment inserts the comment and appends it to the post. When the post is missing the
// insert is undone, by the aborted transaction or explicitly without one.
func (s *Store) CreateComment(ctx context.Context, c *models.Comment) error {
	post, err := parseID(c.Post)
	if err != nil {
		return err
	}
	author, err := parseID(c.Author)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	doc := commentDoc{
		ID:        bson.NewObjectID(),
		Content:   c.Content,
		Author:    author,
		Post:      post,
		Likes:     []bson.ObjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.withTx(ctx, func(ctx context.Context) error {
		if _, err := s.comments.InsertOne(ctx, doc); err != nil {
			return err
		}
		res, err := s.posts.UpdateOne(ctx, bson.M{"_id": post}, bson.M{"$push": bson.M{"comments": doc.ID}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			_, _ = s.comments.DeleteOne(ctx, bson.M{"_id": doc.ID})
			return store.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	*c = doc.toModel()
	return nil
}

func (s *Store) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var doc commentDoc
	if err := s.comments.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, mapErr(err)
	}
	c := doc.toModel()
	return &c, nil
}

func (s *Store) ListCommentsByPosts(ctx context.Context, postIDs []string) ([]models.Comment, error) {
	oids := objectIDs(postIDs)
	if len(oids) == 0 {
		return []models.Comment{}, nil
	}
	cur, err := s.comments.Find(ctx, bson.M{"post": bson.M{"$in": oids}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []commentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Comment, len(docs))
	for i := range docs {
		out[i] = docs[i].toModel()
	}
	return out, nil
}

func (s *Store) UpdateComment(ctx context.Context, id, content string) (*models.Comment, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var doc commentDoc
	err = s.comments.FindOneAndUpdate(ctx, bson.M{"_id": oid},
		bson.M{"$set": bson.M{"content": content, "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		return nil, mapErr(err)
	}
	c := doc.toModel()
	return &c, nil
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(ctx context.Context) error {
		var doc commentDoc
		if err := s.comments.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
			return mapErr(err)
		}
		if _, err := s.posts.UpdateOne(ctx, bson.M{"_id": doc.Post}, bson.M{"$pull": bson.M{"comments": oid}}); err != nil {
			return err
		}
		_, err := s.comments.DeleteOne(ctx, bson.M{"_id": oid})
		return err
	})
}

func (s *Store) ToggleCommentLike(ctx context.Context, commentID, userID string) (bool, error) {
	comment, err := parseID(commentID)
	if err != nil {
		return false, err
	}
	user, err := parseID(userID)
	if err != nil {
		return false, err
	}
	return toggleLike(ctx, s.comments, comment, user)
}

func (s *Store) CountComments(ctx context.Context) (int64, error) {
	return s.comments.CountDocuments(ctx, bson.M{})
}
