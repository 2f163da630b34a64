// Package sqlstore implements store.Store on a relational database through gorm.
package sqlstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/socialnet/models"
	"github.com/cppla/socialnet/store"
)

// Store is the gorm-backed store.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// New migrates the schema and returns a store over db.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(allTables()...); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func newID() string {
	return uuid.NewString()
}

// mapErr translates gorm errors into store sentinels.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrDuplicate
	}
	// drivers without error translation still name the constraint in the message
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate entry") || strings.Contains(msg, "duplicate key") {
		return store.ErrDuplicate
	}
	return err
}

// lockForShare keeps a row from being deleted until the transaction ends.
// SQLite serializes writers on its own and has no row locks.
func lockForShare(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "SHARE"})
}

func exists(tx *gorm.DB, model interface{}, id string) (bool, error) {
	var ids []string
	if err := tx.Model(model).Where("id = ?", id).Limit(1).Pluck("id", &ids).Error; err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// ---- users ----

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	now := time.Now()
	u.ID = newID()
	u.CreatedAt, u.UpdatedAt = now, now
	row := userToRow(u)
	if err := s.conn(ctx).Create(&row).Error; err != nil {
		return mapErr(err)
	}
	u.Followers, u.Following, u.Posts, u.LikedPosts = []string{}, []string{}, []string{}, []string{}
	return nil
}

func (s *Store) getUserWhere(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var row userRow
	if err := s.conn(ctx).Where(query, args...).First(&row).Error; err != nil {
		return nil, mapErr(err)
	}
	users, err := s.hydrateUsers(ctx, []userRow{row})
	if err != nil {
		return nil, err
	}
	return &users[0], nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUserWhere(ctx, "id = ?", id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUserWhere(ctx, "username = ?", username)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUserWhere(ctx, "email = ?", email)
}

func (s *Store) GetUserByProvider(ctx context.Context, provider, providerID string) (*models.User, error) {
	return s.getUserWhere(ctx, "provider = ? AND provider_id = ?", provider, providerID)
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	var rows []userRow
	if err := s.conn(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return s.hydrateUsers(ctx, rows)
}

func (s *Store) UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error) {
	fields := map[string]interface{}{"updated_at": time.Now()}
	if upd.Username != nil {
		fields["username"] = *upd.Username
	}
	if upd.Bio != nil {
		fields["bio"] = *upd.Bio
	}
	if upd.ProfilePicture != nil {
		fields["profile_picture"] = *upd.ProfilePicture
	}
	res := s.conn(ctx).Model(&userRow{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) LinkProvider(ctx context.Context, id, provider, providerID string) error {
	res := s.conn(ctx).Model(&userRow{}).Where("id = ?", id).Updates(map[string]interface{}{
		"provider":    provider,
		"provider_id": providerID,
		"updated_at":  time.Now(),
	})
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// likePattern escapes LIKE metacharacters with '!' so the query matches literally.
func likePattern(query string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(strings.ToLower(query)) + "%"
}

func (s *Store) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	pattern := likePattern(query)
	var rows []userRow
	err := s.conn(ctx).
		Where("LOWER(username) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!'", pattern, pattern).
		Order("username").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return s.hydrateUsers(ctx, rows)
}

func (s *Store) SuggestUsers(ctx context.Context, userID string, limit int) ([]models.User, error) {
	following := s.conn(ctx).Model(&followRow{}).Select("followee_id").Where("follower_id = ?", userID)
	var rows []userRow
	err := s.conn(ctx).
		Where("id <> ? AND id NOT IN (?)", userID, following).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return s.hydrateUsers(ctx, rows)
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&userRow{}).Count(&n).Error
	return n, err
}

// Follow stores the edge once; the conflict clause makes a concurrent duplicate a no-op.
func (s *Store) Follow(ctx context.Context, actorID, targetID string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var found []string
		if err := lockForShare(tx.Model(&userRow{})).Where("id IN ?", []string{actorID, targetID}).Pluck("id", &found).Error; err != nil {
			return err
		}
		if len(found) != 2 {
			return store.ErrNotFound
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&followRow{
			FollowerID: actorID,
			FolloweeID: targetID,
			CreatedAt:  time.Now(),
		})
		if res.Error != nil {
			return mapErr(res.Error)
		}
		if res.RowsAffected == 0 {
			return store.ErrAlreadyFollowing
		}
		return nil
	})
}

func (s *Store) Unfollow(ctx context.Context, actorID, targetID string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := exists(tx, &userRow{}, targetID)
		if err != nil {
			return err
		}
		if !ok {
			return store.ErrNotFound
		}
		res := tx.Where("follower_id = ? AND followee_id = ?", actorID, targetID).Delete(&followRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFollowing
		}
		return nil
	})
}

// hydrateUsers fills the derived edge and content lists for rows with one query per relation.
func (s *Store) hydrateUsers(ctx context.Context, rows []userRow) ([]models.User, error) {
	users := make([]models.User, len(rows))
	if len(rows) == 0 {
		return users, nil
	}
	ids := make([]string, len(rows))
	index := make(map[string]int, len(rows))
	for i, r := range rows {
		users[i] = rowToUser(r)
		ids[i] = r.ID
		index[r.ID] = i
	}
	db := s.conn(ctx)

	var follows []followRow
	if err := db.Where("follower_id IN ? OR followee_id IN ?", ids, ids).Order("created_at, follower_id, followee_id").Find(&follows).Error; err != nil {
		return nil, err
	}
	for _, f := range follows {
		if i, ok := index[f.FollowerID]; ok {
			users[i].Following = append(users[i].Following, f.FolloweeID)
		}
		if i, ok := index[f.FolloweeID]; ok {
			users[i].Followers = append(users[i].Followers, f.FollowerID)
		}
	}

	var posts []postRow
	if err := db.Select("id", "author_id", "created_at").Where("author_id IN ?", ids).Order("created_at, id").Find(&posts).Error; err != nil {
		return nil, err
	}
	for _, p := range posts {
		i := index[p.AuthorID]
		users[i].Posts = append(users[i].Posts, p.ID)
	}

	var likes []postLikeRow
	if err := db.Where("user_id IN ?", ids).Order("created_at, post_id").Find(&likes).Error; err != nil {
		return nil, err
	}
	for _, l := range likes {
		i := index[l.UserID]
		users[i].LikedPosts = append(users[i].LikedPosts, l.PostID)
	}
	return users, nil
}

// ---- posts ----

func (s *Store) CreatePost(ctx context.Context, p *models.Post) error {
	now := time.Now()
	p.ID = newID()
	p.CreatedAt, p.UpdatedAt = now, now
	row := postRow{
		ID:        p.ID,
		AuthorID:  p.Author,
		Content:   p.Content,
		Image:     p.Image,
		Tags:      p.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := exists(lockForShare(tx), &userRow{}, p.Author)
		if err != nil {
			return err
		}
		if !ok {
			return store.ErrNotFound
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return err
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	p.Likes, p.Comments = []string{}, []string{}
	return nil
}

func (s *Store) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var row postRow
	if err := s.conn(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, mapErr(err)
	}
	posts, err := s.hydratePosts(ctx, []postRow{row})
	if err != nil {
		return nil, err
	}
	return &posts[0], nil
}

func (s *Store) ListPosts(ctx context.Context, offset, limit int) ([]models.Post, int64, error) {
	var total int64
	if err := s.conn(ctx).Model(&postRow{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []postRow
	if err := s.conn(ctx).Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	posts, err := s.hydratePosts(ctx, rows)
	return posts, total, err
}

func (s *Store) ListPostsByAuthor(ctx context.Context, authorID string) ([]models.Post, error) {
	var rows []postRow
	if err := s.conn(ctx).Where("author_id = ?", authorID).Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return s.hydratePosts(ctx, rows)
}

func (s *Store) UpdatePost(ctx context.Context, p *models.Post) error {
	p.UpdatedAt = time.Now()
	res := s.conn(ctx).Model(&postRow{}).Where("id = ?", p.ID).
		Select("content", "image", "tags", "updated_at").
		Updates(postRow{Content: p.Content, Image: p.Image, Tags: p.Tags, UpdatedAt: p.UpdatedAt})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeletePost removes comment likes, comments and post likes before the post itself.
// The author's post list and every likedPosts list are derived, so nothing else refers to it.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := exists(tx, &postRow{}, id)
		if err != nil {
			return err
		}
		if !ok {
			return store.ErrNotFound
		}
		commentIDs := tx.Model(&commentRow{}).Select("id").Where("post_id = ?", id)
		if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&commentLikeRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&commentRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&postLikeRow{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&postRow{}).Error
	})
}

// TogglePostLike deletes the like if present, otherwise inserts it.
func (s *Store) TogglePostLike(ctx context.Context, postID, userID string) (bool, error) {
	liked := false
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := exists(lockForShare(tx), &postRow{}, postID)
		if err != nil {
			return err
		}
		if !ok {
			return store.ErrNotFound
		}
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&postLikeRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		liked = true
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&postLikeRow{
			PostID:    postID,
			UserID:    userID,
			CreatedAt: time.Now(),
		}).Error
	})
	return liked, err
}

func (s *Store) CountPosts(ctx context.Context) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&postRow{}).Count(&n).Error
	return n, err
}

func (s *Store) hydratePosts(ctx context.Context, rows []postRow) ([]models.Post, error) {
	posts := make([]models.Post, len(rows))
	if len(rows) == 0 {
		return posts, nil
	}
	ids := make([]string, len(rows))
	index := make(map[string]int, len(rows))
	for i, r := range rows {
		posts[i] = rowToPost(r)
		ids[i] = r.ID
		index[r.ID] = i
	}
	db := s.conn(ctx)

	var likes []postLikeRow
	if err := db.Where("post_id IN ?", ids).Order("created_at, user_id").Find(&likes).Error; err != nil {
		return nil, err
	}
	for _, l := range likes {
		i := index[l.PostID]
		posts[i].Likes = append(posts[i].Likes, l.UserID)
	}

	var comments []commentRow
	if err := db.Select("id", "post_id", "created_at").Where("post_id IN ?", ids).Order("created_at, id").Find(&comments).Error; err != nil {
		return nil, err
	}
	for _, c := range comments {
		i := index[c.PostID]
		posts[i].Comments = append(posts[i].Comments, c.ID)
	}
	return posts, nil
}

// ---- comments ----

func (s *Store) CreateComment(ctx context.Context, c *models.Comment) error {
	now := time.Now()
	c.ID = newID()
	c.CreatedAt, c.UpdatedAt = now, now
	row := commentRow{
		ID:        c.ID,
		PostID:    c.Post,
		AuthorID:  c.Author,
		Content:   c.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := exists(lockForShare(tx), &postRow{}, c.Post)
		if err != nil {
			return err
		}
		if !ok {
			return store.ErrNotFound
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return err
	}
	c.Likes = []string{}
	return nil
}

func (s *Store) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	var row commentRow
	if err := s.conn(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, mapErr(err)
	}
	comments, err := s.hydrateComments(ctx, []commentRow{row})
	if err != nil {
		return nil, err
	}
	return &comments[0], nil
}

func (s *Store) ListCommentsByPosts(ctx context.Context, postIDs []string) ([]models.Comment, error) {
	if len(postIDs) == 0 {
		return []models.Comment{}, nil
	}
	var rows []commentRow
	if err := s.conn(ctx).Where("post_id IN ?", postIDs).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return s.hydrateComments(ctx, rows)
}

func (s *Store) UpdateComment(ctx context.Context, id, content string) (*models.Comment, error) {
	res := s.conn(ctx).Model(&commentRow{}).Where("id = ?", id).Updates(map[string]interface{}{
		"content":    content,
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetComment(ctx, id)
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := exists(tx, &commentRow{}, id)
		if err != nil {
			return err
		}
		if !ok {
			return store.ErrNotFound
		}
		if err := tx.Where("comment_id = ?", id).Delete(&commentLikeRow{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&commentRow{}).Error
	})
}

func (s *Store) ToggleCommentLike(ctx context.Context, commentID, userID string) (bool, error) {
	liked := false
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := exists(lockForShare(tx), &commentRow{}, commentID)
		if err != nil {
			return err
		}
		if !ok {
			return store.ErrNotFound
		}
		res := tx.Where("comment_id = ? AND user_id = ?", commentID, userID).Delete(&commentLikeRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		liked = true
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&commentLikeRow{
			CommentID: commentID,
			UserID:    userID,
			CreatedAt: time.Now(),
		}).Error
	})
	return liked, err
}

func (s *Store) CountComments(ctx context.Context) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&commentRow{}).Count(&n).Error
	return n, err
}

func (s *Store) hydrateComments(ctx context.Context, rows []commentRow) ([]models.Comment, error) {
	comments := make([]models.Comment, len(rows))
	if len(rows) == 0 {
		return comments, nil
	}
	ids := make([]string, len(rows))
	index := make(map[string]int, len(rows))
	for i, r := range rows {
		comments[i] = rowToComment(r)
		ids[i] = r.ID
		index[r.ID] = i
	}
	var likes []commentLikeRow
	if err := s.conn(ctx).Where("comment_id IN ?", ids).Order("created_at, user_id").Find(&likes).Error; err != nil {
		return nil, err
	}
	for _, l := range likes {
		i := index[l.CommentID]
		comments[i].Likes = append(comments[i].Likes, l.UserID)
	}
	return comments, nil
}
