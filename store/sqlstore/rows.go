package sqlstore

import (
	"time"

	"github.com/cppla/socialnet/models"
)

// Relation tables hold each follow edge and like exactly once; the list fields of the
// domain models are derived from them when rows are loaded.

type userRow struct {
	ID             string    `gorm:"primaryKey;size:36"`
	Username       string    `gorm:"size:30;not null;uniqueIndex"`
	Email          string    `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash   string    `gorm:"size:255"`
	Bio            string    `gorm:"size:640"`
	ProfilePicture string    `gorm:"size:512"`
	Provider       *string   `gorm:"size:32;uniqueIndex:idx_users_provider"`
	ProviderID     *string   `gorm:"size:191;uniqueIndex:idx_users_provider"`
	CreatedAt      time.Time `gorm:"index"`
	UpdatedAt      time.Time
}

func (userRow) TableName() string { return "users" }

type postRow struct {
	ID        string    `gorm:"primaryKey;size:36"`
	AuthorID  string    `gorm:"size:36;not null;index"`
	Content   string    `gorm:"type:text;not null"`
	Image     string    `gorm:"size:512"`
	Tags      []string  `gorm:"serializer:json;type:text"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (postRow) TableName() string { return "posts" }

type commentRow struct {
	ID        string `gorm:"primaryKey;size:36"`
	PostID    string `gorm:"size:36;not null;index"`
	AuthorID  string `gorm:"size:36;not null;index"`
	Content   string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (commentRow) TableName() string { return "comments" }

type followRow struct {
	FollowerID string `gorm:"primaryKey;size:36"`
	FolloweeID string `gorm:"primaryKey;size:36;index"`
	CreatedAt  time.Time
}

func (followRow) TableName() string { return "follows" }

type postLikeRow struct {
	PostID    string `gorm:"primaryKey;size:36"`
	UserID    string `gorm:"primaryKey;size:36;index"`
	CreatedAt time.Time
}

func (postLikeRow) TableName() string { return "post_likes" }

type commentLikeRow struct {
	CommentID string `gorm:"primaryKey;size:36"`
	UserID    string `gorm:"primaryKey;size:36;index"`
	CreatedAt time.Time
}

func (commentLikeRow) TableName() string { return "comment_likes" }

func allTables() []interface{} {
	return []interface{}{&userRow{}, &postRow{}, &commentRow{}, &followRow{}, &postLikeRow{}, &commentLikeRow{}}
}

func userToRow(u *models.User) userRow {
	r := userRow{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
	if u.Provider != "" {
		r.Provider = &u.Provider
		r.ProviderID = &u.ProviderID
	}
	return r
}

func rowToUser(r userRow) models.User {
	u := models.User{
		ID:             r.ID,
		Username:       r.Username,
		Email:          r.Email,
		PasswordHash:   r.PasswordHash,
		Bio:            r.Bio,
		ProfilePicture: r.ProfilePicture,
		Followers:      []string{},
		Following:      []string{},
		Posts:          []string{},
		LikedPosts:     []string{},
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.Provider != nil {
		u.Provider = *r.Provider
	}
	if r.ProviderID != nil {
		u.ProviderID = *r.ProviderID
	}
	return u
}

func rowToPost(r postRow) models.Post {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return models.Post{
		ID:        r.ID,
		Content:   r.Content,
		Image:     r.Image,
		Author:    r.AuthorID,
		Likes:     []string{},
		Comments:  []string{},
		Tags:      tags,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func rowToComment(r commentRow) models.Comment {
	return models.Comment{
		ID:        r.ID,
		Content:   r.Content,
		Author:    r.AuthorID,
		Post:      r.PostID,
		Likes:     []string{},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
