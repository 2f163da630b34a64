// Package store defines the persistence contract shared by the MongoDB and SQL backends.
package store

import (
	"context"
	"errors"

	"github.com/cppla/socialnet/models"
)

var (
	// ErrNotFound means a referenced user, post or comment does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate means a unique username, email or provider identity is taken.
	ErrDuplicate = errors.New("store: duplicate key")
	// ErrAlreadyFollowing is returned by Follow when the edge exists.
	ErrAlreadyFollowing = errors.New("store: already following")
	// ErrNotFollowing is returned by Unfollow when the edge does not exist.
	ErrNotFollowing = errors.New("store: not following")
)

// Users holds accounts and the follow graph.
type Users interface {
	// CreateUser assigns ID and timestamps to u.
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByProvider(ctx context.Context, provider, providerID string) (*models.User, error)
	// GetUsersByIDs returns the users that exist among ids, in no particular order.
	GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
	UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error)
	LinkProvider(ctx context.Context, id, provider, providerID string) error
	// SearchUsers matches query as a case-insensitive literal substring of username or email.
	SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error)
	// SuggestUsers lists users that userID neither is nor follows.
	SuggestUsers(ctx context.Context, userID string, limit int) ([]models.User, error)
	CountUsers(ctx context.Context) (int64, error)

	// Follow records actorID -> targetID on both endpoints at once.
	Follow(ctx context.Context, actorID, targetID string) error
	// Unfollow removes both halves of the edge at once.
	Unfollow(ctx context.Context, actorID, targetID string) error
}

// Posts holds posts and post likes.
type Posts interface {
	// CreatePost assigns ID and timestamps and appends the post to its author's posts.
	CreatePost(ctx context.Context, p *models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	// ListPosts pages through all posts newest first and reports the total count.
	ListPosts(ctx context.Context, offset, limit int) ([]models.Post, int64, error)
	ListPostsByAuthor(ctx context.Context, authorID string) ([]models.Post, error)
	// UpdatePost stores content, image and tags of p and refreshes UpdatedAt.
	UpdatePost(ctx context.Context, p *models.Post) error
	// DeletePost removes the post, its comments, and every reference to it in users.
	DeletePost(ctx context.Context, id string) error
	// TogglePostLike flips userID's like and its mirror in likedPosts and returns the new state.
	TogglePostLike(ctx context.Context, postID, userID string) (bool, error)
	CountPosts(ctx context.Context) (int64, error)
}

// Comments holds comments and comment likes.
type Comments interface {
	// CreateComment assigns ID and timestamps and appends to the post's comments.
	// It fails with ErrNotFound if the post is gone.
	CreateComment(ctx context.Context, c *models.Comment) error
	GetComment(ctx context.Context, id string) (*models.Comment, error)
	// ListCommentsByPosts returns the comments of all given posts, oldest first.
	ListCommentsByPosts(ctx context.Context, postIDs []string) ([]models.Comment, error)
	UpdateComment(ctx context.Context, id, content string) (*models.Comment, error)
	// DeleteComment detaches the comment from its post and removes it.
	DeleteComment(ctx context.Context, id string) error
	ToggleCommentLike(ctx context.Context, commentID, userID string) (bool, error)
	CountComments(ctx context.Context) (int64, error)
}

// Store is the full persistence surface used by the services.
type Store interface {
	Users
	Posts
	Comments
	Close(ctx context.Context) error
}
