package models

import "time"

// Views are the JSON shapes returned to clients, with references populated and counts derived.

// UserView is a user with follower and following summaries.
type UserView struct {
	ID             string        `json:"id"`
	Username       string        `json:"username"`
	Email          string        `json:"email,omitempty"`
	Bio            string        `json:"bio"`
	ProfilePicture string        `json:"profilePicture"`
	Followers      []UserSummary `json:"followers"`
	Following      []UserSummary `json:"following"`
	Posts          []string      `json:"posts"`
	LikedPosts     []string      `json:"likedPosts,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// ProfileView is a public profile; its posts are populated.
type ProfileView struct {
	UserView
	Posts []PostView `json:"posts"`
}

// PostView is a post with its author and comments populated.
type PostView struct {
	ID            string        `json:"id"`
	Content       string        `json:"content"`
	Image         string        `json:"image"`
	Author        UserSummary   `json:"author"`
	Likes         []string      `json:"likes"`
	Comments      []CommentView `json:"comments"`
	Tags          []string      `json:"tags"`
	LikesCount    int           `json:"likesCount"`
	CommentsCount int           `json:"commentsCount"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// CommentView is a comment with its author and likers populated.
type CommentView struct {
	ID         string        `json:"id"`
	Content    string        `json:"content"`
	Author     UserSummary   `json:"author"`
	Post       string        `json:"post"`
	Likes      []UserSummary `json:"likes"`
	LikesCount int           `json:"likesCount"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}
