package models

import "time"

// Post is authored content. Comments keeps creation order and only holds ids of comments on this post.
type Post struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Image     string    `json:"image"`
	Author    string    `json:"author"`
	Likes     []string  `json:"likes"`
	Comments  []string  `json:"comments"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
