// Package services holds the engagement and graph rules on top of a store.Store.
// Every error returned from this package is an *apperr.Error.
package services

import (
	"github.com/cppla/socialnet/storage"
	"github.com/cppla/socialnet/store"
)

// Services bundles the per-resource services the HTTP layer talks to.
type Services struct {
	Auth     *AuthService
	Users    *UserService
	Posts    *PostService
	Comments *CommentService
	Media    *MediaService
	Stats    *StatsService
}

// New wires every service to st and bucket.
func New(st store.Store, bucket storage.Bucket, maxUploadBytes int64) *Services {
	return &Services{
		Auth:     NewAuthService(st),
		Users:    NewUserService(st),
		Posts:    NewPostService(st),
		Comments: NewCommentService(st),
		Media:    NewMediaService(bucket, maxUploadBytes),
		Stats:    NewStatsService(st),
	}
}
