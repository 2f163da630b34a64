package services

import (
	"context"

	"github.com/cppla/socialnet/apperr"
	"github.com/cppla/socialnet/store"
)

// Stats are site-wide counters.
type Stats struct {
	Users    int64 `json:"userCount"`
	Posts    int64 `json:"postCount"`
	Comments int64 `json:"commentCount"`
}

// StatsService reports site-wide counters.
type StatsService struct {
	store store.Store
}

// NewStatsService creates a StatsService.
func NewStatsService(st store.Store) *StatsService {
	return &StatsService{store: st}
}

// Get counts users, posts and comments.
func (s *StatsService) Get(ctx context.Context) (Stats, error) {
	var out Stats
	var err error
	if out.Users, err = s.store.CountUsers(ctx); err != nil {
		return Stats{}, apperr.Wrap(err, serverMessage)
	}
	if out.Posts, err = s.store.CountPosts(ctx); err != nil {
		return Stats{}, apperr.Wrap(err, serverMessage)
	}
	if out.Comments, err = s.store.CountComments(ctx); err != nil {
		return Stats{}, apperr.Wrap(err, serverMessage)
	}
	return out, nil
}
