package services

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/cppla/socialnet/apperr"
	"github.com/cppla/socialnet/models"
	"github.com/cppla/socialnet/store"
)

const (
	searchMinLen           = 2
	searchLimit            = 10
	defaultSuggestionLimit = 5
	maxSuggestionLimit     = 20
)

// UserService covers the social graph and public profiles.
type UserService struct {
	store store.Store
}

// NewUserService creates a UserService.
func NewUserService(st store.Store) *UserService {
	return &UserService{store: st}
}

// Follow makes actorID follow targetID and returns the target with populated followers and following.
func (s *UserService) Follow(ctx context.Context, actorID, targetID string) (models.UserView, error) {
	if actorID == targetID {
		return models.UserView{}, apperr.New(apperr.SelfReference, "You cannot follow yourself")
	}
	err := s.store.Follow(ctx, actorID, targetID)
	switch {
	case errors.Is(err, store.ErrAlreadyFollowing):
		return models.UserView{}, apperr.New(apperr.Conflict, "You are already following this user")
	case err != nil:
		return models.UserView{}, translate(err, "User not found")
	}
	return s.view(ctx, targetID)
}

// Unfollow removes the actorID -> targetID edge.
func (s *UserService) Unfollow(ctx context.Context, actorID, targetID string) (models.UserView, error) {
	err := s.store.Unfollow(ctx, actorID, targetID)
	switch {
	case errors.Is(err, store.ErrNotFollowing):
		return models.UserView{}, apperr.New(apperr.NotFollowing, "You are not following this user")
	case err != nil:
		return models.UserView{}, translate(err, "User not found")
	}
	return s.view(ctx, targetID)
}

func (s *UserService) view(ctx context.Context, id string) (models.UserView, error) {
	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return models.UserView{}, translate(err, "User not found")
	}
	v, err := userView(ctx, s.store, u, false)
	return v, translate(err, "User not found")
}

// Profile returns the public profile of username with its posts, newest first.
// The flag reports whether viewerID follows that user; an empty viewerID is anonymous.
func (s *UserService) Profile(ctx context.Context, username, viewerID string) (models.ProfileView, bool, error) {
	u, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return models.ProfileView{}, false, translate(err, "User not found")
	}
	uv, err := userView(ctx, s.store, u, false)
	if err != nil {
		return models.ProfileView{}, false, translate(err, "User not found")
	}
	posts, err := s.store.ListPostsByAuthor(ctx, u.ID)
	if err != nil {
		return models.ProfileView{}, false, translate(err, "User not found")
	}
	pv, err := postViews(ctx, s.store, posts)
	if err != nil {
		return models.ProfileView{}, false, translate(err, "User not found")
	}
	return models.ProfileView{UserView: uv, Posts: pv}, u.FollowedBy(viewerID), nil
}

// Search matches query against usernames and emails. Queries shorter than two characters match nothing.
func (s *UserService) Search(ctx context.Context, query string) ([]models.UserSummary, error) {
	if utf8.RuneCountInString(query) < searchMinLen {
		return []models.UserSummary{}, nil
	}
	users, err := s.store.SearchUsers(ctx, query, searchLimit)
	if err != nil {
		return nil, apperr.Wrap(err, serverMessage)
	}
	return withBio(users), nil
}

// Suggestions lists users that userID does not follow yet.
func (s *UserService) Suggestions(ctx context.Context, userID string, limit int) ([]models.UserSummary, error) {
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}
	if limit > maxSuggestionLimit {
		limit = maxSuggestionLimit
	}
	users, err := s.store.SuggestUsers(ctx, userID, limit)
	if err != nil {
		return nil, translate(err, "User not found")
	}
	return withBio(users), nil
}

func withBio(users []models.User) []models.UserSummary {
	out := make([]models.UserSummary, 0, len(users))
	for i := range users {
		sum := users[i].Summary()
		sum.Bio = users[i].Bio
		out = append(out, sum)
	}
	return out
}
