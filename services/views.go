package services

import (
	"context"

	"github.com/cppla/socialnet/models"
	"github.com/cppla/socialnet/store"
)

// summaries resolves user ids in one batch.
type summaries map[string]models.UserSummary

func loadSummaries(ctx context.Context, users store.Users, ids []string) (summaries, error) {
	out := summaries{}
	uniq := make([]string, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	if len(uniq) == 0 {
		return out, nil
	}
	found, err := users.GetUsersByIDs(ctx, uniq)
	if err != nil {
		return nil, err
	}
	for i := range found {
		out[found[i].ID] = found[i].Summary()
	}
	return out, nil
}

// one falls back to a bare id when the user is gone.
func (s summaries) one(id string) models.UserSummary {
	if u, ok := s[id]; ok {
		return u
	}
	return models.UserSummary{ID: id}
}

// list keeps the order of ids and skips users that no longer exist.
func (s summaries) list(ids []string) []models.UserSummary {
	out := make([]models.UserSummary, 0, len(ids))
	for _, id := range ids {
		if u, ok := s[id]; ok {
			out = append(out, u)
		}
	}
	return out
}

func userView(ctx context.Context, users store.Users, u *models.User, private bool) (models.UserView, error) {
	ids := append(append([]string{}, u.Followers...), u.Following...)
	sums, err := loadSummaries(ctx, users, ids)
	if err != nil {
		return models.UserView{}, err
	}
	v := models.UserView{
		ID:             u.ID,
		Username:       u.Username,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		Followers:      sums.list(u.Followers),
		Following:      sums.list(u.Following),
		Posts:          nonNil(u.Posts),
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
	if private {
		v.Email = u.Email
		v.LikedPosts = nonNil(u.LikedPosts)
	}
	return v, nil
}

func commentView(c *models.Comment, sums summaries) models.CommentView {
	return models.CommentView{
		ID:         c.ID,
		Content:    c.Content,
		Author:     sums.one(c.Author),
		Post:       c.Post,
		Likes:      sums.list(c.Likes),
		LikesCount: len(c.Likes),
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

// commentViews populates authors and likers of comments.
func commentViews(ctx context.Context, users store.Users, comments []models.Comment) ([]models.CommentView, error) {
	var ids []string
	for i := range comments {
		ids = append(ids, comments[i].Author)
		ids = append(ids, comments[i].Likes...)
	}
	sums, err := loadSummaries(ctx, users, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.CommentView, 0, len(comments))
	for i := range comments {
		out = append(out, commentView(&comments[i], sums))
	}
	return out, nil
}

// postViews populates authors and comments, oldest comment first.
func postViews(ctx context.Context, st store.Store, posts []models.Post) ([]models.PostView, error) {
	out := make([]models.PostView, 0, len(posts))
	if len(posts) == 0 {
		return out, nil
	}
	postIDs := make([]string, 0, len(posts))
	ids := make([]string, 0, len(posts))
	for i := range posts {
		postIDs = append(postIDs, posts[i].ID)
		ids = append(ids, posts[i].Author)
	}
	comments, err := st.ListCommentsByPosts(ctx, postIDs)
	if err != nil {
		return nil, err
	}
	for i := range comments {
		ids = append(ids, comments[i].Author)
		ids = append(ids, comments[i].Likes...)
	}
	sums, err := loadSummaries(ctx, st, ids)
	if err != nil {
		return nil, err
	}
	byPost := make(map[string][]models.CommentView, len(posts))
	for i := range comments {
		c := &comments[i]
		byPost[c.Post] = append(byPost[c.Post], commentView(c, sums))
	}
	for i := range posts {
		p := &posts[i]
		cs := byPost[p.ID]
		if cs == nil {
			cs = []models.CommentView{}
		}
		out = append(out, models.PostView{
			ID:            p.ID,
			Content:       p.Content,
			Image:         p.Image,
			Author:        sums.one(p.Author),
			Likes:         nonNil(p.Likes),
			Comments:      cs,
			Tags:          nonNil(p.Tags),
			LikesCount:    len(p.Likes),
			CommentsCount: len(cs),
			CreatedAt:     p.CreatedAt,
			UpdatedAt:     p.UpdatedAt,
		})
	}
	return out, nil
}

func postView(ctx context.Context, st store.Store, p *models.Post) (models.PostView, error) {
	views, err := postViews(ctx, st, []models.Post{*p})
	if err != nil {
		return models.PostView{}, err
	}
	return views[0], nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
