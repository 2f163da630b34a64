package services

import (
	"context"
	"math"
	"strings"

	"github.com/cppla/socialnet/apperr"
	"github.com/cppla/socialnet/models"
	"github.com/cppla/socialnet/store"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
	postNotFound    = "Post not found"
)

// PostService covers posts and post likes.
type PostService struct {
	store store.Store
}

// NewPostService creates a PostService.
func NewPostService(st store.Store) *PostService {
	return &PostService{store: st}
}

// PostInput is a new post.
type PostInput struct {
	Content string
	Image   string
	Tags    []string
}

// Create sanitizes and validates in, then stores it under authorID.
func (s *PostService) Create(ctx context.Context, authorID string, in PostInput) (models.PostView, error) {
	content, err := cleanText("content", in.Content, models.ValidatePostContent)
	if err != nil {
		return models.PostView{}, err
	}
	tags := models.NormalizeTags(in.Tags)
	if msg := models.ValidateTags(tags); msg != "" {
		return models.PostView{}, invalid("tags", msg)
	}
	p := &models.Post{
		Content: content,
		Image:   strings.TrimSpace(in.Image),
		Author:  authorID,
		Tags:    tags,
	}
	if err := s.store.CreatePost(ctx, p); err != nil {
		return models.PostView{}, translate(err, "User not found")
	}
	v, err := postView(ctx, s.store, p)
	return v, translate(err, postNotFound)
}

// Page is one page of the feed.
type Page struct {
	Posts       []models.PostView
	CurrentPage int
	TotalPages  int
	TotalPosts  int64
}

// List pages through all posts newest first. page defaults to 1 and limit to 10, capped at 50.
func (s *PostService) List(ctx context.Context, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if page-1 > math.MaxInt/limit {
		total, err := s.store.CountPosts(ctx)
		if err != nil {
			return nil, apperr.Wrap(err, serverMessage)
		}
		return &Page{Posts: []models.PostView{}, CurrentPage: page, TotalPages: pageCount(total, limit), TotalPosts: total}, nil
	}
	posts, total, err := s.store.ListPosts(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, apperr.Wrap(err, serverMessage)
	}
	views, err := postViews(ctx, s.store, posts)
	if err != nil {
		return nil, apperr.Wrap(err, serverMessage)
	}
	return &Page{
		Posts:       views,
		CurrentPage: page,
		TotalPages:  pageCount(total, limit),
		TotalPosts:  total,
	}, nil
}

func pageCount(total int64, limit int) int {
	return int((total + int64(limit) - 1) / int64(limit))
}

// Get returns one populated post.
func (s *PostService) Get(ctx context.Context, id string) (models.PostView, error) {
	p, err := s.store.GetPost(ctx, id)
	if err != nil {
		return models.PostView{}, translate(err, postNotFound)
	}
	v, err := postView(ctx, s.store, p)
	return v, translate(err, postNotFound)
}

// ByAuthor returns all posts of authorID, newest first.
func (s *PostService) ByAuthor(ctx context.Context, authorID string) ([]models.PostView, error) {
	posts, err := s.store.ListPostsByAuthor(ctx, authorID)
	if err != nil {
		return nil, translate(err, "User not found")
	}
	views, err := postViews(ctx, s.store, posts)
	if err != nil {
		return nil, apperr.Wrap(err, serverMessage)
	}
	return views, nil
}

// PostUpdate is an edit. Nil or blank content and image keep the stored value; nil tags keep the stored tags.
type PostUpdate struct {
	Content *string
	Image   *string
	Tags    []string
}

// Update edits a post owned by actorID.
func (s *PostService) Update(ctx context.Context, actorID, postID string, upd PostUpdate) (models.PostView, error) {
	p, err := s.owned(ctx, actorID, postID, "You are not authorized to update this post")
	if err != nil {
		return models.PostView{}, err
	}
	if upd.Content != nil && strings.TrimSpace(*upd.Content) != "" {
		content, err := cleanText("content", *upd.Content, models.ValidatePostContent)
		if err != nil {
			return models.PostView{}, err
		}
		p.Content = content
	}
	if upd.Image != nil && strings.TrimSpace(*upd.Image) != "" {
		p.Image = strings.TrimSpace(*upd.Image)
	}
	if upd.Tags != nil {
		tags := models.NormalizeTags(upd.Tags)
		if msg := models.ValidateTags(tags); msg != "" {
			return models.PostView{}, invalid("tags", msg)
		}
		p.Tags = tags
	}
	if err := s.store.UpdatePost(ctx, p); err != nil {
		return models.PostView{}, translate(err, postNotFound)
	}
	v, err := postView(ctx, s.store, p)
	return v, translate(err, postNotFound)
}

// Delete removes a post owned by actorID together with its comments and every like of it.
func (s *PostService) Delete(ctx context.Context, actorID, postID string) error {
	if _, err := s.owned(ctx, actorID, postID, "You are not authorized to delete this post"); err != nil {
		return err
	}
	return translate(s.store.DeletePost(ctx, postID), postNotFound)
}

// ToggleLike flips actorID's like on the post and reports the new state.
func (s *PostService) ToggleLike(ctx context.Context, actorID, postID string) (models.PostView, bool, error) {
	liked, err := s.store.TogglePostLike(ctx, postID, actorID)
	if err != nil {
		return models.PostView{}, false, translate(err, postNotFound)
	}
	v, err := s.Get(ctx, postID)
	if err != nil {
		return models.PostView{}, false, err
	}
	return v, liked, nil
}

func (s *PostService) owned(ctx context.Context, actorID, postID, forbidden string) (*models.Post, error) {
	p, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, translate(err, postNotFound)
	}
	if p.Author != actorID {
		return nil, apperr.New(apperr.Forbidden, forbidden)
	}
	return p, nil
}
