package services

import (
	"context"

	"github.com/cppla/socialnet/apperr"
	"github.com/cppla/socialnet/models"
	"github.com/cppla/socialnet/store"
)

const commentNotFound = "Comment not found"

// CommentService covers comments and comment likes.
type CommentService struct {
	store store.Store
}

// NewCommentService creates a CommentService.
func NewCommentService(st store.Store) *CommentService {
	return &CommentService{store: st}
}

// Create attaches a comment by actorID to postID.
func (s *CommentService) Create(ctx context.Context, actorID, postID, content string) (models.CommentView, error) {
	content, err := cleanText("content", content, models.ValidateCommentContent)
	if err != nil {
		return models.CommentView{}, err
	}
	c := &models.Comment{Content: content, Author: actorID, Post: postID}
	if err := s.store.CreateComment(ctx, c); err != nil {
		return models.CommentView{}, translate(err, postNotFound)
	}
	return s.view(ctx, c)
}

// ListByPost returns the comments of postID newest first.
func (s *CommentService) ListByPost(ctx context.Context, postID string) ([]models.CommentView, error) {
	comments, err := s.store.ListCommentsByPosts(ctx, []string{postID})
	if err != nil {
		return nil, apperr.Wrap(err, serverMessage)
	}
	for i, j := 0, len(comments)-1; i < j; i, j = i+1, j-1 {
		comments[i], comments[j] = comments[j], comments[i]
	}
	views, err := commentViews(ctx, s.store, comments)
	if err != nil {
		return nil, apperr.Wrap(err, serverMessage)
	}
	return views, nil
}

// Update replaces the content of a comment owned by actorID.
func (s *CommentService) Update(ctx context.Context, actorID, commentID, content string) (models.CommentView, error) {
	if _, err := s.owned(ctx, actorID, commentID, "You are not authorized to update this comment"); err != nil {
		return models.CommentView{}, err
	}
	content, err := cleanText("content", content, models.ValidateCommentContent)
	if err != nil {
		return models.CommentView{}, err
	}
	c, err := s.store.UpdateComment(ctx, commentID, content)
	if err != nil {
		return models.CommentView{}, translate(err, commentNotFound)
	}
	return s.view(ctx, c)
}

// Delete detaches a comment owned by actorID from its post and removes it.
func (s *CommentService) Delete(ctx context.Context, actorID, commentID string) error {
	if _, err := s.owned(ctx, actorID, commentID, "You are not authorized to delete this comment"); err != nil {
		return err
	}
	return translate(s.store.DeleteComment(ctx, commentID), commentNotFound)
}

// ToggleLike flips actorID's like on the comment and reports the new state.
func (s *CommentService) ToggleLike(ctx context.Context, actorID, commentID string) (models.CommentView, bool, error) {
	liked, err := s.store.ToggleCommentLike(ctx, commentID, actorID)
	if err != nil {
		return models.CommentView{}, false, translate(err, commentNotFound)
	}
	c, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return models.CommentView{}, false, translate(err, commentNotFound)
	}
	v, err := s.view(ctx, c)
	return v, liked, err
}

func (s *CommentService) view(ctx context.Context, c *models.Comment) (models.CommentView, error) {
	views, err := commentViews(ctx, s.store, []models.Comment{*c})
	if err != nil {
		return models.CommentView{}, apperr.Wrap(err, serverMessage)
	}
	return views[0], nil
}

func (s *CommentService) owned(ctx context.Context, actorID, commentID, forbidden string) (*models.Comment, error) {
	c, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return nil, translate(err, commentNotFound)
	}
	if c.Author != actorID {
		return nil, apperr.New(apperr.Forbidden, forbidden)
	}
	return c, nil
}
