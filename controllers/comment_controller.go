package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/socialnet/monitoring"
	"github.com/cppla/socialnet/services"
	"github.com/cppla/socialnet/utils"
)

// CommentController manages comments and comment likes.
type CommentController struct {
	comments *services.CommentService
}

// NewCommentController creates a CommentController.
func NewCommentController(comments *services.CommentService) *CommentController {
	return &CommentController{comments: comments}
}

type commentRequest struct {
	Content string `json:"content"`
}

// ListByPost returns the comments of :postId, newest first.
func (c *CommentController) ListByPost(ctx *gin.Context) {
	comments, err := c.comments.ListByPost(ctx.Request.Context(), ctx.Param("postId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, "", gin.H{"comments": comments})
}

// CreateComment comments on :postId.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	var req commentRequest
	if !bindJSON(ctx, &req) {
		return
	}
	comment, err := c.comments.Create(ctx.Request.Context(), currentUser(ctx), ctx.Param("postId"), req.Content)
	if err != nil {
		respondError(ctx, err)
		return
	}
	invalidatePosts()
	utils.Created(ctx, "Comment created successfully", gin.H{"comment": comment})
}

// UpdateComment edits a comment owned by the caller.
func (c *CommentController) UpdateComment(ctx *gin.Context) {
	var req commentRequest
	if !bindJSON(ctx, &req) {
		return
	}
	comment, err := c.comments.Update(ctx.Request.Context(), currentUser(ctx), ctx.Param("commentId"), req.Content)
	if err != nil {
		respondError(ctx, err)
		return
	}
	invalidatePosts()
	utils.Success(ctx, "Comment updated successfully", gin.H{"comment": comment})
}

// DeleteComment removes a comment owned by the caller.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	if err := c.comments.Delete(ctx.Request.Context(), currentUser(ctx), ctx.Param("commentId")); err != nil {
		respondError(ctx, err)
		return
	}
	invalidatePosts()
	utils.Success(ctx, "Comment deleted successfully", nil)
}

// ToggleLike likes or unlikes a comment.
func (c *CommentController) ToggleLike(ctx *gin.Context) {
	comment, liked, err := c.comments.ToggleLike(ctx.Request.Context(), currentUser(ctx), ctx.Param("commentId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	invalidatePosts()
	monitoring.Likes.WithLabelValues("comment", monitoring.LikeState(liked)).Inc()
	msg := "Comment unliked"
	if liked {
		msg = "Comment liked"
	}
	utils.Success(ctx, msg, gin.H{"comment": comment, "isLiked": liked})
}
