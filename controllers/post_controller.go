package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cppla/socialnet/monitoring"
	"github.com/cppla/socialnet/services"
	"github.com/cppla/socialnet/utils"
)

// PostController manages posts and post likes.
type PostController struct {
	posts *services.PostService
}

// NewPostController creates a new PostController instance.
func NewPostController(posts *services.PostService) *PostController {
	return &PostController{posts: posts}
}

// ListPosts returns the feed, newest first, one page at a time.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, limit := queryInt(ctx, "page"), queryInt(ctx, "limit")
	slot := postsSlot("list", strconv.Itoa(page), strconv.Itoa(limit))
	if serveCached(ctx, slot) {
		return
	}
	res, err := p.posts.List(ctx.Request.Context(), page, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	successCached(ctx, slot, gin.H{
		"posts":       res.Posts,
		"currentPage": res.CurrentPage,
		"totalPages":  res.TotalPages,
		"totalPosts":  res.TotalPosts,
	})
}

// GetPost returns one post with its comments.
func (p *PostController) GetPost(ctx *gin.Context) {
	id := ctx.Param("id")
	slot := postsSlot("id", id)
	if serveCached(ctx, slot) {
		return
	}
	post, err := p.posts.Get(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	successCached(ctx, slot, gin.H{"post": post})
}

// ListByUser returns every post of :userId.
func (p *PostController) ListByUser(ctx *gin.Context) {
	userID := ctx.Param("userId")
	slot := postsSlot("user", userID)
	if serveCached(ctx, slot) {
		return
	}
	posts, err := p.posts.ByAuthor(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	successCached(ctx, slot, gin.H{"posts": posts})
}

// CreatePost allows authenticated users to create new posts.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req struct {
		Content string   `json:"content"`
		Image   string   `json:"image"`
		Tags    []string `json:"tags"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	post, err := p.posts.Create(ctx.Request.Context(), currentUser(ctx), services.PostInput{
		Content: req.Content,
		Image:   req.Image,
		Tags:    req.Tags,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	invalidatePosts()
	monitoring.PostsCreated.Inc()
	utils.Created(ctx, "Post created successfully", gin.H{"post": post})
}

// UpdatePost edits a post owned by the caller.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	var req struct {
		Content *string  `json:"content"`
		Image   *string  `json:"image"`
		Tags    []string `json:"tags"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	post, err := p.posts.Update(ctx.Request.Context(), currentUser(ctx), ctx.Param("id"), services.PostUpdate{
		Content: req.Content,
		Image:   req.Image,
		Tags:    req.Tags,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	invalidatePosts()
	utils.Success(ctx, "Post updated successfully", gin.H{"post": post})
}

// DeletePost removes a post owned by the caller with its comments and likes.
func (p *PostController) DeletePost(ctx *gin.Context) {
	if err := p.posts.Delete(ctx.Request.Context(), currentUser(ctx), ctx.Param("id")); err != nil {
		respondError(ctx, err)
		return
	}
	invalidatePosts()
	utils.Success(ctx, "Post deleted successfully", nil)
}

// ToggleLike likes or unlikes a post.
func (p *PostController) ToggleLike(ctx *gin.Context) {
	post, liked, err := p.posts.ToggleLike(ctx.Request.Context(), currentUser(ctx), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	invalidatePosts()
	monitoring.Likes.WithLabelValues("post", monitoring.LikeState(liked)).Inc()
	msg := "Post unliked"
	if liked {
		msg = "Post liked"
	}
	utils.Success(ctx, msg, gin.H{"post": post, "isLiked": liked})
}
