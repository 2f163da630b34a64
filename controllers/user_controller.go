package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/socialnet/monitoring"
	"github.com/cppla/socialnet/services"
	"github.com/cppla/socialnet/utils"
)

// UserController serves profiles, search and the follow graph.
type UserController struct {
	users *services.UserService
}

// NewUserController creates a UserController.
func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

// Profile returns a public profile and whether the caller follows it.
func (u *UserController) Profile(ctx *gin.Context) {
	profile, following, err := u.users.Profile(ctx.Request.Context(), ctx.Param("username"), currentUser(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, "", gin.H{"user": profile, "isFollowing": following})
}

// Search finds users by username or email substring.
func (u *UserController) Search(ctx *gin.Context) {
	users, err := u.users.Search(ctx.Request.Context(), ctx.Query("query"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, "", gin.H{"users": users})
}

// Follow makes the caller follow :userId.
func (u *UserController) Follow(ctx *gin.Context) {
	user, err := u.users.Follow(ctx.Request.Context(), currentUser(ctx), ctx.Param("userId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	monitoring.Follows.WithLabelValues("follow").Inc()
	utils.Success(ctx, "User followed successfully", gin.H{"user": user, "isFollowing": true})
}

// Unfollow removes the caller's edge to :userId.
func (u *UserController) Unfollow(ctx *gin.Context) {
	user, err := u.users.Unfollow(ctx.Request.Context(), currentUser(ctx), ctx.Param("userId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	monitoring.Follows.WithLabelValues("unfollow").Inc()
	utils.Success(ctx, "User unfollowed successfully", gin.H{"user": user, "isFollowing": false})
}

// Suggestions lists users the caller does not follow yet.
func (u *UserController) Suggestions(ctx *gin.Context) {
	users, err := u.users.Suggestions(ctx.Request.Context(), currentUser(ctx), queryInt(ctx, "limit"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, "", gin.H{"suggestions": users})
}
