package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/socialnet/apperr"
	"github.com/cppla/socialnet/config"
	"github.com/cppla/socialnet/middleware"
	"github.com/cppla/socialnet/utils"
)

// postsCacheGeneration names the counter folded into every cached post read; writes bump it.
const postsCacheGeneration = "posts:gen"

// postsCache holds rendered post reads.
var postsCache utils.ResponseCache = utils.RedisCache{}

// cacheSlot is where one read may be cached. A slot taken before a write never matches a key
// read after it.
type cacheSlot struct {
	key string
	ok  bool
}

// postsSlot takes the slot for a post read. It must be taken before the store is queried.
func postsSlot(parts ...string) cacheSlot {
	gen, ok := postsCache.Generation(postsCacheGeneration)
	if !ok {
		return cacheSlot{}
	}
	return cacheSlot{key: fmt.Sprintf("posts:%d:%s", gen, strings.Join(parts, ":")), ok: true}
}

// respondError answers err with its classified status. Server errors are logged and their cause
// is only shown in development mode.
func respondError(ctx *gin.Context, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		ae = apperr.Wrap(err, "Server error")
	}
	payload := gin.H{}
	if len(ae.Fields) > 0 {
		payload["errors"] = ae.Fields
	}
	if ae.Kind == apperr.Server {
		utils.Logger.Error("request failed",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Error(err),
		)
		if config.Get().IsDevelopment() && ae.Err != nil {
			payload["error"] = ae.Err.Error()
		}
	}
	utils.Respond(ctx, apperr.Status(ae.Kind), false, ae.Message, payload)
}

// bindJSON decodes the body into req and answers 400 on malformed input.
func bindJSON(ctx *gin.Context, req interface{}) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

func currentUser(ctx *gin.Context) string {
	return middleware.CurrentUserID(ctx)
}

// queryInt parses a positive integer query parameter; anything else is 0.
func queryInt(ctx *gin.Context, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(ctx.Query(name)))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// serveCached writes the envelope cached in slot and reports whether there was one.
func serveCached(ctx *gin.Context, slot cacheSlot) bool {
	if !slot.ok {
		return false
	}
	b, ok := postsCache.Get(slot.key)
	if !ok {
		return false
	}
	ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
	return true
}

// successCached answers 200 with payload and stores the envelope in slot.
func successCached(ctx *gin.Context, slot cacheSlot, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	if slot.ok {
		if b, err := json.Marshal(body); err == nil {
			postsCache.Set(slot.key, b, utils.DefaultCacheTTL)
		}
	}
	ctx.JSON(http.StatusOK, body)
}

// invalidatePosts retires every cached post read, including reads still in flight.
func invalidatePosts() {
	postsCache.Bump(postsCacheGeneration)
}
