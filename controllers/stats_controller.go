package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/socialnet/services"
	"github.com/cppla/socialnet/utils"
)

// StatsController provides site statistics and the health probe.
type StatsController struct {
	stats *services.StatsService
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(stats *services.StatsService) *StatsController {
	return &StatsController{stats: stats}
}

// GetStats returns user, post and comment counts.
func (s *StatsController) GetStats(ctx *gin.Context) {
	st, err := s.stats.Get(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, "", gin.H{"stats": st})
}

// Health answers liveness probes.
func (s *StatsController) Health(ctx *gin.Context) {
	utils.Success(ctx, "Server is running", gin.H{"timestamp": time.Now().UTC().Format(time.RFC3339)})
}
