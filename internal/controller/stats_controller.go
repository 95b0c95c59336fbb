package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"streampay-audit-backend/internal/dto"
	"streampay-audit-backend/internal/model"
	"streampay-audit-backend/internal/service"
	"streampay-audit-backend/internal/util"
)

type StatsController struct {
	statsService service.AuditStatsService
}

func NewStatsController(statsService service.AuditStatsService) *StatsController {
	return &StatsController{
		statsService: statsService,
	}
}

func RegisterStatsRoutes(router *gin.Engine, controller *StatsController) {
	v1 := router.Group("/api/v1/audit")
	{
		v1.GET("/stats", controller.GetStats)
	}
}

// GetStats godoc
// @Summary      Audit pipeline statistics
// @Description  Durable entry counts by level and action type over a time range, plus live queue figures.
// @Tags         audit
// @Produce      json
// @Param        startTime query     string  false  "Inclusive start of event-time range (ISO 8601 or epoch milliseconds)"
// @Param        endTime   query     string  false  "Inclusive end of event-time range (ISO 8601 or epoch milliseconds)"
// @Param        employer  query     string  false  "Exact employer identifier"
// @Success      200       {object}  dto.AuditStatsResponse "Aggregated statistics"
// @Failure      400       {object}  model.Response "Invalid query parameters"
// @Failure      500       {object}  model.Response "Internal server error"
// @Router       /api/v1/audit/stats [get]
func (c *StatsController) GetStats(ctx *gin.Context) {
	var req dto.AuditStatsRequest

	if s := ctx.Query("startTime"); s != "" {
		t, err := util.ParseTimeFlexible(s)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid startTime format. Use ISO 8601 or epoch milliseconds.", nil))
			return
		}
		req.StartTime = t
	}
	if s := ctx.Query("endTime"); s != "" {
		t, err := util.ParseTimeFlexible(s)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid endTime format. Use ISO 8601 or epoch milliseconds.", nil))
			return
		}
		req.EndTime = t
	}
	req.Employer = ctx.Query("employer")

	result, err := c.statsService.GetStats(ctx.Request.Context(), req)
	if err != nil {
		log.Error().Err(err).Msg("Error computing audit stats")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to compute audit stats", nil))
		return
	}

	ctx.JSON(http.StatusOK, result)
}
