package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"streampay-audit-backend/internal/audit"
	"streampay-audit-backend/internal/dto"
	"streampay-audit-backend/internal/model"
	"streampay-audit-backend/internal/service"
	"streampay-audit-backend/internal/util"
)

type AuditController struct {
	logger        *audit.Logger
	queryService  service.AuditQueryService
	exportService service.AuditExportService
}

func NewAuditController(logger *audit.Logger, queryService service.AuditQueryService, exportService service.AuditExportService) *AuditController {
	return &AuditController{
		logger:        logger,
		queryService:  queryService,
		exportService: exportService,
	}
}

func RegisterAuditRoutes(router *gin.Engine, controller *AuditController) {
	v1 := router.Group("/api/v1/audit")
	{
		v1.GET("/logs", controller.GetLogs)
		v1.GET("/logs/export", controller.ExportLogs)
		v1.POST("/events", controller.IngestEvent)
		v1.POST("/events/stream-creation", controller.IngestStreamCreation)
		v1.POST("/events/contract-interaction", controller.IngestContractInteraction)
		v1.POST("/events/scheduler", controller.IngestSchedulerEvent)
		v1.POST("/events/monitor", controller.IngestMonitorEvent)
	}
}

// GetLogs godoc
// @Summary      Query audit logs
// @Description  Retrieves audit entries matching all supplied filters, newest first. Time bounds are inclusive.
// @Tags         audit
// @Produce      json
// @Param        startTime  query     string  false  "Inclusive start of event-time range (ISO 8601 or epoch milliseconds)"
// @Param        endTime    query     string  false  "Inclusive end of event-time range (ISO 8601 or epoch milliseconds)"
// @Param        level      query     string  false  "Exact log level" Enums(INFO, WARN, ERROR)
// @Param        employer   query     string  false  "Exact employer identifier"
// @Param        actionType query     string  false  "Exact action type" Enums(stream_creation, contract_interaction, monitoring, scheduling, system)
// @Param        limit      query     int     false  "Page size (default: 1000)" minimum(1)
// @Param        offset     query     int     false  "Entries to skip (default: 0)" minimum(0)
// @Success      200        {object}  dto.AuditQueryResponse "Matching audit entries"
// @Failure      400        {object}  model.Response "Invalid query parameters"
// @Failure      500        {object}  model.Response "Internal server error"
// @Router       /api/v1/audit/logs [get]
func (c *AuditController) GetLogs(ctx *gin.Context) {
	req, ok := c.parseQueryRequest(ctx)
	if !ok {
		return
	}

	result, err := c.queryService.Query(ctx.Request.Context(), *req)
	if err != nil {
		log.Error().Err(err).Msg("Error querying audit logs")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to query audit logs", nil))
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// ExportLogs godoc
// @Summary      Export audit logs
// @Description  Serializes the employer's audit entries as JSON or CSV. Always scoped to the given employer.
// @Tags         audit
// @Produce      json
// @Param        employer   query     string  true   "Employer identifier the export is scoped to"
// @Param        format     query     string  false  "Export format (default: json)" Enums(json, csv)
// @Param        startTime  query     string  false  "Inclusive start of event-time range"
// @Param        endTime    query     string  false  "Inclusive end of event-time range"
// @Param        level      query     string  false  "Exact log level" Enums(INFO, WARN, ERROR)
// @Param        actionType query     string  false  "Exact action type"
// @Success      200        {string}  string "Serialized export document"
// @Failure      400        {object}  model.Response "Invalid query parameters"
// @Failure      500        {object}  model.Response "Internal server error"
// @Router       /api/v1/audit/logs/export [get]
func (c *AuditController) ExportLogs(ctx *gin.Context) {
	employer := ctx.Query("employer")
	if employer == "" {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("employer is required", nil))
		return
	}
	format := ctx.DefaultQuery("format", service.ExportFormatJSON)

	req, ok := c.parseQueryRequest(ctx)
	if !ok {
		return
	}

	document, err := c.exportService.Export(ctx.Request.Context(), employer, *req, format)
	if err != nil {
		log.Error().Err(err).Str("employer", employer).Msg("Error exporting audit logs")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to export audit logs", nil))
		return
	}

	if format == service.ExportFormatCSV {
		ctx.Header("Content-Disposition", `attachment; filename="audit_logs.csv"`)
		ctx.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(document))
		return
	}
	ctx.Data(http.StatusOK, "application/json; charset=utf-8", []byte(document))
}

// IngestEvent godoc
// @Summary      Ingest a generic audit event
// @Description  Accepts a raw (level, message, context) event. Always returns 202; pipeline failures are reported out of band.
// @Tags         audit
// @Accept       json
// @Produce      json
// @Param        event  body      dto.IngestRequest  true  "Audit event"
// @Success      202    {object}  model.Response "Event accepted"
// @Failure      400    {object}  model.Response "Malformed request body"
// @Router       /api/v1/audit/events [post]
func (c *AuditController) IngestEvent(ctx *gin.Context) {
	var req dto.IngestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid request body: "+err.Error(), nil))
		return
	}

	eventCtx := req.Context
	if req.ActionType != "" {
		if eventCtx == nil {
			eventCtx = model.Context{}
		}
		eventCtx["action_type"] = req.ActionType
	}
	c.logger.Log(model.ParseLevel(req.Level), req.Message, eventCtx)

	ctx.JSON(http.StatusAccepted, model.NewResponse("accepted", nil))
}

// IngestStreamCreation godoc
// @Summary      Ingest a stream creation event
// @Tags         audit
// @Accept       json
// @Produce      json
// @Param        event  body      dto.StreamCreationEvent  true  "Stream creation event"
// @Success      202    {object}  model.Response "Event accepted"
// @Failure      400    {object}  model.Response "Malformed request body"
// @Router       /api/v1/audit/events/stream-creation [post]
func (c *AuditController) IngestStreamCreation(ctx *gin.Context) {
	var ev dto.StreamCreationEvent
	if err := ctx.ShouldBindJSON(&ev); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid request body: "+err.Error(), nil))
		return
	}
	c.logger.LogStreamCreation(ev)
	ctx.JSON(http.StatusAccepted, model.NewResponse("accepted", nil))
}

// IngestContractInteraction godoc
// @Summary      Ingest a contract interaction event
// @Tags         audit
// @Accept       json
// @Produce      json
// @Param        event  body      dto.ContractInteractionEvent  true  "Contract interaction event"
// @Success      202    {object}  model.Response "Event accepted"
// @Failure      400    {object}  model.Response "Malformed request body"
// @Router       /api/v1/audit/events/contract-interaction [post]
func (c *AuditController) IngestContractInteraction(ctx *gin.Context) {
	var ev dto.ContractInteractionEvent
	if err := ctx.ShouldBindJSON(&ev); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid request body: "+err.Error(), nil))
		return
	}
	c.logger.LogContractInteraction(ev)
	ctx.JSON(http.StatusAccepted, model.NewResponse("accepted", nil))
}

// IngestSchedulerEvent godoc
// @Summary      Ingest a scheduler task event
// @Tags         audit
// @Accept       json
// @Produce      json
// @Param        event  body      dto.SchedulerEvent  true  "Scheduler event"
// @Success      202    {object}  model.Response "Event accepted"
// @Failure      400    {object}  model.Response "Malformed request body"
// @Router       /api/v1/audit/events/scheduler [post]
func (c *AuditController) IngestSchedulerEvent(ctx *gin.Context) {
	var ev dto.SchedulerEvent
	if err := ctx.ShouldBindJSON(&ev); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid request body: "+err.Error(), nil))
		return
	}
	c.logger.LogSchedulerEvent(ev)
	ctx.JSON(http.StatusAccepted, model.NewResponse("accepted", nil))
}

// IngestMonitorEvent godoc
// @Summary      Ingest a treasury monitor event
// @Tags         audit
// @Accept       json
// @Produce      json
// @Param        event  body      dto.MonitorEvent  true  "Monitor event"
// @Success      202    {object}  model.Response "Event accepted"
// @Failure      400    {object}  model.Response "Malformed request body"
// @Router       /api/v1/audit/events/monitor [post]
func (c *AuditController) IngestMonitorEvent(ctx *gin.Context) {
	var ev dto.MonitorEvent
	if err := ctx.ShouldBindJSON(&ev); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid request body: "+err.Error(), nil))
		return
	}
	c.logger.LogMonitorEvent(ev)
	ctx.JSON(http.StatusAccepted, model.NewResponse("accepted", nil))
}

func (c *AuditController) parseQueryRequest(ctx *gin.Context) (*dto.AuditQueryRequest, bool) {
	var req dto.AuditQueryRequest

	if s := ctx.Query("startTime"); s != "" {
		t, err := util.ParseTimeFlexible(s)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid startTime format. Use ISO 8601 or epoch milliseconds.", nil))
			return nil, false
		}
		req.StartTime = t
	}
	if s := ctx.Query("endTime"); s != "" {
		t, err := util.ParseTimeFlexible(s)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid endTime format. Use ISO 8601 or epoch milliseconds.", nil))
			return nil, false
		}
		req.EndTime = t
	}
	if s := ctx.Query("level"); s != "" {
		level := model.Level(s)
		if !level.Valid() {
			ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid level. Use INFO, WARN, or ERROR.", nil))
			return nil, false
		}
		req.Level = level
	}
	if s := ctx.Query("actionType"); s != "" {
		actionType := model.ActionType(s)
		if !actionType.Valid() {
			ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid actionType.", nil))
			return nil, false
		}
		req.ActionType = actionType
	}
	req.Employer = ctx.Query("employer")

	if s := ctx.Query("limit"); s != "" {
		if limit, err := strconv.Atoi(s); err == nil {
			req.Limit = limit
		}
	}
	if s := ctx.Query("offset"); s != "" {
		if offset, err := strconv.Atoi(s); err == nil {
			req.Offset = offset
		}
	}

	return &req, true
}
