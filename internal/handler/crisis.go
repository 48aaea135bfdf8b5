package handlers

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"CompanionGuard/pkg/crisis"
	"CompanionGuard/pkg/errors"
	"CompanionGuard/pkg/middleware"
	"CompanionGuard/pkg/report"
	"CompanionGuard/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// screenResult carries the outcome even when raising the alert or saving
// the conversation state failed, so the caller still shows the response.
type screenResult struct {
	crisis.ScreenOutcome
	AlertError string `json:"alertError,omitempty"`
	StateError string `json:"stateError,omitempty"`
}

func (h *Handlers) handleScreen(c *gin.Context) {
	var req crisis.ScreenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request", gin.H{"error": err.Error()})
		return
	}
	if req.SubjectCode == "" {
		req.SubjectCode = c.GetHeader("X-Subject-Code")
	}
	if len(req.Languages) == 0 {
		req.Languages = middleware.Languages(c)
	}

	out, err := h.opts.Pipeline.Screen(c.Request.Context(), req)
	var screenErr *crisis.ScreenError
	if err != nil && !stderrors.As(err, &screenErr) {
		// 未完成分类，没有可返回的回复
		response.Error(c, err)
		return
	}
	res := screenResult{ScreenOutcome: out}
	if screenErr != nil {
		h.opts.Logger.Warn("screen finished with error",
			zap.String("conversation_id", req.ConversationID),
			zap.Error(err),
		)
		if screenErr.Alert != nil {
			res.AlertError = errors.GetMessage(screenErr.Alert)
		}
		if screenErr.State != nil {
			res.StateError = errors.GetMessage(screenErr.State)
		}
	}
	response.Success(c, "success", res)
}

func (h *Handlers) handleEndConversation(c *gin.Context) {
	if err := h.opts.Pipeline.EndConversation(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "success", nil)
}

func (h *Handlers) handleResources(c *gin.Context) {
	response.Success(c, "success", h.opts.Resources)
}

// alertFilter parses status, subject and limit; ok=false means the
// response was already written.
func alertFilter(c *gin.Context) (crisis.AlertFilter, bool) {
	filter := crisis.AlertFilter{
		Status:      crisis.AlertStatus(strings.ToLower(c.Query("status"))),
		SubjectCode: c.Query("subject"),
	}
	switch filter.Status {
	case "", crisis.StatusCreated, crisis.StatusNotified, crisis.StatusViewed, crisis.StatusResolved:
	default:
		response.Fail(c, "invalid status", gin.H{"status": filter.Status})
		return filter, false
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			response.Fail(c, "invalid limit", nil)
			return filter, false
		}
		filter.Limit = n
	}
	return filter, true
}

func (h *Handlers) handleListAlerts(c *gin.Context) {
	filter, ok := alertFilter(c)
	if !ok {
		return
	}
	alerts, err := h.opts.Alerts.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "success", gin.H{"alerts": alerts, "total": len(alerts)})
}

func (h *Handlers) handleExportAlerts(c *gin.Context) {
	filter, ok := alertFilter(c)
	if !ok {
		return
	}
	alerts, err := h.opts.Alerts.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	data, err := report.AlertsWorkbook(alerts)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("crisis_alerts_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *Handlers) handleGetAlert(c *gin.Context) {
	alert, err := h.opts.Alerts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "success", alert)
}

func (h *Handlers) handleAlertHistory(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.opts.Alerts.Get(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	actions, err := h.opts.History.History(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "success", actions)
}

type notifiedRequest struct {
	DeliveredAt *time.Time `json:"deliveredAt"`
	Channel     string     `json:"channel"`
	Reference   string     `json:"reference"`
}

func (h *Handlers) handleAlertNotified(c *gin.Context) {
	var req notifiedRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Fail(c, "invalid request", gin.H{"error": err.Error()})
			return
		}
	}
	at := time.Now()
	if req.DeliveredAt != nil {
		at = *req.DeliveredAt
	}
	alert, err := h.opts.Alerts.MarkNotified(c.Request.Context(), c.Param("id"), at)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.opts.Logger.Info("delivery confirmed",
		zap.String("alert_id", alert.ID),
		zap.String("channel", req.Channel),
		zap.String("reference", req.Reference),
	)
	response.Success(c, "success", alert)
}

func (h *Handlers) handleAlertViewed(c *gin.Context) {
	alert, err := h.opts.Alerts.MarkViewed(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "success", alert)
}

type resolveRequest struct {
	Notes string `json:"notes"`
}

func (h *Handlers) handleAlertResolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request", gin.H{"error": err.Error()})
		return
	}
	alert, err := h.opts.Alerts.Resolve(c.Request.Context(), c.Param("id"), req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "success", alert)
}

func (h *Handlers) handleAlertStream(c *gin.Context) {
	clientID := c.Query("client")
	if clientID == "" {
		clientID = uuid.NewString()
	}
	h.opts.Hub.Serve(c, clientID)
}
