package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gg-loop/verification-backend/internal/models"
	"github.com/gg-loop/verification-backend/internal/service"
	"github.com/gg-loop/verification-backend/pkg/logger"
)

// ActivityHandler 데스크톱 에이전트의 활동 상태 보고 API
type ActivityHandler struct {
	activityService *service.ActivityService
}

func NewActivityHandler(activityService *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{
		activityService: activityService,
	}
}

// Report 활동 상태 보고 수신
func (h *ActivityHandler) Report(c *gin.Context) {
	userID := c.GetString("userId")

	var report models.ActivityReport
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	if err := h.activityService.Report(c.Request.Context(), userID, report); err != nil {
		logger.Error("Failed to store activity report", "userId", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to store activity report",
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status": report.Status,
	})
}

// Latest 최신 활동 상태 조회
func (h *ActivityHandler) Latest(c *gin.Context) {
	userID := c.GetString("userId")

	report, err := h.activityService.Latest(c.Request.Context(), userID)
	if err != nil {
		logger.Error("Failed to load activity status", "userId", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load activity status",
		})
		return
	}

	if report == nil {
		// 보고가 없으면 UNKNOWN으로 취급 (배율 1.0)
		c.JSON(http.StatusOK, gin.H{
			"status":     "unknown",
			"multiplier": 1.0,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"report":     report,
		"multiplier": h.activityService.Multiplier(c.Request.Context(), userID),
	})
}
