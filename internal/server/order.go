package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	projectdomain "github.com/jep-hq/tools/internal/project/domain"
	"go.uber.org/zap"
)

type orderWebhookRequest struct {
	Notifications []projectdomain.OrderNotification `json:"notifications"`
}

type orderWebhookResult struct {
	Token  string `json:"token"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// @Summary      Apply order notifications
// @Description  One webhook call may batch several notifications; each is applied independently
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request body orderWebhookRequest true "Order Notifications"
// @Success      200  {object}  []orderWebhookResult
// @Router       /webhooks/orders [post]
func (s *Server) OrderWebhook(c *gin.Context) {
	var req orderWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(req.Notifications) == 0 {
		AbortWithError(c, newValidationError("notifications", "required", "at least one notification is required"))
		return
	}

	tenant := tenantFromContext(c)
	results := make([]orderWebhookResult, 0, len(req.Notifications))
	failed := 0
	for _, event := range req.Notifications {
		result := orderWebhookResult{Token: event.Token, Status: "applied"}
		if err := s.projectSvc.ApplyOrderEvent(c.Request.Context(), tenant, event); err != nil {
			// One bad notification must not swallow the rest of the
			// batch.
			result.Status = "failed"
			result.Error = err.Error()
			failed++
			s.log.Warn("order notification failed",
				zap.String("token", event.Token),
				zap.String("tenant", tenant),
				zap.Error(err),
			)
		}
		results = append(results, result)
	}

	status := http.StatusOK
	if failed == len(results) {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"data": results})
}
