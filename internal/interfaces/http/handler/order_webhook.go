package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	integrationapp "github.com/santi-junco/sync-tiendanube/internal/application/integration"
	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
	"github.com/santi-junco/sync-tiendanube/internal/infrastructure/logger"
	"github.com/santi-junco/sync-tiendanube/internal/interfaces/http/dto"
	"github.com/santi-junco/sync-tiendanube/internal/interfaces/http/middleware"
)

// WebhookDeliveryHeader identifies one webhook delivery; retries reuse it
const WebhookDeliveryHeader = "X-Shopify-Webhook-Id"

// Webhook results reported to the observer
const (
	WebhookResultApplied   = "applied"
	WebhookResultDuplicate = "duplicate"
	WebhookResultRejected  = "rejected"
	WebhookResultFailed    = "failed"
)

// OrderReconciler applies an order to Storefront stock
type OrderReconciler interface {
	ReconcileOrder(ctx context.Context, deliveryID string, order integration.OrderWebhook) (*integration.OrderResult, error)
}

// WebhookObserver counts webhook results
type WebhookObserver interface {
	ObserveWebhook(result string)
}

// OrderWebhookHandler receives Commerce Hub order notifications
type OrderWebhookHandler struct {
	BaseHandler
	reconciler OrderReconciler
	observer   WebhookObserver
}

// NewOrderWebhookHandler creates a new OrderWebhookHandler. observer may be nil.
func NewOrderWebhookHandler(reconciler OrderReconciler, observer WebhookObserver) *OrderWebhookHandler {
	return &OrderWebhookHandler{
		reconciler: reconciler,
		observer:   observer,
	}
}

// HandleOrder godoc
// @Summary      Decrement Storefront stock for an order
// @Description  All-or-nothing: the first failing line item stops the order and is reported with the number already applied
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        X-Shopify-Hmac-Sha256  header  string  false  "Webhook signature, required when a secret is configured"
// @Param        X-Shopify-Webhook-Id   header  string  false  "Delivery id used for de-duplication"
// @Success      200 {object} integrationapp.OrderWebhookResponse
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      413 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      502 {object} dto.Response
// @Router       /api/v1/webhooks/orders [post]
func (h *OrderWebhookHandler) HandleOrder(c *gin.Context) {
	log := logger.GetGinLogger(c)

	var req integrationapp.OrderWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Rejected order webhook", zap.Error(err))
		h.observe(WebhookResultRejected)
		h.ValidationError(c, err)
		return
	}

	deliveryID := c.GetHeader(WebhookDeliveryHeader)
	result, err := h.reconciler.ReconcileOrder(c.Request.Context(), deliveryID, req.ToDomain())
	if err != nil {
		resp := dto.NewOrderErrorResponse(err, middleware.GetRequestID(c))
		status := resp.StatusOf()
		if status >= http.StatusInternalServerError {
			h.observe(WebhookResultFailed)
		} else {
			h.observe(WebhookResultRejected)
		}
		log.Error("Order webhook failed",
			zap.Int64("order_id", req.ID),
			zap.String("delivery_id", deliveryID),
			zap.String("code", resp.Error.Code),
			zap.Error(err),
		)
		c.JSON(status, resp)
		return
	}

	if result.Duplicate {
		h.observe(WebhookResultDuplicate)
		c.JSON(http.StatusOK, integrationapp.OrderWebhookResponse{
			Message: "duplicate",
			OrderID: result.OrderID,
		})
		return
	}

	h.observe(WebhookResultApplied)
	c.JSON(http.StatusOK, integrationapp.OrderWebhookResponse{
		Message:      "Sincronización exitosa",
		OrderID:      result.OrderID,
		AppliedCount: result.AppliedCount,
	})
}

func (h *OrderWebhookHandler) observe(result string) {
	if h.observer != nil {
		h.observer.ObserveWebhook(result)
	}
}
