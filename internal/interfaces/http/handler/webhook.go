package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	billingapp "github.com/blibbers/vibekit/internal/application/billing"
	domainBilling "github.com/blibbers/vibekit/internal/domain/billing"
	"github.com/blibbers/vibekit/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Provider events are small; anything larger is not a genuine delivery
const maxWebhookPayloadSize = 65536

// SignatureHeader carries the provider's HMAC signature
const SignatureHeader = "Stripe-Signature"

// EventProcessor applies verified provider events
type EventProcessor interface {
	Process(ctx context.Context, payload []byte, signature string) (*billingapp.EventAck, error)
}

// WebhookHandler receives provider webhook deliveries. It is unauthenticated;
// the payload signature is the only proof of origin.
type WebhookHandler struct {
	processor EventProcessor
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(processor EventProcessor) *WebhookHandler {
	return &WebhookHandler{processor: processor}
}

// WebhookResponse is the acknowledgement body sent back to the provider
type WebhookResponse struct {
	Received  bool   `json:"received" example:"true"`
	EventID   string `json:"eventId,omitempty" example:"evt_1234567890"`
	EventType string `json:"eventType,omitempty" example:"customer.subscription.updated"`
	Message   string `json:"message,omitempty" example:"Subscription updated"`
}

// HandleStripe godoc
//
//	@ID				handleStripeWebhook
//	@Summary		Receive a provider webhook
//	@Description	Verify and apply a subscription or payment event. Non-2xx responses make the provider redeliver.
//	@Tags			webhooks
//	@Accept			json
//	@Produce		json
//	@Param			Stripe-Signature	header		string			true	"Webhook signature"
//	@Success		200					{object}	WebhookResponse	"Event acknowledged"
//	@Failure		400					{object}	WebhookResponse	"Missing or invalid signature, or malformed event"
//	@Failure		413					{object}	WebhookResponse	"Payload too large"
//	@Failure		500					{object}	WebhookResponse	"Event could not be applied"
//	@Router			/webhooks/stripe [post]
func (h *WebhookHandler) HandleStripe(c *gin.Context) {
	// The raw body is needed for signature verification, so it is not bound
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, WebhookResponse{Message: "Failed to read request body"})
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		c.JSON(http.StatusRequestEntityTooLarge, WebhookResponse{Message: "Payload too large"})
		return
	}

	signature := c.GetHeader(SignatureHeader)
	if signature == "" {
		c.JSON(http.StatusBadRequest, WebhookResponse{Message: "Missing " + SignatureHeader + " header"})
		return
	}

	ctx := c.Request.Context()
	ack, err := h.processor.Process(ctx, payload, signature)
	if err != nil {
		var sigErr *domainBilling.SignatureError
		switch {
		case errors.As(err, &sigErr):
			c.JSON(http.StatusBadRequest, WebhookResponse{Message: "Webhook signature verification failed"})
		case errors.Is(err, domainBilling.ErrMalformedEvent):
			c.JSON(http.StatusBadRequest, WebhookResponse{Message: "Malformed event payload"})
		default:
			resp := WebhookResponse{Message: "Processing failed"}
			if ack != nil {
				resp.EventID = ack.EventID
				resp.EventType = ack.EventType
			}
			logger.FromContext(ctx).Error("Webhook processing failed",
				zap.String("event_id", resp.EventID),
				zap.String("event_type", resp.EventType),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, resp)
		}
		return
	}

	c.JSON(http.StatusOK, WebhookResponse{
		Received:  true,
		EventID:   ack.EventID,
		EventType: ack.EventType,
		Message:   ack.Message,
	})
}
