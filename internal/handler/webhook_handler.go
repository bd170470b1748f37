package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v7/linebot"
	"go.uber.org/zap"

	"github.com/opuscenter/tutor-center-api/internal/service"
	appErrors "github.com/opuscenter/tutor-center-api/pkg/errors"
	"github.com/opuscenter/tutor-center-api/pkg/line"
)

type webhookParser interface {
	ParseRequest(r *http.Request) ([]*linebot.Event, error)
}

type webhookReplier interface {
	ReplyText(ctx context.Context, replyToken string, text string) error
}

type guardianActions interface {
	Confirm(ctx context.Context, lineUserID string, bookingID int64) (string, error)
	RequestReschedule(ctx context.Context, lineUserID string, bookingID int64) (string, error)
}

const (
	replyUnknownAction = "Sorry, this action is not recognized. Please use the buttons on the reminder card."
	replyNotAllowed    = "This booking cannot be managed from your account. Please contact the center."
	replyTryAgain      = "Something went wrong handling your request. Please try again later."
	replyWelcome       = "Welcome! Ask our front desk to link this LINE account to your guardian profile and you will receive class reminders here."
)

// WebhookHandler receives LINE webhook callbacks and routes guardian
// postback actions. Events are processed independently; a bad event never
// blocks the rest of the batch.
type WebhookHandler struct {
	parser  webhookParser
	replier webhookReplier
	actions guardianActions
	metrics *service.MetricsService
	logger  *zap.Logger
}

// NewWebhookHandler constructs handler. metrics may be nil.
func NewWebhookHandler(parser webhookParser, replier webhookReplier, actions guardianActions, metrics *service.MetricsService, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{parser: parser, replier: replier, actions: actions, metrics: metrics, logger: logger}
}

// Handle godoc
// @Summary LINE webhook endpoint
// @Description Validates the channel signature and processes guardian actions
// @Tags Webhook
// @Accept json
// @Produce json
// @Success 200 {string} string "ok"
// @Failure 400 {string} string "bad signature"
// @Router /line/webhook [post]
func (h *WebhookHandler) Handle(c *gin.Context) {
	events, err := h.parser.ParseRequest(c.Request)
	if err != nil {
		if line.IsInvalidSignature(err) {
			c.Status(http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to parse webhook request", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}

	ctx := c.Request.Context()
	for _, event := range events {
		switch {
		case event.Type == linebot.EventTypePostback && event.Postback != nil:
			h.handlePostback(ctx, event)
		case event.Type == linebot.EventTypeFollow:
			h.reply(ctx, event.ReplyToken, replyWelcome)
		}
	}

	// LINE expects 200 whenever the signature checked out.
	c.Status(http.StatusOK)
}

func (h *WebhookHandler) handlePostback(ctx context.Context, event *linebot.Event) {
	if event.Source == nil || event.Source.UserID == "" {
		h.logger.Warn("postback event without user source")
		return
	}
	senderID := event.Source.UserID

	action, bookingID, err := line.ParsePostback(event.Postback.Data)
	if err != nil {
		h.logger.Warn("skipping malformed postback", zap.Error(err))
		h.observe("malformed", "skipped")
		return
	}

	var reply string
	switch action {
	case line.ActionConfirm:
		reply, err = h.actions.Confirm(ctx, senderID, bookingID)
	case line.ActionReschedule:
		reply, err = h.actions.RequestReschedule(ctx, senderID, bookingID)
	default:
		h.logger.Warn("unknown postback action", zap.String("action", action))
		h.reply(ctx, event.ReplyToken, replyUnknownAction)
		h.observe(action, "unknown")
		return
	}

	if err != nil {
		h.observe(action, "rejected")
		appErr := appErrors.FromError(err)
		switch {
		case appErrors.HasCode(err, appErrors.ErrUnauthorized):
			h.reply(ctx, event.ReplyToken, replyNotAllowed)
		case appErr.Status < http.StatusInternalServerError:
			h.reply(ctx, event.ReplyToken, appErr.Message)
		default:
			h.logger.Error("guardian action failed",
				zap.String("action", action),
				zap.Int64("booking_id", bookingID),
				zap.Error(err))
			h.reply(ctx, event.ReplyToken, replyTryAgain)
		}
		return
	}

	h.observe(action, "ok")
	h.reply(ctx, event.ReplyToken, reply)
}

func (h *WebhookHandler) reply(ctx context.Context, replyToken, text string) {
	if replyToken == "" {
		return
	}
	if err := h.replier.ReplyText(ctx, replyToken, text); err != nil {
		h.logger.Error("failed to reply to webhook event", zap.Error(err))
	}
}

func (h *WebhookHandler) observe(action, result string) {
	if h.metrics != nil {
		h.metrics.ObserveGuardianAction(action, result)
	}
}
