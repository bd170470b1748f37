package line

import (
	"context"
	"fmt"
	"net/http"

	"github.com/line/line-bot-sdk-go/v7/linebot"
	"go.uber.org/zap"

	"github.com/opuscenter/tutor-center-api/pkg/config"
)

// Client wraps the LINE Messaging API bot client. All outbound messages and
// webhook parsing go through it so services never touch the SDK directly.
type Client struct {
	bot    *linebot.Client
	logger *zap.Logger
}

// New builds a Client from channel credentials.
func New(cfg config.LineConfig, logger *zap.Logger) (*Client, error) {
	if cfg.ChannelSecret == "" || cfg.ChannelToken == "" {
		return nil, fmt.Errorf("line channel credentials are not configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	bot, err := linebot.New(cfg.ChannelSecret, cfg.ChannelToken)
	if err != nil {
		return nil, fmt.Errorf("init line bot client: %w", err)
	}
	return &Client{bot: bot, logger: logger}, nil
}

// PushText sends a plain text message to one LINE user.
func (c *Client) PushText(ctx context.Context, to string, text string) error {
	if _, err := c.bot.PushMessage(to, linebot.NewTextMessage(text)).WithContext(ctx).Do(); err != nil {
		return fmt.Errorf("push text to %s: %w", to, err)
	}
	return nil
}

// ReplyText answers an inbound event using its reply token.
func (c *Client) ReplyText(ctx context.Context, replyToken string, text string) error {
	if _, err := c.bot.ReplyMessage(replyToken, linebot.NewTextMessage(text)).WithContext(ctx).Do(); err != nil {
		return fmt.Errorf("reply text: %w", err)
	}
	return nil
}

// PushBookingReminder sends the interactive class reminder card.
func (c *Client) PushBookingReminder(ctx context.Context, to string, card ReminderCard) error {
	msg := linebot.NewFlexMessage(card.AltText(), reminderBubble(card))
	if _, err := c.bot.PushMessage(to, msg).WithContext(ctx).Do(); err != nil {
		return fmt.Errorf("push reminder to %s: %w", to, err)
	}
	return nil
}

// ParseRequest validates the webhook signature and decodes the event batch.
// An invalid signature rejects the whole batch before any event is read.
func (c *Client) ParseRequest(r *http.Request) ([]*linebot.Event, error) {
	return c.bot.ParseRequest(r)
}

// IsInvalidSignature reports whether err is the SDK's signature failure.
func IsInvalidSignature(err error) bool {
	return err == linebot.ErrInvalidSignature
}
