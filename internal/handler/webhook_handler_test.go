package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v7/linebot"
	"github.com/stretchr/testify/assert"

	appErrors "github.com/opuscenter/tutor-center-api/pkg/errors"
	"github.com/opuscenter/tutor-center-api/pkg/line"
)

type fakeParser struct {
	events []*linebot.Event
	err    error
}

func (f *fakeParser) ParseRequest(*http.Request) ([]*linebot.Event, error) {
	return f.events, f.err
}

type fakeReplier struct {
	replies []string
}

func (f *fakeReplier) ReplyText(_ context.Context, _ string, text string) error {
	f.replies = append(f.replies, text)
	return nil
}

type fakeActions struct {
	confirmCalls    []int64
	rescheduleCalls []int64
	confirmReply    string
	confirmErr      error
	rescheduleReply string
	rescheduleErr   error
}

func (f *fakeActions) Confirm(_ context.Context, _ string, bookingID int64) (string, error) {
	f.confirmCalls = append(f.confirmCalls, bookingID)
	return f.confirmReply, f.confirmErr
}

func (f *fakeActions) RequestReschedule(_ context.Context, _ string, bookingID int64) (string, error) {
	f.rescheduleCalls = append(f.rescheduleCalls, bookingID)
	return f.rescheduleReply, f.rescheduleErr
}

func postbackEvent(userID, data string) *linebot.Event {
	return &linebot.Event{
		Type:       linebot.EventTypePostback,
		ReplyToken: "reply-token",
		Source:     &linebot.EventSource{Type: linebot.EventSourceTypeUser, UserID: userID},
		Postback:   &linebot.Postback{Data: data},
	}
}

func serveWebhook(handler *WebhookHandler) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/line/webhook", handler.Handle)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/line/webhook", nil))
	return rec
}

func TestWebhookHandlerInvalidSignature(t *testing.T) {
	handler := NewWebhookHandler(&fakeParser{err: linebot.ErrInvalidSignature}, &fakeReplier{}, &fakeActions{}, nil, nil)

	rec := serveWebhook(handler)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookHandlerConfirmPostback(t *testing.T) {
	actions := &fakeActions{confirmReply: "Attendance confirmed"}
	replier := &fakeReplier{}
	parser := &fakeParser{events: []*linebot.Event{
		postbackEvent("U123", line.PostbackData(line.ActionConfirm, 42)),
	}}
	handler := NewWebhookHandler(parser, replier, actions, nil, nil)

	rec := serveWebhook(handler)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{42}, actions.confirmCalls)
	assert.Equal(t, []string{"Attendance confirmed"}, replier.replies)
}

func TestWebhookHandlerReschedulePostback(t *testing.T) {
	actions := &fakeActions{rescheduleReply: "Reschedule request received"}
	replier := &fakeReplier{}
	parser := &fakeParser{events: []*linebot.Event{
		postbackEvent("U123", line.PostbackData(line.ActionReschedule, 7)),
	}}
	handler := NewWebhookHandler(parser, replier, actions, nil, nil)

	rec := serveWebhook(handler)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{7}, actions.rescheduleCalls)
	assert.Equal(t, []string{"Reschedule request received"}, replier.replies)
}

func TestWebhookHandlerMalformedPostbackSkipsEvent(t *testing.T) {
	actions := &fakeActions{confirmReply: "ok"}
	replier := &fakeReplier{}
	parser := &fakeParser{events: []*linebot.Event{
		postbackEvent("U123", "scheduleId=notanumber&action=confirm"),
		postbackEvent("U123", line.PostbackData(line.ActionConfirm, 5)),
	}}
	handler := NewWebhookHandler(parser, replier, actions, nil, nil)

	rec := serveWebhook(handler)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{5}, actions.confirmCalls)
	assert.Equal(t, []string{"ok"}, replier.replies)
}

func TestWebhookHandlerUnauthorizedGetsGenericReply(t *testing.T) {
	actions := &fakeActions{confirmErr: appErrors.Clone(appErrors.ErrUnauthorized, "not allowed to act on this booking")}
	replier := &fakeReplier{}
	parser := &fakeParser{events: []*linebot.Event{
		postbackEvent("Ustranger", line.PostbackData(line.ActionConfirm, 42)),
	}}
	handler := NewWebhookHandler(parser, replier, actions, nil, nil)

	rec := serveWebhook(handler)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{replyNotAllowed}, replier.replies)
}

func TestWebhookHandlerAlreadyConfirmedMessageRelayed(t *testing.T) {
	actions := &fakeActions{rescheduleErr: appErrors.ErrAlreadyConfirmed}
	replier := &fakeReplier{}
	parser := &fakeParser{events: []*linebot.Event{
		postbackEvent("U123", line.PostbackData(line.ActionReschedule, 42)),
	}}
	handler := NewWebhookHandler(parser, replier, actions, nil, nil)

	rec := serveWebhook(handler)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{appErrors.ErrAlreadyConfirmed.Message}, replier.replies)
}

func TestWebhookHandlerFollowGetsWelcomeReply(t *testing.T) {
	actions := &fakeActions{}
	replier := &fakeReplier{}
	parser := &fakeParser{events: []*linebot.Event{
		{
			Type:       linebot.EventTypeFollow,
			ReplyToken: "reply-token",
			Source:     &linebot.EventSource{Type: linebot.EventSourceTypeUser, UserID: "Unew"},
		},
	}}
	handler := NewWebhookHandler(parser, replier, actions, nil, nil)

	rec := serveWebhook(handler)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{replyWelcome}, replier.replies)
	assert.Empty(t, actions.confirmCalls)
}

func TestWebhookHandlerIgnoresNonPostbackEvents(t *testing.T) {
	actions := &fakeActions{}
	replier := &fakeReplier{}
	parser := &fakeParser{events: []*linebot.Event{
		{Type: linebot.EventTypeMessage, Source: &linebot.EventSource{UserID: "U123"}},
	}}
	handler := NewWebhookHandler(parser, replier, actions, nil, nil)

	rec := serveWebhook(handler)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, actions.confirmCalls)
	assert.Empty(t, actions.rescheduleCalls)
	assert.Empty(t, replier.replies)
}
