package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opuscenter/tutor-center-api/internal/service"
	appErrors "github.com/opuscenter/tutor-center-api/pkg/errors"
	"github.com/opuscenter/tutor-center-api/pkg/response"
)

// ReminderHandler manages reminder dispatcher endpoints.
type ReminderHandler struct {
	service *service.ReminderService
	metrics *service.MetricsService
}

// NewReminderHandler constructs handler. metrics may be nil.
func NewReminderHandler(svc *service.ReminderService, metrics *service.MetricsService) *ReminderHandler {
	return &ReminderHandler{service: svc, metrics: metrics}
}

// Run godoc
// @Summary Run the reminder dispatcher
// @Description Sends reminders for pending bookings offset days ahead
// @Tags Reminders
// @Accept json
// @Produce json
// @Param payload body handler.runRemindersRequest false "Run options"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reminders/run [post]
func (h *ReminderHandler) Run(c *gin.Context) {
	req := runRemindersRequest{OffsetDays: -1}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}

	report, err := h.service.Run(c.Request.Context(), req.OffsetDays)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveReminderRun(report)
	}
	response.JSON(c, http.StatusOK, report, nil)
}

type runRemindersRequest struct {
	OffsetDays int `json:"offset_days"`
}

// SendTest godoc
// @Summary Send one test reminder
// @Description Pushes the reminder card for one booking to one guardian
// @Tags Reminders
// @Accept json
// @Produce json
// @Param payload body handler.testReminderRequest true "Test payload"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reminders/test [post]
func (h *ReminderHandler) SendTest(c *gin.Context) {
	var req testReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.service.SendTest(c.Request.Context(), req.GuardianID, req.BookingID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type testReminderRequest struct {
	GuardianID int64 `json:"guardian_id" binding:"required"`
	BookingID  int64 `json:"booking_id" binding:"required"`
}
