package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opuscenter/tutor-center-api/internal/models"
	"github.com/opuscenter/tutor-center-api/internal/service"
	appErrors "github.com/opuscenter/tutor-center-api/pkg/errors"
	"github.com/opuscenter/tutor-center-api/pkg/export"
	"github.com/opuscenter/tutor-center-api/pkg/response"
)

// BookingHandler manages booking endpoints.
type BookingHandler struct {
	bookings  *service.BookingService
	conflicts *service.ConflictService
	metrics   *service.MetricsService
}

// NewBookingHandler constructs handler. metrics may be nil.
func NewBookingHandler(bookings *service.BookingService, conflicts *service.ConflictService, metrics *service.MetricsService) *BookingHandler {
	return &BookingHandler{bookings: bookings, conflicts: conflicts, metrics: metrics}
}

// Update godoc
// @Summary Update a booking
// @Description Apply a partial update; schedule changes are conflict-checked
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path int true "Booking ID"
// @Param payload body service.UpdateBookingRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id} [patch]
func (h *BookingHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "booking id must be numeric"))
		return
	}

	var req service.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	booking, err := h.bookings.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// CheckConflicts godoc
// @Summary Check booking candidates for conflicts
// @Description Each candidate is checked independently; clean candidates produce no report
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body handler.checkConflictsRequest true "Candidates"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /bookings/check-conflicts [post]
func (h *BookingHandler) CheckConflicts(c *gin.Context) {
	var req checkConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	reports, err := h.conflicts.CheckBatch(c.Request.Context(), req.Candidates)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		for _, report := range reports {
			h.metrics.ObserveConflict(string(report.ConflictType))
		}
	}

	response.JSON(c, http.StatusOK, reports, nil, map[string]interface{}{
		"checked":   len(req.Candidates),
		"conflicts": len(reports),
	})
}

type checkConflictsRequest struct {
	Candidates []models.BookingCandidate `json:"candidates" binding:"required,min=1"`
}

// DaySheet godoc
// @Summary Day sheet for the front desk
// @Description All bookings on one date, optionally rendered as CSV or PDF
// @Tags Bookings
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /bookings/day-sheet [get]
func (h *BookingHandler) DaySheet(c *gin.Context) {
	date := c.DefaultQuery("date", time.Now().Format("2006-01-02"))
	if _, err := time.Parse("2006-01-02", date); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
		return
	}

	details, err := h.bookings.DaySheet(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}

	switch c.DefaultQuery("format", "json") {
	case "json":
		response.JSON(c, http.StatusOK, details, nil)
	case "csv":
		data, err := export.DaySheetCSV(details)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="day-sheet-%s.csv"`, date))
		c.Data(http.StatusOK, "text/csv", data)
	case "pdf":
		data, err := export.DaySheetPDF(date, details)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="day-sheet-%s.pdf"`, date))
		c.Data(http.StatusOK, "application/pdf", data)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be json, csv or pdf"))
	}
}
