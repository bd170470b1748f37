package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/opuscenter/tutor-center-api/internal/service"
	appErrors "github.com/opuscenter/tutor-center-api/pkg/errors"
	"github.com/opuscenter/tutor-center-api/pkg/response"
)

// GuardianHandler manages guardian endpoints.
type GuardianHandler struct {
	service *service.GuardianService
}

// NewGuardianHandler constructs handler.
func NewGuardianHandler(svc *service.GuardianService) *GuardianHandler {
	return &GuardianHandler{service: svc}
}

// BindLineIdentity godoc
// @Summary Link a LINE identity to a guardian
// @Description Binding an identity owned by another guardian is rejected
// @Tags Guardians
// @Accept json
// @Produce json
// @Param id path int true "Guardian ID"
// @Param payload body handler.bindIdentityRequest true "Identity payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /guardians/{id}/line-identity [post]
func (h *GuardianHandler) BindLineIdentity(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "guardian id must be numeric"))
		return
	}

	var req bindIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	guardian, err := h.service.BindIdentity(c.Request.Context(), id, req.LineUserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, guardian, nil)
}

type bindIdentityRequest struct {
	LineUserID string `json:"line_user_id" binding:"required"`
}
