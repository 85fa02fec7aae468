package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adenafil/campus-timetable-api/internal/models"
	"github.com/adenafil/campus-timetable-api/internal/service"
	appErrors "github.com/adenafil/campus-timetable-api/pkg/errors"
	"github.com/adenafil/campus-timetable-api/pkg/response"
)

// AuthHandler exposes API token endpoints.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Token godoc
// @Summary Issue an API token
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.TokenRequest true "Token payload"
// @Success 200 {object} response.Envelope
// @Router /auth/token [post]
func (h *AuthHandler) Token(c *gin.Context) {
	var req models.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid token payload"))
		return
	}
	result, err := h.service.IssueToken(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
