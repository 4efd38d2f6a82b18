package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/training-service/internal/repositories"
	"github.com/SAP-F-2025/training-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/training-service/internal/utils"
)

type UserHandler struct {
	BaseHandler
	userRepo repositories.UserRepository
}

func NewUserHandler(userRepo repositories.UserRepository, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		userRepo:    userRepo,
	}
}

// GetUser returns a directory profile; "me" answers from the token without a lookup
// @Summary Get user
// @Tags users
// @Param id path string true "User ID, or me"
// @Success 200 {object} models.User
// @Failure 404 {object} ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	if c.Param("id") == "me" {
		user, err := GetUserFromContext(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
			return
		}
		c.JSON(http.StatusOK, user)
		return
	}

	user, err := h.userRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, casdoor.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Message: "User not found"})
			return
		}
		h.LogError(c, err, "Failed to get user", "user_id", c.Param("id"))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Failed to get user",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, user)
}
