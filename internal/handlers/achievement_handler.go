package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/services"
	"github.com/SAP-F-2025/training-service/internal/utils"
)

type AchievementHandler struct {
	BaseHandler
	service services.AchievementService
}

func NewAchievementHandler(service services.AchievementService, logger utils.Logger) *AchievementHandler {
	return &AchievementHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ListCatalog returns the active achievement catalog
// @Success 200 {array} models.Achievement
// @Router /achievements [get]
func (h *AchievementHandler) ListCatalog(c *gin.Context) {
	catalog, err := h.service.ListCatalog(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, catalog)
}

// GetUserAchievements returns awarded achievements and counters of a user
// @Param id path string true "User ID, or me"
// @Success 200 {object} models.UserAchievementSummary
// @Router /users/{id}/achievements [get]
func (h *AchievementHandler) GetUserAchievements(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	userID := resolveUserParam(c, actor)

	summary, err := h.service.GetUserSummary(c.Request.Context(), userID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// AwardAchievement grants an achievement by hand and runs the milestone cascade
// @Param id path string true "User ID"
// @Param award body services.ManualAwardRequest true "Achievement code"
// @Success 201 {object} services.DispatchResult
// @Router /users/{id}/achievements [post]
func (h *AchievementHandler) AwardAchievement(c *gin.Context) {
	var req services.ManualAwardRequest
	if !h.bindJSON(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	userID := resolveUserParam(c, actor)
	h.LogRequest(c, "Awarding achievement", "user_id", userID, "code", req.AchievementCode)

	result, err := h.service.AwardManually(c.Request.Context(), userID, &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if len(result.Awarded) == 0 {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

// resolveUserParam maps the "me" alias onto the caller
func resolveUserParam(c *gin.Context, actor models.Actor) string {
	if id := c.Param("id"); id != "me" {
		return id
	}
	return actor.UserID
}
