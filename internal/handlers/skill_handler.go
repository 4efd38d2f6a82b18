package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/training-service/internal/services"
	"github.com/SAP-F-2025/training-service/internal/utils"
)

type SkillHandler struct {
	BaseHandler
	service services.SkillService
}

func NewSkillHandler(service services.SkillService, logger utils.Logger) *SkillHandler {
	return &SkillHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// CreateSkill adds a skill to the taxonomy
// @Router /skills [post]
func (h *SkillHandler) CreateSkill(c *gin.Context) {
	var req services.CreateSkillRequest
	if !h.bindJSON(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	skill, err := h.service.Create(c.Request.Context(), &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, skill)
}

// AddPrerequisite adds a prerequisite edge between two skills
// @Summary Add skill prerequisite
// @Tags skills
// @Param id path string true "Skill ID"
// @Param edge body services.PrerequisiteRequest true "Prerequisite skill"
// @Success 201 {object} services.DispatchResult
// @Failure 409 {object} ErrorResponse "Cycle or self reference"
// @Router /skills/{id}/prerequisites [post]
func (h *SkillHandler) AddPrerequisite(c *gin.Context) {
	skillID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req services.PrerequisiteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	result, err := h.service.AddPrerequisite(c.Request.Context(), skillID, &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if !result.EdgeAdded {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

// CheckGraph sweeps the persisted skill graph for cycles
// @Success 200 {object} services.GraphCheckResponse
// @Router /skills/graph/check [get]
func (h *SkillHandler) CheckGraph(c *gin.Context) {
	report, err := h.service.CheckGraph(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if !report.Healthy {
		h.log(c).Warn("Skill graph contains cycles", "cycle_nodes", len(report.CycleNodes))
	}
	c.JSON(http.StatusOK, report)
}

// DeclareSkill records the caller's proficiency in a skill
// @Router /skills/{id}/me [put]
func (h *SkillHandler) DeclareSkill(c *gin.Context) {
	skillID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req services.DeclareSkillRequest
	if !h.bindJSON(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	userSkill, err := h.service.Declare(c.Request.Context(), skillID, &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, userSkill)
}

// VerifySkill marks another user's skill as verified
// @Success 200 {object} services.VerificationResponse
// @Failure 403 {object} ErrorResponse "Verifier not qualified"
// @Router /user-skills/{id}/verify [post]
func (h *SkillHandler) VerifySkill(c *gin.Context) {
	userSkillID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	response, err := h.service.Verify(c.Request.Context(), userSkillID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}
