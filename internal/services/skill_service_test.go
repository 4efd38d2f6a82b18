package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-service/internal/events"
	"github.com/SAP-F-2025/training-service/internal/models"
)

func (e *testEnv) newSkill(t *testing.T, name, category string) *models.Skill {
	t.Helper()
	skill, err := e.manager.Skill().Create(e.ctx, &CreateSkillRequest{Name: name, Category: category}, trainer)
	require.NoError(t, err)
	return skill
}

func TestSkillService_AddPrerequisiteRejectsCycles(t *testing.T) {
	env := newTestEnv(t)
	a := env.newSkill(t, "Go basics", "backend")
	b := env.newSkill(t, "Concurrency", "backend")
	c := env.newSkill(t, "Distributed systems", "backend")

	// c requires b, b requires a
	result, err := env.manager.Skill().AddPrerequisite(env.ctx, c.ID, &PrerequisiteRequest{PrerequisiteID: b.ID}, trainer)
	require.NoError(t, err)
	assert.True(t, result.EdgeAdded)
	_, err = env.manager.Skill().AddPrerequisite(env.ctx, b.ID, &PrerequisiteRequest{PrerequisiteID: a.ID}, trainer)
	require.NoError(t, err)

	_, err = env.manager.Skill().AddPrerequisite(env.ctx, a.ID, &PrerequisiteRequest{PrerequisiteID: c.ID}, trainer)
	assert.ErrorIs(t, err, ErrCircularDependency)

	_, err = env.manager.Skill().AddPrerequisite(env.ctx, a.ID, &PrerequisiteRequest{PrerequisiteID: a.ID}, trainer)
	assert.ErrorIs(t, err, ErrSelfReference)

	_, err = env.manager.Skill().AddPrerequisite(env.ctx, a.ID, &PrerequisiteRequest{PrerequisiteID: uuid.New()}, trainer)
	assert.ErrorIs(t, err, ErrSkillNotFound)

	_, err = env.manager.Skill().AddPrerequisite(env.ctx, a.ID, &PrerequisiteRequest{PrerequisiteID: b.ID}, learner)
	var permErr *PermissionError
	assert.ErrorAs(t, err, &permErr)

	// Re-adding an existing edge is accepted without a second row
	result, err = env.manager.Skill().AddPrerequisite(env.ctx, c.ID, &PrerequisiteRequest{PrerequisiteID: b.ID}, trainer)
	require.NoError(t, err)
	assert.False(t, result.EdgeAdded)

	edges, err := env.repo.Skill().ListPrerequisiteEdges(env.ctx, nil)
	require.NoError(t, err)
	assert.Len(t, edges, 2)
	assert.EqualValues(t, 2, env.activityCount(t, trainer.UserID, models.ActivityPrerequisiteChange))
	assert.Len(t, env.publisher.EventsOfType(events.PrerequisiteAdded), 2)

	check, err := env.manager.Skill().CheckGraph(env.ctx)
	require.NoError(t, err)
	assert.True(t, check.Healthy)
	assert.Equal(t, 3, check.Nodes)
	assert.Equal(t, 2, check.Edges)
}

func TestSkillService_CheckGraphFindsPersistedCycle(t *testing.T) {
	env := newTestEnv(t)
	a := env.newSkill(t, "A", "ops")
	b := env.newSkill(t, "B", "ops")

	// Rows written around the validator, as a legacy import would
	require.NoError(t, env.db.Create(&models.SkillPrerequisite{SkillID: a.ID, PrerequisiteID: b.ID}).Error)
	require.NoError(t, env.db.Create(&models.SkillPrerequisite{SkillID: b.ID, PrerequisiteID: a.ID}).Error)

	check, err := env.manager.Skill().CheckGraph(env.ctx)
	require.NoError(t, err)
	assert.False(t, check.Healthy)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, check.CycleNodes)
}

func TestCourseService_AddPrerequisiteRejectsCycles(t *testing.T) {
	env := newTestEnv(t)
	first := env.newCourse(t, "CYC-1", 0, 0)
	second := env.newCourse(t, "CYC-2", 0, 0)

	_, err := env.manager.Course().AddPrerequisite(env.ctx, second.course.ID, &PrerequisiteRequest{PrerequisiteID: first.course.ID}, trainer)
	require.NoError(t, err)

	_, err = env.manager.Course().AddPrerequisite(env.ctx, first.course.ID, &PrerequisiteRequest{PrerequisiteID: second.course.ID}, trainer)
	assert.ErrorIs(t, err, ErrCircularDependency)

	_, err = env.manager.Course().AddPrerequisite(env.ctx, first.course.ID, &PrerequisiteRequest{PrerequisiteID: first.course.ID}, admin)
	assert.ErrorIs(t, err, ErrSelfReference)

	edges, err := env.repo.Course().ListPrerequisiteEdges(env.ctx, nil)
	require.NoError(t, err)
	assert.Len(t, edges, 1)

	resp, err := env.manager.Course().GetByID(env.ctx, second.course.ID)
	require.NoError(t, err)
	require.Len(t, resp.Prerequisites, 1)
	assert.Equal(t, "CYC-1", resp.Prerequisites[0].Code)
}

func TestSkillService_Verify(t *testing.T) {
	env := newTestEnv(t)
	golang := env.newSkill(t, "Go", "backend")
	rust := env.newSkill(t, "Rust", "backend")
	design := env.newSkill(t, "Figma", "design")

	declared, err := env.manager.Skill().Declare(env.ctx, golang.ID, &DeclareSkillRequest{Proficiency: models.ProficiencyIntermediate}, learner)
	require.NoError(t, err)

	_, err = env.manager.Skill().Verify(env.ctx, declared.ID, learner)
	assert.ErrorIs(t, err, ErrSelfVerification)

	// learner2 holds nothing verified yet
	_, err = env.manager.Skill().Verify(env.ctx, declared.ID, learner2)
	var permErr *PermissionError
	require.ErrorAs(t, err, &permErr)

	// A verified EXPERT skill in another category does not qualify
	designSkill, err := env.manager.Skill().Declare(env.ctx, design.ID, &DeclareSkillRequest{Proficiency: models.ProficiencyExpert}, learner2)
	require.NoError(t, err)
	_, err = env.manager.Skill().Verify(env.ctx, designSkill.ID, admin)
	require.NoError(t, err)
	_, err = env.manager.Skill().Verify(env.ctx, declared.ID, learner2)
	require.ErrorAs(t, err, &permErr)

	rustSkill, err := env.manager.Skill().Declare(env.ctx, rust.ID, &DeclareSkillRequest{Proficiency: models.ProficiencyAdvanced}, learner2)
	require.NoError(t, err)
	_, err = env.manager.Skill().Verify(env.ctx, rustSkill.ID, admin)
	require.NoError(t, err)

	resp, err := env.manager.Skill().Verify(env.ctx, declared.ID, learner2)
	require.NoError(t, err)
	assert.True(t, resp.UserSkill.IsVerified)
	require.NotNil(t, resp.UserSkill.VerifiedBy)
	assert.Equal(t, learner2.UserID, *resp.UserSkill.VerifiedBy)
	assert.NotNil(t, resp.Dispatch)

	_, err = env.manager.Skill().Verify(env.ctx, declared.ID, admin)
	assert.ErrorIs(t, err, ErrAlreadyVerified)

	assert.EqualValues(t, 1, env.activityCount(t, learner.UserID, models.ActivitySkillVerification))
	assert.Len(t, env.publisher.EventsOfType(events.SkillVerified), 3)

	// Changing the declared level drops the verification
	redeclared, err := env.manager.Skill().Declare(env.ctx, golang.ID, &DeclareSkillRequest{Proficiency: models.ProficiencyAdvanced}, learner)
	require.NoError(t, err)
	assert.False(t, redeclared.IsVerified)
	assert.Nil(t, redeclared.VerifiedBy)
}

func TestEventDispatcher_OnSkillVerifiedRequiresVerifiedSkill(t *testing.T) {
	env := newTestEnv(t)
	skill := env.newSkill(t, "SQL", "data")
	declared, err := env.manager.Skill().Declare(env.ctx, skill.ID, &DeclareSkillRequest{Proficiency: models.ProficiencyBeginner}, learner)
	require.NoError(t, err)

	err = env.db.Transaction(func(tx *gorm.DB) error {
		_, err := env.dispatcher().OnSkillVerified(env.ctx, tx, declared.ID)
		return err
	})
	assert.ErrorIs(t, err, ErrStructuralViolation)

	_, err = env.dispatcher().OnSkillVerified(env.ctx, nil, uuid.New())
	assert.ErrorIs(t, err, ErrUserSkillNotFound)
}
