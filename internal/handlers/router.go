package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/repositories"
	"github.com/SAP-F-2025/training-service/internal/services"
	"github.com/SAP-F-2025/training-service/internal/utils"
	"github.com/SAP-F-2025/training-service/pkg"
)

type HandlerManager struct {
	serviceManager     services.ServiceManager
	courseHandler      *CourseHandler
	enrollmentHandler  *EnrollmentHandler
	progressHandler    *ProgressHandler
	skillHandler       *SkillHandler
	achievementHandler *AchievementHandler
	userHandler        *UserHandler
	authMiddleware     *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	authMiddleware *CasdoorAuthMiddleware,
	userRepo repositories.UserRepository,
) *HandlerManager {
	return &HandlerManager{
		serviceManager:     serviceManager,
		courseHandler:      NewCourseHandler(serviceManager.Course(), serviceManager.Report(), logger),
		enrollmentHandler:  NewEnrollmentHandler(serviceManager.Enrollment(), logger),
		progressHandler:    NewProgressHandler(serviceManager.Progress(), serviceManager.Attendance(), logger),
		skillHandler:       NewSkillHandler(serviceManager.Skill(), logger),
		achievementHandler: NewAchievementHandler(serviceManager.Achievement(), logger),
		userHandler:        NewUserHandler(userRepo, logger),
		authMiddleware:     authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	staff := hm.authMiddleware.RequireRoleMiddleware(models.RoleTrainer, models.RoleAdmin)
	adminOnly := hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin)

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		courses := v1.Group("/courses")
		{
			courses.POST("", staff, hm.courseHandler.CreateCourse)
			courses.GET("/:id", hm.courseHandler.GetCourse)
			courses.POST("/:id/modules", staff, hm.courseHandler.AddModule)
			courses.POST("/:id/assignments", staff, hm.courseHandler.AddAssignment)
			courses.POST("/:id/sessions", staff, hm.courseHandler.AddSession)
			courses.POST("/:id/prerequisites", staff, hm.courseHandler.AddPrerequisite)

			// Reports - Trainers and Admins only
			courses.GET("/:id/overview", staff, hm.courseHandler.GetOverview)
			courses.GET("/:id/report.xlsx", staff, hm.courseHandler.ExportReport)

			courses.POST("/:id/enroll", hm.enrollmentHandler.Enroll)
		}

		v1.POST("/modules/:id/lessons", staff, hm.courseHandler.AddLesson)

		enrollments := v1.Group("/enrollments")
		{
			enrollments.GET("", hm.enrollmentHandler.ListEnrollments)
			enrollments.GET("/:id", hm.enrollmentHandler.GetEnrollment)
			enrollments.POST("/:id/transitions", hm.enrollmentHandler.Transition)
			enrollments.PUT("/:id/progress", hm.progressHandler.RecordProgress)
			enrollments.GET("/:id/progress", hm.progressHandler.ListProgress)
		}

		v1.PUT("/sessions/:id/attendance", hm.progressHandler.RecordAttendance)

		skills := v1.Group("/skills")
		{
			skills.POST("", staff, hm.skillHandler.CreateSkill)
			skills.GET("/graph/check", staff, hm.skillHandler.CheckGraph)
			skills.POST("/:id/prerequisites", staff, hm.skillHandler.AddPrerequisite)
			skills.PUT("/:id/me", hm.skillHandler.DeclareSkill)
		}

		v1.POST("/user-skills/:id/verify", hm.skillHandler.VerifySkill)

		v1.GET("/achievements", hm.achievementHandler.ListCatalog)

		users := v1.Group("/users")
		{
			users.GET("/:id", hm.userHandler.GetUser)
			users.GET("/:id/achievements", hm.achievementHandler.GetUserAchievements)
			users.POST("/:id/achievements", adminOnly, hm.achievementHandler.AwardAchievement)
		}
	}

	router.GET("/health", hm.health)
}

func (hm *HandlerManager) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := hm.serviceManager.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": pkg.ServiceName,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": pkg.ServiceName,
	})
}
