package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-service/internal/events"
	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/repositories"
	"github.com/SAP-F-2025/training-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// Upper bound on award passes per evaluation
	MaxMilestonePasses int

	// Catalog seeded on Initialize; nil means the built-in catalog
	AchievementCatalog []*models.Achievement

	// Outbound domain events; nil disables publishing
	Publisher events.EventPublisher
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	config    ServiceManagerConfig

	// Engines
	aggregator   *ProgressAggregator
	stateMachine *EnrollmentStateMachine
	achievements *AchievementEngine
	dispatcher   *EventDispatcher

	// Service instances
	courseService      CourseService
	enrollmentService  EnrollmentService
	progressService    ProgressService
	attendanceService  AttendanceService
	skillService       SkillService
	achievementService AchievementService
	reportService      ReportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
		config:    config,
	}
}

// Initialize builds the engines, wires the services and seeds the achievement catalog
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	sm.initializeEngines()
	sm.initializeServices()

	if err := sm.seedCatalog(ctx); err != nil {
		return fmt.Errorf("failed to seed achievement catalog: %w", err)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeEngines() {
	sm.aggregator = NewProgressAggregator(sm.repo)
	sm.stateMachine = NewEnrollmentStateMachine(sm.repo, sm.logger)
	sm.achievements = NewAchievementEngine(sm.repo, sm.logger, sm.config.MaxMilestonePasses)
	sm.dispatcher = NewEventDispatcher(sm.db, sm.repo, sm.aggregator, sm.stateMachine, sm.achievements, sm.config.Publisher, sm.logger)
	sm.logger.Info("Engines initialized", "max_milestone_passes", sm.achievements.maxPasses)
}

func (sm *serviceManager) initializeServices() {
	sm.courseService = NewCourseService(sm.repo, sm.db, sm.logger, sm.validator, sm.dispatcher)
	sm.enrollmentService = NewEnrollmentService(sm.repo, sm.db, sm.logger, sm.validator, sm.dispatcher)
	sm.progressService = NewProgressService(sm.repo, sm.db, sm.logger, sm.validator, sm.dispatcher)
	sm.attendanceService = NewAttendanceService(sm.repo, sm.db, sm.logger, sm.validator, sm.dispatcher)
	sm.skillService = NewSkillService(sm.repo, sm.db, sm.logger, sm.validator, sm.dispatcher)
	sm.achievementService = NewAchievementService(sm.repo, sm.db, sm.logger, sm.validator, sm.achievements, sm.dispatcher)
	sm.reportService = NewReportService(sm.repo, sm.db, sm.logger)
	sm.logger.Info("Services initialized")
}

func (sm *serviceManager) seedCatalog(ctx context.Context) error {
	catalog := sm.config.AchievementCatalog
	if catalog == nil {
		catalog = DefaultAchievementCatalog()
	}

	added, err := SeedAchievementCatalog(ctx, sm.db, sm.repo, catalog)
	if err != nil {
		return err
	}
	sm.logger.Info("Achievement catalog ready", "entries", len(catalog), "added", added)
	return nil
}

// Service getters
func (sm *serviceManager) Course() CourseService {
	sm.mustBeInitialized()
	return sm.courseService
}

func (sm *serviceManager) Enrollment() EnrollmentService {
	sm.mustBeInitialized()
	return sm.enrollmentService
}

func (sm *serviceManager) Progress() ProgressService {
	sm.mustBeInitialized()
	return sm.progressService
}

func (sm *serviceManager) Attendance() AttendanceService {
	sm.mustBeInitialized()
	return sm.attendanceService
}

func (sm *serviceManager) Skill() SkillService {
	sm.mustBeInitialized()
	return sm.skillService
}

func (sm *serviceManager) Achievement() AchievementService {
	sm.mustBeInitialized()
	return sm.achievementService
}

func (sm *serviceManager) Report() ReportService {
	sm.mustBeInitialized()
	return sm.reportService
}

func (sm *serviceManager) Dispatcher() *EventDispatcher {
	sm.mustBeInitialized()
	return sm.dispatcher
}

func (sm *serviceManager) mustBeInitialized() {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.config.Publisher != nil {
		if err := sm.config.Publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}
