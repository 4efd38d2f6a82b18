package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-service/internal/cache"
	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/repositories"
)

const (
	summarySheet     = "Summary"
	enrollmentsSheet = "Enrollments"
)

type reportService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewReportService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) ReportService {
	return &reportService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

func (s *reportService) GetCourseOverview(ctx context.Context, courseID uuid.UUID, actor models.Actor) (*models.CourseProgressOverview, error) {
	if !actor.IsStaff() {
		return nil, NewPermissionError(actor.UserID, "course", "report", "only trainers and admins can view course reports")
	}
	return s.loadOverview(ctx, courseID)
}

// ExportCourseReport renders the overview and one row per enrollment into an xlsx workbook
func (s *reportService) ExportCourseReport(ctx context.Context, courseID uuid.UUID, actor models.Actor) (*CourseReport, error) {
	if !actor.IsStaff() {
		return nil, NewPermissionError(actor.UserID, "course", "report", "only trainers and admins can export course reports")
	}
	s.logger.Info("Exporting course report", "course_id", courseID, "actor_id", actor.UserID)

	var (
		overview    *models.CourseProgressOverview
		enrollments []*models.Enrollment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		overview, err = s.loadOverview(gctx, courseID)
		return err
	})
	g.Go(func() error {
		var err error
		enrollments, err = s.repo.Enrollment().ListByCourse(gctx, s.db, courseID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := make([]models.EnrollmentReportRow, 0, len(enrollments))
	for _, e := range enrollments {
		row := models.EnrollmentReportRow{
			EnrollmentID:         e.ID,
			UserID:               e.UserID,
			Status:               e.Status,
			CompletionPercentage: e.CompletionPercentage,
			Grade:                e.Grade,
			CertificateIssued:    e.CertificateIssued,
			EnrolledAt:           e.EnrolledAt.Format(time.RFC3339),
		}
		if e.CompletedAt != nil {
			row.CompletedAt = e.CompletedAt.Format(time.RFC3339)
		}
		rows = append(rows, row)
	}

	content, err := renderCourseReport(overview, rows, s.userNames(ctx, enrollments))
	if err != nil {
		return nil, err
	}

	return &CourseReport{
		FileName: fmt.Sprintf("%s-progress-%s.xlsx", overview.CourseCode, time.Now().UTC().Format("20060102")),
		Content:  content,
	}, nil
}

func (s *reportService) loadOverview(ctx context.Context, courseID uuid.UUID) (*models.CourseProgressOverview, error) {
	var overview models.CourseProgressOverview
	err := s.repo.Cache().Stats.CacheOrExecute(ctx, "course:"+courseID.String(), &overview, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return s.repo.Stats().GetCourseOverview(ctx, s.db, courseID)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to load course overview: %w", err)
	}
	return &overview, nil
}

// userNames resolves display names; the report falls back to raw IDs when the directory is unavailable
func (s *reportService) userNames(ctx context.Context, enrollments []*models.Enrollment) map[string]string {
	names := make(map[string]string, len(enrollments))
	if len(enrollments) == 0 {
		return names
	}

	ids := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.UserID)
	}

	users, err := s.repo.User().GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("Failed to resolve user names for report", "error", err)
		return names
	}
	for _, u := range users {
		names[u.ID] = u.FullName
	}
	return names
}

func renderCourseReport(overview *models.CourseProgressOverview, rows []models.EnrollmentReportRow, names map[string]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to prepare report: %w", err)
	}
	if _, err := f.NewSheet(enrollmentsSheet); err != nil {
		return nil, fmt.Errorf("failed to prepare report: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to prepare report: %w", err)
	}

	summary := [][]interface{}{
		{"Course", overview.CourseCode},
		{"Total enrolled", overview.TotalEnrolled},
		{"Completed", overview.Completed},
		{"In progress", overview.InProgress},
		{"Withdrawn", overview.Withdrawn},
		{"Failed", overview.Failed},
		{"Completion rate (%)", overview.CompletionRate},
		{"Average completion (%)", overview.AveragePercentage},
	}
	for i, row := range summary {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return nil, fmt.Errorf("failed to write report: %w", err)
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(summary)), bold); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	header := []interface{}{"Enrollment", "User ID", "Name", "Status", "Completion (%)", "Grade", "Certificate", "Enrolled at", "Completed at"}
	if err := f.SetSheetRow(enrollmentsSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}
	if err := f.SetRowStyle(enrollmentsSheet, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	for i, r := range rows {
		var grade interface{}
		if r.Grade != nil {
			grade = *r.Grade
		}
		line := []interface{}{
			r.EnrollmentID.String(), r.UserID, names[r.UserID], string(r.Status),
			r.CompletionPercentage, grade, r.CertificateIssued, r.EnrolledAt, r.CompletedAt,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(enrollmentsSheet, cell, &line); err != nil {
			return nil, fmt.Errorf("failed to write report: %w", err)
		}
	}
	if err := f.SetColWidth(enrollmentsSheet, "A", "C", 38); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return buf.Bytes(), nil
}
