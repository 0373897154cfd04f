package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/learnify-api/internal/models"
	"github.com/noah-isme/learnify-api/internal/policy"
	"github.com/noah-isme/learnify-api/internal/progress"
	appErrors "github.com/noah-isme/learnify-api/pkg/errors"
	"github.com/noah-isme/learnify-api/pkg/export"
)

const rosterExportPageSize = 100

type rosterRepository interface {
	ListRoster(ctx context.Context, courseID string, filter models.RosterFilter) ([]models.RosterEntry, int, error)
}

type courseFetcher interface {
	FetchCourse(ctx context.Context, courseID, token string) (models.CourseView, error)
}

// RosterExportRequest selects the export encoding.
type RosterExportRequest struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// RosterExport is a rendered roster document.
type RosterExport struct {
	Filename    string
	ContentType string
	Body        []byte
}

// RosterService lists and exports the students of a course for its owner.
type RosterService struct {
	repo          rosterRepository
	courses       courseFetcher
	auth          viewerResolver
	validate      *validator.Validate
	logger        *zap.Logger
	exportEnabled bool
}

// NewRosterService constructs the service.
func NewRosterService(repo rosterRepository, courses courseFetcher, auth viewerResolver, validate *validator.Validate, logger *zap.Logger, exportEnabled bool) *RosterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{
		repo:          repo,
		courses:       courses,
		auth:          auth,
		validate:      validate,
		logger:        logger,
		exportEnabled: exportEnabled,
	}
}

// List returns one page of the roster with progress per student.
func (s *RosterService) List(ctx context.Context, courseID, token string, filter models.RosterFilter) ([]models.RosterEntry, *models.Pagination, error) {
	if _, err := s.authorize(ctx, courseID, token); err != nil {
		return nil, nil, err
	}
	entries, total, err := s.repo.ListRoster(ctx, courseID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roster")
	}
	s.applyProgress(courseID, entries)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 50
	}
	return entries, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Export renders the full roster as CSV or PDF.
func (s *RosterService) Export(ctx context.Context, courseID, token string, req RosterExportRequest) (*RosterExport, error) {
	if !s.exportEnabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "roster export is disabled")
	}
	req.Format = strings.ToLower(strings.TrimSpace(req.Format))
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export format")
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	course, err := s.authorize(ctx, courseID, token)
	if err != nil {
		return nil, err
	}

	var entries []models.RosterEntry
	for page := 1; ; page++ {
		batch, total, err := s.repo.ListRoster(ctx, courseID, models.RosterFilter{Page: page, PageSize: rosterExportPageSize})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roster")
		}
		entries = append(entries, batch...)
		if len(batch) < rosterExportPageSize || len(entries) >= total {
			break
		}
	}
	s.applyProgress(courseID, entries)

	renderer := export.For(format)
	body, err := renderer.Render(rosterDataset(course, entries))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}
	s.logger.Info("roster exported",
		zap.String("course_id", courseID),
		zap.String("format", string(format)),
		zap.Int("students", len(entries)),
	)
	return &RosterExport{
		Filename:    fmt.Sprintf("roster_%s_%s.%s", rosterFilename(course.Title), time.Now().UTC().Format("20060102_150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func (s *RosterService) authorize(ctx context.Context, courseID, token string) (models.CourseView, error) {
	viewer, err := s.auth.ResolveViewer(token)
	if err != nil {
		return models.CourseView{}, err
	}
	if !viewer.Authenticated() {
		return models.CourseView{}, appErrors.Clone(appErrors.ErrUnauthorized, "login required")
	}
	course, err := s.courses.FetchCourse(ctx, courseID, token)
	if err != nil {
		return models.CourseView{}, err
	}
	if !policy.Evaluate(viewer, course).CanManageRoster {
		return models.CourseView{}, appErrors.Clone(appErrors.ErrForbidden, "only the course instructor can manage the roster")
	}
	return course, nil
}

func (s *RosterService) applyProgress(courseID string, entries []models.RosterEntry) {
	for i := range entries {
		summary, anomaly := progress.FromCounts(entries[i].Completed, entries[i].Total)
		if anomaly {
			s.logger.Warn("roster progress out of range",
				zap.String("course_id", courseID),
				zap.String("student_id", entries[i].StudentID),
				zap.Int("completed", entries[i].Completed),
				zap.Int("total", entries[i].Total),
			)
		}
		entries[i].Completed = summary.Completed
		entries[i].Total = summary.Total
		entries[i].Percent = summary.Percent
	}
}

func rosterDataset(course models.CourseView, entries []models.RosterEntry) export.Dataset {
	rows := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, map[string]string{
			"Student":      e.FullName,
			"Email":        e.Email,
			"Enrolled At":  e.EnrolledAt.UTC().Format(time.RFC3339),
			"Completed":    fmt.Sprintf("%d/%d", e.Completed, e.Total),
			"Progress (%)": fmt.Sprintf("%.0f", e.Percent),
		})
	}
	return export.Dataset{
		Title:   fmt.Sprintf("Roster %s", course.Title),
		Headers: []string{"Student", "Email", "Enrolled At", "Completed", "Progress (%)"},
		Rows:    rows,
	}
}

func rosterFilename(raw string) string {
	if raw == "" {
		return "course"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := strings.ToLower(replacer.Replace(raw))
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
