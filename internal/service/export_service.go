package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-attendance/internal/dto"
	"github.com/noah-isme/academy-attendance/internal/models"
	appErrors "github.com/noah-isme/academy-attendance/pkg/errors"
	"github.com/noah-isme/academy-attendance/pkg/export"
	"github.com/noah-isme/academy-attendance/pkg/jobs"
	"github.com/noah-isme/academy-attendance/pkg/storage"
)

// ExportFormat selects the attendance sheet rendering.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult is a rendered attendance sheet.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

type attendanceLister interface {
	ListByDate(ctx context.Context, date time.Time) ([]models.AttendanceRecord, error)
}

type csvRenderer interface {
	Render(sheet export.Sheet) ([]byte, error)
}

type pdfRenderer interface {
	Render(sheet export.Sheet) ([]byte, error)
}

type sheetStore interface {
	Save(relPath string, data []byte) (string, error)
	Read(relPath string) ([]byte, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type linkSigner interface {
	Sign(relPath string) (string, time.Time, error)
	Verify(token string) (string, error)
}

// ExportService renders daily attendance sheets and, when a store is
// configured, publishes them behind expiring download links.
type ExportService struct {
	records attendanceLister
	csv     csvRenderer
	pdf     pdfRenderer
	store   sheetStore
	signer  linkSigner
	loc     *time.Location
	logger  *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(records attendanceLister, csv csvRenderer, pdf pdfRenderer, loc *time.Location, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{records: records, csv: csv, pdf: pdf, loc: loc, logger: logger}
}

// WithPublishing enables Publish and Download.
func (s *ExportService) WithPublishing(store sheetStore, signer linkSigner) *ExportService {
	s.store = store
	s.signer = signer
	return s
}

var attendanceSheetColumns = []export.Column{
	{Key: "schedule_id", Label: "Schedule", Width: 1.5},
	{Key: "student_id", Label: "Student", Width: 1.5},
	{Key: "status", Label: "Status"},
	{Key: "check_in", Label: "Check-in"},
	{Key: "check_out", Label: "Check-out"},
	{Key: "expected_leave", Label: "Expected leave"},
	{Key: "completed", Label: "Completed", Width: 0.8},
	{Key: "reason", Label: "Reason", Width: 2.5},
}

// AttendanceSheet renders every record of date in the requested format.
func (s *ExportService) AttendanceSheet(ctx context.Context, date time.Time, format ExportFormat) (*ExportResult, error) {
	records, err := s.records.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	day := date.Format(models.DateLayout)
	sheet := export.Sheet{
		Title:    "Attendance Sheet",
		Subtitle: fmt.Sprintf("%s (%s) - %d records", day, s.loc.String(), len(records)),
		Columns:  attendanceSheetColumns,
		Rows:     make([]map[string]string, 0, len(records)),
	}
	for _, rec := range records {
		sheet.Rows = append(sheet.Rows, s.sheetRow(rec))
	}

	var (
		body        []byte
		contentType string
	)
	switch ExportFormat(strings.ToLower(string(format))) {
	case ExportFormatCSV, "":
		format = ExportFormatCSV
		body, err = s.csv.Render(sheet)
		contentType = "text/csv"
	case ExportFormatPDF:
		format = ExportFormatPDF
		body, err = s.pdf.Render(sheet)
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render attendance sheet")
	}

	s.logger.Debug("attendance sheet rendered", zap.String("date", day), zap.String("format", string(format)), zap.Int("rows", len(records)))
	return &ExportResult{
		Filename:    fmt.Sprintf("attendance-%s.%s", day, format),
		ContentType: contentType,
		Body:        body,
	}, nil
}

func (s *ExportService) sheetRow(rec models.AttendanceRecord) map[string]string {
	row := map[string]string{
		"schedule_id": rec.ScheduleID,
		"student_id":  rec.StudentID,
		"status":      string(rec.Status),
		"completed":   "no",
	}
	if rec.CheckInTime != nil {
		row["check_in"] = rec.CheckInTime.In(s.loc).Format("15:04")
	}
	if rec.CheckOutTime != nil {
		row["check_out"] = rec.CheckOutTime.In(s.loc).Format("15:04")
	}
	if rec.ExpectedLeaveTime != nil {
		row["expected_leave"] = rec.ExpectedLeaveTime.String()
	}
	if rec.ClassCompleted {
		row["completed"] = "yes"
	}
	if rec.Reason != nil {
		row["reason"] = *rec.Reason
	}
	return row
}

// Publish renders the sheet of date, stores it and returns a signed link to it.
func (s *ExportService) Publish(ctx context.Context, date time.Time, format ExportFormat) (*dto.ExportLink, error) {
	if s.store == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrCollaboratorUnavailable, "sheet publishing is not configured")
	}
	result, err := s.AttendanceSheet(ctx, date, format)
	if err != nil {
		return nil, err
	}
	relPath := path.Join(date.Format(models.DateLayout), uuid.NewString()+"-"+result.Filename)
	if _, err := s.store.Save(relPath, result.Body); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attendance sheet")
	}
	token, expiresAt, err := s.signer.Sign(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	s.logger.Info("attendance sheet published", zap.String("path", relPath), zap.Time("expires_at", expiresAt))
	return &dto.ExportLink{Token: token, Filename: result.Filename, ExpiresAt: expiresAt}, nil
}

// Download resolves a token issued by Publish.
func (s *ExportService) Download(ctx context.Context, token string) (*ExportResult, error) {
	if s.store == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "download not found")
	}
	relPath, err := s.signer.Verify(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "download not found")
	}
	body, err := s.store.Read(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "download not found")
	}
	filename := path.Base(relPath)
	if idx := strings.Index(filename, "-attendance-"); idx >= 0 {
		filename = filename[idx+1:]
	}
	contentType := "text/csv"
	if strings.HasSuffix(filename, ".pdf") {
		contentType = "application/pdf"
	}
	return &ExportResult{Filename: filename, ContentType: contentType, Body: body}, nil
}

// StartCleanup removes published sheets older than retention every interval.
func (s *ExportService) StartCleanup(ctx context.Context, retention, interval time.Duration) {
	if s.store == nil {
		return
	}
	jobs.RunEvery(ctx, "export-cleanup", interval, false, s.logger, func(ctx context.Context) {
		deleted, err := s.store.CleanupOlderThan(retention)
		if err != nil {
			s.logger.Warn("export cleanup failed", zap.Error(err))
			return
		}
		if len(deleted) > 0 {
			s.logger.Info("expired attendance sheets removed", zap.Int("count", len(deleted)))
		}
	})
}
