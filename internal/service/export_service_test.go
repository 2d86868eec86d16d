package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-attendance/internal/models"
	appErrors "github.com/noah-isme/academy-attendance/pkg/errors"
	"github.com/noah-isme/academy-attendance/pkg/storage"
)

func exportFixture() *memoryAttendanceStore {
	checkIn := kstAt(10, 12)
	reason := "bus delay"
	late := bookedRecord("rec-1", "stu-1", "sch-1")
	late.Status = models.AttendanceStatusLate
	late.CheckInTime = &checkIn
	late.Reason = &reason
	late.ClassCompleted = true
	return newMemoryAttendanceStore(late, bookedRecord("rec-2", "stu-2", "sch-1"))
}

func TestExportServiceCSV(t *testing.T) {
	svc := NewExportService(exportFixture(), nil, nil, kst, nil)

	result, err := svc.AttendanceSheet(context.Background(), sessionDay(), "")
	require.NoError(t, err)
	assert.Equal(t, "attendance-2024-03-04.csv", result.Filename)
	assert.Equal(t, "text/csv", result.ContentType)

	lines := strings.Split(strings.TrimSpace(string(result.Body)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Schedule,Student,Status"))
	assert.Contains(t, lines[1], "LATE")
	assert.Contains(t, lines[1], "10:12")
	assert.Contains(t, lines[1], "bus delay")
	assert.Contains(t, lines[2], "UNSET")
}

func TestExportServicePDF(t *testing.T) {
	svc := NewExportService(exportFixture(), nil, nil, kst, nil)

	result, err := svc.AttendanceSheet(context.Background(), sessionDay(), ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Body), "%PDF"))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(exportFixture(), nil, nil, kst, nil)
	_, err := svc.AttendanceSheet(context.Background(), sessionDay(), "xlsx")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestExportServicePublishAndDownload(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	svc := NewExportService(exportFixture(), nil, nil, kst, nil).
		WithPublishing(store, storage.NewLinkSigner("secret", time.Hour))

	link, err := svc.Publish(context.Background(), sessionDay(), ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "attendance-2024-03-04.csv", link.Filename)
	assert.NotEmpty(t, link.Token)

	result, err := svc.Download(context.Background(), link.Token)
	require.NoError(t, err)
	assert.Equal(t, "attendance-2024-03-04.csv", result.Filename)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Contains(t, string(result.Body), "bus delay")

	_, err = svc.Download(context.Background(), link.Token+"x")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestExportServicePublishRequiresStore(t *testing.T) {
	svc := NewExportService(exportFixture(), nil, nil, kst, nil)
	_, err := svc.Publish(context.Background(), sessionDay(), ExportFormatCSV)
	assert.True(t, errors.Is(err, appErrors.ErrCollaboratorUnavailable))
}
