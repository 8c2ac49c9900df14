package db

import (
	"context"
	"errors"

	"github.com/ukydev/smart-clean/internal/models"
)

var (
	ErrReportNotFound = errors.New("report not found")
	ErrInvalidID      = errors.New("invalid report ID")
)

// ReportCollection defines the interface for report data operations.
type ReportCollection interface {
	InsertReport(ctx context.Context, report models.Report) (string, error)
	FindReports(ctx context.Context, filter ReportFilter) ([]models.Report, error)
	FindReportByID(ctx context.Context, id string) (*models.Report, error)
	UpdateStatus(ctx context.Context, id string, status models.ReportStatus) error
}

// ReportFilter narrows a report listing. Zero values match everything.
type ReportFilter struct {
	Status models.ReportStatus
	Limit  int64
}
