// Package report builds daily, weekly and ad-hoc change reports.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/thebtf/notionflow-ai/internal/summarizer"
	"github.com/thebtf/notionflow-ai/pkg/models"
)

// NoChanges is the report summary for a period without changes.
const NoChanges = "변경 사항이 없습니다."

const summaryLength = 256

// Generator builds reports from page changes.
type Generator struct {
	summarizer summarizer.Summarizer
}

// NewGenerator creates a report generator.
func NewGenerator(s summarizer.Summarizer) *Generator {
	return &Generator{summarizer: s}
}

// Request describes the report to build.
type Request struct {
	Type        string
	PeriodStart string
	PeriodEnd   string
	Changes     []models.ChangeItem
}

// Build summarizes the changes and returns the report payload.
func (g *Generator) Build(ctx context.Context, req Request) (*models.Report, error) {
	summary, err := g.Summary(ctx, req.Changes)
	if err != nil {
		return nil, fmt.Errorf("summarize %s report: %w", req.Type, err)
	}
	changes := req.Changes
	if changes == nil {
		changes = []models.ChangeItem{}
	}
	return &models.Report{
		Type:         req.Type,
		PeriodStart:  req.PeriodStart,
		PeriodEnd:    req.PeriodEnd,
		Summary:      summary,
		TotalChanges: len(changes),
		Changes:      changes,
	}, nil
}

// Summary condenses the change lines "[action] title: summary".
func (g *Generator) Summary(ctx context.Context, changes []models.ChangeItem) (string, error) {
	if len(changes) == 0 {
		return NoChanges, nil
	}
	lines := make([]string, len(changes))
	for i, c := range changes {
		lines[i] = fmt.Sprintf("[%s] %s: %s", c.Action, c.Title, c.Summary)
	}
	return g.summarizer.Summarize(ctx, strings.Join(lines, "\n"), summaryLength)
}

// Period returns the report window ending at now: 24 hours for daily
// reports and 7 days for weekly ones, formatted as RFC 3339 in now's zone.
func Period(reportType string, now time.Time) (start, end string, err error) {
	var span time.Duration
	switch reportType {
	case models.ReportDaily:
		span = 24 * time.Hour
	case models.ReportWeekly:
		span = 7 * 24 * time.Hour
	default:
		return "", "", fmt.Errorf("unknown report type %q", reportType)
	}
	return now.Add(-span).Format(time.RFC3339), now.Format(time.RFC3339), nil
}
