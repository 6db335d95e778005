package projects

import (
	"context"
	"fmt"
	"strings"

	"github.com/thebtf/notionflow-ai/internal/summarizer"
	"github.com/thebtf/notionflow-ai/pkg/models"
)

const (
	milestoneSummaryLength = 128
	projectSummaryLength   = 256
	maxOpenProgress        = 95
)

// AnalyzeRequest describes a project with its milestones and pages.
type AnalyzeRequest struct {
	ProjectID   string
	ProjectName string
	Milestones  []models.Milestone
	Pages       []models.ProjectPage
}

// Analyzer estimates milestone progress and summarizes project content.
type Analyzer struct {
	summarizer summarizer.Summarizer
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(s summarizer.Summarizer) *Analyzer {
	return &Analyzer{summarizer: s}
}

// MilestoneProgress estimates the progress of a milestone in percent.
// Completed milestones are 100 and milestones without pages are 0. Otherwise
// progress follows the share of pages with content, capped at 95 until the
// milestone is marked completed.
func MilestoneProgress(status string, pages []models.ProjectPage) int {
	if status == models.MilestoneStatusCompleted {
		return 100
	}
	if len(pages) == 0 {
		return 0
	}
	withContent := 0
	for _, p := range pages {
		if strings.TrimSpace(p.Content) != "" {
			withContent++
		}
	}
	ratio := float64(withContent) / float64(len(pages))
	return min(int(ratio*80), maxOpenProgress)
}

// Analyze computes per-milestone progress and summaries plus the overall
// project progress (the integer mean over milestones) and summary.
func (a *Analyzer) Analyze(ctx context.Context, req AnalyzeRequest) (*models.ProjectAnalysis, error) {
	byMilestone := make(map[string][]models.ProjectPage)
	for _, p := range req.Pages {
		if p.MilestoneID != nil {
			byMilestone[*p.MilestoneID] = append(byMilestone[*p.MilestoneID], p)
		}
	}

	updates := make([]models.MilestoneUpdate, 0, len(req.Milestones))
	total := 0
	for _, ms := range req.Milestones {
		pages := byMilestone[ms.ID]
		progress := MilestoneProgress(ms.Status, pages)

		var summary string
		if text := joinContent(pages); strings.TrimSpace(text) != "" {
			s, err := a.summarizer.Summarize(ctx, text, milestoneSummaryLength)
			if err != nil {
				return nil, fmt.Errorf("summarize milestone %s: %w", ms.ID, err)
			}
			summary = s
		}

		updates = append(updates, models.MilestoneUpdate{
			MilestoneID: ms.ID,
			AIProgress:  progress,
			AISummary:   summary,
		})
		total += progress
	}

	overall := 0
	if len(updates) > 0 {
		overall = total / len(updates)
	}

	summary, err := a.summarizer.Summarize(ctx, req.ProjectName+". "+joinContent(req.Pages), projectSummaryLength)
	if err != nil {
		return nil, fmt.Errorf("summarize project %s: %w", req.ProjectID, err)
	}

	return &models.ProjectAnalysis{
		ProjectID:        req.ProjectID,
		OverallProgress:  overall,
		AISummary:        summary,
		MilestoneUpdates: updates,
	}, nil
}

func joinContent(pages []models.ProjectPage) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p.Content) != "" {
			parts = append(parts, p.Content)
		}
	}
	return strings.Join(parts, " ")
}
