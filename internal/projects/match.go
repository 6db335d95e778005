// Package projects matches pages to candidate projects and aggregates
// milestone progress for a project.
package projects

import (
	"strings"

	"github.com/thebtf/notionflow-ai/internal/scoring"
	"github.com/thebtf/notionflow-ai/pkg/models"
	"github.com/thebtf/notionflow-ai/pkg/similarity"
)

const (
	// DefaultTopK is the number of suggestions returned when callers pass none.
	DefaultTopK = 3
	// MatchFloor is the score a project must exceed to be suggested.
	MatchFloor = 0.1

	exactNameScore     = 1.0
	milestoneNameScore = 0.6
)

var matchScorer = scoring.MustNew(scoring.Weights{
	scoring.SignalKeyword:   0.3,
	scoring.SignalEmbedding: 0.5,
	scoring.SignalRecency:   0.2,
}, MatchFloor, scoring.PolicyExclude)

// MatchRequest is the input to Match.
type MatchRequest struct {
	PageText         string
	PageEmbedding    []float32
	Projects         []models.ProjectCandidate
	RecentProjectIDs []string
	TopK             int
}

// Match ranks candidate projects for a page by name match, similarity to the
// project centroid and recent use. At most TopK suggestions scoring above
// 0.1 are returned, highest confidence first.
func Match(req MatchRequest) []models.ProjectSuggestion {
	suggestions := []models.ProjectSuggestion{}
	if len(req.Projects) == 0 {
		return suggestions
	}
	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	recent := make(map[string]bool, len(req.RecentProjectIDs))
	for _, id := range req.RecentProjectIDs {
		recent[id] = true
	}
	text := strings.ToLower(req.PageText)
	var page []float32
	if len(req.PageEmbedding) > 0 && similarity.IsFinite(req.PageEmbedding) {
		page = req.PageEmbedding
	}

	candidates := make([]scoring.Candidate[int], len(req.Projects))
	for i, p := range req.Projects {
		candidates[i].Key = i
		candidates[i].Scores.Set(scoring.SignalKeyword, nameScore(text, p))
		candidates[i].Scores.Set(scoring.SignalEmbedding, centroidScore(page, p.Centroid))
		if recent[p.ID] {
			candidates[i].Scores.Set(scoring.SignalRecency, 1)
		}
	}

	for _, r := range scoring.Accept(matchScorer, candidates, topK) {
		p := req.Projects[r.Key]
		suggestions = append(suggestions, models.ProjectSuggestion{
			ProjectID:   p.ID,
			ProjectName: p.Name,
			Confidence:  scoring.Round(r.Score),
		})
	}
	return suggestions
}

func nameScore(lowerText string, p models.ProjectCandidate) float64 {
	if p.Name != "" && strings.Contains(lowerText, strings.ToLower(p.Name)) {
		return exactNameScore
	}
	for _, ms := range p.MilestoneNames {
		if ms != "" && strings.Contains(lowerText, strings.ToLower(ms)) {
			return milestoneNameScore
		}
	}
	return 0
}

func centroidScore(page, centroid []float32) float64 {
	if page == nil || len(centroid) != len(page) || similarity.Norm(centroid) == 0 {
		return 0
	}
	return similarity.UnitInterval(similarity.CosineSimilarity(page, centroid))
}
