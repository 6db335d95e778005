package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/notionflow-ai/internal/clustering"
	"github.com/thebtf/notionflow-ai/internal/projects"
	"github.com/thebtf/notionflow-ai/internal/report"
	"github.com/thebtf/notionflow-ai/internal/summarizer"
	"github.com/thebtf/notionflow-ai/internal/worker/sse"
	"github.com/thebtf/notionflow-ai/pkg/models"
	"github.com/thebtf/notionflow-ai/pkg/similarity"
)

const (
	maxRequestBody  = 32 << 20
	defaultTagCount = 10
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// acceptedResponse is returned by routes that finish in the background.
type acceptedResponse struct {
	Status    string `json:"status"`
	PageID    string `json:"page_id,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
	TaskID    string `json:"task_id"`
}

type processRequest struct {
	PageID      string `json:"page_id"`
	PlainText   string `json:"plain_text"`
	CallbackURL string `json:"callback_url"`
}

type textRequest struct {
	Text string `json:"text"`
}

type tagRequest struct {
	Text string `json:"text"`
	TopN int    `json:"top_n"`
}

type summarizeRequest struct {
	Text      string `json:"text"`
	MaxLength int    `json:"max_length"`
}

type clusterRequest struct {
	Embeddings []models.PageEmbedding `json:"embeddings"`
}

type classifyRequest struct {
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

type classifyResponse struct {
	Label      models.NoteType `json:"label"`
	Confidence float64         `json:"confidence"`
}

type matchRequest struct {
	PageText         string                    `json:"page_text"`
	PageEmbedding    []float32                 `json:"page_embedding"`
	Projects         []models.ProjectCandidate `json:"projects"`
	RecentProjectIDs []string                  `json:"recent_project_ids"`
	TopK             int                       `json:"top_k"`
}

type analyzeRequest struct {
	ProjectID   string               `json:"project_id"`
	ProjectName string               `json:"project_name"`
	CallbackURL string               `json:"callback_url"`
	Milestones  []models.Milestone   `json:"milestones"`
	Pages       []models.ProjectPage `json:"pages"`
}

type reportRequest struct {
	Type        string              `json:"type"`
	PeriodStart string              `json:"period_start"`
	PeriodEnd   string              `json:"period_end"`
	CallbackURL string              `json:"callback_url"`
	Changes     []models.ChangeItem `json:"changes"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decode reads the JSON body into dst. Fields already set on dst act as
// defaults for absent keys.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func requireFields(w http.ResponseWriter, fields map[string]string) bool {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return true
	}
	slices.Sort(missing)
	writeError(w, http.StatusBadRequest, "missing required fields: "+strings.Join(missing, ", "))
	return false
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"models_loaded": s.ready.Load(),
	})
}

func (s *Service) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version": s.version,
		"uptime":  time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Service) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if !decode(w, r, &req) {
		return
	}
	if !requireFields(w, map[string]string{"page_id": req.PageID, "callback_url": req.CallbackURL}) {
		return
	}

	taskID := s.tasks.Submit("process", func(ctx context.Context) error {
		result, err := s.pipeline.Process(ctx, req.PageID, req.PlainText)
		if err != nil {
			s.sseBroadcaster.Publish(sse.EventProcessFailed, map[string]string{"page_id": req.PageID, "error": err.Error()})
			return fmt.Errorf("process page %s: %w", req.PageID, err)
		}
		s.sseBroadcaster.Publish(sse.EventPageProcessed, map[string]any{
			"page_id":   req.PageID,
			"note_type": result.NoteType,
			"cluster":   result.ClusterID,
		})
		return s.callbacks.SendAIResult(ctx, req.CallbackURL, result)
	})

	writeJSON(w, http.StatusAccepted, acceptedResponse{Status: "accepted", PageID: req.PageID, TaskID: taskID})
}

func (s *Service) handleEmbed(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	if s.encoder == nil {
		writeError(w, http.StatusServiceUnavailable, "embedding model not configured")
		return
	}
	vector, err := s.encoder.Encode(r.Context(), req.Text)
	if err != nil {
		log.Error().Err(err).Msg("Embedding failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string][]float32{"vector": vector})
}

func (s *Service) handleTag(w http.ResponseWriter, r *http.Request) {
	req := tagRequest{TopN: defaultTagCount}
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]models.Tag{"tags": s.keywords.Extract(req.Text, req.TopN)})
}

func (s *Service) handleSummarize(w http.ResponseWriter, r *http.Request) {
	req := summarizeRequest{MaxLength: summarizer.DefaultMaxLength}
	if !decode(w, r, &req) {
		return
	}
	summary, err := s.summarizer.Summarize(r.Context(), req.Text, req.MaxLength)
	if err != nil {
		log.Error().Err(err).Msg("Summarization failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (s *Service) handleCluster(w http.ResponseWriter, r *http.Request) {
	var req clusterRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := s.clusters.Fit(r.Context(), clustering.ItemsFromPages(req.Embeddings))
	if err != nil {
		if errors.Is(err, clustering.ErrDimensionMismatch) || errors.Is(err, clustering.ErrNonFinite) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := result.ClusterResult()
	s.sseBroadcaster.Publish(sse.EventClusterFitted, map[string]int{
		"clusters": len(out.Clusters),
		"noise":    len(out.Noise),
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Service) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Embedding) > 0 && !similarity.IsFinite(req.Embedding) {
		writeError(w, http.StatusUnprocessableEntity, "embedding contains non-finite values")
		return
	}
	label, confidence := s.classifier.Classify(req.Text, req.Embedding)
	writeJSON(w, http.StatusOK, classifyResponse{Label: label, Confidence: confidence})
}

func (s *Service) handleProjectMatch(w http.ResponseWriter, r *http.Request) {
	req := matchRequest{TopK: projects.DefaultTopK}
	if !decode(w, r, &req) {
		return
	}
	suggestions := projects.Match(projects.MatchRequest{
		PageText:         req.PageText,
		PageEmbedding:    req.PageEmbedding,
		Projects:         req.Projects,
		RecentProjectIDs: req.RecentProjectIDs,
		TopK:             req.TopK,
	})
	writeJSON(w, http.StatusOK, map[string][]models.ProjectSuggestion{"suggestions": suggestions})
}

func (s *Service) handleProjectAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decode(w, r, &req) {
		return
	}
	if !requireFields(w, map[string]string{"project_id": req.ProjectID, "callback_url": req.CallbackURL}) {
		return
	}

	taskID := s.tasks.Submit("project_analyze", func(ctx context.Context) error {
		analysis, err := s.analyzer.Analyze(ctx, projects.AnalyzeRequest{
			ProjectID:   req.ProjectID,
			ProjectName: req.ProjectName,
			Milestones:  req.Milestones,
			Pages:       req.Pages,
		})
		if err != nil {
			return fmt.Errorf("analyze project %s: %w", req.ProjectID, err)
		}
		if err := s.callbacks.SendProjectAnalysis(ctx, req.CallbackURL, analysis); err != nil {
			return err
		}
		s.sseBroadcaster.Publish(sse.EventProjectAnalyzed, map[string]any{
			"project_id": req.ProjectID,
			"progress":   analysis.OverallProgress,
		})
		return nil
	})

	writeJSON(w, http.StatusAccepted, acceptedResponse{Status: "accepted", ProjectID: req.ProjectID, TaskID: taskID})
}

func (s *Service) handleReportGenerate(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !decode(w, r, &req) {
		return
	}
	if !requireFields(w, map[string]string{"type": req.Type, "callback_url": req.CallbackURL}) {
		return
	}

	taskID := s.tasks.Submit("report", func(ctx context.Context) error {
		rep, err := s.reports.Build(ctx, report.Request{
			Type:        req.Type,
			PeriodStart: req.PeriodStart,
			PeriodEnd:   req.PeriodEnd,
			Changes:     req.Changes,
		})
		if err != nil {
			return fmt.Errorf("build %s report: %w", req.Type, err)
		}
		if err := s.callbacks.SendReport(ctx, req.CallbackURL, rep); err != nil {
			return err
		}
		s.sseBroadcaster.Publish(sse.EventReportSent, map[string]any{
			"type":          rep.Type,
			"total_changes": rep.TotalChanges,
		})
		return nil
	})

	writeJSON(w, http.StatusAccepted, acceptedResponse{Status: "accepted", TaskID: taskID})
}

func (s *Service) handleRecluster(w http.ResponseWriter, _ *http.Request) {
	if s.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, "recluster job not configured")
		return
	}

	taskID := s.tasks.Submit("recluster", func(ctx context.Context) error {
		result, err := s.jobs.Recluster(ctx)
		if err != nil {
			return err
		}
		if result != nil {
			out := result.ClusterResult()
			s.sseBroadcaster.Publish(sse.EventClusterFitted, map[string]int{
				"clusters": len(out.Clusters),
				"noise":    len(out.Noise),
			})
		}
		return nil
	})

	writeJSON(w, http.StatusAccepted, acceptedResponse{Status: "accepted", TaskID: taskID})
}
