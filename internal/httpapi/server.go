package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/evidentia-ai/evidentia/internal/config"
	"github.com/evidentia-ai/evidentia/internal/metrics"
	"github.com/evidentia-ai/evidentia/internal/workflows"
)

// Server exposes the research API: submit a question, get back the
// cited answer once the workflow run completes.
type Server struct {
	temporal client.Client
	manager  *config.Manager
	logger   *zap.Logger
	mux      *http.ServeMux
}

// NewServer builds the HTTP surface. The config manager is consulted
// per request so reloaded loop settings apply to new runs immediately.
func NewServer(tc client.Client, manager *config.Manager, logger *zap.Logger) *Server {
	s := &Server{
		temporal: tc,
		manager:  manager,
		logger:   logger,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("/v1/research", s.handleResearch)
	s.mux.HandleFunc("/v1/research/", s.handleResearchStatus)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

type researchRequest struct {
	Question string `json:"question"`
	// Wait controls whether the call blocks until the run finishes.
	// Defaults to true; set false to get the run ID back immediately.
	Wait *bool `json:"wait,omitempty"`
}

type researchAccepted struct {
	RunID      string `json:"run_id"`
	WorkflowID string `json:"workflow_id"`
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req researchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, errors.New("question is required"))
		return
	}

	cfg := s.manager.Current()
	runID := uuid.NewString()
	workflowID := "research-" + runID

	input := workflows.ResearchInput{
		Question: question,
		RunID:    runID,
		Loop:     cfg.Snapshot(),
	}

	run, err := s.temporal.ExecuteWorkflow(r.Context(), client.StartWorkflowOptions{
		ID:                       workflowID,
		TaskQueue:                cfg.Temporal.TaskQueue,
		WorkflowExecutionTimeout: 30 * time.Minute,
	}, workflows.DeepAnswerWorkflow, input)
	if err != nil {
		s.logger.Error("failed to start research workflow",
			zap.String("run_id", runID),
			zap.Error(err))
		metrics.RunsCompleted.WithLabelValues("failed").Inc()
		writeError(w, http.StatusBadGateway, errors.New("could not start research run"))
		return
	}

	s.logger.Info("research run started",
		zap.String("run_id", runID),
		zap.String("workflow_id", workflowID),
		zap.Int("question_chars", len(question)))

	if req.Wait != nil && !*req.Wait {
		writeJSON(w, http.StatusAccepted, researchAccepted{RunID: runID, WorkflowID: workflowID})
		return
	}

	var result workflows.ResearchResult
	if err := run.Get(r.Context(), &result); err != nil {
		s.logger.Error("research run failed",
			zap.String("run_id", runID),
			zap.Error(err))
		metrics.RunsCompleted.WithLabelValues("failed").Inc()
		writeError(w, http.StatusBadGateway, errors.New("research run failed"))
		return
	}

	s.recordRunMetrics(result)
	writeJSON(w, http.StatusOK, result)
}

// handleResearchStatus fetches the result of a previously started run
// by workflow ID: GET /v1/research/{workflow_id}.
func (s *Server) handleResearchStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	workflowID := strings.TrimPrefix(r.URL.Path, "/v1/research/")
	if workflowID == "" || strings.Contains(workflowID, "/") {
		writeError(w, http.StatusBadRequest, errors.New("workflow id is required"))
		return
	}

	var result workflows.ResearchResult
	run := s.temporal.GetWorkflow(r.Context(), workflowID, "")
	if err := run.Get(r.Context(), &result); err != nil {
		writeError(w, http.StatusNotFound, errors.New("run not found or not finished"))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := s.temporal.CheckHealth(ctx, &client.CheckHealthRequest{}); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) recordRunMetrics(result workflows.ResearchResult) {
	metrics.IterationsPerRun.Observe(float64(result.Iterations))
	outcome := "budget_exhausted"
	if result.Accepted {
		outcome = "accepted"
	}
	metrics.RunsCompleted.WithLabelValues(outcome).Inc()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
