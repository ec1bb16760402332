package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/secomply/questionnaire-assistant/internal/config"
	"github.com/secomply/questionnaire-assistant/internal/core/domain"
	"github.com/secomply/questionnaire-assistant/internal/core/ports"
	"github.com/secomply/questionnaire-assistant/internal/infrastructure/tabular"
	"github.com/secomply/questionnaire-assistant/internal/observability/metrics"
)

const (
	serviceName   = "api"
	defaultUserID = "default"

	maxUploadBytes = 16 << 20
)

type Router struct {
	cfg     config.Config
	ask     ports.QuestionAnswerer
	sheets  ports.QuestionnaireAnswerer
	jobs    ports.JobService
	threads ports.ThreadStore
	metrics *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	ask ports.QuestionAnswerer,
	sheets ports.QuestionnaireAnswerer,
	jobs ports.JobService,
	threads ports.ThreadStore,
	serverMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:     cfg,
		ask:     ask,
		sheets:  sheets,
		jobs:    jobs,
		threads: threads,
		metrics: serverMetrics,
	}
}

// Handler wires the API routes. Traffic control covers /v1 only; health and
// metrics stay reachable when the limiter is saturated.
func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/v1/analyze", rt.analyze)
	api.HandleFunc("/v1/questionnaire", rt.questionnaire)
	api.HandleFunc("/v1/questionnaire/async", rt.questionnaireAsync)
	api.HandleFunc("/v1/questionnaire/jobs/", rt.jobByID)
	api.HandleFunc("/v1/history", rt.history)

	var protected http.Handler = api
	protected = backpressureMiddleware(protected, rt.cfg.APIMaxConcurrent, rt.cfg.APIBackpressureWait)
	protected = rateLimitMiddleware(protected, float64(rt.cfg.APIRateLimitRPS), rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		protected = rt.metrics.Middleware(serviceName, protected)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	mux.Handle("/v1/", protected)

	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type analyzeRequest struct {
	Message  string `json:"message"`
	UserID   string `json:"user_id"`
	ThreadID string `json:"thread_id"`
}

type answerResponse struct {
	Type            string   `json:"type"`
	Content         string   `json:"content"`
	References      []string `json:"references"`
	ConfidenceScore float64  `json:"confidence_score"`
	ThreadID        string   `json:"thread_id,omitempty"`
	AllMatches      []string `json:"all_matches"`
}

func (rt *Router) analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}
	if req.UserID == "" {
		req.UserID = defaultUserID
	}

	start := time.Now()
	answer, err := rt.ask.Ask(r.Context(), req.UserID, req.ThreadID, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordAnswer(serviceName, string(answer.Source), answer.Confidence, time.Since(start))
	}

	writeJSON(w, http.StatusOK, answerResponse{
		Type:            "system",
		Content:         answer.Text,
		References:      answer.References,
		ConfidenceScore: answer.Confidence,
		ThreadID:        answer.ThreadID,
		AllMatches:      answer.AllMatches,
	})
}

func (rt *Router) questionnaire(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rows, _, ok := rt.parseUpload(w, r)
	if !ok {
		return
	}

	results := rt.sheets.AnswerSheet(r.Context(), rows)
	if rt.metrics != nil {
		rt.metrics.RecordQuestionnaire(serviceName, "sync", len(results))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Questionnaire analyzed successfully",
		"results": results,
	})
}

func (rt *Router) questionnaireAsync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rows, filename, ok := rt.parseUpload(w, r)
	if !ok {
		return
	}

	jobID, err := rt.jobs.SubmitJob(r.Context(), filename, rows)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordQuestionnaire(serviceName, "async", len(rows))
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": "pending",
	})
}

func (rt *Router) jobByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/v1/questionnaire/jobs/")
	if jobID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "job id is required"})
		return
	}

	job, err := rt.jobs.JobByID(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (rt *Router) parseUpload(w http.ResponseWriter, r *http.Request) ([]domain.QuestionnaireRow, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return nil, "", false
	}
	defer file.Close()

	rows, err := tabular.ParseQuestionnaire(fileHeader.Filename, file)
	if err != nil {
		writeError(w, err)
		return nil, "", false
	}
	return rows, fileHeader.Filename, true
}

type historyRequest struct {
	Command  string `json:"command"`
	UserID   string `json:"user_id"`
	ThreadID string `json:"thread_id"`
}

type threadSummary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

// history implements the thread command protocol. The client holds the
// selected thread id and sends it back with every call.
func (rt *Router) history(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req historyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	command := strings.TrimSpace(req.Command)
	if command == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "command is required"})
		return
	}
	if req.UserID == "" {
		req.UserID = defaultUserID
	}

	verb, arg := splitCommand(command)
	switch verb {
	case "new":
		thread, err := rt.threads.CreateThread(r.Context(), req.UserID, "")
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"thread_id": thread.ID,
			"title":     thread.Title,
		})

	case "list":
		threads, err := rt.threads.ListThreads(r.Context(), req.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		summaries := make([]threadSummary, 0, len(threads))
		for _, thread := range threads {
			summaries = append(summaries, threadSummary{
				ID:     thread.ID,
				Title:  thread.Title,
				Active: thread.ID == req.ThreadID,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"threads": summaries})

	case "select":
		if arg == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "thread id is required"})
			return
		}
		messages, err := rt.threads.ListMessages(r.Context(), arg)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"thread_id": arg,
			"messages":  messages,
		})

	case "rename":
		if req.ThreadID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "NoThreadSelected"})
			return
		}
		if arg == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
			return
		}
		if err := rt.threads.RenameThread(r.Context(), req.UserID, req.ThreadID, arg); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Renamed:%s", arg)})

	case "delete":
		if req.ThreadID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "NoThreadSelected"})
			return
		}
		if err := rt.threads.DeleteThread(r.Context(), req.UserID, req.ThreadID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Deleted:%s", req.ThreadID)})

	default:
		// Anything that is not a command is a chat message for the
		// selected thread.
		if req.ThreadID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "NoThreadSelected"})
			return
		}
		start := time.Now()
		answer, err := rt.ask.Ask(r.Context(), req.UserID, req.ThreadID, command)
		if err != nil {
			writeError(w, err)
			return
		}
		if rt.metrics != nil {
			rt.metrics.RecordAnswer(serviceName, string(answer.Source), answer.Confidence, time.Since(start))
		}
		writeJSON(w, http.StatusOK, answerResponse{
			Type:            "system",
			Content:         answer.Text,
			References:      answer.References,
			ConfidenceScore: answer.Confidence,
			ThreadID:        answer.ThreadID,
			AllMatches:      answer.AllMatches,
		})
	}
}

// splitCommand recognizes "select" and "rename" by prefix; "new", "list" and
// "delete" only as the whole message. "delete old VPN accounts promptly?" is
// a chat question, not a delete.
func splitCommand(command string) (verb, arg string) {
	verb, arg, _ = strings.Cut(command, " ")
	arg = strings.TrimSpace(arg)
	switch verb {
	case "select", "rename":
		return verb, arg
	case "new", "list", "delete":
		if arg == "" {
			return verb, ""
		}
	}
	return "", ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
