package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pulseboard/sentiment-monitor/internal/insights"
	"github.com/pulseboard/sentiment-monitor/internal/models"
	"github.com/pulseboard/sentiment-monitor/internal/monitoring"
	"github.com/sirupsen/logrus"
)

const digestTimeout = 5 * time.Minute

var reportStubs = map[string]models.ReportAck{
	"pdf":         {Message: "PDF report generated", DownloadURL: "/api/download/report.pdf"},
	"excel":       {Message: "Excel report generated", DownloadURL: "/api/download/report.xlsx"},
	"infographic": {Message: "Infographic generated", DownloadURL: "/api/download/infographic.png"},
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

// writeFailure maps validation errors to 400 and everything else to 500
func writeFailure(w http.ResponseWriter, err error, invalidMessage, failedMessage string) {
	if errors.Is(err, monitoring.ErrValidation) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: invalidMessage, Error: err.Error()})
		return
	}
	logrus.Errorf("%s: %v", failedMessage, err)
	writeError(w, http.StatusInternalServerError, failedMessage)
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.service.GetMetrics()))
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	filter, err := parseCommentFilter(r.URL.Query(), s.config.Location())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid filter", Error: err.Error()})
		return
	}

	comments, err := s.service.Comments(r.Context(), userIDFrom(r.Context()), filter)
	if err != nil {
		writeFailure(w, err, "Invalid filter", "Failed to fetch comments")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(comments))
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request) {
	var input models.NewComment
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid comment data", Error: err.Error()})
		return
	}

	comment, err := s.service.CreateComment(r.Context(), userIDFrom(r.Context()), input)
	if err != nil {
		writeFailure(w, err, "Invalid comment data", "Failed to create comment")
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Text is required")
		return
	}

	result, err := s.service.Analyze(r.Context(), userIDFrom(r.Context()), body.Text)
	if err != nil {
		if errors.Is(err, monitoring.ErrValidation) {
			writeError(w, http.StatusBadRequest, "Text is required")
			return
		}
		writeFailure(w, err, "Text is required", "Analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) snapshots(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	snapshots, err := s.service.Snapshots(r.Context(), userIDFrom(r.Context()), query.Get("range"), query.Get("group"))
	if err != nil {
		writeFailure(w, err, "Invalid snapshot query", "Failed to fetch snapshots")
		return
	}
	writeJSON(w, http.StatusOK, snapshots)
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.Summary(r.Context(), userIDFrom(r.Context()), r.URL.Query().Get("range"))
	if err != nil {
		writeFailure(w, err, "Invalid summary query", "Failed to fetch summary")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) authors(w http.ResponseWriter, r *http.Request) {
	authors, err := s.service.Authors(r.Context())
	if err != nil {
		writeFailure(w, err, "Invalid request", "Failed to fetch authors")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(authors))
}

func (s *Server) suggestions(w http.ResponseWriter, r *http.Request) {
	category := models.SentimentLabel(r.URL.Query().Get("category"))
	writeJSON(w, http.StatusOK, insights.Suggestions(category))
}

func (s *Server) topicBreakdown(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, insights.TopicBreakdown())
}

func (s *Server) geo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, insights.GeoData())
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.service.Config(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeFailure(w, err, "Invalid config request", "Failed to fetch config")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) updateConfig(w http.ResponseWriter, r *http.Request) {
	var update models.ConfigUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid config data", Error: err.Error()})
		return
	}

	cfg, err := s.service.UpdateConfig(r.Context(), userIDFrom(r.Context()), update)
	if err != nil {
		writeFailure(w, err, "Invalid config data", "Failed to update config")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// triggerDigest sends the digest in the background and returns immediately
func (s *Server) triggerDigest(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), digestTimeout)
		defer cancel()
		if _, err := s.service.RunDigest(ctx, userID); err != nil {
			logrus.Errorf("Manual digest trigger failed: %v", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Digest triggered successfully"})
}

// collect runs a mention collection for the caller and reports what was stored.
// Source failures are reported in the result rather than as an error status.
func (s *Server) collect(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.RunCollection(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		logrus.Errorf("Mention collection failed: %v", err)
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) reportStub(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, reportStubs[mux.Vars(r)["kind"]])
}

// nonNil keeps empty results encoding as [] rather than null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
