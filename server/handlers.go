package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/xhad/articlerag/internal/models"
)

type extractRequest struct {
	URL string `json:"url"`
}

type articleRequest struct {
	URL       string `json:"url"`
	ArticleID string `json:"articleId"`
}

type askRequest struct {
	ArticleID string `json:"articleId"`
	Question  string `json:"question"`
}

type embedResponse struct {
	Message      string `json:"message"`
	ChunksStored int    `json:"chunksStored"`
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

// routeErrors holds the client-facing messages of one route. Empty fields
// fall back to internal.
type routeErrors struct {
	invalid   string
	rejected  string
	notFound  string
	malformed string
	internal  string
}

var (
	extractErrors = routeErrors{
		invalid:  "URL is required",
		rejected: "Not a valid article URL or content too short",
		internal: "Something went wrong while extracting article",
	}
	embedErrors = routeErrors{
		invalid:  "Both url and articleId are required",
		rejected: "Invalid or non-article URL",
		internal: "Something went wrong during embedding",
	}
	askErrors = routeErrors{
		invalid:  "articleId and question are required",
		notFound: "No relevant context found",
		internal: "Something went wrong",
	}
	quizErrors = routeErrors{
		invalid:   "Both url and articleId are required",
		rejected:  "Invalid or non-article URL",
		malformed: "Failed to generate quiz",
		internal:  "Something went wrong during quiz generation",
	}
	summaryErrors = routeErrors{
		invalid:  "URL is required",
		rejected: "Invalid or non-article URL",
		internal: "Something went wrong during summarization",
	}
)

// resolve maps err to a status code and message.
func (e routeErrors) resolve(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidInput) && e.invalid != "":
		return http.StatusBadRequest, e.invalid
	case errors.Is(err, models.ErrExtractionRejected) && e.rejected != "":
		return http.StatusBadRequest, e.rejected
	case errors.Is(err, models.ErrNoRelevantContext) && e.notFound != "":
		return http.StatusNotFound, e.notFound
	case errors.Is(err, models.ErrMalformedModelOutput) && e.malformed != "":
		return http.StatusInternalServerError, e.malformed
	}
	return http.StatusInternalServerError, e.internal
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, extractErrors.invalid)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	article, err := s.service.Extract(ctx, req.URL)
	if err != nil {
		s.fail(w, r, extractErrors, err)
		return
	}

	writeJSON(w, http.StatusOK, article)
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.URL == "" || req.ArticleID == "" {
		writeError(w, http.StatusBadRequest, embedErrors.invalid)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	result, err := s.service.Embed(ctx, req.URL, req.ArticleID)
	if err != nil {
		s.fail(w, r, embedErrors, err)
		return
	}

	writeJSON(w, http.StatusOK, embedResponse{
		Message:      "Article embedded and stored successfully",
		ChunksStored: result.ChunksStored,
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ArticleID == "" || req.Question == "" {
		writeError(w, http.StatusBadRequest, askErrors.invalid)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	result, err := s.service.Ask(ctx, req.ArticleID, req.Question)
	if err != nil {
		s.fail(w, r, askErrors, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.URL == "" || req.ArticleID == "" {
		writeError(w, http.StatusBadRequest, quizErrors.invalid)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	result, err := s.service.Quiz(ctx, req.URL, req.ArticleID)
	if err != nil {
		s.fail(w, r, quizErrors, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, summaryErrors.invalid)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	summary, err := s.service.Summarize(ctx, req.URL)
	if err != nil {
		s.fail(w, r, summaryErrors, err)
		return
	}

	writeJSON(w, http.StatusOK, summaryResponse{Summary: summary})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.URL == "" || req.ArticleID == "" {
		writeError(w, http.StatusBadRequest, embedErrors.invalid)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	result, err := s.service.Process(ctx, req.URL, req.ArticleID)
	if err != nil {
		s.fail(w, r, embedErrors, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// decode reads a JSON body into v. An empty body leaves v zero so the
// handler reports the missing fields.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, messages routeErrors, err error) {
	status, message := messages.resolve(err)

	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")

	writeError(w, status, message)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
