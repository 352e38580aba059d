package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/ziadkadry99/docqa/internal/answer"
	"github.com/ziadkadry99/docqa/internal/markdown"
	"github.com/ziadkadry99/docqa/internal/pipeline"
	"github.com/ziadkadry99/docqa/internal/vectordb"
)

const maxBodyBytes = 1 << 20

// queryRequest is the body of /query and /search. K is only accepted by
// /search; nil means the configured depth.
type queryRequest struct {
	Question string `json:"question"`
	K        *int   `json:"k,omitempty"`
}

const errQueryDepth = "k is only supported by /search"

type queryResponse struct {
	*answer.Response
	AnswerHTML string `json:"answer_html,omitempty"`
}

type searchResult struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Chunk   int     `json:"chunk"`
	Score   float32 `json:"score"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	st := s.engine.Status()
	status := "online"
	if st.State != pipeline.Ready {
		status = st.State.String()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   s.cfg.Name,
		"status":    status,
		"documents": st.Documents,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.engine.Status()

	code := http.StatusOK
	status := "healthy"
	if st.State != pipeline.Ready {
		code = http.StatusServiceUnavailable
		status = "unavailable"
	}

	body := map[string]any{
		"status":          status,
		"state":           st.State,
		"documents_count": len(st.Documents),
		"documents":       st.Documents,
		"chunks":          st.Chunks,
		"skipped":         st.Skipped,
		"dimensions":      st.Dimensions,
	}
	if !st.BuiltAt.IsZero() {
		body["built_at"] = st.BuiltAt.UTC().Format(time.RFC3339)
	}
	if st.Error != "" {
		body["error"] = st.Error
	}
	writeJSON(w, code, body)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQuestion(w, r)
	if !ok {
		return
	}

	if req.K != nil {
		writeError(w, http.StatusBadRequest, errQueryDepth)
		return
	}

	logger := ctxzap.Extract(r.Context())
	logger.Info("query received", zap.String("question", req.Question))

	resp, err := s.engine.Query(r.Context(), req.Question)
	if err != nil {
		logger.Error("query failed", zap.Error(err))
		writeError(w, statusFor(err), err.Error())
		return
	}

	out := queryResponse{Response: resp}
	if r.URL.Query().Get("format") == "html" {
		html, err := markdown.ToHTML(resp.Answer)
		if err != nil {
			logger.Warn("rendering answer", zap.Error(err))
		} else {
			out.AnswerHTML = html
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQuestion(w, r)
	if !ok {
		return
	}

	k := 0
	if req.K != nil {
		if *req.K <= 0 {
			writeError(w, http.StatusBadRequest, "k must be a positive integer")
			return
		}
		k = *req.K
	}

	results, err := s.engine.Search(r.Context(), req.Question, k)
	if err != nil {
		ctxzap.Extract(r.Context()).Error("search failed", zap.Error(err))
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": toSearchResults(results)})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "query history is disabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		ctxzap.Extract(r.Context()).Error("reading history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// decodeQuestion parses the request body and rejects blank questions.
func decodeQuestion(w http.ResponseWriter, r *http.Request) (queryRequest, bool) {
	var req queryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question must not be empty")
		return req, false
	}
	return req, true
}

// statusFor maps core errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrNotReady), errors.Is(err, vectordb.ErrIndexNotReady):
		return http.StatusServiceUnavailable
	case answer.IsGenerationError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func toSearchResults(results []vectordb.SearchResult) []searchResult {
	out := make([]searchResult, 0, len(results))
	for _, r := range results {
		out = append(out, searchResult{
			Content: r.Document.Content,
			Source:  r.Document.Metadata.Source,
			Chunk:   r.Document.Metadata.Chunk,
			Score:   r.Similarity,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}
