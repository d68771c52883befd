package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/study-assistant/internal/config"
	"github.com/kirillkom/study-assistant/internal/core/domain"
	"github.com/kirillkom/study-assistant/internal/core/ports"
	"github.com/kirillkom/study-assistant/internal/observability/metrics"
)

const (
	serviceName = "study-api"
	// multipartOverhead covers boundaries and form fields around the file.
	multipartOverhead = 1 << 20
)

type Router struct {
	cfg     config.Config
	ingest  ports.DocumentIngestor
	docs    ports.DocumentManager
	study   ports.StudyService
	metrics *metrics.HTTPServerMetrics
}

// NewRouter wires the HTTP surface. httpMetrics may be nil.
func NewRouter(
	cfg config.Config,
	ingest ports.DocumentIngestor,
	docs ports.DocumentManager,
	study ports.StudyService,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:     cfg,
		ingest:  ingest,
		docs:    docs,
		study:   study,
		metrics: httpMetrics,
	}
}

func (rt *Router) Handler(ctx context.Context) (http.Handler, error) {
	validator, err := loadOpenAPIRouter(ctx)
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", rt.healthz).Methods(http.MethodGet)
	if rt.metrics != nil {
		r.Handle("/metrics", rt.metrics.Handler()).Methods(http.MethodGet)
	}

	v1 := r.PathPrefix("/v1/documents").Subrouter()
	v1.HandleFunc("", rt.uploadDocument).Methods(http.MethodPost)
	v1.HandleFunc("", rt.listDocuments).Methods(http.MethodGet)
	v1.HandleFunc("/{id}", rt.getDocument).Methods(http.MethodGet)
	v1.HandleFunc("/{id}", rt.updateDocument).Methods(http.MethodPatch)
	v1.HandleFunc("/{id}", rt.deleteDocument).Methods(http.MethodDelete)
	v1.HandleFunc("/{id}/chunks", rt.getChunks).Methods(http.MethodGet)
	v1.HandleFunc("/{id}/context", rt.selectContext).Methods(http.MethodPost)
	v1.HandleFunc("/{id}/chat", rt.chat).Methods(http.MethodPost)
	v1.HandleFunc("/{id}/chat", rt.chatHistory).Methods(http.MethodGet)
	v1.HandleFunc("/{id}/chat", rt.deleteChatHistory).Methods(http.MethodDelete)
	v1.HandleFunc("/{id}/explain", rt.explain).Methods(http.MethodPost)
	v1.HandleFunc("/{id}/summary", rt.summarize).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})

	var handler http.Handler = r
	handler = openAPIValidationMiddleware(validator, handler)
	handler = apiKeyMiddleware(handler, rt.cfg.APIKey)
	handler = backpressureMiddleware(handler, rt.cfg.MaxInFlightRequests, time.Duration(rt.cfg.BackpressureWaitMS)*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler, nil
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	maxBytes := rt.cfg.MaxUploadBytes
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	if maxBytes > 0 && fileHeader.Size > maxBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error": fmt.Sprintf("file exceeds the %d byte upload limit", maxBytes),
		})
		return
	}

	doc, err := rt.ingest.Upload(
		r.Context(),
		r.FormValue("title"),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	var opts domain.ListOptions
	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &opts.Limit); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", query, &opts.Offset); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	page, err := rt.docs.List(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	doc, err := rt.docs.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) updateDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	if !decodeJSON(w, r, &req, false) {
		return
	}
	doc, err := rt.docs.UpdateTitle(r.Context(), id, req.Title)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	if err := rt.docs.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) getChunks(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	chunks, err := rt.docs.Chunks(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chunks)
}

func (rt *Router) selectContext(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	var req struct {
		Query string `json:"query"`
	}
	if !decodeJSON(w, r, &req, true) {
		return
	}
	selection, err := rt.study.SelectContext(r.Context(), id, req.Query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt.recordSelection("context", selection.Strategy, len(selection.Sources))
	writeJSON(w, http.StatusOK, selection)
}

func (rt *Router) chat(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	var req struct {
		Question string `json:"question"`
	}
	if !decodeJSON(w, r, &req, false) {
		return
	}

	start := time.Now()
	answer, err := rt.study.Chat(r.Context(), id, req.Question)
	rt.observeGeneration("chat", start, err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt.recordSelection("chat", answer.Strategy, len(answer.Sources))
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) chatHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	messages, err := rt.study.ChatHistory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": id,
		"messages":    messages,
	})
}

func (rt *Router) deleteChatHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	if err := rt.study.DeleteChatHistory(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) explain(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	var req struct {
		Concept string `json:"concept"`
	}
	if !decodeJSON(w, r, &req, false) {
		return
	}

	start := time.Now()
	explanation, err := rt.study.ExplainConcept(r.Context(), id, req.Concept)
	rt.observeGeneration("explain", start, err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt.recordSelection("explain", explanation.Strategy, len(explanation.Sources))
	writeJSON(w, http.StatusOK, explanation)
}

func (rt *Router) summarize(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	var req struct {
		Language string `json:"language"`
	}
	if !decodeJSON(w, r, &req, true) {
		return
	}
	if req.Language == "" {
		req.Language = rt.cfg.SummaryLanguage
	}

	start := time.Now()
	summary, err := rt.study.Summarize(r.Context(), id, req.Language)
	rt.observeGeneration("summary", start, err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (rt *Router) recordSelection(operation string, strategy domain.SelectionStrategy, selected int) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordSelection(serviceName, operation, string(strategy), selected)
}

func (rt *Router) observeGeneration(operation string, start time.Time, err error) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.ObserveGeneration(serviceName, operation, time.Since(start), err)
}

// documentID binds the {id} path segment the same way generated servers do.
func documentID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", mux.Vars(r)["id"], &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil || strings.TrimSpace(id) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return "", false
	}
	return id, true
}

// decodeJSON reads a JSON body into dst. An empty body is accepted only when
// optional is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
	return false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
