package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"caseflow/internal/core/domain"
	"caseflow/internal/core/ports"
	"caseflow/internal/observability/metrics"
)

const serviceName = "caseflow-api"

type Config struct {
	RateLimitRPS   float64
	RateLimitBurst int
}

type Router struct {
	engine    ports.WorkflowEngine
	checklist ports.ChecklistBuilder
	ocr       ports.OcrSubmitter
	metrics   *metrics.HTTPServerMetrics
	cfg       Config
}

func NewRouter(
	engine ports.WorkflowEngine,
	checklist ports.ChecklistBuilder,
	ocr ports.OcrSubmitter,
	m *metrics.HTTPServerMetrics,
	cfg Config,
) *Router {
	return &Router{
		engine:    engine,
		checklist: checklist,
		ocr:       ocr,
		metrics:   m,
		cfg:       cfg,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)

	mux.HandleFunc("GET /v1/applications/{id}", rt.getApplication)
	mux.HandleFunc("POST /v1/applications/{id}/advance", rt.advance)
	mux.HandleFunc("POST /v1/applications/{id}/rollback", rt.rollback)
	mux.HandleFunc("PATCH /v1/applications/{id}/workflows/{workflowId}/status", rt.updateStatus)
	mux.HandleFunc("PATCH /v1/applications/{id}/workflows/{workflowId}/due-date", rt.updateDueDate)
	mux.HandleFunc("POST /v1/applications/{id}/force-close", rt.forceClose)
	mux.HandleFunc("POST /v1/applications/{id}/reopen", rt.reopen)
	mux.HandleFunc("POST /v1/applications/{id}/doc-date", rt.setDocDate)

	mux.HandleFunc("POST /v1/checklists", rt.buildChecklist)
	mux.HandleFunc("POST /v1/ocr", rt.submitOcr)
	mux.HandleFunc("GET /v1/ocr/sessions/{id}", rt.ocrSession)

	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) getApplication(w http.ResponseWriter, r *http.Request) {
	app, err := rt.engine.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (rt *Router) advance(w http.ResponseWriter, r *http.Request) {
	app, err := rt.engine.Advance(r.Context(), r.PathValue("id"))
	rt.recordTransition("advance", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (rt *Router) rollback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkflowID string `json:"workflowId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.WorkflowID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "workflowId is required"})
		return
	}

	app, err := rt.engine.Rollback(r.Context(), r.PathValue("id"), req.WorkflowID)
	rt.recordTransition("rollback", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (rt *Router) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Status) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	app, err := rt.engine.UpdateStatus(r.Context(), r.PathValue("id"), r.PathValue("workflowId"), domain.WorkflowStatus(req.Status))
	rt.recordTransition("update_status", err)
	if err != nil {
		if rt.metrics != nil && domain.IsKind(err, domain.ErrTransitionBlocked) {
			rt.metrics.RecordGateBlocked(serviceName)
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (rt *Router) updateDueDate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DueDate domain.Date `json:"dueDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DueDate.IsZero() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "dueDate is required as YYYY-MM-DD"})
		return
	}

	app, err := rt.engine.UpdateDueDate(r.Context(), r.PathValue("id"), r.PathValue("workflowId"), req.DueDate)
	rt.recordTransition("update_due_date", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (rt *Router) forceClose(w http.ResponseWriter, r *http.Request) {
	app, err := rt.engine.ForceClose(r.Context(), r.PathValue("id"))
	rt.recordTransition("force_close", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (rt *Router) reopen(w http.ResponseWriter, r *http.Request) {
	app, err := rt.engine.Reopen(r.Context(), r.PathValue("id"))
	rt.recordTransition("reopen", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (rt *Router) setDocDate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocDate domain.Date `json:"docDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DocDate.IsZero() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "docDate is required as YYYY-MM-DD"})
		return
	}

	app, err := rt.engine.SetDocDate(r.Context(), r.PathValue("id"), req.DocDate)
	rt.recordTransition("set_doc_date", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (rt *Router) buildChecklist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID  string `json:"productId"`
		CustomerID string `json:"customerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		strings.TrimSpace(req.ProductID) == "" || strings.TrimSpace(req.CustomerID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "productId and customerId are required"})
		return
	}

	checklist, err := rt.checklist.Build(r.Context(), req.ProductID, req.CustomerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checklist)
}

func (rt *Router) submitOcr(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	req := ports.OcrSubmitRequest{
		DocumentID: r.FormValue("documentId"),
		DocType: domain.DocType{
			ID:          r.FormValue("docTypeId"),
			Name:        r.FormValue("docTypeName"),
			HasOcrCheck: r.FormValue("hasOcrCheck") == "true",
		},
		Filename: fileHeader.Filename,
		File:     file,
		TitleSet: r.FormValue("titleSet") == "true",
	}

	session, err := rt.ocr.Submit(r.Context(), req)
	if rt.metrics != nil {
		rt.metrics.RecordOcrSubmit(serviceName, err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, session)
}

func (rt *Router) ocrSession(w http.ResponseWriter, r *http.Request) {
	session, err := rt.ocr.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (rt *Router) recordTransition(operation string, err error) {
	if rt.metrics != nil {
		rt.metrics.RecordTransition(serviceName, operation, err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
