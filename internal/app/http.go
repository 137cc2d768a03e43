package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dealdesk/api/internal/auth"
	"dealdesk/api/internal/search"
	"dealdesk/api/internal/store"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		if syncedAt, err := s.service.LastTaskSync(ctx); err == nil && !syncedAt.IsZero() {
			checks["taskCache"] = map[string]any{
				"status":       "ok",
				"lastSyncedAt": syncedAt.UTC().Format(time.RFC3339),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/login" {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.Login(r.Context(), body.Email, body.Password)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token":     session.Token,
			"userId":    session.UserID,
			"email":     session.Email,
			"userName":  session.UserName,
			"role":      session.Role,
			"expiresAt": session.ExpiresAt.UTC().Format(time.RFC3339),
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		session, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"userId":        session.UserID,
			"email":         session.Email,
			"userName":      session.UserName,
			"role":          session.Role,
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/logout" {
		// Tokens are stateless; the client discards its copy.
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/internal/sync/external-tasks" {
		syncToken := strings.TrimSpace(r.Header.Get("x-dealdesk-sync-token"))
		if syncToken == "" || syncToken != s.service.SyncToken() {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return
		}
		payload, err := s.service.SyncExternalTasks(r.Context())
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if _, ok := s.requireSession(w, r); !ok {
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		query := r.URL.Query()
		page := 1
		if raw := strings.TrimSpace(query.Get("page")); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "page must be an integer", nil)
				return
			}
			page = parsed
		}
		limit := search.DefaultLimit
		if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
				return
			}
			limit = parsed
		}

		payload, err := s.service.Search(r.Context(), search.Query{
			Text:  strings.TrimSpace(query.Get("q")),
			Scope: strings.TrimSpace(query.Get("scope")),
			Filters: search.Filters{
				IncludeArchived:   queryBool(query.Get("includeArchived")),
				IncludeHistorical: queryBool(query.Get("includeHistorical")),
				Status:            strings.TrimSpace(query.Get("status")),
			},
			Page:  page,
			Limit: limit,
		})
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/contracts" {
		limit, offset, ok := listWindow(w, r)
		if !ok {
			return
		}
		items, err := s.service.ListContracts(r.Context(), limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list contracts", nil)
			return
		}
		payload := make([]map[string]any, 0, len(items))
		for _, item := range items {
			payload = append(payload, contractJSON(item))
		}
		writeJSON(w, http.StatusOK, map[string]any{"contracts": payload})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/contracts" {
		var body CreateContractInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		contract, err := s.service.CreateContract(r.Context(), body)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, contractJSON(contract))
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/documents" {
		limit, offset, ok := listWindow(w, r)
		if !ok {
			return
		}
		items, err := s.service.ListDocuments(r.Context(), limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list documents", nil)
			return
		}
		payload := make([]map[string]any, 0, len(items))
		for _, item := range items {
			payload = append(payload, documentJSON(item))
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": payload})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/tasks" {
		limit, offset, ok := listWindow(w, r)
		if !ok {
			return
		}
		items, err := s.service.ListTasks(r.Context(), limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list tasks", nil)
			return
		}
		payload := make([]map[string]any, 0, len(items))
		for _, item := range items {
			payload = append(payload, taskJSON(item))
		}
		writeJSON(w, http.StatusOK, map[string]any{"tasks": payload})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/tasks" {
		var body CreateTaskInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		task, err := s.service.CreateTask(r.Context(), body)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, taskJSON(task))
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/work-orders" {
		limit, offset, ok := listWindow(w, r)
		if !ok {
			return
		}
		items, err := s.service.ListWorkOrders(r.Context(), limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list work orders", nil)
			return
		}
		payload := make([]map[string]any, 0, len(items))
		for _, item := range items {
			payload = append(payload, workOrderJSON(item))
		}
		writeJSON(w, http.StatusOK, map[string]any{"workOrders": payload})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/sales-orders" {
		limit, offset, ok := listWindow(w, r)
		if !ok {
			return
		}
		items, err := s.service.ListSalesOrders(r.Context(), limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list sales orders", nil)
			return
		}
		payload := make([]map[string]any, 0, len(items))
		for _, item := range items {
			payload = append(payload, salesOrderJSON(item))
		}
		writeJSON(w, http.StatusOK, map[string]any{"salesOrders": payload})
		return
	}

	parts := splitPath(r.URL.Path)

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "contracts" {
		contractID := parts[2]
		switch r.Method {
		case http.MethodGet:
			contract, err := s.service.GetContract(r.Context(), contractID)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, contractJSON(contract))
		case http.MethodPatch:
			var body UpdateContractInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			contract, err := s.service.UpdateContract(r.Context(), contractID, body)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, contractJSON(contract))
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(parts) == 4 && parts[0] == "api" && parts[1] == "contracts" && parts[3] == "export" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		format := strings.TrimSpace(r.URL.Query().Get("format"))
		if format == "" {
			format = "pdf"
		}
		result, err := s.service.ExportContract(r.Context(), parts[2], format)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		w.Header().Set("Content-Type", result.MimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Data)
		return
	}

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "documents" && r.Method == http.MethodGet {
		document, err := s.service.GetDocument(r.Context(), parts[2])
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, documentJSON(document))
		return
	}

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "tasks" && r.Method == http.MethodGet {
		task, err := s.service.GetTask(r.Context(), parts[2])
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, taskJSON(task))
		return
	}

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "work-orders" && r.Method == http.MethodGet {
		workOrder, err := s.service.GetWorkOrder(r.Context(), parts[2])
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, workOrderJSON(workOrder))
		return
	}

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "sales-orders" && r.Method == http.MethodGet {
		salesOrder, err := s.service.GetSalesOrder(r.Context(), parts[2])
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, salesOrderJSON(salesOrder))
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return Session{}, false
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func queryBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1":
		return true
	}
	return false
}

func listWindow(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	limit = 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
			return 0, 0, false
		}
		limit = parsed
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 200 {
		limit = 200
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "offset must be an integer", nil)
			return 0, 0, false
		}
		offset = parsed
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset, true
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

func contractJSON(c store.Contract) map[string]any {
	return map[string]any{
		"id":              c.ID,
		"name":            c.Name,
		"accountName":     c.AccountName,
		"opportunityName": c.OpportunityName,
		"salesRep":        c.SalesRep,
		"status":          c.Status,
		"contractValue":   c.ContractValue,
		"effectiveDate":   c.EffectiveDate.Format("2006-01-02"),
		"isClosed":        c.IsClosed,
		"createdAt":       c.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt":       c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func documentJSON(d store.Document) map[string]any {
	return map[string]any{
		"id":              d.ID,
		"fileName":        d.FileName,
		"accountName":     d.AccountName,
		"opportunityName": d.OpportunityName,
		"notes":           d.Notes,
		"contractId":      d.ContractID,
		"createdAt":       d.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt":       d.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func taskJSON(t store.Task) map[string]any {
	payload := map[string]any{
		"id":          t.ID,
		"title":       t.Title,
		"description": t.Description,
		"assignee":    t.Assignee,
		"status":      t.Status,
		"dueDate":     nil,
		"createdAt":   t.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt":   t.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if t.DueDate != nil {
		payload["dueDate"] = t.DueDate.Format("2006-01-02")
	}
	return payload
}

func workOrderJSON(o store.WorkOrder) map[string]any {
	return map[string]any{
		"id":           o.ID,
		"number":       o.Number,
		"customerName": o.CustomerName,
		"description":  o.Description,
		"status":       o.Status,
		"createdAt":    o.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt":    o.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func salesOrderJSON(o store.SalesOrder) map[string]any {
	return map[string]any{
		"id":          o.ID,
		"number":      o.Number,
		"accountName": o.AccountName,
		"description": o.Description,
		"totalAmount": o.TotalAmount,
		"status":      o.Status,
		"createdAt":   o.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt":   o.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
