package http

import (
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"

	"github.com/swaggo/swag"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
	"github.com/custodia-labs/dropbox-connector/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid state"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// ReadyResponse reports each dependency checked by /ready
// @Description Readiness status with per-dependency results
type ReadyResponse struct {
	Status string            `json:"status" example:"ready"`
	Checks map[string]string `json:"checks"`
}

// maxFileNameSize bounds the multipart "text" field holding the file name.
const maxFileNameSize = 4096

// bindingCookie carries the OAuth browser binding from /connect to /auth.
const bindingCookie = "oauth_binding"

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings the account store, lock backend and delivery queue
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{Status: "ready", Checks: make(map[string]string, len(s.checks))}
	status := http.StatusOK

	for _, c := range s.checks {
		if err := c.Pinger.Ping(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", "check", c.Name, "error", err)
			resp.Checks[c.Name] = err.Error()
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[c.Name] = "ok"
	}

	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

func (s *Server) handleSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api documentation not registered")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, doc)
}

// OAuth endpoints

// handleConnect godoc
// @Summary      Start OAuth
// @Description  Redirects the browser to the Dropbox consent page and sets a short-lived cookie binding the state to this browser
// @Tags         OAuth
// @Success      302
// @Router       /connect [get]
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	handoff, err := s.oauthService.Begin(r.Context())
	if err != nil {
		s.logger.Error("oauth begin failed", "error", err)
		renderOAuthError(w, http.StatusInternalServerError, &driving.OAuthError{
			Code:        "server_error",
			Description: "Could not start the connection flow",
		})
		return
	}

	// Lax so the cookie survives the top-level redirect back from the provider.
	http.SetCookie(w, &http.Cookie{
		Name:     bindingCookie,
		Value:    handoff.Binding,
		Path:     "/auth",
		Expires:  handoff.ExpiresAt,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, handoff.AuthURL, http.StatusFound)
}

// handleAuthCallback godoc
// @Summary      OAuth callback
// @Description  Completes the OAuth flow and redirects to the automation platform with the encoded credential pair. Failures render an HTML error page.
// @Tags         OAuth
// @Produce      html
// @Param        code   query  string  false  "Authorization code"
// @Param        state  query  string  true   "Signed state issued by /connect"
// @Param        error  query  string  false  "Provider error"
// @Success      302
// @Failure      400  {string}  string  "Invalid or denied request"
// @Failure      502  {string}  string  "Provider unavailable"
// @Router       /auth [get]
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := driving.CallbackRequest{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}
	if c, err := r.Cookie(bindingCookie); err == nil {
		req.Binding = c.Value
	}
	// The binding is single use whatever the outcome.
	http.SetCookie(w, &http.Cookie{
		Name:     bindingCookie,
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	target, err := s.oauthService.Complete(r.Context(), req)
	if err != nil {
		var oauthErr *driving.OAuthError
		if !errors.As(err, &oauthErr) {
			s.logger.Error("oauth callback failed", "error", err)
			oauthErr = &driving.OAuthError{Code: "server_error", Description: "The connection could not be completed"}
		}
		renderOAuthError(w, oauthStatus(err), oauthErr)
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// oauthStatus maps an OAuth failure to the status of the error page.
func oauthStatus(err error) int {
	var remote *domain.RemoteError
	switch {
	case errors.As(err, &remote), errors.Is(err, driving.ErrOAuthIncompleteGrant):
		return http.StatusBadGateway
	case errors.Is(err, driving.ErrOAuthEncodeFailed):
		return http.StatusInternalServerError
	}

	var oauthErr *driving.OAuthError
	if errors.As(err, &oauthErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

var oauthErrorPage = template.Must(template.New("oauth_error").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Dropbox connection failed</title>
</head>
<body>
<h1>Could not connect your Dropbox account</h1>
<p>{{.Description}}</p>
<p><small>Error code: {{.Code}}</small></p>
<p><a href="/connect">Try again</a></p>
</body>
</html>
`))

func renderOAuthError(w http.ResponseWriter, status int, oauthErr *driving.OAuthError) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = oauthErrorPage.Execute(w, oauthErr)
}

// Automation platform endpoints

// handleRefresh godoc
// @Summary      Refresh access
// @Description  Exchanges an encoded refresh secret for a new encoded access secret
// @Tags         Connector
// @Accept       json
// @Produce      json
// @Param        request  body      driving.RefreshRequest  true  "Encoded refresh secret"
// @Success      200      {object}  driving.RefreshResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body or state"
// @Failure      502      {object}  ErrorResponse  "Provider unavailable"
// @Router       /refresh [post]
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req driving.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.accountService.Refresh(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, "refresh", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleEvents godoc
// @Summary      Register for events
// @Description  Records the account at the provider's latest cursor and lists the events this connector emits
// @Tags         Connector
// @Accept       json
// @Produce      json
// @Param        request  body      driving.RegisterRequest  true  "Account and encoded access secret"
// @Success      200      {object}  domain.CapabilityList
// @Failure      400      {object}  ErrorResponse  "Invalid request body or state"
// @Failure      502      {object}  ErrorResponse  "Provider unavailable"
// @Failure      500      {object}  ErrorResponse  "Store failure"
// @Router       /events [post]
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var req driving.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := s.accountService.Register(r.Context(), req); err != nil {
		s.writeServiceError(w, r, "register", err)
		return
	}

	writeJSON(w, http.StatusOK, domain.EventCapabilities())
}

// handleActions godoc
// @Summary      List actions
// @Description  Lists the actions this connector performs
// @Tags         Connector
// @Produce      json
// @Success      200  {object}  domain.CapabilityList
// @Router       /actions [post]
func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.ActionCapabilities())
}

// handleUpload godoc
// @Summary      Upload a file
// @Description  Uploads the multipart file to the root of the connected account
// @Tags         Connector
// @Accept       multipart/form-data
// @Produce      json
// @Param        file   formData  file    true  "File content"
// @Param        text   formData  string  true  "File name"
// @Param        state  formData  string  true  "Encoded access secret"
// @Success      200    {object}  StatusResponse
// @Failure      400    {object}  ErrorResponse  "Missing field or invalid state"
// @Failure      413    {object}  ErrorResponse  "File too large"
// @Failure      502    {object}  ErrorResponse  "Provider unavailable"
// @Router       /post [put]
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.maxUploadSize {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)

	// Parts past the memory threshold spill to temporary files
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("file")
	if err != nil || header.Size == 0 {
		writeError(w, http.StatusBadRequest, "invalid file")
		return
	}
	defer file.Close()

	name := r.FormValue("text")
	if name == "" || len(name) > maxFileNameSize {
		writeError(w, http.StatusBadRequest, "missing file name")
		return
	}

	state := r.FormValue("state")
	if state == "" {
		writeError(w, http.StatusBadRequest, "missing state")
		return
	}

	err = s.accountService.Upload(r.Context(), driving.UploadRequest{
		State:    state,
		FileName: name,
		Content:  file,
	})
	if err != nil {
		s.writeServiceError(w, r, "upload", err)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// Webhook endpoints

// handleWebhookChallenge godoc
// @Summary      Webhook verification
// @Description  Echoes the challenge so the provider can verify the endpoint
// @Tags         Webhook
// @Produce      plain
// @Param        challenge  query  string  true  "Challenge to echo"
// @Success      200  {string}  string
// @Failure      400  {object}  ErrorResponse
// @Router       /webhook [get]
func (s *Server) handleWebhookChallenge(w http.ResponseWriter, r *http.Request) {
	challenge := r.URL.Query().Get("challenge")
	if challenge == "" {
		writeError(w, http.StatusBadRequest, "missing challenge")
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, challenge)
}

// handleWebhook godoc
// @Summary      Change notification
// @Description  Syncs every listed account and emits one event per new file. A failed account answers 500 so the provider redelivers. With a delivery queue configured the notification is queued and acknowledged immediately.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        X-Dropbox-Signature  header  string                       false  "HMAC-SHA256 of the body"
// @Param        request              body    driving.WebhookNotification  true   "Changed accounts"
// @Success      200  {object}  domain.DeliveryResult
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse  "Invalid signature"
// @Failure      500  {object}  ErrorResponse  "At least one account failed"
// @Failure      503  {object}  ErrorResponse  "Delivery queue full"
// @Router       /webhook [post]
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var notification driving.WebhookNotification
	if err := json.NewDecoder(r.Body).Decode(&notification); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	accounts := notification.ListFolder.Accounts
	if len(accounts) == 0 {
		writeJSON(w, http.StatusOK, &domain.DeliveryResult{Accounts: []domain.AccountSyncResult{}})
		return
	}

	if s.deliveryQueue != nil {
		s.enqueueDelivery(w, r, accounts)
		return
	}

	result, err := s.syncEngine.HandleDelivery(r.Context(), accounts)
	if err != nil {
		s.logger.Error("webhook delivery failed",
			"accounts", len(accounts),
			"failed", result.Count(domain.AccountFailed),
			"request_id", GetRequestID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "delivery failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) enqueueDelivery(w http.ResponseWriter, r *http.Request, accounts []string) {
	delivery := domain.NewDelivery(accounts)

	if err := s.deliveryQueue.Enqueue(r.Context(), delivery); err != nil {
		s.logger.Error("failed to enqueue delivery",
			"accounts", len(accounts),
			"request_id", GetRequestID(r.Context()),
			"error", err,
		)
		if errors.Is(err, domain.ErrQueueFull) {
			writeError(w, http.StatusServiceUnavailable, "delivery queue full")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to queue delivery")
		return
	}

	s.logger.Debug("delivery queued", "delivery_id", delivery.ID, "accounts", len(accounts))
	writeJSON(w, http.StatusOK, StatusResponse{Status: "queued"})
}

// Helper functions

// writeServiceError logs err and maps it to a status and client-safe message.
// Every decode failure gets the same message.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var remote *domain.RemoteError
	status, message := http.StatusInternalServerError, "internal server error"

	switch {
	case errors.Is(err, domain.ErrDecode):
		status, message = http.StatusBadRequest, "invalid state"
	case errors.Is(err, domain.ErrInvalidInput):
		status, message = http.StatusBadRequest, err.Error()
	case errors.As(err, &remote):
		status, message = http.StatusBadGateway, "upstream "+remote.Op+" failed"
	case errors.Is(err, domain.ErrLockTimeout):
		message = "account busy"
	}

	logger := s.logger.With("op", op, "status", status, "request_id", GetRequestID(r.Context()))
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	} else {
		logger.Warn("request rejected", "error", err)
	}

	writeError(w, status, message)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
