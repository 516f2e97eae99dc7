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

	"github.com/stvreumi/CAMPUSbackend-sub000/internal/auth"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/authpw"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/category"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/page"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/search"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/store"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/vote"
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
			checks["database"] = map[string]any{"status": "error", "error": err.Error()}
		}
		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	// Auth routes (no session required)
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signup" {
		s.handleSignUp(w, r)
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signin" {
		s.handleSignIn(w, r)
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
			"userName":      session.UserName,
			"userId":        session.UserID,
			"role":          session.Role,
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/refresh" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.Refresh(r.Context(), body.RefreshToken)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
			return
		}
		writeJSON(w, http.StatusOK, sessionPayload(session))
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/logout" {
		session := Session{}
		if token := bearerToken(r); token != "" {
			if parsed, err := s.service.SessionFromToken(r.Context(), token); err == nil {
				session = parsed
			}
		}
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = decodeBody(r, &body)
		_ = s.service.Logout(r.Context(), session, body.RefreshToken)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		s.handleSearch(w, r)
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch parts[1] {
	case "tags":
		s.handleTags(w, r, parts[2:])
		return
	case "statuses":
		// POST casts a vote, GET reads the caller's standing
		if len(parts) == 4 && parts[3] == "vote" {
			switch r.Method {
			case http.MethodPost:
				s.handleVote(w, r, parts[2])
				return
			case http.MethodGet:
				s.handleVoteState(w, r, parts[2])
				return
			}
		}
	case "users":
		// GET /api/users/me/tags
		if r.Method == http.MethodGet && len(parts) == 4 && parts[2] == "me" && parts[3] == "tags" {
			s.handleUserTags(w, r)
			return
		}
	case "admin":
		s.handleAdmin(w, r, parts[2:])
		return
	case "media":
		s.handleMedia(w, r, parts[2:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleTags(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		filter := store.TagFilter{
			MissionType:     strings.TrimSpace(r.URL.Query().Get("missionType")),
			IncludeArchived: r.URL.Query().Get("includeArchived") == "true",
		}
		if filter.MissionType != "" {
			if _, err := category.Parse(filter.MissionType); err != nil {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown missionType", nil)
				return
			}
		}
		result, err := s.service.ListTags(r.Context(), filter, pageParams(r))
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	case len(rest) == 0 && r.Method == http.MethodPost:
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var input TagInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		tag, err := s.service.CreateTag(r.Context(), session, input)
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, tag)

	case len(rest) == 1 && rest[0] == "nearby" && r.Method == http.MethodGet:
		lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
		lng, lngErr := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
		if latErr != nil || lngErr != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "lat and lng are required", nil)
			return
		}
		result, err := s.service.NearbyTags(r.Context(), lat, lng, pageParams(r))
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	case len(rest) == 1 && r.Method == http.MethodGet:
		detail, err := s.service.GetTag(r.Context(), rest[0])
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)

	case len(rest) == 1 && r.Method == http.MethodPut:
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var input TagInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		tag, err := s.service.UpdateTag(r.Context(), session, rest[0], input)
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tag)

	case len(rest) == 1 && r.Method == http.MethodDelete:
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		if err := s.service.DeleteTag(r.Context(), session, rest[0]); err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(rest) == 2 && rest[1] == "statuses" && r.Method == http.MethodGet:
		result, err := s.service.ListTagStatuses(r.Context(), rest[0], pageParams(r))
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	case len(rest) == 2 && rest[1] == "statuses" && r.Method == http.MethodPost:
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var input StatusInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		status, err := s.service.AddStatus(r.Context(), session, rest[0], input)
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, status)

	case len(rest) == 2 && rest[1] == "view" && r.Method == http.MethodPost:
		count, err := s.service.RecordView(r.Context(), rest[0])
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"viewCount": count})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleVote(w http.ResponseWriter, r *http.Request, statusID string) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	var body struct {
		Action string `json:"action"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	resp, err := s.service.CastVote(r.Context(), session, statusID, body.Action)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleVoteState(w http.ResponseWriter, r *http.Request, statusID string) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	resp, err := s.service.VoteState(r.Context(), session, statusID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleUserTags(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	result, err := s.service.ListUserTags(r.Context(), session, pageParams(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleAdmin(w http.ResponseWriter, r *http.Request, rest []string) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	switch {
	case len(rest) == 1 && rest[0] == "tags" && r.Method == http.MethodGet:
		result, err := s.service.AdminListTags(r.Context(), session, pageParams(r))
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	case len(rest) == 1 && rest[0] == "threshold" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"archivedThreshold": s.service.Threshold()})

	case len(rest) == 1 && rest[0] == "threshold" && r.Method == http.MethodPut:
		var body struct {
			ArchivedThreshold int `json:"archivedThreshold"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.SetThreshold(r.Context(), session, body.ArchivedThreshold); err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"archivedThreshold": s.service.Threshold()})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleMedia(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 1 && rest[0] == "upload-url" && r.Method == http.MethodPost:
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var body struct {
			TagID    string `json:"tagId"`
			FileName string `json:"fileName"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if strings.TrimSpace(body.TagID) == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "tagId is required", nil)
			return
		}
		objectKey, uploadURL, err := s.service.MediaUploadURL(r.Context(), session, body.TagID, body.FileName)
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"objectKey": objectKey, "uploadUrl": uploadURL})

	case len(rest) == 1 && rest[0] == "download-url" && r.Method == http.MethodGet:
		objectKey := r.URL.Query().Get("key")
		if objectKey == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "key is required", nil)
			return
		}
		downloadURL, err := s.service.MediaDownloadURL(r.Context(), objectKey)
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"downloadUrl": downloadURL})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))
	response := s.service.Search(search.Query{
		Text:            strings.TrimSpace(query.Get("q")),
		MissionType:     strings.TrimSpace(query.Get("missionType")),
		IncludeArchived: query.Get("includeArchived") == "true",
		Limit:           limit,
		Offset:          offset,
	})
	writeJSON(w, http.StatusOK, response)
}

func (s *HTTPServer) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	session, err := s.service.SignUp(r.Context(), authpw.SignUpRequest{
		Email:       body.Email,
		Password:    body.Password,
		DisplayName: body.DisplayName,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionPayload(session))
}

func (s *HTTPServer) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	session, err := s.service.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(session))
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) respondError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	writeError(w, status, code, message, details)
}

func sessionPayload(session Session) map[string]any {
	return map[string]any{
		"token":        session.Token,
		"refreshToken": session.RefreshToken,
		"userName":     session.UserName,
		"userId":       session.UserID,
		"role":         session.Role,
	}
}

func pageParams(r *http.Request) page.Params {
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	return page.Params{
		PageSize: pageSize,
		Cursor:   r.URL.Query().Get("cursor"),
	}
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
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
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

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, vote.ErrNotVotable):
		return http.StatusBadRequest, "NOT_VOTABLE", "Status cannot be voted on", nil
	case errors.Is(err, vote.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_VOTE", "Vote already in the requested state", nil
	case errors.Is(err, vote.ErrUnknownAction):
		return http.StatusBadRequest, "UNKNOWN_ACTION", "Action must be UPVOTE or CANCEL_UPVOTE", nil
	case errors.Is(err, store.ErrConflict):
		return http.StatusServiceUnavailable, "CONFLICT", "Concurrent update, retry the request", nil
	case errors.Is(err, category.ErrUnknownMission):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown missionType", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
