package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ayusman/signbridge/internal/app"
	"github.com/ayusman/signbridge/internal/logging"
	"github.com/ayusman/signbridge/internal/store"
)

var validate = validator.New()

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// handleHealth handles GET requests to / and /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "healthy",
		Service: app.ServiceName,
		Version: app.Version,
		Uptime:  time.Since(s.start).Round(time.Second).String(),
	})
}

// handleRecognize accepts a multipart upload in the "file" field.
func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No frame data provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read upload: "+err.Error())
		return
	}

	// FormValue covers both the query string and the form body
	sessionID := r.FormValue("session_id")

	res, err := s.config.App.Recognize(r.Context(), sessionID, data)
	if err != nil {
		s.writeRecognizeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type base64Request struct {
	Frame     string `json:"frame"`
	SessionID string `json:"session_id"`
}

// handleRecognizeBase64 accepts a JSON body carrying a base64 frame.
func (s *Server) handleRecognizeBase64(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req base64Request
	if !decodeBody(w, r, s.config.MaxUploadBytes, &req) {
		return
	}
	if req.SessionID == "" {
		req.SessionID = r.URL.Query().Get("session_id")
	}

	res, err := s.config.App.RecognizeBase64(r.Context(), req.SessionID, req.Frame)
	if err != nil {
		s.writeRecognizeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type clearSessionRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req clearSessionRequest
	if r.ContentLength != 0 {
		if !decodeBody(w, r, s.config.MaxUploadBytes, &req) {
			return
		}
	}
	sessionID := app.SessionOrDefault(req.SessionID)

	if err := s.config.App.ClearSession(r.Context(), sessionID); err != nil {
		logging.FromContext(r.Context()).WithError(err).Error("server: failed to clear session")
		writeError(w, http.StatusInternalServerError, "Error clearing session: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s cleared", sessionID),
	})
}

type createSessionResponse struct {
	Success      bool      `json:"success"`
	SessionID    string    `json:"session_id"`
	SessionToken string    `json:"session_token"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	sess, err := s.config.Store.Sessions().Create()
	if err != nil {
		logging.FromContext(r.Context()).WithError(err).Error("server: failed to create session")
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	writeJSON(w, http.StatusOK, createSessionResponse{
		Success:      true,
		SessionID:    sess.ID,
		SessionToken: sess.Token,
		CreatedAt:    sess.StartedAt,
	})
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	stats, err := s.config.Store.Sessions().Stats(r.PathValue("id"))
	if err != nil {
		logging.FromContext(r.Context()).WithError(err).Error("server: failed to load session stats")
		writeError(w, http.StatusInternalServerError, "Failed to load session stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type translationRequest struct {
	SessionID      string `json:"session_id"`
	OriginalText   string `json:"original_text" validate:"required"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language" validate:"required"`
	TranslatedText string `json:"translated_text" validate:"required"`
}

type createTranslationResponse struct {
	Success   bool      `json:"success"`
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleCreateTranslation(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req translationRequest
	if !decodeBody(w, r, s.config.MaxUploadBytes, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required fields: "+missingFields(err))
		return
	}

	t := &store.Translation{
		SessionID:      req.SessionID,
		OriginalText:   req.OriginalText,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		TranslatedText: req.TranslatedText,
	}
	if err := s.config.Store.Translations().Create(t); err != nil {
		logging.FromContext(r.Context()).WithError(err).Error("server: failed to log translation")
		writeError(w, http.StatusInternalServerError, "Failed to log translation")
		return
	}
	writeJSON(w, http.StatusOK, createTranslationResponse{Success: true, ID: t.ID, CreatedAt: t.CreatedAt})
}

// decodeBody reads a JSON body into v and writes a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	body := http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// missingFields lists the JSON names of the fields that failed validation.
func missingFields(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	names := ""
	for i, fe := range verrs {
		if i > 0 {
			names += ", "
		}
		names += jsonName(fe.Field())
	}
	return names
}

var jsonNames = map[string]string{
	"OriginalText":   "original_text",
	"TargetLanguage": "target_language",
	"TranslatedText": "translated_text",
}

func jsonName(field string) string {
	if n, ok := jsonNames[field]; ok {
		return n
	}
	return field
}

// writeRecognizeError maps pipeline errors onto HTTP status codes.
func (s *Server) writeRecognizeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := recognizeError(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).WithError(err).Error("server: recognition failed")
	}
	writeError(w, status, detail)
}

func recognizeError(err error) (int, string) {
	switch {
	case errors.Is(err, app.ErrMissingInput):
		return http.StatusBadRequest, "No frame data provided"
	case errors.Is(err, app.ErrInvalidImage):
		return http.StatusBadRequest, "Invalid image format"
	default:
		return http.StatusInternalServerError, "Error processing image: " + err.Error()
	}
}
