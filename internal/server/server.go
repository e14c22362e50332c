package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"jobportal/internal/app"
	"jobportal/internal/store"
	"jobportal/internal/util"
	"jobportal/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	MaxUploadBytes int64
	MaxFiles       int
}

// Server exposes the portal's HTTP endpoints.
type Server struct {
	app            *app.App
	mux            *http.ServeMux
	maxUploadBytes int64
	maxFiles       int
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app is required")
	}
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 50 * 1024 * 1024
	}
	maxFiles := cfg.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 20
	}
	s := &Server{
		app:            cfg.App,
		mux:            http.NewServeMux(),
		maxUploadBytes: maxUploadBytes,
		maxFiles:       maxFiles,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with middleware applied.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithCORS(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/jobs", s.handleJobs)
	s.mux.HandleFunc("/jobs/", s.handleJobByID)
	s.mux.HandleFunc("/files/", s.handleFileByID)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListJobs(w, r)
	case http.MethodPost:
		s.handleSubmitJob(w, r)
	default:
		methodNotAllowed(w, r)
	}
}

// /jobs/{id} or /jobs/{id}/files
func (s *Server) handleJobByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/jobs/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		notFound(w, r, "not found")
		return
	}
	if len(parts) == 2 {
		if parts[1] == "files" && r.Method == http.MethodPost {
			s.handleAddFiles(w, r, id)
			return
		}
		notFound(w, r, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleGetJob(w, r, id)
	case http.MethodPut:
		s.handleUpdateJob(w, r, id)
	case http.MethodDelete:
		s.handleDeleteJob(w, r, id)
	default:
		methodNotAllowed(w, r)
	}
}

// /files/{id}/download or /files/{id}
func (s *Server) handleFileByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/files/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		notFound(w, r, "not found")
		return
	}
	if len(parts) == 2 {
		if parts[1] == "download" && r.Method == http.MethodGet {
			s.handleDownload(w, r, id)
			return
		}
		notFound(w, r, "not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r)
		return
	}
	if err := s.app.DeleteAttachment(r.Context(), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// jobResponse is a job with its attachment list, the detail/creation shape.
type jobResponse struct {
	domain.Job
	Files []domain.Attachment `json:"files"`
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	files, cleanup, err := s.parseUpload(w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid form data")
		return
	}
	defer cleanup()

	job, atts, err := s.app.SubmitJob(r.Context(), app.SubmitJobInput{
		Title:        r.FormValue("title"),
		CustomerName: r.FormValue("customerName"),
		EmailBody:    r.FormValue("emailBody"),
		Origin:       originFromRequest(r),
		Files:        files,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, jobResponse{Job: job, Files: emptyIfNil(atts)})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.app.ListJobs(store.JobFilter{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("search"),
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request, id string) {
	job, atts, err := s.app.GetJob(id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobResponse{Job: job, Files: emptyIfNil(atts)})
}

func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Status *string `json:"status"`
		Notes  *string `json:"notes"`
		Title  *string `json:"title"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	job, err := s.app.UpdateJob(id, app.JobUpdate{
		Status: req.Status,
		Notes:  req.Notes,
		Title:  req.Title,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.app.DeleteJob(r.Context(), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleAddFiles(w http.ResponseWriter, r *http.Request, jobID string) {
	files, cleanup, err := s.parseUpload(w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid form data")
		return
	}
	defer cleanup()

	atts, err := s.app.AddFiles(r.Context(), jobID, files)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, emptyIfNil(atts))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request, id string) {
	att, rc, err := s.app.OpenAttachment(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	defer rc.Close()

	contentType := att.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": att.OriginalName}))
	if _, err := io.Copy(w, rc); err != nil {
		util.LoggerFromContext(r.Context()).Error("download stream failed",
			"attachment_id", id, "err", err)
	}
}

// parseUpload reads the multipart body into raw file payloads. The caller
// must invoke cleanup after the app is done with the readers.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) ([]app.RawFile, func(), error) {
	// Overall request cap; per-file and per-count limits are enforced by
	// the orchestrator before anything is persisted.
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes*int64(s.maxFiles)+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, nil, err
	}
	var files []app.RawFile
	var closers []io.Closer
	cleanup := func() {
		for _, c := range closers {
			_ = c.Close()
		}
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}
	if r.MultipartForm == nil {
		return files, cleanup, nil
	}
	for _, fh := range r.MultipartForm.File["files"] {
		f, err := fh.Open()
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, f)
		files = append(files, app.RawFile{
			Name:        fh.Filename,
			ContentType: uploadContentType(fh.Header.Get("Content-Type"), fh.Filename),
			Size:        fh.Size,
			Data:        f,
		})
	}
	return files, cleanup, nil
}

func uploadContentType(declared, filename string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}

// originFromRequest derives the portal origin for notification links from
// the Origin header, falling back to Referer without its trailing slash.
func originFromRequest(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin
	}
	return strings.TrimSuffix(r.Header.Get("Referer"), "/")
}

func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *app.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, r, http.StatusBadRequest, vErr.Msg)
	case errors.Is(err, app.ErrJobNotFound):
		writeError(w, r, http.StatusNotFound, "Job not found")
	case errors.Is(err, app.ErrAttachmentNotFound):
		writeError(w, r, http.StatusNotFound, "File not found")
	case errors.Is(err, app.ErrTooManyFiles):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrFileTooLarge):
		writeError(w, r, http.StatusRequestEntityTooLarge, err.Error())
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "err", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, r *http.Request, msg string) {
	writeError(w, r, http.StatusNotFound, msg)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: util.RequestIDFromRequest(r)})
}

func emptyIfNil(atts []domain.Attachment) []domain.Attachment {
	if atts == nil {
		return []domain.Attachment{}
	}
	return atts
}
