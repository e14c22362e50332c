package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"jobportal/internal/app"
	"jobportal/internal/notify"
	"jobportal/internal/storage"
	"jobportal/internal/store"
	"jobportal/pkg/domain"
)

func newTestServer(t *testing.T) (http.Handler, *app.App) {
	t.Helper()
	blobs, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	appCore, err := app.New(app.Config{
		Store:    store.NewMemoryStore(),
		Blobs:    blobs,
		Notifier: notify.New(),
		BaseURL:  "http://localhost:3003",
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv, err := New(Config{App: appCore})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv.Router(), appCore
}

type multipartFile struct {
	name string
	data []byte
}

func multipartBody(t *testing.T, fields map[string]string, files []multipartFile) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func submitJob(t *testing.T, h http.Handler, files []multipartFile) jobPayload {
	t.Helper()
	body, contentType := multipartBody(t, map[string]string{
		"title":        "Spring Mailer",
		"customerName": "Acme",
		"emailBody":    "5000 copies, trifold",
	}, files)
	req := httptest.NewRequest(http.MethodPost, "/jobs", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /jobs status = %d, body: %s", rec.Code, rec.Body.String())
	}
	var job jobPayload
	decode(t, rec, &job)
	return job
}

type jobPayload struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	CustomerName string              `json:"customerName"`
	Status       string              `json:"status"`
	Notes        string              `json:"notes"`
	FileCount    int                 `json:"fileCount"`
	Files        []domain.Attachment `json:"files"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func do(h http.Handler, method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _ := newTestServer(t)
	rec := do(h, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestSubmitAndGetJob(t *testing.T) {
	h, appCore := newTestServer(t)
	job := submitJob(t, h, []multipartFile{
		{name: "brochure.pdf", data: []byte("%PDF-fake")},
		{name: "logo.png", data: []byte("png bytes")},
	})
	appCore.Wait()

	if job.Status != "new" {
		t.Fatalf("status = %q, want new", job.Status)
	}
	if job.FileCount != 2 || len(job.Files) != 2 {
		t.Fatalf("fileCount = %d, files = %d, want 2 each", job.FileCount, len(job.Files))
	}

	rec := do(h, http.MethodGet, "/jobs/"+job.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /jobs/{id} status = %d", rec.Code)
	}
	var got jobPayload
	decode(t, rec, &got)
	if got.ID != job.ID || len(got.Files) != 2 {
		t.Fatalf("detail = %+v, want job %s with 2 files", got, job.ID)
	}
}

func TestSubmitJobMissingFields(t *testing.T) {
	h, _ := newTestServer(t)
	body, contentType := multipartBody(t, map[string]string{"title": "only title"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/jobs", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp errorResponse
	decode(t, rec, &resp)
	if !strings.Contains(resp.Error, "required") {
		t.Fatalf("error = %q, want mention of required fields", resp.Error)
	}
}

func TestListJobsFilters(t *testing.T) {
	h, appCore := newTestServer(t)

	post := func(title string) {
		body, contentType := multipartBody(t, map[string]string{
			"title":        title,
			"customerName": "Acme",
			"emailBody":    "body",
		}, nil)
		req := httptest.NewRequest(http.MethodPost, "/jobs", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("POST /jobs status = %d", rec.Code)
		}
	}
	post("Spring Mailer")
	post("Fall Catalog")
	appCore.Wait()

	var jobs []jobPayload
	rec := do(h, http.MethodGet, "/jobs", nil)
	decode(t, rec, &jobs)
	if len(jobs) != 2 {
		t.Fatalf("GET /jobs returned %d jobs, want 2", len(jobs))
	}

	rec = do(h, http.MethodGet, "/jobs?search=catalog", nil)
	jobs = nil
	decode(t, rec, &jobs)
	if len(jobs) != 1 || jobs[0].Title != "Fall Catalog" {
		t.Fatalf("search=catalog returned %+v, want only Fall Catalog", jobs)
	}

	rec = do(h, http.MethodGet, "/jobs?status=complete", nil)
	jobs = nil
	decode(t, rec, &jobs)
	if len(jobs) != 0 {
		t.Fatalf("status=complete returned %d jobs, want 0", len(jobs))
	}

	rec = do(h, http.MethodGet, "/jobs?status=all", nil)
	jobs = nil
	decode(t, rec, &jobs)
	if len(jobs) != 2 {
		t.Fatalf("status=all returned %d jobs, want 2", len(jobs))
	}
}

func TestGetJobNotFound(t *testing.T) {
	h, _ := newTestServer(t)
	rec := do(h, http.MethodGet, "/jobs/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var resp errorResponse
	decode(t, rec, &resp)
	if resp.Error != "Job not found" {
		t.Fatalf("error = %q, want %q", resp.Error, "Job not found")
	}
}

func TestUpdateJobEndpoint(t *testing.T) {
	h, appCore := newTestServer(t)
	job := submitJob(t, h, nil)
	appCore.Wait()

	rec := do(h, http.MethodPut, "/jobs/"+job.ID,
		strings.NewReader(`{"status":"in-progress","notes":"rush order"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, body: %s", rec.Code, rec.Body.String())
	}
	var updated jobPayload
	decode(t, rec, &updated)
	if updated.Status != "in-progress" || updated.Notes != "rush order" {
		t.Fatalf("updated = %+v, want in-progress with notes", updated)
	}

	rec = do(h, http.MethodPut, "/jobs/"+job.ID, strings.NewReader(`{"status":"shipped"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid status: code = %d, want 400", rec.Code)
	}

	rec = do(h, http.MethodPut, "/jobs/"+job.ID, strings.NewReader(`{bad json`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json: code = %d, want 400", rec.Code)
	}
}

func TestAddFilesEndpoint(t *testing.T) {
	h, appCore := newTestServer(t)
	job := submitJob(t, h, []multipartFile{{name: "a.png", data: []byte("a")}})
	appCore.Wait()

	body, contentType := multipartBody(t, nil, []multipartFile{
		{name: "b.png", data: []byte("b")},
		{name: "c.png", data: []byte("c")},
	})
	req := httptest.NewRequest(http.MethodPost, "/jobs/"+job.ID+"/files", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST files status = %d, body: %s", rec.Code, rec.Body.String())
	}
	var added []domain.Attachment
	decode(t, rec, &added)
	if len(added) != 2 {
		t.Fatalf("added %d files, want 2", len(added))
	}

	detail := do(h, http.MethodGet, "/jobs/"+job.ID, nil)
	var got jobPayload
	decode(t, detail, &got)
	if got.FileCount != 3 {
		t.Fatalf("fileCount = %d, want 3", got.FileCount)
	}
}

func TestDownload(t *testing.T) {
	h, appCore := newTestServer(t)
	content := []byte("print-ready bytes")
	job := submitJob(t, h, []multipartFile{{name: "art final.pdf", data: content}})
	appCore.Wait()

	rec := do(h, http.MethodGet, "/files/"+job.Files[0].ID+"/download", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d", rec.Code)
	}
	if !bytes.Equal(rec.Body.Bytes(), content) {
		t.Fatalf("downloaded %q, want %q", rec.Body.Bytes(), content)
	}
	_, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	if err != nil {
		t.Fatalf("parse content-disposition: %v", err)
	}
	if params["filename"] != "art final.pdf" {
		t.Fatalf("filename = %q, want original name", params["filename"])
	}

	rec = do(h, http.MethodGet, "/files/nope/download", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing file download status = %d, want 404", rec.Code)
	}
}

func TestDeleteAttachmentEndpoint(t *testing.T) {
	h, appCore := newTestServer(t)
	job := submitJob(t, h, []multipartFile{
		{name: "a.png", data: []byte("a")},
		{name: "b.png", data: []byte("b")},
	})
	appCore.Wait()

	rec := do(h, http.MethodDelete, "/files/"+job.Files[0].ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	var resp map[string]bool
	decode(t, rec, &resp)
	if !resp["success"] {
		t.Fatalf("response = %+v, want success true", resp)
	}

	detail := do(h, http.MethodGet, "/jobs/"+job.ID, nil)
	var got jobPayload
	decode(t, detail, &got)
	if got.FileCount != 1 || len(got.Files) != 1 {
		t.Fatalf("after delete fileCount = %d, files = %d, want 1 each", got.FileCount, len(got.Files))
	}

	rec = do(h, http.MethodDelete, "/files/"+job.Files[0].ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}

func TestDeleteJobEndpoint(t *testing.T) {
	h, appCore := newTestServer(t)
	job := submitJob(t, h, []multipartFile{{name: "a.png", data: []byte("a")}})
	appCore.Wait()

	rec := do(h, http.MethodDelete, "/jobs/"+job.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = do(h, http.MethodGet, "/jobs/"+job.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET after delete status = %d, want 404", rec.Code)
	}
	rec = do(h, http.MethodDelete, "/jobs/"+job.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newTestServer(t)
	rec := do(h, http.MethodPatch, "/jobs", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
