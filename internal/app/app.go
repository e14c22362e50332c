package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"jobportal/internal/notify"
	"jobportal/internal/storage"
	"jobportal/internal/store"
	"jobportal/internal/util"
	"jobportal/pkg/domain"
)

const (
	defaultMaxFileBytes = 50 * 1024 * 1024
	defaultMaxFiles     = 20
)

// Config wires the orchestrator's collaborators.
type Config struct {
	Store    store.Store
	Blobs    storage.BlobStore
	Notifier *notify.Notifier
	// BaseURL is the portal origin used in notification links when the
	// request carries no Origin header.
	BaseURL      string
	MaxFileBytes int64
	MaxFiles     int
}

// App orchestrates job submission: it coordinates the store, the blob
// store, metadata enrichment, and the notifier fan-out, and decides what is
// synchronous versus fire-and-forget.
type App struct {
	store        store.Store
	blobs        storage.BlobStore
	notifier     *notify.Notifier
	baseURL      string
	maxFileBytes int64
	maxFiles     int

	tail sync.WaitGroup
}

// New validates dependencies and applies limit defaults.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	maxFileBytes := cfg.MaxFileBytes
	if maxFileBytes <= 0 {
		maxFileBytes = defaultMaxFileBytes
	}
	maxFiles := cfg.MaxFiles
	if maxFiles <= 0 {
		maxFiles = defaultMaxFiles
	}
	return &App{
		store:        cfg.Store,
		blobs:        cfg.Blobs,
		notifier:     cfg.Notifier,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		maxFileBytes: maxFileBytes,
		maxFiles:     maxFiles,
	}, nil
}

// RawFile is one uploaded file payload.
type RawFile struct {
	Name        string
	ContentType string
	Size        int64
	Data        io.Reader
}

// SubmitJobInput carries the submission form fields and file payloads.
type SubmitJobInput struct {
	Title        string
	CustomerName string
	EmailBody    string
	// Origin is the requesting origin used to build the portal link.
	Origin string
	Files  []RawFile
}

// SubmitJob creates the job record and its attachments durably, then
// launches metadata extraction and the notifier fan-out without awaiting
// them. The caller gets its response before any of the tail runs; nothing
// in the tail can fail or roll back the submission.
func (a *App) SubmitJob(ctx context.Context, in SubmitJobInput) (domain.Job, []domain.Attachment, error) {
	if strings.TrimSpace(in.Title) == "" ||
		strings.TrimSpace(in.CustomerName) == "" ||
		strings.TrimSpace(in.EmailBody) == "" {
		return domain.Job{}, nil, validationf("title, customerName, and emailBody are required")
	}
	if err := a.checkLimits(in.Files); err != nil {
		return domain.Job{}, nil, err
	}

	now := time.Now().UTC()
	job := domain.Job{
		ID:           util.NewID(),
		Title:        in.Title,
		CustomerName: in.CustomerName,
		EmailBody:    in.EmailBody,
		Status:       domain.StatusNew,
		FileCount:    len(in.Files),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	atts, err := a.storeBlobs(ctx, job.ID, in.Files)
	if err != nil {
		_ = a.blobs.DeleteAll(ctx, job.ID)
		return domain.Job{}, nil, err
	}
	if err := a.store.CreateJobWithAttachments(job, atts); err != nil {
		_ = a.blobs.DeleteAll(ctx, job.ID)
		return domain.Job{}, nil, fmt.Errorf("create job: %w", err)
	}

	a.launchTail(job, atts, in.Origin)
	return job, atts, nil
}

// AddFiles appends a batch of files to an existing job and bumps its file
// count atomically with the inserts. Unlike submission, it triggers no
// enrichment and no re-notification.
func (a *App) AddFiles(ctx context.Context, jobID string, files []RawFile) ([]domain.Attachment, error) {
	_, ok, err := a.store.GetJob(jobID)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if !ok {
		return nil, ErrJobNotFound
	}
	if err := a.checkLimits(files); err != nil {
		return nil, err
	}
	atts, err := a.storeBlobs(ctx, jobID, files)
	if err != nil {
		return nil, err
	}
	if err := a.store.AddAttachments(jobID, atts); err != nil {
		a.removeBlobs(ctx, atts)
		return nil, fmt.Errorf("add attachments: %w", err)
	}
	return atts, nil
}

// JobUpdate is a partial staff-side patch; nil fields are ignored.
type JobUpdate struct {
	Status *string
	Notes  *string
	Title  *string
}

// UpdateJob applies a partial patch. Status values outside the three-state
// enum are rejected. UpdatedAt is refreshed on every accepted patch, even
// when values are unchanged.
func (a *App) UpdateJob(id string, upd JobUpdate) (domain.Job, error) {
	patch := store.JobPatch{Notes: upd.Notes, Title: upd.Title}
	if upd.Status != nil {
		status, ok := domain.ParseJobStatus(*upd.Status)
		if !ok {
			return domain.Job{}, validationf("invalid status %q", *upd.Status)
		}
		patch.Status = &status
	}
	job, ok, err := a.store.UpdateJob(id, patch)
	if err != nil {
		return domain.Job{}, fmt.Errorf("update job: %w", err)
	}
	if !ok {
		return domain.Job{}, ErrJobNotFound
	}
	return job, nil
}

// GetJob returns a job with its attachments.
func (a *App) GetJob(id string) (domain.Job, []domain.Attachment, error) {
	job, ok, err := a.store.GetJob(id)
	if err != nil {
		return domain.Job{}, nil, fmt.Errorf("get job: %w", err)
	}
	if !ok {
		return domain.Job{}, nil, ErrJobNotFound
	}
	atts, err := a.store.ListAttachments(id)
	if err != nil {
		return domain.Job{}, nil, fmt.Errorf("list attachments: %w", err)
	}
	return job, atts, nil
}

// ListJobs returns jobs matching the filter, newest first.
func (a *App) ListJobs(filter store.JobFilter) ([]domain.Job, error) {
	return a.store.ListJobs(filter)
}

// DeleteJob removes the job, its attachment rows, and its blob scope. A
// failed blob-scope removal leaves an orphaned directory and is logged, not
// surfaced: the rows are already gone.
func (a *App) DeleteJob(ctx context.Context, id string) error {
	_, ok, err := a.store.GetJob(id)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}
	if !ok {
		return ErrJobNotFound
	}
	if err := a.store.DeleteJob(id); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if err := a.blobs.DeleteAll(ctx, id); err != nil {
		slog.Warn("blob scope removal failed, orphaned directory left behind",
			"job_id", id, "err", err)
	}
	return nil
}

// DeleteAttachment removes the blob (tolerating drift between disk and DB),
// then the row together with the owning job's counter decrement. The row
// delete and decrement happen in one store transaction so the count never
// references a still-existing attachment.
func (a *App) DeleteAttachment(ctx context.Context, fileID string) error {
	att, ok, err := a.store.GetAttachment(fileID)
	if err != nil {
		return fmt.Errorf("get attachment: %w", err)
	}
	if !ok {
		return ErrAttachmentNotFound
	}
	if err := a.blobs.Delete(ctx, att.StoredPath); err != nil {
		slog.Warn("blob delete failed, removing row anyway",
			"attachment_id", fileID, "key", att.StoredPath, "err", err)
	}
	if err := a.store.DeleteAttachment(fileID); err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}

// OpenAttachment returns the attachment record and a reader over its blob
// for download streaming. A missing row or missing blob both surface as
// not-found.
func (a *App) OpenAttachment(ctx context.Context, fileID string) (domain.Attachment, io.ReadCloser, error) {
	att, ok, err := a.store.GetAttachment(fileID)
	if err != nil {
		return domain.Attachment{}, nil, fmt.Errorf("get attachment: %w", err)
	}
	if !ok {
		return domain.Attachment{}, nil, ErrAttachmentNotFound
	}
	rc, err := a.blobs.Open(ctx, att.StoredPath)
	if err != nil {
		return domain.Attachment{}, nil, ErrAttachmentNotFound
	}
	return att, rc, nil
}

// Wait blocks until every background enrichment and notification task
// launched so far has finished. Tests use it to observe the async tail;
// the request path never calls it.
func (a *App) Wait() {
	a.tail.Wait()
}

func (a *App) checkLimits(files []RawFile) error {
	if len(files) > a.maxFiles {
		return fmt.Errorf("%w: %d files exceeds limit of %d", ErrTooManyFiles, len(files), a.maxFiles)
	}
	for _, f := range files {
		if f.Size > a.maxFileBytes {
			return fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrFileTooLarge, f.Name, f.Size, a.maxFileBytes)
		}
	}
	return nil
}

// storeBlobs writes each payload under the job's blob scope and builds the
// attachment records. On failure it removes what it already wrote. Two
// files sharing a name within one batch overwrite at the same key; the
// original system behaves the same way.
func (a *App) storeBlobs(ctx context.Context, jobID string, files []RawFile) ([]domain.Attachment, error) {
	atts := make([]domain.Attachment, 0, len(files))
	for _, f := range files {
		key := storage.Key(jobID, f.Name)
		if err := a.blobs.Save(ctx, key, f.Data, f.Size, f.ContentType); err != nil {
			a.removeBlobs(ctx, atts)
			return nil, fmt.Errorf("save blob %s: %w", key, err)
		}
		atts = append(atts, domain.Attachment{
			ID:           util.NewID(),
			JobID:        jobID,
			OriginalName: f.Name,
			StoredPath:   key,
			MimeType:     f.ContentType,
			SizeBytes:    f.Size,
			CreatedAt:    time.Now().UTC(),
		})
	}
	return atts, nil
}

func (a *App) removeBlobs(ctx context.Context, atts []domain.Attachment) {
	for _, att := range atts {
		_ = a.blobs.Delete(ctx, att.StoredPath)
	}
}

// launchTail starts the fire-and-forget work: one extraction per PDF
// attachment plus the notifier fan-out. Tasks run concurrently, are never
// awaited by the request path, and report failures only through logs.
func (a *App) launchTail(job domain.Job, atts []domain.Attachment, origin string) {
	for _, att := range atts {
		if att.MimeType != pdfMimeType {
			continue
		}
		att := att
		a.tail.Add(1)
		go func() {
			defer a.tail.Done()
			a.enrichAttachment(context.Background(), att)
		}()
	}
	link := a.portalLink(origin, job.ID)
	a.tail.Add(1)
	go func() {
		defer a.tail.Done()
		a.notifier.Dispatch(context.Background(), notify.Event{
			Job:         job,
			Attachments: atts,
			PortalLink:  link,
		})
	}()
}

// enrichAttachment reads the stored blob back, extracts PDF metadata, and
// records it on the attachment. Every failure leaves metadata absent.
func (a *App) enrichAttachment(ctx context.Context, att domain.Attachment) {
	rc, err := a.blobs.Open(ctx, att.StoredPath)
	if err != nil {
		slog.Error("metadata extraction: open blob failed",
			"attachment_id", att.ID, "key", att.StoredPath, "err", err)
		return
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		slog.Error("metadata extraction: read blob failed",
			"attachment_id", att.ID, "err", err)
		return
	}
	meta, err := extractPDFMetadata(data)
	if err != nil {
		slog.Error("metadata extraction failed",
			"attachment_id", att.ID, "name", att.OriginalName, "err", err)
		return
	}
	if err := a.store.SetAttachmentMetadata(att.ID, *meta); err != nil {
		slog.Error("metadata write failed", "attachment_id", att.ID, "err", err)
	}
}

func (a *App) portalLink(origin, jobID string) string {
	base := strings.TrimRight(origin, "/")
	if base == "" {
		base = a.baseURL
	}
	return base + "/jobs/" + jobID
}
