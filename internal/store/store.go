package store

import "jobportal/pkg/domain"

// JobFilter narrows job listings. An empty or "all" status means no status
// filter; Search matches case-insensitively against title, customer name,
// and email body.
type JobFilter struct {
	Status string
	Search string
}

// JobPatch carries the mutable job fields for a partial update. Nil fields
// are left untouched.
type JobPatch struct {
	Status *domain.JobStatus
	Notes  *string
	Title  *string
}

// Store defines persistence operations for jobs and their attachments.
// Implementations must keep Job.FileCount equal to the number of live
// attachment rows: every operation that changes the attachment set adjusts
// the counter in the same transaction.
type Store interface {
	// jobs
	CreateJobWithAttachments(job domain.Job, atts []domain.Attachment) error
	GetJob(id string) (domain.Job, bool, error)
	ListJobs(filter JobFilter) ([]domain.Job, error)
	UpdateJob(id string, patch JobPatch) (domain.Job, bool, error)
	DeleteJob(id string) error

	// attachments
	AddAttachments(jobID string, atts []domain.Attachment) error
	GetAttachment(id string) (domain.Attachment, bool, error)
	ListAttachments(jobID string) ([]domain.Attachment, error)
	SetAttachmentMetadata(id string, meta domain.PDFMetadata) error
	DeleteAttachment(id string) error
}
