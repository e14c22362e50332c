package domain

import (
	"strings"
	"time"
)

// JobStatus is the staff-facing workflow state of a job.
type JobStatus string

const (
	StatusNew        JobStatus = "new"
	StatusInProgress JobStatus = "in-progress"
	StatusComplete   JobStatus = "complete"
)

// ParseJobStatus validates a status string against the known states.
func ParseJobStatus(s string) (JobStatus, bool) {
	switch JobStatus(strings.TrimSpace(s)) {
	case StatusNew:
		return StatusNew, true
	case StatusInProgress:
		return StatusInProgress, true
	case StatusComplete:
		return StatusComplete, true
	default:
		return "", false
	}
}

// Job is one print-job submission record.
type Job struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CustomerName string    `json:"customerName"`
	EmailBody    string    `json:"emailBody"`
	PONumber     string    `json:"poNumber,omitempty"`
	Source       string    `json:"source,omitempty"`
	Status       JobStatus `json:"status"`
	Notes        string    `json:"notes"`
	FileCount    int       `json:"fileCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PDFMetadata holds structural metadata derived from a PDF attachment.
// Width and height are first-page dimensions in inches.
type PDFMetadata struct {
	PageCount int     `json:"pageCount"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

// Attachment is one uploaded file owned by exactly one job.
// Metadata stays nil for non-PDF files and when extraction failed.
type Attachment struct {
	ID           string       `json:"id"`
	JobID        string       `json:"jobId"`
	OriginalName string       `json:"originalName"`
	StoredPath   string       `json:"storedPath"`
	MimeType     string       `json:"mimeType"`
	SizeBytes    int64        `json:"sizeBytes"`
	Metadata     *PDFMetadata `json:"metadata"`
	CreatedAt    time.Time    `json:"createdAt"`
}
