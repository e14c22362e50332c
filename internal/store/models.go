package store

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"jobportal/pkg/domain"
)

// GORM models used for persistence.
type JobModel struct {
	ID           string `gorm:"primaryKey"`
	Title        string `gorm:"not null"`
	CustomerName string `gorm:"not null"`
	EmailBody    string `gorm:"not null"`
	PONumber     string
	Source       string
	Status       string    `gorm:"not null;index"`
	Notes        string    `gorm:"not null"`
	FileCount    int       `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null;index"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (JobModel) TableName() string { return "jobs" }

type AttachmentModel struct {
	ID           string `gorm:"primaryKey"`
	JobID        string `gorm:"not null;index"`
	OriginalName string `gorm:"not null"`
	StoredPath   string `gorm:"not null"`
	MimeType     string
	SizeBytes    int64
	Metadata     datatypes.JSON
	CreatedAt    time.Time `gorm:"not null"`
}

func (AttachmentModel) TableName() string { return "attachments" }

func jobToModel(j domain.Job) JobModel {
	return JobModel{
		ID:           j.ID,
		Title:        j.Title,
		CustomerName: j.CustomerName,
		EmailBody:    j.EmailBody,
		PONumber:     j.PONumber,
		Source:       j.Source,
		Status:       string(j.Status),
		Notes:        j.Notes,
		FileCount:    j.FileCount,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
}

func jobFromModel(m JobModel) domain.Job {
	return domain.Job{
		ID:           m.ID,
		Title:        m.Title,
		CustomerName: m.CustomerName,
		EmailBody:    m.EmailBody,
		PONumber:     m.PONumber,
		Source:       m.Source,
		Status:       domain.JobStatus(m.Status),
		Notes:        m.Notes,
		FileCount:    m.FileCount,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func attachmentToModel(a domain.Attachment) AttachmentModel {
	m := AttachmentModel{
		ID:           a.ID,
		JobID:        a.JobID,
		OriginalName: a.OriginalName,
		StoredPath:   a.StoredPath,
		MimeType:     a.MimeType,
		SizeBytes:    a.SizeBytes,
		CreatedAt:    a.CreatedAt,
	}
	if a.Metadata != nil {
		if data, err := json.Marshal(a.Metadata); err == nil {
			m.Metadata = datatypes.JSON(data)
		}
	}
	return m
}

func attachmentFromModel(m AttachmentModel) domain.Attachment {
	a := domain.Attachment{
		ID:           m.ID,
		JobID:        m.JobID,
		OriginalName: m.OriginalName,
		StoredPath:   m.StoredPath,
		MimeType:     m.MimeType,
		SizeBytes:    m.SizeBytes,
		CreatedAt:    m.CreatedAt,
	}
	if len(m.Metadata) > 0 {
		var meta domain.PDFMetadata
		if err := json.Unmarshal(m.Metadata, &meta); err == nil {
			a.Metadata = &meta
		}
	}
	return a
}
