package store

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"jobportal/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&JobModel{}, &AttachmentModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// CreateJobWithAttachments inserts the job row and all attachment rows in a
// single transaction so the job is never visible with a file count that does
// not match its attachment set.
func (s *GormStore) CreateJobWithAttachments(job domain.Job, atts []domain.Attachment) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		model := jobToModel(job)
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		for _, a := range atts {
			attModel := attachmentToModel(a)
			if err := tx.Create(&attModel).Error; err != nil {
				return fmt.Errorf("insert attachment: %w", err)
			}
		}
		return nil
	})
}

// GetJob retrieves a job by ID.
func (s *GormStore) GetJob(id string) (domain.Job, bool, error) {
	var model JobModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Job{}, false, nil
		}
		return domain.Job{}, false, err
	}
	return jobFromModel(model), true, nil
}

// ListJobs returns jobs matching the filter, newest first.
func (s *GormStore) ListJobs(filter JobFilter) ([]domain.Job, error) {
	tx := s.db.Model(&JobModel{})
	if filter.Status != "" && filter.Status != "all" {
		tx = tx.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		term := "%" + filter.Search + "%"
		tx = tx.Where("title ILIKE ? OR customer_name ILIKE ? OR email_body ILIKE ?", term, term, term)
	}
	var models []JobModel
	if err := tx.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Job, 0, len(models))
	for _, m := range models {
		res = append(res, jobFromModel(m))
	}
	return res, nil
}

// UpdateJob applies a partial patch and refreshes updated_at. Returns false
// when the job does not exist.
func (s *GormStore) UpdateJob(id string, patch JobPatch) (domain.Job, bool, error) {
	var model JobModel
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			return err
		}
		updates := map[string]any{"updated_at": time.Now().UTC()}
		if patch.Status != nil {
			updates["status"] = string(*patch.Status)
		}
		if patch.Notes != nil {
			updates["notes"] = *patch.Notes
		}
		if patch.Title != nil {
			updates["title"] = *patch.Title
		}
		if err := tx.Model(&JobModel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&model, "id = ?", id).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Job{}, false, nil
		}
		return domain.Job{}, false, err
	}
	return jobFromModel(model), true, nil
}

// DeleteJob removes the job and all of its attachment rows atomically.
func (s *GormStore) DeleteJob(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&AttachmentModel{}, "job_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&JobModel{}, "id = ?", id).Error
	})
}

// AddAttachments inserts a batch of attachment rows and bumps the owning
// job's file count in the same transaction.
func (s *GormStore) AddAttachments(jobID string, atts []domain.Attachment) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, a := range atts {
			model := attachmentToModel(a)
			if err := tx.Create(&model).Error; err != nil {
				return fmt.Errorf("insert attachment: %w", err)
			}
		}
		return tx.Model(&JobModel{}).
			Where("id = ?", jobID).
			Updates(map[string]any{
				"file_count": gorm.Expr("file_count + ?", len(atts)),
				"updated_at": time.Now().UTC(),
			}).Error
	})
}

// GetAttachment retrieves an attachment by ID.
func (s *GormStore) GetAttachment(id string) (domain.Attachment, bool, error) {
	var model AttachmentModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Attachment{}, false, nil
		}
		return domain.Attachment{}, false, err
	}
	return attachmentFromModel(model), true, nil
}

// ListAttachments returns all attachments for a job in insertion order.
func (s *GormStore) ListAttachments(jobID string) ([]domain.Attachment, error) {
	var models []AttachmentModel
	if err := s.db.Where("job_id = ?", jobID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Attachment, 0, len(models))
	for _, m := range models {
		res = append(res, attachmentFromModel(m))
	}
	return res, nil
}

// SetAttachmentMetadata stores the serialized metadata payload. A missing
// row is a no-op: the attachment may have been deleted while extraction ran.
func (s *GormStore) SetAttachmentMetadata(id string, meta domain.PDFMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	return s.db.Model(&AttachmentModel{}).
		Where("id = ?", id).
		Update("metadata", datatypes.JSON(data)).Error
}

// DeleteAttachment removes the row and decrements the owning job's file
// count, floored at zero, in one transaction.
func (s *GormStore) DeleteAttachment(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var model AttachmentModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}
		if err := tx.Delete(&AttachmentModel{}, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Model(&JobModel{}).
			Where("id = ?", model.JobID).
			Updates(map[string]any{
				"file_count": gorm.Expr("GREATEST(file_count - 1, 0)"),
				"updated_at": time.Now().UTC(),
			}).Error
	})
}
