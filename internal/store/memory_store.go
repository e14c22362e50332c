package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"jobportal/pkg/domain"
)

// MemoryStore keeps jobs and attachments in-process. It backs tests and
// local development without Postgres.
type MemoryStore struct {
	mu     sync.RWMutex
	jobs   map[string]domain.Job
	atts   map[string]domain.Attachment
	order  []string // attachment insertion order
	jorder []string // job insertion order
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]domain.Job),
		atts: make(map[string]domain.Attachment),
	}
}

// CreateJobWithAttachments stores the job and its attachments together.
func (m *MemoryStore) CreateJobWithAttachments(job domain.Job, atts []domain.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	m.jorder = append(m.jorder, job.ID)
	for _, a := range atts {
		m.atts[a.ID] = a
		m.order = append(m.order, a.ID)
	}
	return nil
}

// GetJob retrieves a job by ID.
func (m *MemoryStore) GetJob(id string) (domain.Job, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	return j, ok, nil
}

// ListJobs returns jobs matching the filter, newest first.
func (m *MemoryStore) ListJobs(filter JobFilter) ([]domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Job, 0, len(m.jorder))
	search := strings.ToLower(filter.Search)
	for _, id := range m.jorder {
		j, ok := m.jobs[id]
		if !ok {
			continue
		}
		if filter.Status != "" && filter.Status != "all" && string(j.Status) != filter.Status {
			continue
		}
		if search != "" && !jobMatches(j, search) {
			continue
		}
		res = append(res, j)
	}
	sort.SliceStable(res, func(i, k int) bool {
		return res[i].CreatedAt.After(res[k].CreatedAt)
	})
	return res, nil
}

func jobMatches(j domain.Job, search string) bool {
	return strings.Contains(strings.ToLower(j.Title), search) ||
		strings.Contains(strings.ToLower(j.CustomerName), search) ||
		strings.Contains(strings.ToLower(j.EmailBody), search)
}

// UpdateJob applies a partial patch and refreshes UpdatedAt.
func (m *MemoryStore) UpdateJob(id string, patch JobPatch) (domain.Job, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.Job{}, false, nil
	}
	if patch.Status != nil {
		j.Status = *patch.Status
	}
	if patch.Notes != nil {
		j.Notes = *patch.Notes
	}
	if patch.Title != nil {
		j.Title = *patch.Title
	}
	j.UpdatedAt = time.Now().UTC()
	m.jobs[id] = j
	return j, true, nil
}

// DeleteJob removes the job and every attachment that references it.
func (m *MemoryStore) DeleteJob(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for attID, a := range m.atts {
		if a.JobID == id {
			delete(m.atts, attID)
		}
	}
	delete(m.jobs, id)
	return nil
}

// AddAttachments inserts a batch and bumps the job's file count.
func (m *MemoryStore) AddAttachments(jobID string, atts []domain.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range atts {
		m.atts[a.ID] = a
		m.order = append(m.order, a.ID)
	}
	if j, ok := m.jobs[jobID]; ok {
		j.FileCount += len(atts)
		j.UpdatedAt = time.Now().UTC()
		m.jobs[jobID] = j
	}
	return nil
}

// GetAttachment retrieves an attachment by ID.
func (m *MemoryStore) GetAttachment(id string) (domain.Attachment, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.atts[id]
	return a, ok, nil
}

// ListAttachments returns a job's attachments in insertion order.
func (m *MemoryStore) ListAttachments(jobID string) ([]domain.Attachment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Attachment, 0, 4)
	for _, id := range m.order {
		if a, ok := m.atts[id]; ok && a.JobID == jobID {
			res = append(res, a)
		}
	}
	return res, nil
}

// SetAttachmentMetadata records extracted metadata. Missing rows are a
// no-op, matching the database store.
func (m *MemoryStore) SetAttachmentMetadata(id string, meta domain.PDFMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.atts[id]
	if !ok {
		return nil
	}
	copied := meta
	a.Metadata = &copied
	m.atts[id] = a
	return nil
}

// DeleteAttachment removes the row and decrements the owning job's file
// count, floored at zero.
func (m *MemoryStore) DeleteAttachment(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.atts[id]
	if !ok {
		return nil
	}
	delete(m.atts, id)
	if j, jok := m.jobs[a.JobID]; jok {
		if j.FileCount > 0 {
			j.FileCount--
		}
		j.UpdatedAt = time.Now().UTC()
		m.jobs[a.JobID] = j
	}
	return nil
}
