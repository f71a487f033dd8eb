package project

import (
	"context"
	"errors"
	"sync"
	"time"
)

type memoryRepository struct {
	mu           sync.RWMutex
	projects     map[string]Project
	applications map[string][]Application // keyed by project id, in apply order
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		projects:     make(map[string]Project),
		applications: make(map[string][]Application),
	}
}

func (r *memoryRepository) Create(_ context.Context, p Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.projects[p.ID]; exists {
		return errors.New("project exists")
	}
	r.projects[p.ID] = p
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepository) Apply(_ context.Context, projectID, workerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[projectID]; !ok {
		return ErrNotFound
	}
	for _, a := range r.applications[projectID] {
		if a.WorkerID == workerID {
			return errors.New("already applied")
		}
	}
	r.applications[projectID] = append(r.applications[projectID], Application{
		ProjectID: projectID,
		WorkerID:  workerID,
		Status:    applicationApplied,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (r *memoryRepository) AcceptWorker(_ context.Context, projectID, workerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	apps := r.applications[projectID]
	for i, a := range apps {
		if a.WorkerID == workerID {
			apps[i].Status = applicationAccepted
			return nil
		}
	}
	return ErrNotFound
}

func (r *memoryRepository) AcceptedWorkers(_ context.Context, projectID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var workers []string
	for _, a := range r.applications[projectID] {
		if a.Status == applicationAccepted {
			workers = append(workers, a.WorkerID)
		}
	}
	return workers, nil
}
