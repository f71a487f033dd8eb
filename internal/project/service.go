package project

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const statusOpen = "open"

// ErrNotClient indicates the caller does not own the project.
var ErrNotClient = errors.New("not the project's client")

// Service manages project lifecycle for the marketplace glue around the
// escrow engine.
type Service struct {
	repo Repository
}

// NewService builds a project service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput captures data required to open a project.
type CreateInput struct {
	ClientID string
	Title    string
}

// Create opens a project owned by the client.
func (s *Service) Create(ctx context.Context, input CreateInput) (Project, error) {
	if _, err := uuid.Parse(input.ClientID); err != nil {
		return Project{}, err
	}
	if input.Title == "" {
		return Project{}, errors.New("title is required")
	}

	p := Project{
		ID:        uuid.New().String(),
		ClientID:  input.ClientID,
		Title:     input.Title,
		Status:    statusOpen,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return Project{}, err
	}
	return p, nil
}

// Get retrieves a project.
func (s *Service) Get(ctx context.Context, id string) (Project, error) {
	return s.repo.Get(ctx, id)
}

// Apply records a worker's application to an open project.
func (s *Service) Apply(ctx context.Context, projectID, workerID string) error {
	if _, err := s.repo.Get(ctx, projectID); err != nil {
		return err
	}
	return s.repo.Apply(ctx, projectID, workerID)
}

// Accept moves a worker's application to accepted status. Only the project's
// client may accept.
func (s *Service) Accept(ctx context.Context, projectID, workerID, requestorID string) error {
	p, err := s.repo.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if requestorID != "" && p.ClientID != requestorID {
		return ErrNotClient
	}
	return s.repo.AcceptWorker(ctx, projectID, workerID)
}

// AcceptedWorkers returns the current accepted-worker set for the project.
func (s *Service) AcceptedWorkers(ctx context.Context, projectID string) ([]string, error) {
	return s.repo.AcceptedWorkers(ctx, projectID)
}
