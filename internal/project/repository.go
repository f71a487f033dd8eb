package project

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the project or application does not exist.
var ErrNotFound = errors.New("not found")

// Repository persists projects and worker applications.
type Repository interface {
	Create(ctx context.Context, p Project) error
	Get(ctx context.Context, id string) (Project, error)
	Apply(ctx context.Context, projectID, workerID string) error
	AcceptWorker(ctx context.Context, projectID, workerID string) error
	// AcceptedWorkers returns the ids of workers currently accepted on the
	// project, in application order. Read live at release time, never cached.
	AcceptedWorkers(ctx context.Context, projectID string) ([]string, error)
}

const (
	applicationApplied  = "applied"
	applicationAccepted = "accepted"
)

// PostgresRepository stores projects in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a project record.
func (r *PostgresRepository) Create(ctx context.Context, p Project) error {
	projectID, err := uuid.Parse(p.ID)
	if err != nil {
		return err
	}
	clientID, err := uuid.Parse(p.ClientID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO projects (id, client_id, title, status, created_at)
        VALUES ($1, $2, $3, $4, $5)`, projectID, clientID, p.Title, p.Status, p.CreatedAt.UTC())
	return err
}

// Get fetches a project by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Project, error) {
	projectID, err := uuid.Parse(id)
	if err != nil {
		return Project{}, err
	}
	row := r.db.QueryRow(ctx, `SELECT id, client_id, title, status, created_at
        FROM projects WHERE id = $1`, projectID)
	var p Project
	var pid, cid uuid.UUID
	var createdAt time.Time
	if err := row.Scan(&pid, &cid, &p.Title, &p.Status, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, err
	}
	p.ID = pid.String()
	p.ClientID = cid.String()
	p.CreatedAt = createdAt.UTC()
	return p, nil
}

// Apply records a worker's application in applied status.
func (r *PostgresRepository) Apply(ctx context.Context, projectID, workerID string) error {
	pid, err := uuid.Parse(projectID)
	if err != nil {
		return err
	}
	wid, err := uuid.Parse(workerID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO project_workers (project_id, worker_id, status, created_at)
        VALUES ($1, $2, $3, $4)`, pid, wid, applicationApplied, time.Now().UTC())
	return err
}

// AcceptWorker moves an application to accepted status.
func (r *PostgresRepository) AcceptWorker(ctx context.Context, projectID, workerID string) error {
	pid, err := uuid.Parse(projectID)
	if err != nil {
		return err
	}
	wid, err := uuid.Parse(workerID)
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, `UPDATE project_workers SET status = $1
        WHERE project_id = $2 AND worker_id = $3`, applicationAccepted, pid, wid)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AcceptedWorkers lists accepted worker ids in application order.
func (r *PostgresRepository) AcceptedWorkers(ctx context.Context, projectID string) ([]string, error) {
	pid, err := uuid.Parse(projectID)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT worker_id FROM project_workers
        WHERE project_id = $1 AND status = $2 ORDER BY created_at`, pid, applicationAccepted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workers []string
	for rows.Next() {
		var wid uuid.UUID
		if err := rows.Scan(&wid); err != nil {
			return nil, err
		}
		workers = append(workers, wid.String())
	}
	return workers, rows.Err()
}
