package project

import "time"

// Project is a client-owned unit of work that workers apply to. The escrow
// engine references projects by id; everything else about them is glue.
type Project struct {
	ID        string
	ClientID  string
	Title     string
	Status    string
	CreatedAt time.Time
}

// Application tracks a worker's standing on a project. Only accepted workers
// participate in escrow releases.
type Application struct {
	ProjectID string
	WorkerID  string
	Status    string
	CreatedAt time.Time
}
