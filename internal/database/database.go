// Package database records the operations run against asset repositories.
package database

import (
	"context"
	"time"
)

// Operation statuses.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation is one recorded command. FinishedAt is nil while it runs.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	Repository string
	AssetID    string
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Duration is zero until the operation finishes.
func (o *Operation) Duration() time.Duration {
	if o.FinishedAt == nil {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}

// History stores operation records.
type History interface {
	CreateOperation(ctx context.Context, operation, parameters, repository string) (*Operation, error)
	// FinishOperation stamps the finish time and final status. assetID
	// records the asset the operation produced or touched, if any.
	FinishOperation(ctx context.Context, id int64, status, assetID string) error
	// ListOperations returns the most recent operations, newest first.
	ListOperations(ctx context.Context, limit int) ([]*Operation, error)
	CheckMigrations() error
	Close() error
}
