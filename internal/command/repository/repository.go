package repository

import (
	"voicecmd-backend/internal/command/domain"
)

// RunRepository defines the interface for command run audit storage
type RunRepository interface {
	// Create stores a finished run
	Create(run *domain.CommandRun) error

	// FindByID finds a run by its ID, nil when absent
	FindByID(id string) (*domain.CommandRun, error)

	// FindByUserID returns the most recent runs of a user, newest first
	FindByUserID(userID string, limit, offset int) ([]*domain.CommandRun, int64, error)
}
