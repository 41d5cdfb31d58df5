// Package users declares the user repository contract and its PostgreSQL and
// in-memory implementations.
package users

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository reads and creates user records.
type Repository interface {
	// FindUserByEmail returns the single user whose email equals email exactly,
	// or common.ErrorNotFound.
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)

	// Create inserts user and fills in its ID and CreatedAt. A duplicate email
	// yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
}
