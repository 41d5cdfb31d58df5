package client

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
)

// Client is the authkeeper API as seen by the CLI.
type Client interface {
	Close() error
	Register(ctx context.Context, email, password, name, role string) (string, error)
	Login(ctx context.Context, email, password string) error
	Session(ctx context.Context) (*models.Session, error)
	Ping(ctx context.Context) error
}
