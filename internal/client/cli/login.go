package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// Login asks for credentials, signs in and prints the resulting session.
func (a *App) Login(ctx context.Context) error {

	email, err := GetSimpleText(a.reader, "-Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}

	reqCtx, cancel := a.requestContext(ctx)
	err = a.client.Login(reqCtx, email, password)
	cancel()
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidCredentials):
			return errors.New("login unsuccessful: invalid credentials")
		case errors.Is(err, client.ErrUnavailable):
			return errors.New("login unsuccessful: server unavailable")
		}
		return fmt.Errorf("login unsuccessful: %w", err)
	}

	fmt.Fprintln(a.out, "Login successful")

	return a.ShowSession(ctx)
}

// ShowSession prints the current session as JSON.
func (a *App) ShowSession(ctx context.Context) error {

	reqCtx, cancel := a.requestContext(ctx)
	defer cancel()

	session, err := a.client.Session(reqCtx)
	if err != nil {
		return fmt.Errorf("session error: %w", err)
	}

	b, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, string(b))

	return nil
}
