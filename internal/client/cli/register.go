package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

func (a *App) Register(ctx context.Context) error {

	email, err := GetSimpleText(a.reader, "-Enter email", a.out)
	if err != nil {
		return err
	}

	name, err := GetSimpleText(a.reader, "-Enter name (optional)", a.out)
	if err != nil {
		return err
	}

	role, err := GetSimpleText(a.reader, "-Enter role, USER or ADMIN (optional)", a.out)
	if err != nil {
		return err
	}

	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}

	reqCtx, cancel := a.requestContext(ctx)
	defer cancel()

	id, err := a.client.Register(reqCtx, email, password, name, role)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return errors.New("registration unsuccessful: email already registered")
		}
		return fmt.Errorf("registration unsuccessful: %w", err)
	}

	fmt.Fprintf(a.out, "Registered id=%s\n", id)
	return nil
}
