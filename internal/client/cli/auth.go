package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

// Login prompts for an email and password and stores the issued tokens.
// The password is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.client.Login(ctx, email, string(password)); err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return errors.New("wrong email or password")
		}
		return err
	}

	a.userName = email
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

// Logout clears the stored tokens.
func (a *App) Logout(ctx context.Context) error {
	if err := a.client.Logout(ctx); err != nil {
		return err
	}
	a.userName = ""
	return nil
}
