package commands

import (
	"AssiScan/internal/config"
	"context"
	"errors"
	"fmt"
	"net/http"

	"AssiScan/internal/cli/api"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginCmd struct{}

func (loginCmd) Name() string        { return "login" }
func (loginCmd) Description() string { return "Login as admin and store auth cookie" }
func (loginCmd) Usage() string       { return "login <username> <password>" }

func (loginCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 2 {
		return ErrUsage
	}
	req := LoginRequest{Username: args[0], Password: args[1]}
	resp, body, err := api.PostJSON(ctx, endpoint(cfg, "/login"), req, "")
	if err != nil {
		return err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		if err := api.PersistAuthFromResponse(resp, tokenStore(cfg)); err != nil {
			return fmt.Errorf("saving auth: %w", err)
		}
		fmt.Fprintln(Out, "Logged in successfully")
		return nil
	case http.StatusUnauthorized:
		return errors.New("invalid username or password")
	default:
		return api.StatusError(resp, body)
	}
}

type logoutCmd struct{}

func (logoutCmd) Name() string        { return "logout" }
func (logoutCmd) Description() string { return "End admin session and forget stored token" }
func (logoutCmd) Usage() string       { return "logout" }

func (logoutCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	store := tokenStore(cfg)
	token, err := store.Load()
	if err == nil {
		// сервер только стирает cookie; ошибка сети не мешает локальному выходу
		_, _, _ = api.PostJSON(ctx, endpoint(cfg, "/logout"), struct{}{}, token)
	}
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(Out, "Logged out")
	return nil
}

func init() {
	RegisterCmd(loginCmd{})
	RegisterCmd(logoutCmd{})
}
