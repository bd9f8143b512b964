package commands

import (
	"AssiScan/internal/config"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"AssiScan/internal/cli/api"
)

type statusResponse struct {
	Authenticated bool  `json:"authenticated"`
	UserID        int64 `json:"user_id"`
}

type statusCmd struct{}

func (statusCmd) Name() string        { return "status" }
func (statusCmd) Description() string { return "Check whether the stored token is accepted" }
func (statusCmd) Usage() string       { return "status" }

func (statusCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	// без токена сервер просто ответит authenticated=false
	token, _ := tokenStore(cfg).Load()
	resp, body, err := api.Get(ctx, endpoint(cfg, "/api/status"), token)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return api.StatusError(resp, body)
	}
	var sr statusResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if sr.Authenticated {
		fmt.Fprintf(Out, "Authenticated as admin (id %d) at %s\n", sr.UserID, cfg.ServerURL)
		return nil
	}
	fmt.Fprintf(Out, "Not authenticated at %s\n", cfg.ServerURL)
	return nil
}

func init() { RegisterCmd(statusCmd{}) }
