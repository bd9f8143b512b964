package commands

import (
	"AssiScan/internal/config"
	"AssiScan/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"AssiScan/internal/cli/api"
)

type attachResponse struct {
	State string `json:"state"`
	Slot  string `json:"slot"`
	File  string `json:"file"`
}

type attachCmd struct{}

func (attachCmd) Name() string        { return "attach" }
func (attachCmd) Description() string { return "Attach a file to form137, form138 or goodmoral" }
func (attachCmd) Usage() string       { return "attach <id> <slot> <file>" }

func (attachCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 3 {
		return ErrUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return ErrUsage
	}
	// проверяем слот локально, чтобы не гонять файл на сервер зря
	slot, err := model.ParseSlot(args[1])
	if err != nil || slot == model.SlotPrimary {
		return fmt.Errorf("%w: %s", model.ErrInvalidSlot, args[1])
	}
	// загрузка вложений не требует сессии, но токен отправляем, если он есть
	token, _ := tokenStore(cfg).Load()
	fields := map[string]string{"id": strconv.FormatInt(id, 10), "type": string(slot)}
	resp, body, err := api.PostMultipart(ctx, endpoint(cfg, "/upload-additional"), fields, "file", args[2], token)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return api.StatusError(resp, body)
	}
	var ar attachResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	fmt.Fprintf(Out, "Attached %s to record %d (%s)\n", ar.Slot, id, ar.File)
	return nil
}

func init() { RegisterCmd(attachCmd{}) }
