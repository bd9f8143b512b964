package commands

import (
	"AssiScan/internal/config"
	"AssiScan/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"AssiScan/internal/cli/api"
)

type recordsCmd struct{}

func (recordsCmd) Name() string        { return "records" }
func (recordsCmd) Description() string { return "List assembled records (newest first)" }
func (recordsCmd) Usage() string       { return "records" }

func (recordsCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	token, err := tokenStore(cfg).Load()
	if err != nil {
		return err
	}
	resp, body, err := api.Get(ctx, endpoint(cfg, "/get-records"), token)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return api.StatusError(resp, body)
	}
	var recs []model.Record
	if err := json.Unmarshal(body, &recs); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if len(recs) == 0 {
		fmt.Fprintln(Out, "No records")
		return nil
	}
	tw := tabwriter.NewWriter(Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tBIRTHDATE\tLRN\tATTACHMENTS")
	for _, r := range recs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.Name, r.Birthdate, dash(r.LRN), attachments(&r))
	}
	return tw.Flush()
}

// attachments перечисляет заполненные слоты записи.
func attachments(r *model.Record) string {
	var filled []string
	for _, s := range model.Slots {
		if ref := r.SlotRef(s); ref != nil && *ref != "" {
			filled = append(filled, string(s))
		}
	}
	if len(filled) == 0 {
		return "-"
	}
	return strings.Join(filled, ",")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

type deleteCmd struct{}

func (deleteCmd) Name() string        { return "delete" }
func (deleteCmd) Description() string { return "Delete a record by id" }
func (deleteCmd) Usage() string       { return "delete <id>" }

func (deleteCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return ErrUsage
	}
	token, err := tokenStore(cfg).Load()
	if err != nil {
		return err
	}
	resp, body, err := api.Delete(ctx, endpoint(cfg, "/delete-record/"+strconv.FormatInt(id, 10)), token)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return api.StatusError(resp, body)
	}
	fmt.Fprintf(Out, "Record %d deleted\n", id)
	return nil
}

type exportCmd struct{}

func (exportCmd) Name() string        { return "export" }
func (exportCmd) Description() string { return "Download all records as an Excel workbook" }
func (exportCmd) Usage() string       { return "export <out.xlsx>" }

func (exportCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	token, err := tokenStore(cfg).Load()
	if err != nil {
		return err
	}
	resp, body, err := api.Get(ctx, endpoint(cfg, "/api/records/export.xlsx"), token)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return api.StatusError(resp, body)
	}
	if err := os.WriteFile(args[0], body, 0o600); err != nil {
		return err
	}
	fmt.Fprintf(Out, "Saved %d bytes to %s\n", len(body), args[0])
	return nil
}

func init() {
	RegisterCmd(recordsCmd{})
	RegisterCmd(deleteCmd{})
	RegisterCmd(exportCmd{})
}
