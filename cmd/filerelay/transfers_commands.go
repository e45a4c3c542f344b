package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"filerelay/internal/config"
	"filerelay/internal/journal"
)

func newTransfersCommand(ctx *commandContext) *cobra.Command {
	transfersCmd := &cobra.Command{
		Use:     "transfers",
		Aliases: []string{"journal"},
		Short:   "Inspect the transfer journal",
	}

	transfersCmd.AddCommand(newTransfersListCommand(ctx))
	transfersCmd.AddCommand(newTransfersStatusCommand(ctx))

	return transfersCmd
}

// transferView is the JSON shape of one journal row.
type transferView struct {
	TransferID      string `json:"transfer_id"`
	Direction       string `json:"direction"`
	Route           string `json:"route,omitempty"`
	Party           string `json:"party,omitempty"`
	Reference       string `json:"reference,omitempty"`
	Filename        string `json:"filename"`
	SourcePath      string `json:"source_path,omitempty"`
	DestinationPath string `json:"destination_path,omitempty"`
	SizeBytes       int64  `json:"size_bytes"`
	SHA256          string `json:"sha256,omitempty"`
	AttachmentID    string `json:"attachment_id,omitempty"`
	Status          string `json:"status"`
	Error           string `json:"error,omitempty"`
	UpdatedAt       string `json:"updated_at"`
}

func newTransferView(t *journal.Transfer) transferView {
	return transferView{
		TransferID:      t.TransferID,
		Direction:       string(t.Direction),
		Route:           t.RouteKey,
		Party:           t.Party,
		Reference:       referenceFor(t),
		Filename:        t.Filename,
		SourcePath:      t.SourcePath,
		DestinationPath: t.DestinationPath,
		SizeBytes:       t.SizeBytes,
		SHA256:          t.SHA256,
		AttachmentID:    t.AttachmentID,
		Status:          string(t.Status),
		Error:           t.ErrorMessage,
		UpdatedAt:       t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// referenceFor returns the reference that routed the transfer on the peer
// (outbound) or on this node (inbound).
func referenceFor(t *journal.Transfer) string {
	if t.Direction == journal.DirectionInbound {
		return t.MyReference
	}
	return t.TheirReference
}

func newTransfersListCommand(ctx *commandContext) *cobra.Command {
	var direction string
	var statuses []string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journaled transfers, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := journal.Filter{Limit: limit}
			if strings.TrimSpace(direction) != "" {
				parsed, err := journal.ParseDirection(direction)
				if err != nil {
					return err
				}
				filter.Direction = parsed
			}
			for _, raw := range statuses {
				status, err := journal.ParseStatus(raw)
				if err != nil {
					return err
				}
				filter.Statuses = append(filter.Statuses, status)
			}

			return ctx.withJournal(func(_ *config.Config, store *journal.Store) error {
				rows, err := store.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if asJSON {
					views := make([]transferView, 0, len(rows))
					for _, t := range rows {
						views = append(views, newTransferView(t))
					}
					return writeJSON(cmd, views)
				}

				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintln(out, "No transfers recorded")
					return nil
				}
				table := make([][]string, 0, len(rows))
				for _, t := range rows {
					table = append(table, []string{
						shortID(t.TransferID),
						string(t.Direction),
						t.Party,
						referenceFor(t),
						t.Filename,
						strconv.FormatInt(t.SizeBytes, 10),
						string(t.Status),
						t.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Direction", "Party", "Reference", "File", "Bytes", "Status", "Updated"},
					table,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
					shouldColorize(out),
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&direction, "direction", "d", "", "Only show outbound or inbound transfers")
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Only show these statuses (pending, submitted, completed, failed, rejected)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum rows to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newTransfersStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show transfer counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(_ *config.Config, store *journal.Store) error {
				counts, err := store.Counts(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(counts))
				for _, status := range journal.AllStatuses() {
					if n := counts[status]; n > 0 {
						rows = append(rows, []string{string(status), strconv.Itoa(n)})
					}
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "No transfers recorded")
					return nil
				}
				fmt.Fprint(out, renderTable([]string{"Status", "Count"}, rows,
					[]columnAlignment{alignLeft, alignRight}, shouldColorize(out)))
				return nil
			})
		},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
