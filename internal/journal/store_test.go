package journal_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"filerelay/internal/journal"
	"filerelay/internal/routing"
	"filerelay/internal/testsupport"
	"filerelay/internal/transfer"
)

func TestOpenCreatesSchemaAndReopens(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if store.Path() != cfg.JournalPath() {
		t.Fatalf("unexpected path %q", store.Path())
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := testsupport.MustOpenJournal(t, cfg)
	if _, err := reopened.Counts(context.Background()); err != nil {
		t.Fatalf("Counts after reopen: %v", err)
	}
}

func TestOpenRejectsNewerJournal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	store.Close()

	db, err := sql.Open("sqlite", cfg.JournalPath())
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("bump user_version: %v", err)
	}
	db.Close()

	if _, err := journal.OpenPath(cfg.JournalPath()); !errors.Is(err, journal.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestOutboundLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	record := &journal.Transfer{
		RouteKey:       "R1",
		Party:          "NodeB",
		MyReference:    "m1",
		TheirReference: "t1",
		Filename:       "report.txt",
		SourcePath:     "/tmp/out/report.txt",
		SizeBytes:      42,
	}
	if err := store.RecordOutbound(ctx, record); err != nil {
		t.Fatalf("RecordOutbound failed: %v", err)
	}
	if record.TransferID == "" {
		t.Fatal("expected transfer ID to be assigned")
	}
	if record.Status != journal.StatusPending {
		t.Fatalf("expected pending status, got %q", record.Status)
	}

	if err := store.MarkSubmitted(ctx, record.TransferID, "bafkreiexample"); err != nil {
		t.Fatalf("MarkSubmitted failed: %v", err)
	}
	if err := store.MarkCompleted(ctx, journal.DirectionOutbound, record.TransferID); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}

	fetched, err := store.Get(ctx, journal.DirectionOutbound, record.TransferID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.Status != journal.StatusCompleted {
		t.Fatalf("expected completed, got %q", fetched.Status)
	}
	if fetched.AttachmentID != "bafkreiexample" || fetched.RouteKey != "R1" || fetched.SizeBytes != 42 {
		t.Fatalf("unexpected row: %#v", fetched)
	}
	if fetched.CreatedAt.IsZero() || fetched.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be parsed")
	}
}

func TestMarkFailedClassifiesErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	cases := []struct {
		name string
		err  error
		want journal.Status
	}{
		{"transport", &transfer.SubmissionError{Err: errors.New("connection refused")}, journal.StatusFailed},
		{"rejected", &transfer.SubmissionError{Err: transfer.ErrRejected}, journal.StatusRejected},
		{"unknown reference", &routing.UnknownReferenceError{Reference: "x"}, journal.StatusRejected},
		{"escape", &routing.PathEscapeError{Directory: "/in", Name: "../x"}, journal.StatusRejected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record := &journal.Transfer{Filename: tc.name + ".txt"}
			if err := store.RecordInbound(ctx, record); err != nil {
				t.Fatalf("RecordInbound failed: %v", err)
			}
			status, err := store.MarkFailed(ctx, journal.DirectionInbound, record.TransferID, tc.err)
			if err != nil {
				t.Fatalf("MarkFailed failed: %v", err)
			}
			if status != tc.want {
				t.Fatalf("status = %q, want %q", status, tc.want)
			}
			fetched, err := store.Get(ctx, journal.DirectionInbound, record.TransferID)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if fetched.Status != tc.want || fetched.ErrorMessage == "" {
				t.Fatalf("unexpected row: %#v", fetched)
			}
		})
	}
}

func TestSameTransferIDInBothDirections(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	out := &journal.Transfer{TransferID: "shared", Filename: "a.txt"}
	in := &journal.Transfer{TransferID: "shared", Filename: "a.txt", Status: journal.StatusCompleted}
	if err := store.RecordOutbound(ctx, out); err != nil {
		t.Fatalf("RecordOutbound failed: %v", err)
	}
	if err := store.RecordInbound(ctx, in); err != nil {
		t.Fatalf("RecordInbound failed: %v", err)
	}

	all, err := store.List(ctx, journal.Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected two rows, got %d", len(all))
	}
}

func TestListFiltersAndCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		if err := store.RecordOutbound(ctx, &journal.Transfer{Filename: name}); err != nil {
			t.Fatalf("RecordOutbound failed: %v", err)
		}
	}
	inbound := &journal.Transfer{Filename: "d.txt", Status: journal.StatusCompleted}
	if err := store.RecordInbound(ctx, inbound); err != nil {
		t.Fatalf("RecordInbound failed: %v", err)
	}

	outbound, err := store.List(ctx, journal.Filter{Direction: journal.DirectionOutbound})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(outbound) != 3 {
		t.Fatalf("expected 3 outbound rows, got %d", len(outbound))
	}
	if outbound[0].Filename != "c.txt" {
		t.Fatalf("expected newest first, got %q", outbound[0].Filename)
	}

	limited, err := store.List(ctx, journal.Filter{Limit: 1})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}

	completed, err := store.List(ctx, journal.Filter{Statuses: []journal.Status{journal.StatusCompleted}})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(completed) != 1 || completed[0].Direction != journal.DirectionInbound {
		t.Fatalf("unexpected completed rows: %#v", completed)
	}

	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if counts[journal.StatusPending] != 3 || counts[journal.StatusCompleted] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestGetUnknownTransfer(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	if _, err := store.Get(context.Background(), journal.DirectionOutbound, "missing"); !errors.Is(err, journal.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.MarkCompleted(context.Background(), journal.DirectionOutbound, "missing"); !errors.Is(err, journal.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from MarkCompleted, got %v", err)
	}
}

func TestParseHelpers(t *testing.T) {
	if status, err := journal.ParseStatus(" Completed "); err != nil || status != journal.StatusCompleted {
		t.Fatalf("ParseStatus = %q, %v", status, err)
	}
	if _, err := journal.ParseStatus("lost"); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if dir, err := journal.ParseDirection("in"); err != nil || dir != journal.DirectionInbound {
		t.Fatalf("ParseDirection = %q, %v", dir, err)
	}
	if !journal.StatusRejected.IsTerminal() || journal.StatusSubmitted.IsTerminal() {
		t.Fatal("unexpected terminal classification")
	}
}
