package transfer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"filerelay/internal/transfer"
)

func TestTrackerDeliversProgressThenResult(t *testing.T) {
	tracker := transfer.NewTracker(4)
	tracker.Report(transfer.StageUploading, 0.5, "uploading")
	tracker.Report(transfer.StageSending, 1, "sending")
	tracker.Finish(nil)
	tracker.Finish(errors.New("ignored"))
	tracker.Report(transfer.StageDone, 1, "late")

	var stages []transfer.Stage
	for event := range tracker.Progress() {
		stages = append(stages, event.Stage)
	}
	if len(stages) != 2 || stages[0] != transfer.StageUploading || stages[1] != transfer.StageSending {
		t.Fatalf("unexpected stages: %v", stages)
	}
	if err := tracker.Await(context.Background()); err != nil {
		t.Fatalf("Await returned %v", err)
	}
}

func TestTrackerDropsProgressWhenFull(t *testing.T) {
	tracker := transfer.NewTracker(1)
	tracker.Report(transfer.StageGenerating, 0, "")
	tracker.Report(transfer.StageUploading, 0, "")
	want := errors.New("boom")
	tracker.Finish(want)

	count := 0
	for range tracker.Progress() {
		count++
	}
	if count != 1 {
		t.Fatalf("expected 1 buffered event, got %d", count)
	}
	if err := tracker.Await(context.Background()); !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestTrackerAwaitHonoursContext(t *testing.T) {
	tracker := transfer.NewTracker(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := tracker.Await(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestSubmissionErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{transfer.ErrRejected, "rejected"},
		{transfer.ErrUnknownParty, "configuration"},
		{errors.New("connection refused"), "transport"},
	}
	for _, tc := range cases {
		subErr := &transfer.SubmissionError{Route: "R1", Party: "NodeB", Filename: "a.txt", Err: tc.err}
		if got := subErr.ErrorKind(); got != tc.want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
		if !errors.Is(subErr, tc.err) {
			t.Fatalf("expected SubmissionError to unwrap to %v", tc.err)
		}
	}
}

func TestRequestManifest(t *testing.T) {
	req := transfer.Request{
		TransferID:       "id-1",
		DestinationParty: "NodeB",
		TheirReference:   "t1",
		MyReference:      "m1",
		Filename:         "report.txt",
	}
	manifest := req.Manifest("NodeA")
	if manifest.Sender != "NodeA" || manifest.Recipient != "NodeB" {
		t.Fatalf("unexpected parties: %+v", manifest)
	}
	if manifest.SenderReference != "m1" || manifest.RecipientReference != "t1" {
		t.Fatalf("unexpected references: %+v", manifest)
	}
}

func TestCleanFilename(t *testing.T) {
	cases := map[string]string{
		"report.txt":         "report.txt",
		"../../etc/passwd":   "passwd",
		"dir\\nested\\a.csv": "a.csv",
		"  spaced.txt ":      "  spaced.txt ",
	}
	for input, want := range cases {
		if got := transfer.CleanFilename(input); got != want {
			t.Fatalf("CleanFilename(%q) = %q, want %q", input, got, want)
		}
	}
}
