package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const transferColumns = "id, transfer_id, direction, route_key, party, my_reference, their_reference, filename, source_path, destination_path, size_bytes, sha256, attachment_id, status, error_message, created_at, updated_at"

// RecordOutbound inserts a transfer the dispatcher is about to submit.
func (s *Store) RecordOutbound(ctx context.Context, t *Transfer) error {
	t.Direction = DirectionOutbound
	return s.record(ctx, t)
}

// RecordInbound inserts a transfer delivered by the acceptor.
func (s *Store) RecordInbound(ctx context.Context, t *Transfer) error {
	t.Direction = DirectionInbound
	return s.record(ctx, t)
}

func (s *Store) record(ctx context.Context, t *Transfer) error {
	if t == nil {
		return errors.New("journal: nil transfer")
	}
	if strings.TrimSpace(t.Filename) == "" {
		return errors.New("journal: filename is required")
	}
	if t.TransferID == "" {
		t.TransferID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	now := s.now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	res, err := s.db.ExecContext(ensureContext(ctx),
		`INSERT INTO transfers (
			transfer_id, direction, route_key, party, my_reference, their_reference,
			filename, source_path, destination_path, size_bytes, sha256, attachment_id,
			status, error_message, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(transfer_id, direction) DO UPDATE SET
			status = excluded.status,
			error_message = excluded.error_message,
			destination_path = excluded.destination_path,
			size_bytes = excluded.size_bytes,
			sha256 = excluded.sha256,
			updated_at = excluded.updated_at`,
		t.TransferID,
		string(t.Direction),
		nullableString(t.RouteKey),
		nullableString(t.Party),
		nullableString(t.MyReference),
		nullableString(t.TheirReference),
		t.Filename,
		nullableString(t.SourcePath),
		nullableString(t.DestinationPath),
		t.SizeBytes,
		nullableString(t.SHA256),
		nullableString(t.AttachmentID),
		string(t.Status),
		nullableString(t.ErrorMessage),
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		t.ID = id
	}
	return nil
}

// MarkSubmitted records that an outbound transfer's attachment was handed to
// the transport.
func (s *Store) MarkSubmitted(ctx context.Context, transferID, attachmentID string) error {
	return s.update(ctx, DirectionOutbound, transferID,
		"status = ?, attachment_id = COALESCE(?, attachment_id)",
		string(StatusSubmitted), nullableString(attachmentID))
}

// MarkCompleted records that a transfer settled successfully.
func (s *Store) MarkCompleted(ctx context.Context, direction Direction, transferID string) error {
	return s.update(ctx, direction, transferID,
		"status = ?, error_message = NULL", string(StatusCompleted))
}

// MarkFailed records the failure cause and returns the status it was filed
// under.
func (s *Store) MarkFailed(ctx context.Context, direction Direction, transferID string, cause error) (Status, error) {
	status := FailureStatus(cause)
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	if err := s.update(ctx, direction, transferID,
		"status = ?, error_message = ?", string(status), nullableString(message)); err != nil {
		return status, err
	}
	return status, nil
}

func (s *Store) update(ctx context.Context, direction Direction, transferID, set string, args ...any) error {
	args = append(args, formatTime(s.now().UTC()), transferID, string(direction))
	res, err := s.db.ExecContext(ensureContext(ctx),
		"UPDATE transfers SET "+set+", updated_at = ? WHERE transfer_id = ? AND direction = ?",
		args...)
	if err != nil {
		return fmt.Errorf("update transfer %s: %w", transferID, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, transferID)
	}
	return nil
}

// Get returns the journal row for transferID in direction.
func (s *Store) Get(ctx context.Context, direction Direction, transferID string) (*Transfer, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+transferColumns+" FROM transfers WHERE transfer_id = ? AND direction = ?",
		transferID, string(direction))
	t, err := scanTransfer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, transferID)
	}
	if err != nil {
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	return t, nil
}

// List returns journal rows newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]*Transfer, error) {
	ctx = ensureContext(ctx)
	var (
		clauses []string
		args    []any
	)
	if filter.Direction != "" {
		clauses = append(clauses, "direction = ?")
		args = append(args, string(filter.Direction))
	}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+makePlaceholders(len(filter.Statuses))+")")
		for _, status := range filter.Statuses {
			args = append(args, string(status))
		}
	}
	query := "SELECT " + transferColumns + " FROM transfers"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

// Counts returns the number of transfers per status.
func (s *Store) Counts(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM transfers GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count transfers: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int, len(allStatuses))
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[Status(status)] = count
	}
	return counts, rows.Err()
}

func scanTransfer(scanner interface{ Scan(dest ...any) error }) (*Transfer, error) {
	var (
		t              Transfer
		direction      string
		status         string
		routeKey       sql.NullString
		party          sql.NullString
		myReference    sql.NullString
		theirReference sql.NullString
		sourcePath     sql.NullString
		destPath       sql.NullString
		sha            sql.NullString
		attachmentID   sql.NullString
		errorMessage   sql.NullString
		createdRaw     string
		updatedRaw     string
	)
	if err := scanner.Scan(
		&t.ID,
		&t.TransferID,
		&direction,
		&routeKey,
		&party,
		&myReference,
		&theirReference,
		&t.Filename,
		&sourcePath,
		&destPath,
		&t.SizeBytes,
		&sha,
		&attachmentID,
		&status,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	t.Direction = Direction(direction)
	t.Status = Status(status)
	t.RouteKey = routeKey.String
	t.Party = party.String
	t.MyReference = myReference.String
	t.TheirReference = theirReference.String
	t.SourcePath = sourcePath.String
	t.DestinationPath = destPath.String
	t.SHA256 = sha.String
	t.AttachmentID = attachmentID.String
	t.ErrorMessage = errorMessage.String
	if created, err := parseTimeString(createdRaw); err == nil {
		t.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		t.UpdatedAt = updated
	}
	return &t, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
