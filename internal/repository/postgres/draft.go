// Package postgres implements the queue.Store contract against PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/piccplatform/ar-collections/internal/domain"
	"github.com/piccplatform/ar-collections/internal/resolver"
	"github.com/piccplatform/ar-collections/internal/service/queue"
)

// Open connects to Postgres and applies the pool limits.
func Open(url string, maxOpen, maxIdle int) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// DraftStore implements queue.Store against PostgreSQL.
type DraftStore struct{ db *sql.DB }

// NewDraftStore creates a Postgres-backed draft store.
func NewDraftStore(db *sql.DB) *DraftStore { return &DraftStore{db: db} }

// EnsureSchema creates the draft tables if they do not exist yet.
func (s *DraftStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ar_drafts (
			id VARCHAR(100) PRIMARY KEY,
			batch_id VARCHAR(100) NOT NULL,
			customer_name VARCHAR(255) NOT NULL,
			customer_key VARCHAR(255) NOT NULL DEFAULT '',
			tier VARCHAR(50) NOT NULL,
			label VARCHAR(100) NOT NULL,
			max_days_past_due INT NOT NULL DEFAULT 0,
			recipients_to JSONB NOT NULL DEFAULT '[]',
			recipients_cc JSONB NOT NULL DEFAULT '[]',
			recipients_bcc JSONB NOT NULL DEFAULT '[]',
			subject TEXT NOT NULL,
			body_html TEXT NOT NULL DEFAULT '',
			invoices JSONB NOT NULL DEFAULT '[]',
			match_result JSONB,
			status VARCHAR(20) NOT NULL,
			rejection_reason TEXT NOT NULL DEFAULT '',
			failure_reason TEXT NOT NULL DEFAULT '',
			sent_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("ensure ar_drafts: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ar_draft_audit (
			id BIGSERIAL PRIMARY KEY,
			draft_id VARCHAR(100) NOT NULL,
			action VARCHAR(50) NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			actor VARCHAR(100) NOT NULL DEFAULT '',
			at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("ensure ar_draft_audit: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_ar_draft_audit_draft ON ar_draft_audit (draft_id, id)`)
	if err != nil {
		return fmt.Errorf("ensure audit index: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_ar_drafts_customer_key ON ar_drafts (customer_key, status)`)
	if err != nil {
		return fmt.Errorf("ensure customer key index: %w", err)
	}
	return nil
}

func (s *DraftStore) Insert(ctx context.Context, drafts []domain.Draft) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	for i := range drafts {
		d := &drafts[i]
		to, cc, bcc, invoices, match, err := marshalDraftFields(d)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ar_drafts
				(id, batch_id, customer_name, customer_key, tier, label, max_days_past_due,
				 recipients_to, recipients_cc, recipients_bcc, subject, body_html,
				 invoices, match_result, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
		`, d.ID, d.BatchID, d.CustomerName, resolver.NormalizeName(d.CustomerName),
			d.Tier, d.Label, d.MaxDaysPastDue,
			to, cc, bcc, d.Subject, d.BodyHTML, invoices, match, d.Status)
		if err != nil {
			return fmt.Errorf("insert draft %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

const draftColumns = `
	id, batch_id, customer_name, tier, label, max_days_past_due,
	recipients_to, recipients_cc, recipients_bcc, subject, body_html,
	invoices, match_result, status, rejection_reason, failure_reason,
	sent_at, created_at`

func (s *DraftStore) Get(ctx context.Context, id string) (*domain.Draft, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+draftColumns+` FROM ar_drafts WHERE id = $1`, id)
	d, err := scanDraft(row)
	if err == sql.ErrNoRows {
		return nil, queue.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	return d, nil
}

func (s *DraftStore) List(ctx context.Context, f queue.ListFilter) ([]domain.Draft, error) {
	q := `SELECT ` + draftColumns + ` FROM ar_drafts WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if f.Status != "" {
		q += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}
	if f.Tier != "" {
		q += fmt.Sprintf(" AND tier = $%d", idx)
		args = append(args, f.Tier)
		idx++
	}
	q += " ORDER BY created_at DESC, id"
	// The manual-review flag lives inside the decoded match result, so when
	// that filter is set paging has to happen after the rows are filtered in
	// Go; pushing LIMIT into SQL would return short pages.
	pageInSQL := f.NeedsReview == nil
	if pageInSQL && f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT $%d OFFSET $%d", idx, idx+1)
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	var out []domain.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		if f.NeedsReview != nil && d.NeedsManualReview() != *f.NeedsReview {
			continue
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !pageInSQL {
		if f.Offset > 0 {
			if f.Offset >= len(out) {
				return nil, nil
			}
			out = out[f.Offset:]
		}
		if f.Limit > 0 && f.Limit < len(out) {
			out = out[:f.Limit]
		}
	}
	return out, nil
}

func (s *DraftStore) UpdateStatus(ctx context.Context, id string, u queue.StatusUpdate) error {
	q := `UPDATE ar_drafts SET status = $1`
	args := []interface{}{u.Status}
	idx := 2

	if u.RejectionReason != nil {
		q += fmt.Sprintf(", rejection_reason = $%d", idx)
		args = append(args, *u.RejectionReason)
		idx++
	}
	if u.FailureReason != nil {
		q += fmt.Sprintf(", failure_reason = $%d", idx)
		args = append(args, *u.FailureReason)
		idx++
	}
	if u.SentAt != nil {
		q += fmt.Sprintf(", sent_at = $%d", idx)
		args = append(args, *u.SentAt)
		idx++
	}
	q += fmt.Sprintf(" WHERE id = $%d", idx)
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update draft status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update draft status: %w", err)
	}
	if n == 0 {
		return queue.ErrNotFound
	}
	return nil
}

func (s *DraftStore) DeleteUnsent(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM ar_drafts WHERE status <> $1`, domain.DraftSent)
	if err != nil {
		return 0, fmt.Errorf("delete unsent drafts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete unsent drafts: %w", err)
	}
	return int(n), nil
}

// LastSentAt returns the most recent send time for a customer, or nil when
// nothing has gone out. The lookup runs against the normalized customer key
// written at insert time, so name variants with stray punctuation or doubled
// whitespace land on the same row as the Redis guard's key.
func (s *DraftStore) LastSentAt(ctx context.Context, customerName string) (*time.Time, error) {
	var t sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(sent_at) FROM ar_drafts
		WHERE status = $1 AND customer_key = $2
	`, domain.DraftSent, resolver.NormalizeName(customerName)).Scan(&t)
	if err != nil {
		return nil, fmt.Errorf("last sent at: %w", err)
	}
	if !t.Valid {
		return nil, nil
	}
	sent := t.Time
	return &sent, nil
}

func (s *DraftStore) AppendAudit(ctx context.Context, e queue.AuditEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ar_draft_audit (draft_id, action, detail, actor, at)
		VALUES ($1, $2, $3, $4, $5)
	`, e.DraftID, e.Action, e.Detail, e.Actor, e.At)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

func (s *DraftStore) AuditLog(ctx context.Context, draftID string) ([]queue.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, draft_id, action, detail, actor, at
		FROM ar_draft_audit
		WHERE draft_id = $1
		ORDER BY id
	`, draftID)
	if err != nil {
		return nil, fmt.Errorf("audit log: %w", err)
	}
	defer rows.Close()

	var out []queue.AuditEntry
	for rows.Next() {
		var e queue.AuditEntry
		if err := rows.Scan(&e.ID, &e.DraftID, &e.Action, &e.Detail, &e.Actor, &e.At); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDraft(row rowScanner) (*domain.Draft, error) {
	d := &domain.Draft{}
	var to, cc, bcc, invoices []byte
	var match sql.NullString
	var sentAt sql.NullTime

	err := row.Scan(
		&d.ID, &d.BatchID, &d.CustomerName, &d.Tier, &d.Label, &d.MaxDaysPastDue,
		&to, &cc, &bcc, &d.Subject, &d.BodyHTML,
		&invoices, &match, &d.Status, &d.RejectionReason, &d.FailureReason,
		&sentAt, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(to, &d.To); err != nil {
		return nil, fmt.Errorf("decode recipients_to: %w", err)
	}
	if err := json.Unmarshal(cc, &d.CC); err != nil {
		return nil, fmt.Errorf("decode recipients_cc: %w", err)
	}
	if err := json.Unmarshal(bcc, &d.BCC); err != nil {
		return nil, fmt.Errorf("decode recipients_bcc: %w", err)
	}
	if err := json.Unmarshal(invoices, &d.Invoices); err != nil {
		return nil, fmt.Errorf("decode invoices: %w", err)
	}
	if match.Valid && match.String != "" && match.String != "null" {
		d.Match = &domain.MatchResult{}
		if err := json.Unmarshal([]byte(match.String), d.Match); err != nil {
			return nil, fmt.Errorf("decode match_result: %w", err)
		}
	}
	if sentAt.Valid {
		t := sentAt.Time
		d.SentAt = &t
	}
	return d, nil
}

func marshalDraftFields(d *domain.Draft) (to, cc, bcc, invoices, match []byte, err error) {
	if to, err = json.Marshal(emptySlice(d.To)); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("encode recipients_to: %w", err)
	}
	if cc, err = json.Marshal(emptySlice(d.CC)); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("encode recipients_cc: %w", err)
	}
	if bcc, err = json.Marshal(emptySlice(d.BCC)); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("encode recipients_bcc: %w", err)
	}
	if invoices, err = json.Marshal(d.Invoices); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("encode invoices: %w", err)
	}
	if d.Match != nil {
		if match, err = json.Marshal(d.Match); err != nil {
			return nil, nil, nil, nil, nil, fmt.Errorf("encode match_result: %w", err)
		}
	}
	return to, cc, bcc, invoices, match, nil
}

// emptySlice keeps JSONB columns as [] instead of null for nil slices.
func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
