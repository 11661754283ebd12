package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"invscreen/internal/port"
)

// hsnUpsertBatch bounds the number of rows per multi-row INSERT.
const hsnUpsertBatch = 500

type hsnRepo struct {
	db *sqlx.DB
}

// NewHSNRepo creates a new PostgreSQL-backed HSNRepository.
func NewHSNRepo(db *sqlx.DB) port.HSNRepository {
	return &hsnRepo{db: db}
}

// LoadAll returns the currently effective rates.
func (r *hsnRepo) LoadAll(ctx context.Context) ([]port.HSNEntry, error) {
	var entries []port.HSNEntry
	err := r.db.SelectContext(ctx, &entries,
		`SELECT code, description, gst_rate, condition_desc
		 FROM hsn_codes
		 WHERE effective_to IS NULL OR effective_to >= CURRENT_DATE
		 ORDER BY code, gst_rate`)
	if err != nil {
		return nil, fmt.Errorf("hsnRepo.LoadAll: %w", err)
	}
	return entries, nil
}

// Upsert writes entries in batches inside one transaction and returns the
// number of rows written.
func (r *hsnRepo) Upsert(ctx context.Context, entries []port.HSNEntry) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("hsnRepo.Upsert begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	entries = dedupeHSN(entries)
	written := 0
	for start := 0; start < len(entries); start += hsnUpsertBatch {
		end := min(start+hsnUpsertBatch, len(entries))
		batch := entries[start:end]

		var sb strings.Builder
		sb.WriteString(`INSERT INTO hsn_codes (code, description, gst_rate, condition_desc) VALUES `)
		args := make([]any, 0, len(batch)*4)
		for i := range batch {
			if i > 0 {
				sb.WriteString(", ")
			}
			n := i * 4
			fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4)
			args = append(args, batch[i].Code, batch[i].Description, batch[i].GSTRate, batch[i].ConditionDesc)
		}
		sb.WriteString(` ON CONFLICT (code, gst_rate, condition_desc) DO UPDATE SET description = EXCLUDED.description`)

		res, err := tx.ExecContext(ctx, sb.String(), args...)
		if err != nil {
			return 0, fmt.Errorf("hsnRepo.Upsert batch at %d: %w", start, err)
		}
		n, _ := res.RowsAffected()
		written += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("hsnRepo.Upsert commit: %w", err)
	}
	return written, nil
}

// dedupeHSN keeps the last entry per (code, rate, condition); one INSERT cannot
// touch the same conflict key twice.
func dedupeHSN(entries []port.HSNEntry) []port.HSNEntry {
	type key struct {
		code string
		rate float64
		cond string
	}
	pos := make(map[key]int, len(entries))
	out := make([]port.HSNEntry, 0, len(entries))
	for _, e := range entries {
		k := key{e.Code, e.GSTRate, e.ConditionDesc}
		if i, ok := pos[k]; ok {
			out[i] = e
			continue
		}
		pos[k] = len(out)
		out = append(out, e)
	}
	return out
}
