package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"invscreen/internal/domain"
	"invscreen/internal/port"
)

type screeningRow struct {
	ID          uuid.UUID       `db:"id"`
	Ledger      string          `db:"ledger"`
	Invoice     json.RawMessage `db:"invoice"`
	Verdict     json.RawMessage `db:"verdict"`
	OverallFlag string          `db:"overall_flag"`
	Appended    bool            `db:"appended"`
	CreatedAt   time.Time       `db:"created_at"`
}

func (row *screeningRow) toDomain() (*domain.Screening, error) {
	s := &domain.Screening{
		ID:        row.ID,
		Ledger:    row.Ledger,
		Appended:  row.Appended,
		CreatedAt: row.CreatedAt,
	}
	if err := json.Unmarshal(row.Invoice, &s.Invoice); err != nil {
		return nil, fmt.Errorf("decoding invoice: %w", err)
	}
	if err := json.Unmarshal(row.Verdict, &s.Verdict); err != nil {
		return nil, fmt.Errorf("decoding verdict: %w", err)
	}
	return s, nil
}

type screeningRepo struct {
	db *sqlx.DB
}

// NewScreeningRepo creates a new PostgreSQL-backed ScreeningRepository.
func NewScreeningRepo(db *sqlx.DB) port.ScreeningRepository {
	return &screeningRepo{db: db}
}

func (r *screeningRepo) Create(ctx context.Context, s *domain.Screening) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	inv, err := json.Marshal(s.Invoice)
	if err != nil {
		return fmt.Errorf("screeningRepo.Create invoice: %w", err)
	}
	verdict, err := json.Marshal(s.Verdict)
	if err != nil {
		return fmt.Errorf("screeningRepo.Create verdict: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO screenings (id, ledger, invoice, verdict, overall_flag, appended, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.Ledger, json.RawMessage(inv), json.RawMessage(verdict), string(s.Verdict.OverallFlag), s.Appended, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("screeningRepo.Create: %w", err)
	}
	return nil
}

func (r *screeningRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Screening, error) {
	var row screeningRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM screenings WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("screeningRepo.GetByID: %w", err)
	}
	s, err := row.toDomain()
	if err != nil {
		return nil, fmt.Errorf("screeningRepo.GetByID: %w", err)
	}
	return s, nil
}

func (r *screeningRepo) ListByLedger(ctx context.Context, ledger string, offset, limit int) ([]domain.Screening, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM screenings WHERE ledger = $1`, ledger); err != nil {
		return nil, 0, fmt.Errorf("screeningRepo.ListByLedger count: %w", err)
	}

	var rows []screeningRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM screenings
		 WHERE ledger = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		ledger, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("screeningRepo.ListByLedger: %w", err)
	}

	out := make([]domain.Screening, 0, len(rows))
	for i := range rows {
		s, err := rows[i].toDomain()
		if err != nil {
			return nil, 0, fmt.Errorf("screeningRepo.ListByLedger row %s: %w", rows[i].ID, err)
		}
		out = append(out, *s)
	}
	return out, total, nil
}
