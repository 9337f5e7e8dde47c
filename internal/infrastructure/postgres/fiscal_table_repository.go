package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
	"github.com/jhoicas/medprod-fiscal/internal/domain/repository"
)

var _ repository.FiscalTableRepository = (*FiscalTableRepo)(nil)

type FiscalTableRepo struct {
	q Querier
}

func NewFiscalTableRepository(q Querier) *FiscalTableRepo {
	return &FiscalTableRepo{q: q}
}

// ListEffective tablas del tipo vigentes en date, con sus faixas en orden de posición.
func (r *FiscalTableRepo) ListEffective(ctx context.Context, kind entity.TaxKind, date time.Time) ([]*entity.FiscalBracketTable, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, kind, contributor_kind, valid_from, valid_to, contribution_ceiling, dependent_deduction, created_at
		FROM fiscal_tables
		WHERE kind = $1 AND valid_from <= $2 AND (valid_to IS NULL OR valid_to >= $2)
		ORDER BY valid_from DESC, created_at DESC, id DESC`, string(kind), date)
	if err != nil {
		return nil, mapErr("list fiscal tables", err)
	}
	defer rows.Close()

	var (
		tables []*entity.FiscalBracketTable
		ids    []string
		byID   = map[string]*entity.FiscalBracketTable{}
	)
	for rows.Next() {
		var (
			t              entity.FiscalBracketTable
			kindStr, contr string
			ceiling        *decimal.Decimal
		)
		if err := rows.Scan(&t.ID, &kindStr, &contr, &t.ValidFrom, &t.ValidTo, &ceiling, &t.DependentDeduction, &t.CreatedAt); err != nil {
			return nil, mapErr("scan fiscal table", err)
		}
		t.Kind = entity.TaxKind(kindStr)
		t.ContributorKind = entity.ContributorKind(contr)
		t.ContributionCeiling = ceiling
		tables = append(tables, &t)
		ids = append(ids, t.ID)
		byID[t.ID] = &t
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("scan fiscal table", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	brows, err := r.q.Query(ctx, `
		SELECT table_id, lower_bound, upper_bound, rate, deduction
		FROM fiscal_brackets
		WHERE table_id = ANY($1)
		ORDER BY table_id, position`, ids)
	if err != nil {
		return nil, mapErr("list fiscal brackets", err)
	}
	defer brows.Close()
	for brows.Next() {
		var (
			tableID string
			b       entity.FiscalBracket
		)
		if err := brows.Scan(&tableID, &b.LowerBound, &b.UpperBound, &b.Rate, &b.Deduction); err != nil {
			return nil, mapErr("scan fiscal bracket", err)
		}
		if t, ok := byID[tableID]; ok {
			t.Brackets = append(t.Brackets, b)
		}
	}
	return tables, mapErr("scan fiscal bracket", brows.Err())
}

// Create inserta la tabla y sus faixas en una sola transacción.
func (r *FiscalTableRepo) Create(ctx context.Context, t *entity.FiscalBracketTable) error {
	tx, err := r.q.Begin(ctx)
	if err != nil {
		return mapErr("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
		t.CreatedAt = createdAt
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO fiscal_tables (id, kind, contributor_kind, valid_from, valid_to, contribution_ceiling, dependent_deduction, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, string(t.Kind), string(t.ContributorKind), t.ValidFrom, t.ValidTo, t.ContributionCeiling, t.DependentDeduction, createdAt)
	if err != nil {
		return mapErr(fmt.Sprintf("create fiscal table %s", t.ID), err)
	}
	for i, b := range t.Brackets {
		_, err = tx.Exec(ctx, `
			INSERT INTO fiscal_brackets (table_id, position, lower_bound, upper_bound, rate, deduction)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			t.ID, i, b.LowerBound, b.UpperBound, b.Rate, b.Deduction)
		if err != nil {
			return mapErr(fmt.Sprintf("create fiscal bracket %s/%d", t.ID, i), err)
		}
	}
	return mapErr("commit", tx.Commit(ctx))
}
