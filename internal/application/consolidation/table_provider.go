package consolidation

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
	"github.com/jhoicas/medprod-fiscal/internal/domain/fiscal"
	"github.com/jhoicas/medprod-fiscal/internal/domain/repository"
)

// TableProvider elige las tablas vigentes de una competencia.
type TableProvider struct {
	repo repository.FiscalTableRepository
}

// NewTableProvider construye el proveedor.
func NewTableProvider(repo repository.FiscalTableRepository) *TableProvider {
	return &TableProvider{repo: repo}
}

// GetEffectiveTables tablas cuya vigencia contiene el primer día de la competencia.
// Si varias se superponen gana la de ValidFrom más reciente, luego CreatedAt más reciente, luego el mayor ID.
func (p *TableProvider) GetEffectiveTables(ctx context.Context, c entity.Competence) (fiscal.EffectiveTables, error) {
	day := c.FirstDay()

	inss, err := p.repo.ListEffective(ctx, entity.TaxKindINSS, day)
	if err != nil {
		return fiscal.EffectiveTables{}, fmt.Errorf("tablas inss: %w", err)
	}
	irrf, err := p.repo.ListEffective(ctx, entity.TaxKindIRRF, day)
	if err != nil {
		return fiscal.EffectiveTables{}, fmt.Errorf("tablas irrf: %w", err)
	}

	var proLabore, employee []*entity.FiscalBracketTable
	for _, t := range inss {
		switch t.ContributorKind {
		case entity.ContributorProLabore:
			proLabore = append(proLabore, t)
		case entity.ContributorEmployee:
			employee = append(employee, t)
		}
	}

	return fiscal.NewEffectiveTables(c,
		normalized(pickLatest(proLabore)),
		normalized(pickLatest(employee)),
		normalized(pickLatest(irrf)),
	)
}

func pickLatest(tables []*entity.FiscalBracketTable) *entity.FiscalBracketTable {
	if len(tables) == 0 {
		return nil
	}
	sorted := append([]*entity.FiscalBracketTable(nil), tables...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.ValidFrom.Equal(b.ValidFrom) {
			return a.ValidFrom.After(b.ValidFrom)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return sorted[0]
}

// normalized copia con faixas en orden ascendente y alícuotas como fracción.
func normalized(t *entity.FiscalBracketTable) *entity.FiscalBracketTable {
	if t == nil {
		return nil
	}
	out := *t
	out.Brackets = make([]entity.FiscalBracket, len(t.Brackets))
	copy(out.Brackets, t.Brackets)
	sort.SliceStable(out.Brackets, func(i, j int) bool {
		return out.Brackets[i].LowerBound.LessThan(out.Brackets[j].LowerBound)
	})
	for i := range out.Brackets {
		out.Brackets[i].Rate = fiscal.NormalizeRate(out.Brackets[i].Rate)
	}
	return &out
}
