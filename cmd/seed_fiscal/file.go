package main

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
	"github.com/jhoicas/medprod-fiscal/internal/domain/fiscal"
)

// seedFile formato del YAML de seed. Montos como string para no pasar por float.
type seedFile struct {
	Tables []struct {
		ID                  string `yaml:"id"`
		Kind                string `yaml:"kind"`
		ContributorKind     string `yaml:"contributor_kind"`
		ValidFrom           string `yaml:"valid_from"`
		ValidTo             string `yaml:"valid_to"`
		ContributionCeiling string `yaml:"contribution_ceiling"`
		DependentDeduction  string `yaml:"dependent_deduction"`
		Brackets            []struct {
			Lower     string `yaml:"lower"`
			Upper     string `yaml:"upper"`
			Rate      string `yaml:"rate"`
			Deduction string `yaml:"deduction"`
		} `yaml:"brackets"`
	} `yaml:"tables"`
	Professionals []entity.Professional `yaml:"professionals"`
	Entities      []entity.PayingEntity `yaml:"entities"`
}

// seedData contenido ya validado.
type seedData struct {
	Tables        []*entity.FiscalBracketTable
	Professionals []*entity.Professional
	Entities      []*entity.PayingEntity
}

func parseSeed(r io.Reader) (*seedData, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decodificar YAML: %w", err)
	}

	out := &seedData{}
	for _, t := range f.Tables {
		table := &entity.FiscalBracketTable{
			ID:              t.ID,
			Kind:            entity.TaxKind(t.Kind),
			ContributorKind: entity.ContributorKind(t.ContributorKind),
		}
		if table.ID == "" {
			return nil, fmt.Errorf("tabla sin id")
		}
		switch table.Kind {
		case entity.TaxKindINSS:
			if table.ContributorKind != entity.ContributorEmployee && table.ContributorKind != entity.ContributorProLabore {
				return nil, fmt.Errorf("tabla %s: contributor_kind inválido %q", t.ID, t.ContributorKind)
			}
		case entity.TaxKindIRRF:
		default:
			return nil, fmt.Errorf("tabla %s: kind inválido %q", t.ID, t.Kind)
		}

		var err error
		if table.ValidFrom, err = time.Parse(time.DateOnly, t.ValidFrom); err != nil {
			return nil, fmt.Errorf("tabla %s: valid_from: %w", t.ID, err)
		}
		if t.ValidTo != "" {
			to, err := time.Parse(time.DateOnly, t.ValidTo)
			if err != nil {
				return nil, fmt.Errorf("tabla %s: valid_to: %w", t.ID, err)
			}
			table.ValidTo = &to
		}
		if table.ContributionCeiling, err = optionalDecimal(t.ContributionCeiling); err != nil {
			return nil, fmt.Errorf("tabla %s: contribution_ceiling: %w", t.ID, err)
		}
		if t.DependentDeduction != "" {
			if table.DependentDeduction, err = decimal.NewFromString(t.DependentDeduction); err != nil {
				return nil, fmt.Errorf("tabla %s: dependent_deduction: %w", t.ID, err)
			}
		}

		for i, b := range t.Brackets {
			var fb entity.FiscalBracket
			if fb.LowerBound, err = decimal.NewFromString(b.Lower); err != nil {
				return nil, fmt.Errorf("tabla %s faixa %d: lower: %w", t.ID, i, err)
			}
			if fb.UpperBound, err = optionalDecimal(b.Upper); err != nil {
				return nil, fmt.Errorf("tabla %s faixa %d: upper: %w", t.ID, i, err)
			}
			rate, err := decimal.NewFromString(b.Rate)
			if err != nil {
				return nil, fmt.Errorf("tabla %s faixa %d: rate: %w", t.ID, i, err)
			}
			fb.Rate = fiscal.NormalizeRate(rate)
			if b.Deduction != "" {
				if fb.Deduction, err = decimal.NewFromString(b.Deduction); err != nil {
					return nil, fmt.Errorf("tabla %s faixa %d: deduction: %w", t.ID, i, err)
				}
			}
			table.Brackets = append(table.Brackets, fb)
		}
		if err := fiscal.ValidateBrackets(table.ID, table.Brackets); err != nil {
			return nil, err
		}
		out.Tables = append(out.Tables, table)
	}

	for i := range f.Professionals {
		p := f.Professionals[i]
		if p.ID == "" || p.Name == "" || p.Dependents < 0 {
			return nil, fmt.Errorf("profesional %d inválido", i)
		}
		p.Active = true
		out.Professionals = append(out.Professionals, &p)
	}
	for i := range f.Entities {
		e := f.Entities[i]
		if e.ID == "" || e.Name == "" {
			return nil, fmt.Errorf("entidad %d inválida", i)
		}
		e.Active = true
		out.Entities = append(out.Entities, &e)
	}
	return out, nil
}

func optionalDecimal(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
