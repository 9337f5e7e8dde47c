package entity

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Competence es el mes calendario al que se atribuye un rendimiento o una retención,
// independiente de la fecha de pago. Forma textual: "YYYY-MM".
type Competence struct {
	Year  int
	Month time.Month
}

// NewCompetence construye una competencia validando el mes.
func NewCompetence(year int, month time.Month) (Competence, error) {
	if month < time.January || month > time.December {
		return Competence{}, fmt.Errorf("competencia: mes fuera de rango: %d", month)
	}
	if year < 1900 || year > 9999 {
		return Competence{}, fmt.Errorf("competencia: año fuera de rango: %d", year)
	}
	return Competence{Year: year, Month: month}, nil
}

// MustCompetence igual que NewCompetence pero entra en pánico; uso en tests y seeds.
func MustCompetence(year int, month time.Month) Competence {
	c, err := NewCompetence(year, month)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseCompetence interpreta "YYYY-MM".
func ParseCompetence(s string) (Competence, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return Competence{}, fmt.Errorf("competencia inválida %q: formato esperado YYYY-MM", s)
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return Competence{}, fmt.Errorf("competencia inválida %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return Competence{}, fmt.Errorf("competencia inválida %q: %w", s, err)
	}
	return NewCompetence(y, time.Month(m))
}

// CompetenceOf devuelve la competencia que contiene t.
func CompetenceOf(t time.Time) Competence {
	return Competence{Year: t.Year(), Month: t.Month()}
}

func (c Competence) String() string {
	return fmt.Sprintf("%04d-%02d", c.Year, int(c.Month))
}

// IsZero indica si la competencia no fue informada.
func (c Competence) IsZero() bool { return c.Year == 0 && c.Month == 0 }

// FirstDay primer día del mes (UTC, 00:00).
func (c Competence) FirstDay() time.Time {
	return time.Date(c.Year, c.Month, 1, 0, 0, 0, 0, time.UTC)
}

// LastDay último día del mes (UTC, 00:00).
func (c Competence) LastDay() time.Time {
	return c.FirstDay().AddDate(0, 1, -1)
}

// Ordinal número de meses desde el año 0; permite comparar competencias.
func (c Competence) Ordinal() int {
	return c.Year*12 + int(c.Month) - 1
}

func (c Competence) Before(o Competence) bool { return c.Ordinal() < o.Ordinal() }
func (c Competence) After(o Competence) bool  { return c.Ordinal() > o.Ordinal() }

// Next competencia siguiente.
func (c Competence) Next() Competence {
	t := c.FirstDay().AddDate(0, 1, 0)
	return CompetenceOf(t)
}

// MarshalText serializa como "YYYY-MM" (JSON, YAML, query params).
func (c Competence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText interpreta "YYYY-MM".
func (c *Competence) UnmarshalText(b []byte) error {
	parsed, err := ParseCompetence(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
