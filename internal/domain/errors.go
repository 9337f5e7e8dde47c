package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound                = errors.New("recurso no encontrado")
	ErrInvalidInput            = errors.New("entrada inválida")
	ErrDuplicate               = errors.New("recurso duplicado")
	ErrUnauthorized            = errors.New("no autorizado")
	ErrConflict                = errors.New("conflicto con el estado actual")
	ErrMissingFiscalTable      = errors.New("tabla fiscal no configurada para la competencia")
	ErrInvalidTable            = errors.New("tabla fiscal inválida")
	ErrDuplicateConsolidation  = errors.New("ya existe una consolidación para profesional/entidad/competencia")
	ErrConcurrentConsolidation = errors.New("consolidación en curso para profesional/competencia")
	ErrPartialCommit           = errors.New("consolidación persistida parcialmente")
	ErrTransient               = errors.New("falla transitoria de almacenamiento")
	ErrNothingToCalculate      = errors.New("no hay lanzamientos pendientes para calcular")
)

// MissingFiscalTableError falta una tabla vigente o un teto resoluble. Fatal, nunca se reintenta.
type MissingFiscalTableError struct {
	Competence string
	Missing    string // "inss pro_labore", "irrf", "inss ceiling"...
}

func (e *MissingFiscalTableError) Error() string {
	return fmt.Sprintf("%s: %s (competencia %s)", ErrMissingFiscalTable.Error(), e.Missing, e.Competence)
}

func (e *MissingFiscalTableError) Unwrap() error { return ErrMissingFiscalTable }

// InvalidTableError faixas vacías, desordenadas, superpuestas o con huecos.
type InvalidTableError struct {
	TableID string
	Reason  string
}

func (e *InvalidTableError) Error() string {
	if e.TableID == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidTable.Error(), e.Reason)
	}
	return fmt.Sprintf("%s %s: %s", ErrInvalidTable.Error(), e.TableID, e.Reason)
}

func (e *InvalidTableError) Unwrap() error { return ErrInvalidTable }

// DuplicateConsolidationError la clave (profesional, entidad, competencia) ya tiene resultado consolidado.
type DuplicateConsolidationError struct {
	ProfessionalID   string
	PayingEntityID   string
	Competence       string
	ExistingResultID string
}

func (e *DuplicateConsolidationError) Error() string {
	msg := fmt.Sprintf("%s (profesional %s, entidad %s, competencia %s)",
		ErrDuplicateConsolidation.Error(), e.ProfessionalID, e.PayingEntityID, e.Competence)
	if e.ExistingResultID != "" {
		msg += ": resultado " + e.ExistingResultID
	}
	return msg
}

func (e *DuplicateConsolidationError) Unwrap() error { return ErrDuplicateConsolidation }

// ConcurrentConsolidationError otra consolidación del mismo profesional/competencia está en curso.
type ConcurrentConsolidationError struct {
	ProfessionalID string
	Competence     string
}

func (e *ConcurrentConsolidationError) Error() string {
	return fmt.Sprintf("%s (profesional %s, competencia %s)", ErrConcurrentConsolidation.Error(), e.ProfessionalID, e.Competence)
}

func (e *ConcurrentConsolidationError) Unwrap() error { return ErrConcurrentConsolidation }

// PartialCommitError el resultado maestro existe pero faltan ítems o marcas.
// Se completa con Repair/Resume usando ResultID.
type PartialCommitError struct {
	ResultID     string
	PendingItems []string // IDs de registro sin ítem
	PendingMarks []string // IDs de registro sin marcar
	ManualReview []string // registros consumidos por otro resultado
	Cause        error
}

func (e *PartialCommitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: resultado %s", ErrPartialCommit.Error(), e.ResultID)
	if len(e.PendingItems) > 0 {
		fmt.Fprintf(&b, ", ítems pendientes %d", len(e.PendingItems))
	}
	if len(e.PendingMarks) > 0 {
		fmt.Fprintf(&b, ", marcas pendientes %d", len(e.PendingMarks))
	}
	if len(e.ManualReview) > 0 {
		fmt.Fprintf(&b, ", revisión manual %s", strings.Join(e.ManualReview, ","))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *PartialCommitError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrPartialCommit}
	}
	return []error{ErrPartialCommit, e.Cause}
}

// NeedsManualReview indica si algún registro quedó consumido por otro resultado.
func (e *PartialCommitError) NeedsManualReview() bool { return len(e.ManualReview) > 0 }

// CalculationError envuelve todo error fatal con el paso y la clave de la consolidación.
type CalculationError struct {
	Step           string // tables, aggregate, resolve, calculate, commit
	ProfessionalID string
	EntityID       string
	Competence     string
	Err            error
}

func (e *CalculationError) Error() string {
	where := "profesional " + e.ProfessionalID
	if e.EntityID != "" {
		where += ", entidad " + e.EntityID
	}
	return fmt.Sprintf("cálculo [%s] %s, competencia %s: %v", e.Step, where, e.Competence, e.Err)
}

func (e *CalculationError) Unwrap() error { return e.Err }
