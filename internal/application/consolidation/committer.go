package consolidation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/jhoicas/medprod-fiscal/internal/domain"
	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
	"github.com/jhoicas/medprod-fiscal/internal/domain/repository"
	"github.com/jhoicas/medprod-fiscal/pkg/logger"
)

// RetryPolicy reintentos con backoff exponencial para crear el resultado maestro.
type RetryPolicy struct {
	MaxRetries uint64
	BaseDelay  time.Duration
}

func (p RetryPolicy) backoff() retry.Backoff {
	base := p.BaseDelay
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	b := retry.NewExponential(base)
	b = retry.WithCappedDuration(5*time.Second, b)
	return retry.WithMaxRetries(p.MaxRetries, b)
}

// CommitRequest resultado ya calculado y los registros que consume.
type CommitRequest struct {
	Result  *entity.ConsolidatedResult
	Records []entity.EarningsRecord
}

// RepairReport resumen de un Resume.
type RepairReport struct {
	ResultID        string
	ItemsCreated    int
	RecordsMarked   int
	AlreadyComplete bool
}

// Committer persiste el resultado, sus ítems y marca los registros de origen.
// Solo el paso 1 se reintenta; con el resultado ya creado, lo pendiente se completa con Resume.
type Committer struct {
	results  repository.ConsolidationRepository
	earnings repository.EarningsRepository
	policy   RetryPolicy
	log      *logger.Logger
}

// NewCommitter construye el committer.
func NewCommitter(results repository.ConsolidationRepository, earnings repository.EarningsRepository, policy RetryPolicy, log *logger.Logger) *Committer {
	return &Committer{
		results:  results,
		earnings: earnings,
		policy:   policy,
		log:      log.Component("committer"),
	}
}

// Commit ejecuta los pasos: crear resultado, crear ítems, marcar registros.
func (c *Committer) Commit(ctx context.Context, req CommitRequest) (*entity.ConsolidatedResult, error) {
	res := req.Result
	if res == nil || res.ID == "" || len(req.Records) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if len(res.SourceRecordIDs) == 0 {
		for _, r := range req.Records {
			res.SourceRecordIDs = append(res.SourceRecordIDs, r.Header().ID)
		}
	}

	if err := c.createResult(ctx, res); err != nil {
		return nil, err
	}
	c.log.Info().
		Str("result_id", res.ID).
		Str("professional_id", res.ProfessionalID).
		Str("entity_id", res.PayingEntityID).
		Str("competence", res.Competence.String()).
		Msg("resultado consolidado creado")

	records := orderByIDs(req.Records, res.SourceRecordIDs)
	items := BuildItems(res, records, res.CreatedAt)
	if err := c.completeItems(ctx, res, items, nil); err != nil {
		return res, err
	}
	if err := c.completeMarks(ctx, res, records); err != nil {
		return res, err
	}
	return res, nil
}

// createResult paso 1 con reintentos. Un reintento que encuentra su propio ID ya persistido es éxito.
func (c *Committer) createResult(ctx context.Context, res *entity.ConsolidatedResult) error {
	attempt := 0
	return retry.Do(ctx, c.policy.backoff(), func(ctx context.Context) error {
		attempt++
		err := c.results.CreateResult(ctx, res)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, domain.ErrTransient):
			c.log.Warn().Err(err).Int("attempt", attempt).Str("result_id", res.ID).Msg("falla transitoria creando resultado; reintentando")
			return retry.RetryableError(err)
		case errors.Is(err, domain.ErrDuplicate):
			own, gerr := c.results.GetResult(ctx, res.ID)
			if gerr == nil && own != nil {
				return nil
			}
			if gerr != nil && errors.Is(gerr, domain.ErrTransient) {
				return retry.RetryableError(gerr)
			}
			dup := &domain.DuplicateConsolidationError{
				ProfessionalID: res.ProfessionalID,
				PayingEntityID: res.PayingEntityID,
				Competence:     res.Competence.String(),
			}
			if existing, ferr := c.results.FindConsolidated(ctx, res.Key()); ferr == nil && existing != nil {
				dup.ExistingResultID = existing.ID
			}
			return dup
		default:
			return fmt.Errorf("crear resultado: %w", err)
		}
	})
}

// completeItems crea los ítems que no existan. existing puede ser nil.
func (c *Committer) completeItems(ctx context.Context, res *entity.ConsolidatedResult, items []*entity.CalculatedItem, existing map[string]bool) error {
	for i, it := range items {
		if existing[it.ID] {
			continue
		}
		err := c.results.CreateItem(ctx, it)
		if err == nil || errors.Is(err, domain.ErrDuplicate) {
			continue
		}
		pending := make([]string, 0, len(items)-i)
		for _, p := range items[i:] {
			if !existing[p.ID] {
				pending = append(pending, p.SourceRecordID)
			}
		}
		perr := &domain.PartialCommitError{
			ResultID:     res.ID,
			PendingItems: pending,
			PendingMarks: append([]string(nil), res.SourceRecordIDs...),
			Cause:        err,
		}
		c.log.Error().Err(err).Str("result_id", res.ID).Int("pending_items", len(pending)).Msg("commit parcial: ítems pendientes")
		return perr
	}
	return nil
}

// completeMarks marca cada registro con el resultado (compare-and-set en el repositorio).
func (c *Committer) completeMarks(ctx context.Context, res *entity.ConsolidatedResult, records []entity.EarningsRecord) error {
	var manual, pending []string
	var cause error
	for i, r := range records {
		h := r.Header()
		if h.ConsolidatedResultID == res.ID {
			continue
		}
		if h.IsConsumed() {
			manual = append(manual, h.ID)
			continue
		}
		err := c.earnings.MarkConsolidated(ctx, h.ID, res.ID)
		if err == nil {
			continue
		}
		if errors.Is(err, domain.ErrConflict) {
			manual = append(manual, h.ID)
			continue
		}
		cause = err
		for _, p := range records[i:] {
			if p.Header().ConsolidatedResultID != res.ID {
				pending = append(pending, p.Header().ID)
			}
		}
		break
	}
	if len(manual) == 0 && len(pending) == 0 {
		return nil
	}
	if cause == nil {
		cause = domain.ErrConflict
	}
	c.log.Error().Err(cause).
		Str("result_id", res.ID).
		Strs("manual_review", manual).
		Int("pending_marks", len(pending)).
		Msg("commit parcial: marcas pendientes")
	return &domain.PartialCommitError{ResultID: res.ID, PendingMarks: pending, ManualReview: manual, Cause: cause}
}

// Resume completa ítems y marcas de un resultado existente.
func (c *Committer) Resume(ctx context.Context, resultID string) (*RepairReport, error) {
	res, err := c.results.GetResult(ctx, resultID)
	if err != nil {
		return nil, fmt.Errorf("resultado %s: %w", resultID, err)
	}
	if len(res.SourceRecordIDs) == 0 {
		return nil, fmt.Errorf("resultado %s sin registros de origen: %w", resultID, domain.ErrConflict)
	}

	records, err := c.earnings.GetByIDs(ctx, res.SourceRecordIDs)
	if err != nil {
		return nil, fmt.Errorf("registros de origen: %w", err)
	}
	if len(records) != len(res.SourceRecordIDs) {
		return nil, fmt.Errorf("resultado %s: %d de %d registros encontrados: %w",
			resultID, len(records), len(res.SourceRecordIDs), domain.ErrNotFound)
	}
	records = orderByIDs(records, res.SourceRecordIDs)

	current, err := c.results.ListItems(ctx, resultID)
	if err != nil {
		return nil, fmt.Errorf("ítems: %w", err)
	}
	existing := make(map[string]bool, len(current))
	for _, it := range current {
		existing[it.ID] = true
	}

	report := &RepairReport{ResultID: resultID}
	items := BuildItems(res, records, res.CreatedAt)
	for _, it := range items {
		if !existing[it.ID] {
			report.ItemsCreated++
		}
	}
	if err := c.completeItems(ctx, res, items, existing); err != nil {
		return report, err
	}
	for _, r := range records {
		if !r.Header().IsConsumed() {
			report.RecordsMarked++
		}
	}
	if err := c.completeMarks(ctx, res, records); err != nil {
		return report, err
	}
	report.AlreadyComplete = report.ItemsCreated == 0 && report.RecordsMarked == 0
	c.log.Info().
		Str("result_id", resultID).
		Int("items_created", report.ItemsCreated).
		Int("records_marked", report.RecordsMarked).
		Msg("consolidación reparada")
	return report, nil
}

func orderByIDs(records []entity.EarningsRecord, ids []string) []entity.EarningsRecord {
	byID := make(map[string]entity.EarningsRecord, len(records))
	for _, r := range records {
		byID[r.Header().ID] = r
	}
	out := make([]entity.EarningsRecord, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out
}
