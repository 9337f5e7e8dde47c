package consolidation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/medprod-fiscal/internal/domain"
	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
	"github.com/jhoicas/medprod-fiscal/internal/domain/fiscal"
	"github.com/jhoicas/medprod-fiscal/internal/domain/repository"
	"github.com/jhoicas/medprod-fiscal/pkg/logger"
)

// Pasos reportados en domain.CalculationError.
const (
	StepValidate  = "validate"
	StepLock      = "lock"
	StepDuplicate = "duplicate"
	StepCatalog   = "catalog"
	StepTables    = "tables"
	StepAggregate = "aggregate"
	StepResolve   = "resolve"
	StepCalculate = "calculate"
	StepCommit    = "commit"
	StepRepair    = "repair"
)

// Deps puertos que el servicio necesita.
type Deps struct {
	Catalog   repository.CatalogRepository
	Earnings  repository.EarningsRepository
	Tables    repository.FiscalTableRepository
	Links     repository.ExternalLinkRepository
	Results   repository.ConsolidationRepository
	Locker    Locker
	Publisher EventPublisher
}

// Config parámetros del servicio.
type Config struct {
	ProLaboreRate decimal.Decimal
	Retry         RetryPolicy
}

// Service puntos de entrada del motor: Simulate (sin efectos) y SimulateAndCommit.
type Service struct {
	catalog    repository.CatalogRepository
	results    repository.ConsolidationRepository
	tables     *TableProvider
	aggregator *Aggregator
	resolver   *Resolver
	committer  *Committer
	locker     Locker
	publisher  EventPublisher
	rate       decimal.Decimal
	log        *logger.Logger
	now        func() time.Time
	newID      func() string
}

// NewService arma el servicio con sus componentes.
func NewService(d Deps, cfg Config, log *logger.Logger) *Service {
	pub := d.Publisher
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Service{
		catalog:    d.Catalog,
		results:    d.Results,
		tables:     NewTableProvider(d.Tables),
		aggregator: NewAggregator(d.Earnings),
		resolver:   NewResolver(d.Links, d.Results),
		committer:  NewCommitter(d.Results, d.Earnings, cfg.Retry, log),
		locker:     d.Locker,
		publisher:  pub,
		rate:       cfg.ProLaboreRate,
		log:        log.Component("consolidation"),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() string { return uuid.Must(uuid.NewV7()).String() },
	}
}

// SimulateRequest entrada de Simulate. PayingEntityID vacío = todas las entidades.
type SimulateRequest struct {
	ProfessionalID   string
	Competence       entity.Competence
	PayingEntityID   string
	IncludeRecurring bool
}

// EntitySimulation cálculo de una entidad pagadora.
type EntitySimulation struct {
	PayingEntityID string
	Earnings       *EntityEarnings
	Withholding    fiscal.WithholdingResult
	Result         *entity.ConsolidatedResult // borrador, sin ID
	// AlreadyConsolidatedID resultado existente para la clave; consolidar fallaría por duplicado.
	AlreadyConsolidatedID string
}

// Simulation vista previa. NothingToCalculate=true cuando no hay lanzamientos pendientes.
type Simulation struct {
	ProfessionalID     string
	Competence         entity.Competence
	NothingToCalculate bool
	Tables             fiscal.EffectiveTables
	Entities           []EntitySimulation
}

// Simulate calcula sin persistir nada. Con varias entidades, los resultados simulados
// de las entidades anteriores (orden por ID) cuentan como capacidad ya usada para las siguientes.
func (s *Service) Simulate(ctx context.Context, req SimulateRequest) (*Simulation, error) {
	if req.ProfessionalID == "" || req.Competence.IsZero() {
		return nil, s.calcErr(StepValidate, req.ProfessionalID, req.PayingEntityID, req.Competence, domain.ErrInvalidInput)
	}
	sim := &Simulation{ProfessionalID: req.ProfessionalID, Competence: req.Competence}

	groups, err := s.aggregator.Aggregate(ctx, AggregateRequest(req))
	if err != nil {
		return nil, s.calcErr(StepAggregate, req.ProfessionalID, req.PayingEntityID, req.Competence, err)
	}
	if len(groups) == 0 {
		sim.NothingToCalculate = true
		return sim, nil
	}

	prof, err := s.professional(ctx, req.ProfessionalID)
	if err != nil {
		return nil, s.calcErr(StepCatalog, req.ProfessionalID, req.PayingEntityID, req.Competence, err)
	}
	tables, err := s.tables.GetEffectiveTables(ctx, req.Competence)
	if err != nil {
		return nil, s.calcErr(StepTables, req.ProfessionalID, req.PayingEntityID, req.Competence, err)
	}
	sim.Tables = tables

	entityIDs := make([]string, 0, len(groups))
	for id := range groups {
		entityIDs = append(entityIDs, id)
	}
	sort.Strings(entityIDs)

	var chained fiscal.PriorCapacity
	for _, id := range entityIDs {
		es, err := s.calculateEntity(ctx, tables, prof, req.Competence, groups[id], chained)
		if err != nil {
			return nil, err
		}
		existing, err := s.results.FindConsolidated(ctx, entity.ConsolidationKey{ProfessionalID: prof.ID, PayingEntityID: id, Competence: req.Competence})
		switch {
		case err == nil && existing != nil:
			es.AlreadyConsolidatedID = existing.ID
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return nil, s.calcErr(StepDuplicate, prof.ID, id, req.Competence, err)
		}
		// un consolidado existente ya lo cuenta el resolver
		if es.AlreadyConsolidatedID == "" {
			chained = chained.Add(fiscal.PriorCapacity{
				PriorINSSWithheld: es.Withholding.INSSToWithhold,
				PriorIRRFBase:     es.Withholding.EntityIRRFBase,
				PriorIRRFWithheld: es.Withholding.IRRFToWithhold,
			})
		}
		sim.Entities = append(sim.Entities, es)
	}
	return sim, nil
}

// CommitCommand entrada de SimulateAndCommit.
type CommitCommand struct {
	ProfessionalID    string
	PayingEntityID    string
	Competence        entity.Competence
	IncludeRecurring  bool
	ResponsibleUserID string
}

// CommitOutcome resultado persistido y el cálculo que lo originó.
type CommitOutcome struct {
	Result      *entity.ConsolidatedResult
	Withholding fiscal.WithholdingResult
	Records     int
}

// SimulateAndCommit calcula y persiste la consolidación de una entidad, serializada por
// profesional/competencia. Con el resultado creado, una falla posterior devuelve el resultado
// junto con *domain.PartialCommitError.
func (s *Service) SimulateAndCommit(ctx context.Context, cmd CommitCommand) (*CommitOutcome, error) {
	c := cmd.Competence
	if cmd.ProfessionalID == "" || cmd.PayingEntityID == "" || c.IsZero() {
		return nil, s.calcErr(StepValidate, cmd.ProfessionalID, cmd.PayingEntityID, c, domain.ErrInvalidInput)
	}

	unlock, ok, err := s.locker.TryLock(ctx, LockKey(cmd.ProfessionalID, c.String()))
	if err != nil {
		return nil, s.calcErr(StepLock, cmd.ProfessionalID, cmd.PayingEntityID, c, err)
	}
	if !ok {
		return nil, s.calcErr(StepLock, cmd.ProfessionalID, cmd.PayingEntityID, c,
			&domain.ConcurrentConsolidationError{ProfessionalID: cmd.ProfessionalID, Competence: c.String()})
	}
	defer unlock()

	key := entity.ConsolidationKey{ProfessionalID: cmd.ProfessionalID, PayingEntityID: cmd.PayingEntityID, Competence: c}
	existing, err := s.results.FindConsolidated(ctx, key)
	switch {
	case err == nil && existing != nil:
		return nil, s.calcErr(StepDuplicate, cmd.ProfessionalID, cmd.PayingEntityID, c, &domain.DuplicateConsolidationError{
			ProfessionalID:   cmd.ProfessionalID,
			PayingEntityID:   cmd.PayingEntityID,
			Competence:       c.String(),
			ExistingResultID: existing.ID,
		})
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, s.calcErr(StepDuplicate, cmd.ProfessionalID, cmd.PayingEntityID, c, err)
	}

	groups, err := s.aggregator.Aggregate(ctx, AggregateRequest{
		ProfessionalID:   cmd.ProfessionalID,
		Competence:       c,
		PayingEntityID:   cmd.PayingEntityID,
		IncludeRecurring: cmd.IncludeRecurring,
	})
	if err != nil {
		return nil, s.calcErr(StepAggregate, cmd.ProfessionalID, cmd.PayingEntityID, c, err)
	}
	ee := groups[cmd.PayingEntityID]
	if ee == nil || len(ee.Records) == 0 {
		return nil, s.calcErr(StepAggregate, cmd.ProfessionalID, cmd.PayingEntityID, c, domain.ErrNothingToCalculate)
	}

	prof, err := s.professional(ctx, cmd.ProfessionalID)
	if err != nil {
		return nil, s.calcErr(StepCatalog, cmd.ProfessionalID, cmd.PayingEntityID, c, err)
	}
	tables, err := s.tables.GetEffectiveTables(ctx, c)
	if err != nil {
		return nil, s.calcErr(StepTables, cmd.ProfessionalID, cmd.PayingEntityID, c, err)
	}
	es, err := s.calculateEntity(ctx, tables, prof, c, ee, fiscal.PriorCapacity{})
	if err != nil {
		return nil, err
	}

	res := es.Result
	res.ID = s.newID()
	res.Status = entity.ResultStatusConsolidated
	res.ResponsibleUserID = cmd.ResponsibleUserID
	res.CreatedAt = s.now()

	out := &CommitOutcome{Withholding: es.Withholding, Records: len(ee.Records)}
	committed, err := s.committer.Commit(ctx, CommitRequest{Result: res, Records: ee.Records})
	out.Result = committed
	if err != nil {
		if committed == nil {
			out = nil
		}
		return out, s.calcErr(StepCommit, cmd.ProfessionalID, cmd.PayingEntityID, c, err)
	}

	s.publish(ctx, committed)
	return out, nil
}

// Repair completa ítems y marcas pendientes de un resultado ya creado.
func (s *Service) Repair(ctx context.Context, resultID string) (*RepairReport, error) {
	if resultID == "" {
		return nil, domain.ErrInvalidInput
	}
	res, err := s.results.GetResult(ctx, resultID)
	if err != nil {
		return nil, fmt.Errorf("resultado %s: %w", resultID, err)
	}

	unlock, ok, err := s.locker.TryLock(ctx, LockKey(res.ProfessionalID, res.Competence.String()))
	if err != nil {
		return nil, s.calcErr(StepLock, res.ProfessionalID, res.PayingEntityID, res.Competence, err)
	}
	if !ok {
		return nil, s.calcErr(StepLock, res.ProfessionalID, res.PayingEntityID, res.Competence,
			&domain.ConcurrentConsolidationError{ProfessionalID: res.ProfessionalID, Competence: res.Competence.String()})
	}
	defer unlock()

	report, err := s.committer.Resume(ctx, resultID)
	if err != nil {
		return report, s.calcErr(StepRepair, res.ProfessionalID, res.PayingEntityID, res.Competence, err)
	}
	if !report.AlreadyComplete {
		s.publish(ctx, res)
	}
	return report, nil
}

// History resultados consolidados según filtro, más recientes primero.
func (s *Service) History(ctx context.Context, f repository.ResultFilter) ([]*entity.ConsolidatedResult, error) {
	return s.results.ListResults(ctx, f)
}

// GetResult resultado con sus ítems.
func (s *Service) GetResult(ctx context.Context, id string) (*entity.ConsolidatedResult, []*entity.CalculatedItem, error) {
	res, err := s.results.GetResult(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.results.ListItems(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return res, items, nil
}

// Worklist pares profesional/entidad con lanzamientos en la competencia.
func (s *Service) Worklist(ctx context.Context, c entity.Competence, entityID string) ([]WorklistEntry, error) {
	if c.IsZero() {
		return nil, domain.ErrInvalidInput
	}
	return s.aggregator.Worklist(ctx, s.results, c, entityID)
}

func (s *Service) professional(ctx context.Context, id string) (*entity.Professional, error) {
	p, err := s.catalog.GetProfessional(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("profesional %s: %w", id, err)
	}
	if p == nil {
		return nil, fmt.Errorf("profesional %s: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

// calculateEntity resolver + cálculo para una entidad; extra suma capacidad ya usada en la misma corrida.
func (s *Service) calculateEntity(ctx context.Context, tables fiscal.EffectiveTables, prof *entity.Professional, c entity.Competence, ee *EntityEarnings, extra fiscal.PriorCapacity) (EntitySimulation, error) {
	prior, err := s.resolver.ComputeResidualCapacity(ctx, prof.ID, c, ee.PayingEntityID)
	if err != nil {
		return EntitySimulation{}, s.calcErr(StepResolve, prof.ID, ee.PayingEntityID, c, err)
	}
	cc := fiscal.CalculationContext{
		Competence:    c,
		Tables:        tables,
		Prior:         prior.Add(extra),
		Dependents:    prof.Dependents,
		ProLaboreRate: s.rate,
		NonTaxableNet: ee.NonTaxableNet,
	}
	wr, err := fiscal.Calculate(cc, ee.WithholdingBase)
	if err != nil {
		return EntitySimulation{}, s.calcErr(StepCalculate, prof.ID, ee.PayingEntityID, c, err)
	}
	for _, w := range wr.Warnings {
		s.log.Warn().
			Str("professional_id", prof.ID).
			Str("entity_id", ee.PayingEntityID).
			Str("competence", c.String()).
			Str("code", w.Code).
			Msg(w.Message)
	}

	params := wr.Snapshot(cc)
	params.GrossByCategory = ee.GrossByCategory
	return EntitySimulation{
		PayingEntityID: ee.PayingEntityID,
		Earnings:       ee,
		Withholding:    wr,
		Result: &entity.ConsolidatedResult{
			ProfessionalID:  prof.ID,
			PayingEntityID:  ee.PayingEntityID,
			Competence:      c,
			GrossBase:       wr.EntityGross,
			NonTaxableNet:   wr.NonTaxableNet,
			INSSWithheld:    wr.INSSToWithhold,
			IRRFWithheld:    wr.IRRFToWithhold,
			NetAmount:       wr.Net,
			Status:          entity.ResultStatusDraft,
			Parameters:      params,
			SourceRecordIDs: ee.RecordIDs(),
		},
	}, nil
}

func (s *Service) publish(ctx context.Context, res *entity.ConsolidatedResult) {
	ev := ConsolidatedEvent{
		ResultID:          res.ID,
		ProfessionalID:    res.ProfessionalID,
		PayingEntityID:    res.PayingEntityID,
		Competence:        res.Competence.String(),
		GrossBase:         res.GrossBase,
		INSSWithheld:      res.INSSWithheld,
		IRRFWithheld:      res.IRRFWithheld,
		NetAmount:         res.NetAmount,
		ResponsibleUserID: res.ResponsibleUserID,
		OccurredAt:        s.now(),
	}
	if err := s.publisher.PublishConsolidated(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("result_id", res.ID).Msg("no se pudo publicar evento de consolidación")
	}
}

func (s *Service) calcErr(step, professionalID, entityID string, c entity.Competence, err error) error {
	ce := &domain.CalculationError{
		Step:           step,
		ProfessionalID: professionalID,
		EntityID:       entityID,
		Competence:     c.String(),
		Err:            err,
	}
	ev := s.log.Error()
	if errors.Is(err, domain.ErrNothingToCalculate) || errors.Is(err, domain.ErrDuplicateConsolidation) ||
		errors.Is(err, domain.ErrConcurrentConsolidation) || errors.Is(err, domain.ErrInvalidInput) {
		ev = s.log.Warn()
	}
	ev.Err(err).Str("step", step).Str("professional_id", professionalID).Str("entity_id", entityID).
		Str("competence", c.String()).Msg("consolidación fallida")
	return ce
}
