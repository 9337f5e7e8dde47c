// Package memory implementa los puertos de repositorio en memoria (tests y modo demo).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/medprod-fiscal/internal/domain"
	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
	"github.com/jhoicas/medprod-fiscal/internal/domain/repository"
)

// Operaciones con inyección de fallas.
const (
	OpCreateResult = "create_result"
	OpCreateItem   = "create_item"
	OpMark         = "mark"
	OpQuery        = "query"
)

type fault struct {
	err        error
	afterWrite bool  // la escritura ocurre pero el llamador ve el error
}

// Store implementa todos los repositorios y el Locker en memoria.
type Store struct {
	mu            sync.RWMutex
	professionals map[string]*entity.Professional
	entities      map[string]*entity.PayingEntity
	contracts     map[string]*entity.Contract
	records       map[string]entity.EarningsRecord
	tables        map[string]*entity.FiscalBracketTable
	links         map[string]*entity.ExternalFiscalLink
	results       map[string]*entity.ConsolidatedResult
	items         map[string]*entity.CalculatedItem
	faults        map[string][]fault
	calls         map[string]int
	locks         map[string]bool
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		professionals: make(map[string]*entity.Professional),
		entities:      make(map[string]*entity.PayingEntity),
		contracts:     make(map[string]*entity.Contract),
		records:       make(map[string]entity.EarningsRecord),
		tables:        make(map[string]*entity.FiscalBracketTable),
		links:         make(map[string]*entity.ExternalFiscalLink),
		results:       make(map[string]*entity.ConsolidatedResult),
		items:         make(map[string]*entity.CalculatedItem),
		faults:        make(map[string][]fault),
		calls:         make(map[string]int),
		locks:         make(map[string]bool),
	}
}

var (
	_ repository.CatalogRepository       = (*Store)(nil)
	_ repository.EarningsRepository      = (*Store)(nil)
	_ repository.FiscalTableRepository   = (*Store)(nil)
	_ repository.ExternalLinkRepository  = (*Store)(nil)
	_ repository.ConsolidationRepository = (*Store)(nil)
)

// ──────────────────────────────────────────────────────────────────────────────
// Seed y fallas (tests)
// ──────────────────────────────────────────────────────────────────────────────

func (s *Store) PutProfessional(p *entity.Professional) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.professionals[p.ID] = &cp
}

func (s *Store) PutEntity(e *entity.PayingEntity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.entities[e.ID] = &cp
}

func (s *Store) PutContract(c *entity.Contract) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.contracts[c.ID] = &cp
}

func (s *Store) PutRecord(r entity.EarningsRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.Header().ID] = r
}

func (s *Store) PutLink(l *entity.ExternalFiscalLink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	s.links[l.ID] = &cp
}

// FailNext hace que la próxima llamada a op devuelva err (se encolan).
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = append(s.faults[op], fault{err: err})
}

// FailAfterWrite la próxima llamada a op persiste y luego devuelve err (respuesta perdida).
func (s *Store) FailAfterWrite(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = append(s.faults[op], fault{err: err, afterWrite: true})
}

// Calls cantidad de llamadas a op.
func (s *Store) Calls(op string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op]
}

// Record registro actual por ID (nil si no existe).
func (s *Store) Record(id string) entity.EarningsRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[id]
}

// popFault con s.mu tomado.
func (s *Store) popFault(op string) (fault, bool) {
	s.calls[op]++
	q := s.faults[op]
	if len(q) == 0 {
		return fault{}, false
	}
	s.faults[op] = q[1:]
	return q[0], true
}

// ──────────────────────────────────────────────────────────────────────────────
// CatalogRepository
// ──────────────────────────────────────────────────────────────────────────────

func (s *Store) ListActiveProfessionals(_ context.Context) ([]*entity.Professional, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.Professional, 0, len(s.professionals))
	for _, p := range s.professionals {
		if p.Active {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListActiveEntities(_ context.Context) ([]*entity.PayingEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.PayingEntity, 0, len(s.entities))
	for _, e := range s.entities {
		if e.Active {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetProfessional(_ context.Context, id string) (*entity.Professional, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.professionals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetContract(_ context.Context, id string) (*entity.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contracts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// EarningsRepository
// ──────────────────────────────────────────────────────────────────────────────

func (s *Store) QueryUnconsolidated(_ context.Context, f repository.EarningsFilter) ([]entity.EarningsRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ft, ok := s.popFault(OpQuery); ok {
		return nil, ft.err
	}
	var out []entity.EarningsRecord
	for _, r := range s.records {
		h := r.Header()
		if !h.Confirmed || h.IsConsumed() {
			continue
		}
		if f.ProfessionalID != "" && h.ProfessionalID != f.ProfessionalID {
			continue
		}
		if f.PayingEntityID != "" && h.PayingEntityID != f.PayingEntityID {
			continue
		}
		sameMonth := h.Competence == f.Competence
		carried := f.IncludeRecurringBefore && entity.IsRecurring(r) && h.Competence.Before(f.Competence)
		if sameMonth || carried {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Header().ID < out[j].Header().ID })
	return out, nil
}

func (s *Store) GetByIDs(_ context.Context, ids []string) ([]entity.EarningsRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.EarningsRecord, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.records[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) MarkConsolidated(_ context.Context, recordID, resultID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ft, failing := s.popFault(OpMark)
	if failing && !ft.afterWrite {
		return ft.err
	}
	r, ok := s.records[recordID]
	if !ok {
		return domain.ErrNotFound
	}
	switch cur := r.Header().ConsolidatedResultID; {
	case cur == resultID:
	case cur == "":
		s.records[recordID] = r.WithConsolidation(resultID)
	default:
		return domain.ErrConflict
	}
	if failing {
		return ft.err
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// FiscalTableRepository
// ──────────────────────────────────────────────────────────────────────────────

func (s *Store) ListEffective(_ context.Context, kind entity.TaxKind, date time.Time) ([]*entity.FiscalBracketTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.FiscalBracketTable
	for _, t := range s.tables {
		if t.Kind == kind && t.Covers(date) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Create(_ context.Context, t *entity.FiscalBracketTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[t.ID]; ok {
		return domain.ErrDuplicate
	}
	cp := *t
	cp.Brackets = append([]entity.FiscalBracket(nil), t.Brackets...)
	s.tables[t.ID] = &cp
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// ExternalLinkRepository
// ──────────────────────────────────────────────────────────────────────────────

func (s *Store) ListActive(_ context.Context, professionalID string, c entity.Competence) ([]*entity.ExternalFiscalLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.ExternalFiscalLink
	for _, l := range s.links {
		if l.ProfessionalID == professionalID && l.ActiveIn(c) {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// ConsolidationRepository
// ──────────────────────────────────────────────────────────────────────────────

func (s *Store) CreateResult(_ context.Context, r *entity.ConsolidatedResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ft, failing := s.popFault(OpCreateResult)
	if failing && !ft.afterWrite {
		return ft.err
	}
	if _, ok := s.results[r.ID]; ok {
		return domain.ErrDuplicate
	}
	if r.Status == entity.ResultStatusConsolidated {
		for _, other := range s.results {
			if other.Status == entity.ResultStatusConsolidated && other.Key() == r.Key() {
				return domain.ErrDuplicate
			}
		}
	}
	cp := *r
	cp.SourceRecordIDs = append([]string(nil), r.SourceRecordIDs...)
	s.results[r.ID] = &cp
	if failing {
		return ft.err
	}
	return nil
}

func (s *Store) CreateItem(_ context.Context, it *entity.CalculatedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ft, failing := s.popFault(OpCreateItem)
	if failing && !ft.afterWrite {
		return ft.err
	}
	if _, ok := s.items[it.ID]; ok {
		return domain.ErrDuplicate
	}
	if _, ok := s.results[it.ResultID]; !ok {
		return domain.ErrNotFound
	}
	cp := *it
	s.items[it.ID] = &cp
	if failing {
		return ft.err
	}
	return nil
}

func (s *Store) GetResult(_ context.Context, id string) (*entity.ConsolidatedResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) FindConsolidated(_ context.Context, key entity.ConsolidationKey) (*entity.ConsolidatedResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.results {
		if r.Status == entity.ResultStatusConsolidated && r.Key() == key {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListResults(_ context.Context, f repository.ResultFilter) ([]*entity.ConsolidatedResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.ConsolidatedResult
	for _, r := range s.results {
		if f.ProfessionalID != "" && r.ProfessionalID != f.ProfessionalID {
			continue
		}
		if f.PayingEntityID != "" && r.PayingEntityID != f.PayingEntityID {
			continue
		}
		if f.Competence != nil && r.Competence != *f.Competence {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) ListItems(_ context.Context, resultID string) ([]*entity.CalculatedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.CalculatedItem
	for _, it := range s.items {
		if it.ResultID == resultID {
			cp := *it
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceRecordID < out[j].SourceRecordID })
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Locker
// ──────────────────────────────────────────────────────────────────────────────

// TryLock lock no bloqueante por clave.
func (s *Store) TryLock(_ context.Context, key string) (func(), bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks[key] {
		return nil, false, nil
	}
	s.locks[key] = true
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.locks, key)
			s.mu.Unlock()
		})
	}, true, nil
}
