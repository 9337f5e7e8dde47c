package postgres

import (
	"context"

	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
	"github.com/jhoicas/medprod-fiscal/internal/domain/repository"
)

var _ repository.CatalogRepository = (*CatalogRepo)(nil)

// CatalogRepo lectura de profesionales, entidades y contratos.
type CatalogRepo struct {
	q Querier
}

// NewCatalogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCatalogRepository(q Querier) *CatalogRepo {
	return &CatalogRepo{q: q}
}

func (r *CatalogRepo) ListActiveProfessionals(ctx context.Context) ([]*entity.Professional, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, cpf, dependents, active FROM professionals WHERE active ORDER BY name`)
	if err != nil {
		return nil, mapErr("list professionals", err)
	}
	defer rows.Close()
	var out []*entity.Professional
	for rows.Next() {
		p := &entity.Professional{}
		if err := rows.Scan(&p.ID, &p.Name, &p.CPF, &p.Dependents, &p.Active); err != nil {
			return nil, mapErr("scan professional", err)
		}
		out = append(out, p)
	}
	return out, mapErr("list professionals", rows.Err())
}

func (r *CatalogRepo) ListActiveEntities(ctx context.Context) ([]*entity.PayingEntity, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, cnpj, active FROM paying_entities WHERE active ORDER BY name`)
	if err != nil {
		return nil, mapErr("list paying entities", err)
	}
	defer rows.Close()
	var out []*entity.PayingEntity
	for rows.Next() {
		e := &entity.PayingEntity{}
		if err := rows.Scan(&e.ID, &e.Name, &e.CNPJ, &e.Active); err != nil {
			return nil, mapErr("scan paying entity", err)
		}
		out = append(out, e)
	}
	return out, mapErr("list paying entities", rows.Err())
}

func (r *CatalogRepo) GetProfessional(ctx context.Context, id string) (*entity.Professional, error) {
	p := &entity.Professional{}
	err := r.q.QueryRow(ctx, `SELECT id, name, cpf, dependents, active FROM professionals WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.CPF, &p.Dependents, &p.Active)
	if err != nil {
		return nil, mapErr("get professional", err)
	}
	return p, nil
}

func (r *CatalogRepo) GetContract(ctx context.Context, id string) (*entity.Contract, error) {
	c := &entity.Contract{}
	err := r.q.QueryRow(ctx, `SELECT id, paying_entity_id, hospital_id, description, active FROM contracts WHERE id = $1`, id).
		Scan(&c.ID, &c.PayingEntityID, &c.HospitalID, &c.Description, &c.Active)
	if err != nil {
		return nil, mapErr("get contract", err)
	}
	return c, nil
}

// UpsertProfessional alta o actualización (seed y tests; el CRUD real vive en otro sistema).
func (r *CatalogRepo) UpsertProfessional(ctx context.Context, p *entity.Professional) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO professionals (id, name, cpf, dependents, active) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, cpf = EXCLUDED.cpf,
			dependents = EXCLUDED.dependents, active = EXCLUDED.active`,
		p.ID, p.Name, p.CPF, p.Dependents, p.Active)
	return mapErr("upsert professional", err)
}

// UpsertEntity alta o actualización de entidad pagadora.
func (r *CatalogRepo) UpsertEntity(ctx context.Context, e *entity.PayingEntity) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO paying_entities (id, name, cnpj, active) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, cnpj = EXCLUDED.cnpj, active = EXCLUDED.active`,
		e.ID, e.Name, e.CNPJ, e.Active)
	return mapErr("upsert paying entity", err)
}
