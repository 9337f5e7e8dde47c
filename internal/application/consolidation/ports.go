package consolidation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Locker serializa consolidaciones por clave (profesional + competencia).
// TryLock no bloquea: ok=false si otro proceso tiene la clave.
// unlock debe llamarse siempre que ok=true.
type Locker interface {
	TryLock(ctx context.Context, key string) (unlock func(), ok bool, err error)
}

// ConsolidatedEvent notificación publicada después de un commit completo.
type ConsolidatedEvent struct {
	ResultID          string          `json:"result_id"`
	ProfessionalID    string          `json:"professional_id"`
	PayingEntityID    string          `json:"paying_entity_id"`
	Competence        string          `json:"competence"`
	GrossBase         decimal.Decimal `json:"gross_base"`
	INSSWithheld      decimal.Decimal `json:"inss_withheld"`
	IRRFWithheld      decimal.Decimal `json:"irrf_withheld"`
	NetAmount         decimal.Decimal `json:"net_amount"`
	ResponsibleUserID string          `json:"responsible_user_id"`
	OccurredAt        time.Time       `json:"occurred_at"`
}

// EventPublisher publica eventos de consolidación (colas, webhooks). Falla = warning, no aborta.
type EventPublisher interface {
	PublishConsolidated(ctx context.Context, ev ConsolidatedEvent) error
}

// NopPublisher no publica nada; se usa cuando no hay broker configurado.
type NopPublisher struct{}

func (NopPublisher) PublishConsolidated(context.Context, ConsolidatedEvent) error { return nil }

// LockKey clave de serialización de una consolidación.
func LockKey(professionalID, competence string) string {
	return "consolidation:" + professionalID + ":" + competence
}
