package consolidation

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
	"github.com/jhoicas/medprod-fiscal/internal/domain/fiscal"
)

// itemNamespace espacio UUID para los IDs deterministas de ítems.
var itemNamespace = uuid.MustParse("6f1c2b52-3a0e-4d6b-9d8e-0c5f1a7e4b21")

// ItemID ID determinista del ítem (resultado, registro): recrearlo es idempotente.
func ItemID(resultID, recordID string) string {
	return uuid.NewSHA1(itemNamespace, []byte(resultID+"/"+recordID)).String()
}

// BuildItems reparte INSS e IRRF del resultado entre los registros tributables con base positiva,
// proporcional a su base, por el método del mayor resto: ninguna parte es negativa y la suma
// cierra al centavo. Depende solo del resultado y los registros, así Resume reconstruye los mismos ítems.
func BuildItems(res *entity.ConsolidatedResult, records []entity.EarningsRecord, now time.Time) []*entity.CalculatedItem {
	weights := make([]decimal.Decimal, len(records))
	for i, r := range records {
		if r.Header().Taxable && r.WithholdingBase().IsPositive() {
			weights[i] = r.WithholdingBase()
		}
	}
	inss := apportion(res.INSSWithheld, weights)
	irrf := apportion(res.IRRFWithheld, weights)

	items := make([]*entity.CalculatedItem, 0, len(records))
	for i, r := range records {
		h := r.Header()
		it := &entity.CalculatedItem{
			ID:             ItemID(res.ID, h.ID),
			ResultID:       res.ID,
			SourceRecordID: h.ID,
			Category:       r.Category(),
			Taxable:        h.Taxable,
			GrossShare:     fiscal.Round2(h.GrossAmount),
			INSSShare:      inss[i],
			IRRFShare:      irrf[i],
			CreatedAt:      now,
		}
		if h.Taxable {
			it.WithholdingBaseShare = fiscal.Round2(r.WithholdingBase())
		}
		it.NetShare = fiscal.Round2(r.PayoutAmount().Sub(it.INSSShare).Sub(it.IRRFShare))
		items = append(items, it)
	}
	return items
}

var cent = decimal.New(1, -2)

// apportion divide total (en centavos) según weights: cada parte recibe el piso de su cuota y los
// centavos restantes van a los mayores restos. En empate recibe el centavo la posición posterior.
// Pesos cero reciben cero.
func apportion(total decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(weights))
	sum := decimal.Zero
	for i, w := range weights {
		shares[i] = decimal.Zero
		sum = sum.Add(w)
	}
	if !total.IsPositive() || !sum.IsPositive() {
		return shares
	}

	type remainder struct {
		index int
		value decimal.Decimal
	}
	rems := make([]remainder, 0, len(weights))
	left := total
	for i, w := range weights {
		if !w.IsPositive() {
			continue
		}
		exact := total.Mul(w).Div(sum)
		shares[i] = exact.RoundFloor(2)
		rems = append(rems, remainder{index: i, value: exact.Sub(shares[i])})
		left = left.Sub(shares[i])
	}
	sort.SliceStable(rems, func(a, b int) bool {
		if c := rems[a].value.Cmp(rems[b].value); c != 0 {
			return c > 0
		}
		return rems[a].index > rems[b].index
	})
	for k := 0; k < len(rems) && left.GreaterThanOrEqual(cent); k++ {
		shares[rems[k].index] = shares[rems[k].index].Add(cent)
		left = left.Sub(cent)
	}
	return shares
}
