package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/checkout/pkg/config"
)

func testEngine() *Engine {
	return NewEngine(config.PaymentConfig{
		PriceBasicCents: 990,
		PriceProCents:   1990,
		PriceUltraCents: 3990,
	})
}

func TestEngine_Quote(t *testing.T) {
	engine := testEngine()

	tests := []struct {
		name          string
		plan          Plan
		billing       Billing
		wantUnit      int64
		wantMonths    int
		wantBaseCents int64
	}{
		{
			name:          "pro monthly — базовый сценарий",
			plan:          PlanPro,
			billing:       BillingMonthly,
			wantUnit:      1990,
			wantMonths:    1,
			wantBaseCents: 1990,
		},
		{
			name:          "basic annual — 12 месяцев одним платежом",
			plan:          PlanBasic,
			billing:       BillingAnnual,
			wantUnit:      990,
			wantMonths:    12,
			wantBaseCents: 11880,
		},
		{
			name:          "ultra monthly",
			plan:          PlanUltra,
			billing:       BillingMonthly,
			wantUnit:      3990,
			wantMonths:    1,
			wantBaseCents: 3990,
		},
		{
			name:          "ultra annual",
			plan:          PlanUltra,
			billing:       BillingAnnual,
			wantUnit:      3990,
			wantMonths:    12,
			wantBaseCents: 47880,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := engine.Quote(tt.plan, tt.billing)
			require.NoError(t, err)

			assert.Equal(t, tt.wantUnit, q.UnitCents)
			assert.Equal(t, tt.wantMonths, q.Months)
			assert.Equal(t, tt.wantBaseCents, q.BaseCents)

			// До купона: total == base, скидки нет
			assert.Equal(t, q.BaseCents, q.TotalCents)
			assert.Zero(t, q.DiscountCents)

			// base = unit × months
			assert.Equal(t, q.UnitCents*int64(q.Months), q.BaseCents)
		})
	}
}

func TestEngine_Quote_UnknownPlan(t *testing.T) {
	engine := testEngine()

	_, err := engine.Quote("enterprise", BillingMonthly)
	assert.ErrorIs(t, err, ErrUnknownPlan)
}

func TestEngine_Quote_UnknownBilling(t *testing.T) {
	engine := testEngine()

	_, err := engine.Quote(PlanPro, "weekly")
	assert.ErrorIs(t, err, ErrUnknownBilling)
}

func TestBilling_Months(t *testing.T) {
	months, err := BillingMonthly.Months()
	require.NoError(t, err)
	assert.Equal(t, 1, months)

	months, err = BillingAnnual.Months()
	require.NoError(t, err)
	assert.Equal(t, 12, months)

	_, err = Billing("quarterly").Months()
	assert.ErrorIs(t, err, ErrUnknownBilling)
}
