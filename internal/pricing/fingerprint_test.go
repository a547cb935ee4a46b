package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint_Deterministic(t *testing.T) {
	q := &Quote{
		Plan:       PlanPro,
		Billing:    BillingMonthly,
		UnitCents:  1990,
		Months:     1,
		BaseCents:  1990,
		TotalCents: 1990,
	}

	// Чистая функция: одинаковые входы — одинаковый результат
	fp1 := Fingerprint("pix", q)
	fp2 := Fingerprint("pix", q)
	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 32) // 16 байт в hex
}

func TestFingerprint_SensitiveToInputs(t *testing.T) {
	base := &Quote{
		Plan:       PlanPro,
		Billing:    BillingMonthly,
		UnitCents:  1990,
		Months:     1,
		BaseCents:  1990,
		TotalCents: 1990,
	}
	fp := Fingerprint("pix", base)

	// Смена метода оплаты
	assert.NotEqual(t, fp, Fingerprint("boleto", base))

	// Смена итоговой суммы (купон применился)
	discounted := *base
	discounted.TotalCents = 995
	discounted.CouponCode = "LAUNCH50"
	assert.NotEqual(t, fp, Fingerprint("pix", &discounted))

	// Смена тарифа
	otherPlan := *base
	otherPlan.Plan = PlanUltra
	assert.NotEqual(t, fp, Fingerprint("pix", &otherPlan))
}
