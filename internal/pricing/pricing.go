// Package pricing содержит расчёт стоимости подписки.
// Все суммы — в целых центах, чтобы исключить дрейф плавающей точки.
package pricing

import (
	"errors"

	"example.com/checkout/pkg/config"
)

// Plan — тариф подписки.
type Plan string

const (
	PlanBasic Plan = "basic"
	PlanPro   Plan = "pro"
	PlanUltra Plan = "ultra"
)

// Billing — период оплаты.
type Billing string

const (
	// BillingMonthly — помесячная оплата (1 месяц).
	BillingMonthly Billing = "monthly"

	// BillingAnnual — годовая предоплата (12 месяцев одним платежом).
	BillingAnnual Billing = "annual"
)

// Ошибки валидации входных данных.
var (
	ErrUnknownPlan    = errors.New("неизвестный тариф")
	ErrUnknownBilling = errors.New("неизвестный период оплаты")
)

// Quote — результат расчёта стоимости.
type Quote struct {
	Plan          Plan    `json:"plan"`
	Billing       Billing `json:"billing"`
	UnitCents     int64   `json:"unit_cents"`     // Цена за месяц
	Months        int     `json:"months"`         // Количество оплачиваемых месяцев
	BaseCents     int64   `json:"base_cents"`     // unit × months, до скидок
	DiscountCents int64   `json:"discount_cents"` // Скидка купона
	TotalCents    int64   `json:"total_cents"`    // Итог к оплате
	CouponCode    string  `json:"coupon_code,omitempty"`
}

// Engine вычисляет стоимость по таблице цен тарифов.
type Engine struct {
	unitCents map[Plan]int64
}

// NewEngine создаёт Engine с ценами из конфигурации.
func NewEngine(cfg config.PaymentConfig) *Engine {
	return &Engine{
		unitCents: map[Plan]int64{
			PlanBasic: cfg.PriceBasicCents,
			PlanPro:   cfg.PriceProCents,
			PlanUltra: cfg.PriceUltraCents,
		},
	}
}

// Months возвращает количество месяцев для периода оплаты.
func (b Billing) Months() (int, error) {
	switch b {
	case BillingMonthly:
		return 1, nil
	case BillingAnnual:
		return 12, nil
	default:
		return 0, ErrUnknownBilling
	}
}

// UnitCents возвращает месячную цену тарифа.
func (e *Engine) UnitCents(plan Plan) (int64, error) {
	unit, ok := e.unitCents[plan]
	if !ok {
		return 0, ErrUnknownPlan
	}
	return unit, nil
}

// Quote вычисляет базовую стоимость (до купона): base = unit × months.
func (e *Engine) Quote(plan Plan, billing Billing) (*Quote, error) {
	unit, err := e.UnitCents(plan)
	if err != nil {
		return nil, err
	}

	months, err := billing.Months()
	if err != nil {
		return nil, err
	}

	base := unit * int64(months)

	return &Quote{
		Plan:       plan,
		Billing:    billing,
		UnitCents:  unit,
		Months:     months,
		BaseCents:  base,
		TotalCents: base,
	}, nil
}
