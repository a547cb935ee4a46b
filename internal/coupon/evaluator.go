package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"example.com/checkout/internal/pricing"
	"example.com/checkout/pkg/logger"
)

// ErrCouponNotFound — купон с таким кодом отсутствует в источнике.
// Репозиторий возвращает её, чтобы Evaluator продолжил перебор источников.
var ErrCouponNotFound = errors.New("купон не найден")

// Repository — доступ к купонам в БД.
type Repository interface {
	// GetGiftCoupon возвращает подарочный купон по коду и владельцу.
	// Возвращает ErrCouponNotFound, если купона нет или он принадлежит
	// другому пользователю.
	GetGiftCoupon(ctx context.Context, code, discordID string) (*Coupon, error)

	// GetCoupon возвращает общий купон по коду.
	GetCoupon(ctx context.Context, code string) (*Coupon, error)
}

// Evaluator валидирует купон и рассчитывает скидку.
type Evaluator struct {
	static map[string]*Coupon
	repo   Repository
	now    func() time.Time // Подменяется в тестах
}

// NewEvaluator создаёт Evaluator.
// static — купоны из конфигурации (высший приоритет), repo — купоны из БД.
func NewEvaluator(static []*Coupon, repo Repository) *Evaluator {
	idx := make(map[string]*Coupon, len(static))
	for _, c := range static {
		idx[NormalizeCode(c.Code)] = c
	}
	return &Evaluator{
		static: idx,
		repo:   repo,
		now:    time.Now,
	}
}

// Evaluate оценивает купон для заказа.
// Пустой код — исход OutcomeNotApplied, скидки нет.
// Итоговая сумма никогда не превышает базовую и не опускается ниже 1 цента
// (шлюз отклоняет платежи с нулевой суммой).
func (e *Evaluator) Evaluate(ctx context.Context, code, discordID string, q *pricing.Quote) (*Result, error) {
	code = NormalizeCode(code)
	if code == "" {
		return &Result{Outcome: OutcomeNotApplied}, nil
	}

	c, err := e.resolve(ctx, code, discordID)
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return rejected("Cupom não encontrado", "not_found"), nil
		}
		return nil, fmt.Errorf("ошибка поиска купона: %w", err)
	}

	if res := e.checkRules(c, q); res != nil {
		return res, nil
	}

	discount, total, err := computeDiscount(c, q.BaseCents)
	if err != nil {
		return nil, err
	}

	logger.Ctx(ctx).Debug().
		Str("coupon", c.Code).
		Str("source", string(c.Source)).
		Int64("discount_cents", discount).
		Int64("total_cents", total).
		Msg("Купон применён")

	return &Result{
		Outcome:       OutcomeApplied,
		Code:          c.Code,
		Source:        c.Source,
		Kind:          c.Kind,
		Value:         c.Value,
		DiscountCents: discount,
		TotalCents:    total,
	}, nil
}

// resolve ищет купон по источникам в порядке приоритета:
// static → gift → general. Первое совпадение — финальное.
func (e *Evaluator) resolve(ctx context.Context, code, discordID string) (*Coupon, error) {
	if c, ok := e.static[code]; ok {
		return c, nil
	}

	if discordID != "" {
		c, err := e.repo.GetGiftCoupon(ctx, code, discordID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrCouponNotFound) {
			return nil, err
		}
	}

	return e.repo.GetCoupon(ctx, code)
}

// checkRules проверяет ограничения купона.
// Возвращает nil, если все правила пройдены, иначе — Result с отказом.
func (e *Evaluator) checkRules(c *Coupon, q *pricing.Quote) *Result {
	now := e.now()

	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return rejected("Cupom ainda não está ativo", "not_started")
	}
	if c.EndsAt != nil && now.After(*c.EndsAt) {
		return rejected("Cupom expirado", "expired")
	}
	if c.Plan != "" && c.Plan != q.Plan {
		return rejected("Cupom não é válido para este plano", "plan_mismatch")
	}
	if c.Billing != "" && c.Billing != q.Billing {
		return rejected("Cupom não é válido para este período", "billing_mismatch")
	}
	if c.MinOrderCents > 0 && q.BaseCents < c.MinOrderCents {
		return rejected("Valor mínimo do pedido não atingido", "below_minimum")
	}
	if c.MaxUses > 0 && c.Uses >= c.MaxUses {
		return rejected("Cupom esgotado", "exhausted")
	}

	return nil
}

// computeDiscount рассчитывает скидку и итог.
// Инварианты: 0 <= discount <= base, total >= 1 цент, total никогда не растёт.
func computeDiscount(c *Coupon, baseCents int64) (discount, total int64, err error) {
	switch c.Kind {
	case KindPercent:
		value := c.Value
		if value < 0 {
			value = 0
		}
		if value > 100 {
			value = 100
		}
		// Округление до ближайшего цента
		discount = (baseCents*value + 50) / 100

	case KindFixed:
		discount = c.Value
		if discount < 0 {
			discount = 0
		}

	case KindTargetTotal:
		target := c.Value
		if target > baseCents {
			// target_total никогда не увеличивает цену
			target = baseCents
		}
		discount = baseCents - target

	default:
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownKind, c.Kind)
	}

	if discount > baseCents {
		discount = baseCents
	}

	total = baseCents - discount
	// Шлюз отклоняет платежи с нулевой суммой
	if total < 1 {
		total = 1
		discount = baseCents - total
	}

	return discount, total, nil
}

// rejected — хелпер для Result с отказом.
func rejected(message, reason string) *Result {
	return &Result{
		Outcome:      OutcomeRejected,
		Message:      message,
		RejectReason: reason,
	}
}
