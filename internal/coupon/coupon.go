// Package coupon содержит валидацию купонов и расчёт скидки.
//
// Купоны приходят из трёх источников с фиксированным приоритетом:
// статическая конфигурация, подарочные купоны (привязаны к одному
// Discord-пользователю), общие купоны. Первое совпадение по коду — финальное:
// если найденный купон не проходит правила, остальные источники не опрашиваются.
package coupon

import (
	"errors"
	"strings"
	"time"

	"example.com/checkout/internal/pricing"
)

// Kind — вид скидки.
type Kind string

const (
	// KindPercent — процент от базовой суммы (0–100), округление до цента.
	KindPercent Kind = "percent"

	// KindFixed — фиксированная сумма в центах, вычитается из базы.
	KindFixed Kind = "fixed"

	// KindTargetTotal — итоговая сумма фиксируется значением купона.
	// Никогда не увеличивает цену: итог = min(base, value).
	KindTargetTotal Kind = "target_total"
)

// Source — источник купона (tagged union вместо duck-typing).
type Source string

const (
	SourceStatic  Source = "static"
	SourceGift    Source = "gift"
	SourceGeneral Source = "general"
)

// ErrUnknownKind — неизвестный вид скидки в конфигурации или БД.
var ErrUnknownKind = errors.New("неизвестный вид скидки купона")

// Coupon — купон из любого источника, приведённый к единой форме.
type Coupon struct {
	Code   string // Код в верхнем регистре (сравнение регистронезависимое)
	Source Source
	Kind   Kind
	// Value — процент для percent, центы для fixed и target_total.
	Value int64

	// Ограничения (нулевые значения = ограничение не задано).
	StartsAt      *time.Time
	EndsAt        *time.Time
	Plan          pricing.Plan    // Купон действует только на этот тариф
	Billing       pricing.Billing // Купон действует только на этот период
	MinOrderCents int64           // Минимальная базовая сумма заказа
	MaxUses       int             // Лимит применений (0 = без лимита)
	Uses          int             // Текущее количество применений

	// OwnerDiscordID — для подарочных купонов: единственный пользователь,
	// которому купон доступен.
	OwnerDiscordID string
}

// NormalizeCode приводит код купона к канонической форме.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Outcome — исход применения купона.
type Outcome string

const (
	// OutcomeNotApplied — код не передан, купон не участвует в расчёте.
	OutcomeNotApplied Outcome = "not_applied"

	// OutcomeRejected — купон найден или не найден, но применить нельзя.
	OutcomeRejected Outcome = "rejected"

	// OutcomeApplied — купон применён, скидка рассчитана.
	OutcomeApplied Outcome = "applied"
)

// Result — результат оценки купона для заказа.
type Result struct {
	Outcome Outcome
	// Message — причина отказа (только для OutcomeRejected), безопасна для клиента.
	Message string
	// RejectReason — машиночитаемая причина для метрик.
	RejectReason string

	// Поля ниже заполнены только при OutcomeApplied.
	Code          string
	Source        Source
	Kind          Kind
	Value         int64
	DiscountCents int64
	TotalCents    int64
}

// Applied возвращает true, если купон применён.
func (r *Result) Applied() bool {
	return r.Outcome == OutcomeApplied
}
