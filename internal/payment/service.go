package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"example.com/checkout/internal/coupon"
	"example.com/checkout/internal/mercadopago"
	"example.com/checkout/internal/pricing"
	"example.com/checkout/pkg/config"
	"example.com/checkout/pkg/logger"
	"example.com/checkout/pkg/metrics"
)

// Методы оплаты.
const (
	MethodPix    = "pix"
	MethodBoleto = "boleto"
	MethodCard   = "card"
)

// searchLimit — сколько самых свежих кандидатов запрашиваем у шлюза
// при дедупликации. Пагинация не обходится: более старые платежи
// считаются устаревшими.
const searchLimit = 30

// pixExpiration — время жизни Pix QR-кода.
const pixExpiration = 30 * time.Minute

// Ошибки валидации входных данных.
var (
	ErrUnknownMethod   = errors.New("неизвестный метод оплаты")
	ErrMissingCardData = errors.New("для оплаты картой нужны token и brand")
	ErrPaymentNotFound = errors.New("платёж не найден")
)

// Gateway — операции платёжного шлюза, используемые сервисом.
type Gateway interface {
	Create(ctx context.Context, req *mercadopago.CreatePaymentRequest, idempotencyKey string) (*mercadopago.Payment, error)
	Get(ctx context.Context, id int64) (*mercadopago.Payment, error)
	SearchByExternalReference(ctx context.Context, externalReference string, limit int) ([]*mercadopago.Payment, error)
	Cancel(ctx context.Context, id int64) (*mercadopago.Payment, error)
}

// Service — оркестратор создания платежей.
type Service struct {
	cfg     config.PaymentConfig
	pricing *pricing.Engine
	coupons *coupon.Evaluator
	gateway Gateway
	intents *IntentStore
	tracker *StatusTracker
	events  *Publisher // nil = события не публикуются (Kafka выключена)

	// notificationURL — webhook шлюза (настраивается, но не обрабатывается здесь).
	notificationURL string

	now func() time.Time // Подменяется в тестах
}

// NewService создаёт Service.
func NewService(
	cfg config.PaymentConfig,
	engine *pricing.Engine,
	coupons *coupon.Evaluator,
	gateway Gateway,
	intents *IntentStore,
	tracker *StatusTracker,
	events *Publisher,
	notificationURL string,
) *Service {
	return &Service{
		cfg:             cfg,
		pricing:         engine,
		coupons:         coupons,
		gateway:         gateway,
		intents:         intents,
		tracker:         tracker,
		events:          events,
		notificationURL: notificationURL,
		now:             time.Now,
	}
}

// =============================================================================
// Расчёт стоимости (GET /api/pagment)
// =============================================================================

// QuoteRequest — запрос расчёта стоимости.
type QuoteRequest struct {
	Plan       pricing.Plan
	Billing    pricing.Billing
	CouponCode string
	DiscordID  string
	Method     string // Опционально: для расчёта минимального floor
}

// QuoteResult — результат расчёта стоимости.
type QuoteResult struct {
	Quote        *pricing.Quote
	Coupon       *coupon.Result
	FloorApplied bool // Итог поднят до минимума метода оплаты
}

// QuoteOrder рассчитывает стоимость заказа с учётом купона и минимального
// floor метода оплаты. Отказ купона — не ошибка: скидка просто не применяется,
// детали отказа в Result.Coupon.
func (s *Service) QuoteOrder(ctx context.Context, req *QuoteRequest) (*QuoteResult, error) {
	q, err := s.pricing.Quote(req.Plan, req.Billing)
	if err != nil {
		return nil, err
	}

	res, err := s.coupons.Evaluate(ctx, req.CouponCode, req.DiscordID, q)
	if err != nil {
		return nil, err
	}
	s.applyCoupon(q, res)

	floorApplied := false
	if req.Method != "" {
		floorApplied, err = s.applyFloor(req.Method, q)
		if err != nil {
			return nil, err
		}
	}

	if res.Outcome == coupon.OutcomeRejected {
		metrics.CouponRejections.WithLabelValues(res.RejectReason).Inc()
	}

	return &QuoteResult{Quote: q, Coupon: res, FloorApplied: floorApplied}, nil
}

// applyCoupon переносит применённую скидку в Quote.
func (s *Service) applyCoupon(q *pricing.Quote, res *coupon.Result) {
	if !res.Applied() {
		return
	}
	q.CouponCode = res.Code
	q.DiscountCents = res.DiscountCents
	q.TotalCents = res.TotalCents
}

// applyFloor поднимает итог до минимума метода оплаты.
// Floor применяется после купона и независимо от логики купонов:
// шлюз отклоняет слишком маленькие суммы policy-правилами.
func (s *Service) applyFloor(method string, q *pricing.Quote) (bool, error) {
	min, err := s.minimumCents(method)
	if err != nil {
		return false, err
	}
	if q.TotalCents >= min {
		return false, nil
	}
	q.TotalCents = min
	q.DiscountCents = q.BaseCents - q.TotalCents
	return true, nil
}

// minimumCents возвращает минимальную итоговую сумму метода оплаты.
func (s *Service) minimumCents(method string) (int64, error) {
	switch method {
	case MethodPix:
		return s.cfg.MinPixCents, nil
	case MethodBoleto:
		return s.cfg.MinBoletoCents, nil
	case MethodCard:
		return s.cfg.MinCardCents, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// =============================================================================
// Создание платежа (POST /api/pagment)
// =============================================================================

// CreateRequest — запрос создания платежа.
type CreateRequest struct {
	OrderID    string
	Revision   int
	Method     string
	Plan       pricing.Plan
	Billing    pricing.Billing
	CouponCode string

	DiscordID      string
	PayerEmail     string
	PayerCPF       string
	PayerFirstName string

	// Только для оплаты картой.
	CardToken    string
	CardBrand    string // payment_method_id шлюза: "visa", "master", ...
	Installments int

	// Отмена заменяемого платежа (regenerate после смены купона).
	CancelPrevious   bool
	ReplacePaymentID int64
}

// Cancellation — результат guard отмены заменяемого платежа.
type Cancellation struct {
	Requested bool   `json:"requested"`
	Cancelled bool   `json:"cancelled"`
	Skipped   bool   `json:"skipped"`
	Reason    string `json:"reason,omitempty"`
}

// CreateResult — результат создания платежа.
type CreateResult struct {
	Payment      *mercadopago.Payment
	Quote        *pricing.Quote
	Coupon       *coupon.Result
	FloorApplied bool

	// Deduped = true: возвращён ранее созданный платёж, нового списания нет.
	Deduped     bool
	DedupSource string // "cache" или "gateway_search"

	// Cancellation — исход guard отмены (nil, если отмена не запрашивалась).
	Cancellation *Cancellation

	// Данные для оплаты: QR-код Pix или ссылка на boleto.
	QRCode       string
	QRCodeBase64 string
	BoletoURL    string
}

// Create создаёт платёж или возвращает существующий (дедупликация).
//
// Порядок: расчёт цены → купон → floor метода → guard отмены заменяемого →
// dedup-кэш → поиск в шлюзе → создание. Ключ идемпотентности шлюза —
// последний рубеж: даже при промахе обоих уровней дедупликации повторный
// идентичный запрос не создаёт второго списания.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*CreateResult, error) {
	log := logger.FromContext(ctx)

	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	quoteRes, err := s.QuoteOrder(ctx, &QuoteRequest{
		Plan:       req.Plan,
		Billing:    req.Billing,
		CouponCode: req.CouponCode,
		DiscordID:  req.DiscordID,
		Method:     req.Method,
	})
	if err != nil {
		return nil, err
	}

	result := &CreateResult{
		Quote:        quoteRes.Quote,
		Coupon:       quoteRes.Coupon,
		FloorApplied: quoteRes.FloorApplied,
	}

	// Купон отклонён: платёж не создаём, клиент должен убрать или сменить код
	if quoteRes.Coupon.Outcome == coupon.OutcomeRejected {
		return result, nil
	}

	fingerprint := pricing.Fingerprint(req.Method, quoteRes.Quote)
	externalReference := ExternalReference(req.OrderID, req.Revision)

	// Guard отмены до дедупликации: отменённый платёж не должен
	// вернуться как кандидат на переиспользование
	if req.CancelPrevious && req.ReplacePaymentID != 0 {
		result.Cancellation = s.cancelPrevious(ctx, req.OrderID, req.ReplacePaymentID)
		if result.Cancellation.Cancelled {
			if err := s.intents.Delete(ctx, req.OrderID, req.Revision, req.Method); err != nil {
				log.Warn().Err(err).Msg("Ошибка удаления intent отменённого платежа")
			}
		}
	}

	if pmt := s.dedupFromCache(ctx, req, fingerprint); pmt != nil {
		log.Info().
			Str("order_id", req.OrderID).
			Int64("payment_id", pmt.ID).
			Msg("Платёж переиспользован из dedup-кэша")
		metrics.PaymentsDeduped.WithLabelValues("cache").Inc()
		result.Payment = pmt
		result.Deduped = true
		result.DedupSource = "cache"
		s.fillPaymentData(ctx, result)
		return result, nil
	}

	if pmt := s.dedupFromGateway(ctx, req, externalReference, fingerprint); pmt != nil {
		log.Info().
			Str("order_id", req.OrderID).
			Int64("payment_id", pmt.ID).
			Msg("Платёж переиспользован из поиска шлюза")
		metrics.PaymentsDeduped.WithLabelValues("gateway_search").Inc()
		s.registerIntent(ctx, req, pmt.ID, fingerprint)
		result.Payment = pmt
		result.Deduped = true
		result.DedupSource = "gateway_search"
		s.fillPaymentData(ctx, result)
		return result, nil
	}

	pmt, err := s.createInGateway(ctx, req, quoteRes.Quote, externalReference, fingerprint)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("order_id", req.OrderID).
		Int("revision", req.Revision).
		Str("method", req.Method).
		Int64("payment_id", pmt.ID).
		Int64("total_cents", quoteRes.Quote.TotalCents).
		Msg("Платёж создан")
	metrics.PaymentsCreated.WithLabelValues(req.Method).Inc()

	s.registerIntent(ctx, req, pmt.ID, fingerprint)

	if s.events != nil {
		if err := s.events.PaymentCreated(ctx, req.OrderID, req.Revision, req.Method, pmt); err != nil {
			// Событие best-effort: платёж уже создан, отказывать клиенту поздно
			log.Error().Err(err).Int64("payment_id", pmt.ID).Msg("Ошибка публикации события создания платежа")
		}
	}

	result.Payment = pmt
	s.fillPaymentData(ctx, result)
	return result, nil
}

// validateCreate проверяет входные данные запроса.
func (s *Service) validateCreate(req *CreateRequest) error {
	if _, err := s.minimumCents(req.Method); err != nil {
		return err
	}
	if req.Method == MethodCard && (req.CardToken == "" || req.CardBrand == "") {
		return ErrMissingCardData
	}
	return nil
}

// dedupFromCache проверяет dedup-кэш. Кандидат подходит, если fingerprint
// совпадает (цена не менялась) и платёж по данным шлюза ещё не финален.
// Ошибки кэша и шлюза не фатальны: дедупликация best-effort, идём дальше.
func (s *Service) dedupFromCache(ctx context.Context, req *CreateRequest, fingerprint string) *mercadopago.Payment {
	log := logger.FromContext(ctx)

	intent, err := s.intents.Get(ctx, req.OrderID, req.Revision, req.Method)
	if err != nil {
		log.Warn().Err(err).Msg("Ошибка чтения dedup-кэша, пропускаем")
		return nil
	}
	if intent == nil || intent.Fingerprint != fingerprint {
		return nil
	}

	pmt, err := s.gateway.Get(ctx, intent.PaymentID)
	if err != nil {
		log.Warn().Err(err).Int64("payment_id", intent.PaymentID).Msg("Ошибка перепроверки платежа из кэша")
		return nil
	}
	if Status(pmt.Status).IsTerminal() {
		return nil
	}
	return pmt
}

// dedupFromGateway ищет переиспользуемый платёж по external_reference.
// Кандидат: не отменён, не финален, совпадающий fingerprint в metadata
// и тот же метод оплаты.
func (s *Service) dedupFromGateway(ctx context.Context, req *CreateRequest, externalReference, fingerprint string) *mercadopago.Payment {
	log := logger.FromContext(ctx)

	candidates, err := s.gateway.SearchByExternalReference(ctx, externalReference, searchLimit)
	if err != nil {
		log.Warn().Err(err).Str("external_reference", externalReference).Msg("Ошибка поиска платежей в шлюзе, пропускаем")
		return nil
	}

	for _, pmt := range candidates {
		status := Status(pmt.Status)
		if status == StatusCancelled || status.IsTerminal() {
			continue
		}
		if pmt.MetadataString("fingerprint") != fingerprint {
			continue
		}
		if pmt.MetadataString("method") != req.Method {
			continue
		}
		return pmt
	}
	return nil
}

// registerIntent записывает платёж в dedup-кэш (best-effort).
func (s *Service) registerIntent(ctx context.Context, req *CreateRequest, paymentID int64, fingerprint string) {
	intent := &Intent{PaymentID: paymentID, Fingerprint: fingerprint}
	if err := s.intents.Put(ctx, req.OrderID, req.Revision, req.Method, intent); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("Ошибка записи в dedup-кэш")
	}
}

// createInGateway собирает запрос и создаёт платёж в шлюзе.
func (s *Service) createInGateway(ctx context.Context, req *CreateRequest, q *pricing.Quote, externalReference, fingerprint string) (*mercadopago.Payment, error) {
	gwReq := &mercadopago.CreatePaymentRequest{
		TransactionAmount: mercadopago.CentsToAmount(q.TotalCents),
		Description:       fmt.Sprintf("Assinatura %s (%s)", q.Plan, q.Billing),
		PaymentMethodID:   s.gatewayMethodID(req),
		ExternalReference: externalReference,
		NotificationURL:   s.notificationURL,
		Metadata: map[string]any{
			"order_id":       req.OrderID,
			"revision":       req.Revision,
			"method":         req.Method,
			"plan":           string(q.Plan),
			"billing":        string(q.Billing),
			"coupon":         q.CouponCode,
			"fingerprint":    fingerprint,
			"base_cents":     q.BaseCents,
			"discount_cents": q.DiscountCents,
			"total_cents":    q.TotalCents,
			"discord_id":     req.DiscordID,
		},
		Payer: &mercadopago.Payer{
			Email:     req.PayerEmail,
			FirstName: req.PayerFirstName,
		},
	}

	if req.PayerCPF != "" {
		gwReq.Payer.Identification = &mercadopago.Identification{Type: "CPF", Number: req.PayerCPF}
	}
	if req.Method == MethodPix {
		expires := s.now().Add(pixExpiration)
		gwReq.DateOfExpiration = &expires
	}
	if req.Method == MethodCard {
		gwReq.Token = req.CardToken
		gwReq.Installments = req.Installments
		if gwReq.Installments <= 0 {
			gwReq.Installments = 1
		}
	}

	key := IdempotencyKey(externalReference, req.Method, fingerprint, req.PayerCPF, req.PayerEmail)

	pmt, err := s.gateway.Create(ctx, gwReq, key)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания платежа в шлюзе: %w", err)
	}
	return pmt, nil
}

// gatewayMethodID возвращает payment_method_id шлюза для метода оплаты.
func (s *Service) gatewayMethodID(req *CreateRequest) string {
	switch req.Method {
	case MethodPix:
		return "pix"
	case MethodBoleto:
		return "bolbradesco"
	case MethodCard:
		return req.CardBrand
	default:
		return req.Method
	}
}

// fillPaymentData извлекает данные для оплаты из ответа шлюза.
// Для Pix при отсутствии qr_code_base64 изображение рендерится локально.
func (s *Service) fillPaymentData(ctx context.Context, result *CreateResult) {
	pmt := result.Payment
	if pmt == nil {
		return
	}

	if poi := pmt.PointOfInteraction; poi != nil && poi.TransactionData != nil {
		result.QRCode = poi.TransactionData.QRCode
		b64, err := mercadopago.PixQRCodeBase64(pmt)
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Int64("payment_id", pmt.ID).Msg("Не удалось получить QR-код Pix")
		} else {
			result.QRCodeBase64 = b64
		}
	}
	if td := pmt.TransactionDetails; td != nil {
		result.BoletoURL = td.ExternalResourceURL
	}
}

// =============================================================================
// Guard отмены заменяемого платежа
// =============================================================================

// cancelPrevious отменяет заменяемый платёж, если это безопасно.
// Отказывает, когда платёж принадлежит другому заказу, уже approved
// или статус вне отменяемого набора. Ошибки не фатальны для создания
// нового платежа: исход сообщается клиенту в поле cancellation.
func (s *Service) cancelPrevious(ctx context.Context, orderID string, replacePaymentID int64) *Cancellation {
	log := logger.FromContext(ctx)
	result := &Cancellation{Requested: true}

	pmt, err := s.gateway.Get(ctx, replacePaymentID)
	if err != nil {
		log.Warn().Err(err).Int64("payment_id", replacePaymentID).Msg("Не удалось получить заменяемый платёж")
		result.Skipped = true
		result.Reason = "fetch_failed"
		return result
	}

	if owner := pmt.MetadataString("order_id"); owner != "" && owner != orderID {
		log.Warn().
			Int64("payment_id", replacePaymentID).
			Str("payment_order", owner).
			Str("request_order", orderID).
			Msg("Отмена отклонена: платёж принадлежит другому заказу")
		result.Skipped = true
		result.Reason = "different_order"
		return result
	}

	status := Status(pmt.Status)
	if status == StatusApproved {
		result.Skipped = true
		result.Reason = "already_approved"
		return result
	}
	if !status.IsCancellable() {
		result.Skipped = true
		result.Reason = "not_cancellable"
		return result
	}

	cancelled, err := s.gateway.Cancel(ctx, replacePaymentID)
	if err != nil {
		log.Error().Err(err).Int64("payment_id", replacePaymentID).Msg("Ошибка отмены заменяемого платежа")
		result.Skipped = true
		result.Reason = "cancel_failed"
		return result
	}

	log.Info().Int64("payment_id", replacePaymentID).Msg("Заменяемый платёж отменён")
	result.Cancelled = true

	if s.events != nil {
		if err := s.events.StatusChanged(ctx, orderID, cancelled, status); err != nil {
			log.Error().Err(err).Int64("payment_id", replacePaymentID).Msg("Ошибка публикации события отмены")
		}
	}

	return result
}

// =============================================================================
// Polling статуса (GET /api/pagment?payment_id=...)
// =============================================================================

// StatusResult — текущее состояние платежа для клиентского polling.
type StatusResult struct {
	Payment  *mercadopago.Payment
	Status   Status
	Terminal bool // Клиент останавливает polling
}

// GetStatus возвращает текущий статус платежа.
// devOverride (из DevOverrideStore, только вне production) подменяет статус
// шлюза. При первом наблюдении смены статуса публикуется событие.
func (s *Service) GetStatus(ctx context.Context, paymentID int64, devOverride Status) (*StatusResult, error) {
	pmt, err := s.gateway.Get(ctx, paymentID)
	if err != nil {
		var apiErr *mercadopago.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %d", ErrPaymentNotFound, paymentID)
		}
		return nil, fmt.Errorf("ошибка получения платежа: %w", err)
	}

	status := Status(pmt.Status)
	if devOverride != "" {
		status = devOverride
		pmt.Status = string(devOverride)
	}

	if s.tracker != nil {
		old, err := s.tracker.Swap(ctx, paymentID, status)
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("Ошибка трекера статусов")
		} else if old != "" && old != status && s.events != nil {
			if err := s.events.StatusChanged(ctx, pmt.MetadataString("order_id"), pmt, old); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("Ошибка публикации события смены статуса")
			}
		}
	}

	return &StatusResult{
		Payment:  pmt,
		Status:   status,
		Terminal: status.IsTerminal(),
	}, nil
}
