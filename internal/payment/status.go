// Package payment содержит оркестрацию создания платежей: расчёт цены,
// применение купона, минимальные суммы метода оплаты, дедупликация через
// Redis и поиск в шлюзе, guard отмены заменяемого платежа.
package payment

// Status — статус платежа в жизненном цикле шлюза.
type Status string

// Статусы платежа, как их отдаёт шлюз.
// pending → {approved | rejected | cancelled | expired} — терминальные,
// in_process / authorized / in_mediation — промежуточные.
const (
	StatusPending     Status = "pending"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusCancelled   Status = "cancelled"
	StatusExpired     Status = "expired"
	StatusInProcess   Status = "in_process"
	StatusAuthorized  Status = "authorized"
	StatusInMediation Status = "in_mediation"
)

// terminalStatuses — статусы, после которых платёж не меняется.
// Клиентский polling останавливается на любом из них.
var terminalStatuses = map[Status]bool{
	StatusApproved:  true,
	StatusRejected:  true,
	StatusCancelled: true,
	StatusExpired:   true,
}

// cancellableStatuses — статусы, в которых платёж разрешено отменять.
var cancellableStatuses = map[Status]bool{
	StatusPending:     true,
	StatusInProcess:   true,
	StatusAuthorized:  true,
	StatusInMediation: true,
}

// IsTerminal возвращает true для финальных статусов.
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// IsCancellable возвращает true, если платёж в этом статусе можно отменить.
func (s Status) IsCancellable() bool {
	return cancellableStatuses[s]
}
