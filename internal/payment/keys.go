package payment

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ExternalReference строит внешний идентификатор заказа для шлюза.
// Уникален на пару (order_id, revision): смена цены после создания
// платёжного намерения требует новой ревизии.
func ExternalReference(orderID string, revision int) string {
	return fmt.Sprintf("order:%s:rev:%d", orderID, revision)
}

// IdempotencyKey вычисляет ключ идемпотентности для шлюза.
// Чистая функция от (external_reference, method, fingerprint, cpf, email):
// повтор идентичного запроса (double-click, retry клиента) даёт тот же ключ,
// и шлюз возвращает уже созданный платёж вместо второго списания.
func IdempotencyKey(externalReference, method, fingerprint, cpf, email string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s", externalReference, method, fingerprint, cpf, email)
	return hex.EncodeToString(h.Sum(nil))
}
