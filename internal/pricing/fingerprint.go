package pricing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Fingerprint — хэш над всеми полями, влияющими на цену.
// Сохраняется в metadata платежа и используется при дедупликации:
// кандидат на переиспользование подходит только если его fingerprint
// совпадает с fingerprint текущего запроса (цена не изменилась).
//
// Чистая функция: одинаковые входы всегда дают одинаковый результат.
func Fingerprint(method string, q *Quote) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%d|%s|%d|%d",
		method, q.Plan, q.Billing, q.TotalCents, q.CouponCode, q.Months, q.UnitCents)
	// 16 байт достаточно для сравнения на равенство, короче хранить в metadata
	return hex.EncodeToString(h.Sum(nil)[:16])
}
