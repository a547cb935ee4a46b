package coupon

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseStatic разбирает купоны из конфигурации.
// Формат элемента: "CODE:kind:value", например "LAUNCH50:percent:50".
// value — процент для percent, центы для fixed и target_total.
func ParseStatic(specs []string) ([]*Coupon, error) {
	coupons := make([]*Coupon, 0, len(specs))

	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}

		parts := strings.Split(spec, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("невалидный статический купон %q: ожидается CODE:kind:value", spec)
		}

		kind := Kind(strings.ToLower(strings.TrimSpace(parts[1])))
		switch kind {
		case KindPercent, KindFixed, KindTargetTotal:
		default:
			return nil, fmt.Errorf("невалидный статический купон %q: %w", spec, ErrUnknownKind)
		}

		value, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("невалидный статический купон %q: %w", spec, err)
		}

		coupons = append(coupons, &Coupon{
			Code:   NormalizeCode(parts[0]),
			Source: SourceStatic,
			Kind:   kind,
			Value:  value,
		})
	}

	return coupons, nil
}
