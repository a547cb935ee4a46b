package mercadopago

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// PixQRCodeBase64 возвращает PNG QR-кода в base64 для Pix-платежа.
// Шлюз иногда не возвращает qr_code_base64 — тогда изображение
// рендерится локально из EMV payload (qr_code).
func PixQRCodeBase64(p *Payment) (string, error) {
	if p.PointOfInteraction == nil || p.PointOfInteraction.TransactionData == nil {
		return "", fmt.Errorf("платёж %d не содержит данных Pix", p.ID)
	}

	data := p.PointOfInteraction.TransactionData
	if data.QRCodeBase64 != "" {
		return data.QRCodeBase64, nil
	}
	if data.QRCode == "" {
		return "", fmt.Errorf("платёж %d не содержит QR payload", p.ID)
	}

	png, err := qrcode.Encode(data.QRCode, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("ошибка рендеринга QR-кода: %w", err)
	}

	return base64.StdEncoding.EncodeToString(png), nil
}
