package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// DataURL encodes the given URL as a PNG QR code and returns it as a
// base64 data URL, ready to drop into an <img> src attribute.
func DataURL(url string) (string, error) {
	png, err := qrcode.Encode(url, qrcode.Medium, 300)
	if err != nil {
		return "", fmt.Errorf("encode qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
