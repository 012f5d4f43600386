package qr

import (
	"errors"

	"github.com/skip2/go-qrcode"
)

// Generator renders redemption credentials as QR code images.
type Generator struct {
	size int
}

func NewGenerator() *Generator {
	return &Generator{size: 256}
}

// Encode renders the credential token as a PNG. The token itself is the
// payload; a scan hands it straight to the redemption endpoint.
func (g *Generator) Encode(token string) ([]byte, error) {
	if token == "" {
		return nil, errors.New("empty credential token")
	}
	return qrcode.Encode(token, qrcode.Medium, g.size)
}
