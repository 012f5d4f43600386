package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// GenerateOrderID returns a fresh order identifier.
func GenerateOrderID() string {
	return fmt.Sprintf("ord_%s", uuid.NewString())
}

// GenerateItemID returns a fresh food item identifier.
func GenerateItemID() string {
	return fmt.Sprintf("itm_%s", uuid.NewString())
}

// GenerateQRToken returns an opaque single-use redemption credential.
// 128 bits of entropy, hex-encoded so it QR-encodes compactly.
func GenerateQRToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("qr_%s", uuid.NewString())
	}
	return "qr_" + hex.EncodeToString(buf)
}
