package qr

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeProducesPNG(t *testing.T) {
	gen := NewGenerator()

	img, err := gen.Encode("qr_3f2504e04f8911d39a0c0305e82c3301")
	assert.NoError(t, err)
	assert.NotEmpty(t, img)

	// PNG magic bytes
	assert.True(t, bytes.HasPrefix(img, []byte{0x89, 'P', 'N', 'G'}))
}

func TestEncodeRejectsEmptyToken(t *testing.T) {
	gen := NewGenerator()

	img, err := gen.Encode("")
	assert.Error(t, err)
	assert.Nil(t, img)
}

func TestEncodeDistinctTokensDistinctImages(t *testing.T) {
	gen := NewGenerator()

	a, err := gen.Encode("qr_aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	assert.NoError(t, err)
	b, err := gen.Encode("qr_bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	assert.NoError(t, err)

	assert.NotEqual(t, a, b)
}
