package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskMetadata(t *testing.T) {
	got := MaskMetadata(map[string]any{
		"pixKey":  "ana@example.com",
		"pix_key": "12345678900",
		"name":    "Ana",
		"nested":  map[string]any{"document": "123"},
		"amount":  "20.00",
	})

	assert.Equal(t, "****.com", got["pixKey"])
	assert.Equal(t, "****8900", got["pix_key"])
	assert.Equal(t, "Ana", got["name"])
	assert.Equal(t, map[string]any{"document": "****"}, got["nested"])
	assert.Equal(t, "20.00", got["amount"])
}

func TestMaskMetadataEmpty(t *testing.T) {
	assert.Equal(t, map[string]any{}, MaskMetadata(nil))
	assert.Equal(t, "", MaskSecret("  "))
}
