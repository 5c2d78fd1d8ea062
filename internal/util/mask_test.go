package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "j…@e….com", MaskEmail(" Jane@Example.com "))
	assert.Equal(t, "a@e….io", MaskEmail("a@ex.io"))
	assert.Equal(t, "u…9", MaskEmail("user-19"))
	assert.Equal(t, "", MaskEmail(""))
}

func TestMaskIdentifier(t *testing.T) {
	assert.Equal(t, "***", MaskIdentifier("abc"))
	assert.Equal(t, "6…f", MaskIdentifier("64b7f0c2e1d3a5b6c7d8e9ff"))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(""))
	assert.Equal(t, "****", MaskSecret("short"))
	assert.Equal(t, "****wxyz", MaskSecret("ya29.abcdefwxyz"))
}
