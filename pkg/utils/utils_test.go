package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateID(t *testing.T) {
	id := GenerateID()
	assert.True(t, IsValidUUID(id))
	assert.NotEqual(t, id, GenerateID())
}

func TestGeneratePublicToken(t *testing.T) {
	tok := GeneratePublicToken()
	assert.Len(t, tok, 32)
	assert.NotContains(t, tok, "-")
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("ana@agencia.com.br"))
	assert.True(t, IsValidEmail("  joao+obra@example.com "))
	assert.False(t, IsValidEmail("ana@"))
	assert.False(t, IsValidEmail("no-at-sign.com"))
	assert.False(t, IsValidEmail(""))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ana@agencia.com", NormalizeEmail("  Ana@Agencia.COM "))
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"seo", "blog"}, Dedupe([]string{"seo", "blog", "seo"}))
	assert.Empty(t, Dedupe(nil))
}
