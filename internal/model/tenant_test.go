package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidSubdomain(t *testing.T) {
	valid := []string{"clinica-a", "petshop1", "a", "x9", "abc-def-123"}
	for _, s := range valid {
		assert.True(t, ValidSubdomain(s), "subdomain=%q", s)
	}

	invalid := []string{"", "-leading", "trailing-", "UPPER", "has_underscore", "has.dot", "has space"}
	for _, s := range invalid {
		assert.False(t, ValidSubdomain(s), "subdomain=%q", s)
	}
}

func TestDeriveSchemaName(t *testing.T) {
	assert.Equal(t, "tenant_clinica_a", DeriveSchemaName("clinica-a"))
	assert.Equal(t, "tenant_petshop1", DeriveSchemaName("petshop1"))
	assert.Equal(t, "tenant_a_b_c", DeriveSchemaName("a-b-c"))
}
