package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubdomainFromHost(t *testing.T) {
	cases := []struct {
		host string
		want string
	}{
		{"clinica-a.petshop.example.com", "clinica-a"},
		{"clinica-a.petshop.example.com:8080", "clinica-a"},
		{"CLINICA-A.petshop.example.com", "clinica-a"},
		{"petshop.example.com", ""},
		{"a.b.petshop.example.com", ""},
		{"clinica-a.other.example.com", ""},
		{"localhost", ""},
	}

	for _, tc := range cases {
		got := subdomainFromHost(tc.host, "petshop.example.com")
		assert.Equal(t, tc.want, got, "host=%q", tc.host)
	}
}

func TestSubdomainFromHostEmptyBaseDomain(t *testing.T) {
	assert.Equal(t, "", subdomainFromHost("clinica-a.petshop.example.com", ""))
}
