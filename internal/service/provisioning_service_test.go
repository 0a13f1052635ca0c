package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckPasswordStrength(t *testing.T) {
	cases := []struct {
		password string
		ok       bool
	}{
		{"abc123xy", true},
		{"s3nh4-f0rte", true},
		{"short1", false},
		{"onlyletters", false},
		{"12345678", false},
		{"", false},
	}

	for _, tc := range cases {
		msg := checkPasswordStrength(tc.password)
		if tc.ok {
			assert.Empty(t, msg, "password=%q", tc.password)
		} else {
			assert.NotEmpty(t, msg, "password=%q", tc.password)
		}
	}
}
