package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedValue(t *testing.T) {
	cases := []struct {
		configType string
		value      string
		want       interface{}
	}{
		{ConfigTypeString, "hello", "hello"},
		{ConfigTypeInt, "30", 30},
		{ConfigTypeInt, "not-a-number", "not-a-number"},
		{ConfigTypeBool, "true", true},
		{ConfigTypeBool, "yes", "yes"},
		{ConfigTypeJSON, `{"enabled":true}`, map[string]interface{}{"enabled": true}},
		{ConfigTypeJSON, "{broken", "{broken"},
		{"unknown", "raw", "raw"},
	}

	for _, tc := range cases {
		cfg := &TenantConfiguration{ConfigType: tc.configType, Value: tc.value}
		assert.Equal(t, tc.want, cfg.TypedValue(), "type=%s value=%q", tc.configType, tc.value)
	}
}
