package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizedIdentity(t *testing.T) {
	tests := []struct {
		name     string
		identity string
		want     string
	}{
		{"email", "alice@example.com", "a****@*******.com"},
		{"short username", "a@example.com", "a@*******.com"},
		{"bare identity", "203.0.113.9", "2**********"},
		{"single char", "x", "x"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizedIdentity(tt.identity))
		})
	}
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, SanitizeQueryString("password=hunter2"))
	assert.True(t, SanitizeQueryString("x=1&TOKEN=abc"))
	assert.True(t, SanitizeQueryString("fingerprint=deadbeef"))
	assert.False(t, SanitizeQueryString("page=2&sort=asc"))
	assert.False(t, SanitizeQueryString(""))
}
