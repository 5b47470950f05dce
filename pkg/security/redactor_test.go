package security_test

import (
	"testing"

	"github.com/arnavsurve/deskagent/pkg/security"
	"github.com/stretchr/testify/assert"
)

func TestRedactor_Redact(t *testing.T) {
	tests := []struct {
		name    string
		secrets []string
		input   string
		want    string
	}{
		{
			name:    "exact match",
			secrets: []string{"supersecret"},
			input:   "The password is supersecret",
			want:    "The password is ********",
		},
		{
			name:    "multiple occurrences",
			secrets: []string{"abcdef"},
			input:   "API key: abcdef is being used. Backup key: abcdef should be stored.",
			want:    "API key: ******** is being used. Backup key: ******** should be stored.",
		},
		{
			name:    "substring of another word",
			secrets: []string{"key"},
			input:   "The keyboard has keys for typing. The key is important.",
			want:    "The ********board has ********s for typing. The ******** is important.",
		},
		{
			name:    "multiple secrets",
			secrets: []string{"pass123", "key456"},
			input:   "Password: pass123, API Key: key456",
			want:    "Password: ********, API Key: ********",
		},
		{
			name:    "no secrets returns original string",
			secrets: nil,
			input:   "Original string",
			want:    "Original string",
		},
		{
			name:    "secret not found in input",
			secrets: []string{"notused"},
			input:   "This string doesn't contain the secret",
			want:    "This string doesn't contain the secret",
		},
		{
			name:    "overlapping secrets",
			secrets: []string{"secret", "supersecret"},
			input:   "This contains supersecret and secret values",
			want:    "This contains ******** and ******** values",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := security.NewRedactor(tt.secrets...)
			assert.Equal(t, tt.want, r.Redact(tt.input))
		})
	}
}

func TestRedactor_NilIsPassthrough(t *testing.T) {
	var r *security.Redactor
	assert.Equal(t, "plain", r.Redact("plain"))
}

func TestNewRedactor(t *testing.T) {
	tests := []struct {
		name        string
		secrets     []string
		wantSecrets []string
	}{
		{"keeps values", []string{"gem-key", "oai-key"}, []string{"gem-key", "oai-key"}},
		{"drops empty", []string{"", "gem-key", ""}, []string{"gem-key"}},
		{"drops duplicates", []string{"k", "k"}, []string{"k"}},
		{"nothing configured", []string{"", ""}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantSecrets, security.NewRedactor(tt.secrets...).Secrets)
		})
	}
}
