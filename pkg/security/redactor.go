package security

import (
	"sort"
	"strings"
)

const mask = "********"

// Redactor masks API keys and other secret values in log output.
type Redactor struct {
	Secrets []string
}

// NewRedactor keeps the non-empty secrets, dropping duplicates.
func NewRedactor(secrets ...string) *Redactor {
	var secretValues []string
	seen := make(map[string]struct{}, len(secrets))
	for _, s := range secrets {
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		secretValues = append(secretValues, s)
	}
	return &Redactor{
		Secrets: secretValues,
	}
}

func (r *Redactor) Redact(s string) string {
	if r == nil || len(r.Secrets) == 0 {
		return s
	}

	// Longer secrets first so a secret containing another is masked whole.
	secrets := make([]string, len(r.Secrets))
	copy(secrets, r.Secrets)
	sort.Slice(secrets, func(i, j int) bool {
		return len(secrets[i]) > len(secrets[j])
	})

	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		s = strings.ReplaceAll(s, secret, mask)
	}
	return s
}
