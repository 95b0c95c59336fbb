package redact

import (
	"regexp"
	"strings"

	"streampay-audit-backend/config"
	"streampay-audit-backend/internal/model"
)

// Marker is the fixed placeholder substituted for sensitive data. It
// matches none of the detection patterns, so redaction is idempotent.
const Marker = "[REDACTED]"

var (
	// Secret signing keys are 56 base32 characters prefixed with S. The
	// structurally identical account address form (G prefix) is public
	// and must survive redaction verbatim.
	secretKeyRegex = regexp.MustCompile(`\bS[A-Z2-7]{55}\b`)

	// Three dot-separated base64url segments, JWT shaped. Segment minimum
	// keeps version strings like "1.2.3" out of scope.
	jwtRegex = regexp.MustCompile(`\b[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}\b`)

	// Bearer scheme followed by a token; the scheme word is preserved.
	bearerRegex = regexp.MustCompile(`(?i)\b(Bearer)\s+[A-Za-z0-9._~+/=-]+`)

	seedWordRegex = regexp.MustCompile(`^[a-z]+$`)
)

var defaultSensitiveFields = []string{
	"password",
	"secret",
	"secret_key",
	"private_key",
	"privatekey",
	"seed_phrase",
	"seedphrase",
	"seed phrase",
	"mnemonic",
	"token",
	"api_key",
	"apikey",
	"api key",
	"authorization",
}

// Redactor scrubs sensitive values from strings, lists, and string-keyed
// maps. It is total: unrecognized shapes pass through unchanged and no
// input can make it fail.
type Redactor struct {
	enabled   bool
	sensitive map[string]struct{}
}

func NewRedactor(cfg config.RedactionConfig) *Redactor {
	sensitive := make(map[string]struct{}, len(defaultSensitiveFields)+len(cfg.CustomFields))
	for _, f := range defaultSensitiveFields {
		sensitive[f] = struct{}{}
	}
	for _, f := range cfg.CustomFields {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			sensitive[f] = struct{}{}
		}
	}
	return &Redactor{
		enabled:   cfg.Enabled,
		sensitive: sensitive,
	}
}

// Value redacts an arbitrary JSON-shaped value: strings are scrubbed,
// lists and string-keyed maps recurse, numbers/bools/nil pass through.
func (r *Redactor) Value(v any) any {
	if !r.enabled {
		return v
	}
	return r.value(v)
}

func (r *Redactor) value(v any) any {
	switch t := v.(type) {
	case string:
		return r.scrubString(t)
	case model.Context:
		return model.Context(r.mapValue(t))
	case map[string]any:
		return r.mapValue(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = r.value(item)
		}
		return out
	case []string:
		out := make([]string, len(t))
		for i, item := range t {
			out[i] = r.scrubString(item)
		}
		return out
	default:
		return v
	}
}

func (r *Redactor) mapValue(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if r.isSensitiveField(k) {
			// Whole value replaced, regardless of its own shape.
			out[k] = Marker
			continue
		}
		out[k] = r.value(v)
	}
	return out
}

// String redacts free text.
func (r *Redactor) String(s string) string {
	if !r.enabled {
		return s
	}
	return r.scrubString(s)
}

// Context redacts a context map, returning a new map.
func (r *Redactor) Context(c model.Context) model.Context {
	if !r.enabled || c == nil {
		return c
	}
	return model.Context(r.mapValue(c))
}

// Entry returns a redacted copy of the entry's free-text fields and
// context. The input entry is not modified.
func (r *Redactor) Entry(e model.AuditEntry) model.AuditEntry {
	if !r.enabled {
		return e
	}
	e.Message = r.scrubString(e.Message)
	e.ErrorMessage = r.scrubString(e.ErrorMessage)
	e.ErrorStack = r.scrubString(e.ErrorStack)
	e.Context = r.Context(e.Context)
	return e
}

func (r *Redactor) scrubString(s string) string {
	if isSeedPhrase(s) {
		return Marker
	}
	s = bearerRegex.ReplaceAllString(s, "$1 "+Marker)
	s = jwtRegex.ReplaceAllString(s, Marker)
	s = secretKeyRegex.ReplaceAllString(s, Marker)
	return s
}

func (r *Redactor) isSensitiveField(key string) bool {
	_, ok := r.sensitive[strings.ToLower(key)]
	return ok
}

// isSeedPhrase reports whether s is exactly 12 or 24 whitespace-separated
// lowercase-alphabetic words.
func isSeedPhrase(s string) bool {
	words := strings.Fields(s)
	if len(words) != 12 && len(words) != 24 {
		return false
	}
	for _, w := range words {
		if !seedWordRegex.MatchString(w) {
			return false
		}
	}
	return true
}
