// Package sanitize neutralizes prompt-injection attempts embedded in corpus
// text. Corpus chunks are untrusted input: a maliciously authored page can
// carry role markers or meta-instructions aimed at the generation model.
// The policy is all-or-nothing per chunk -- partial redaction can leave a
// crafted residual instruction intact, so a chunk matching any signature is
// discarded whole. This is a best-effort heuristic defense, not a
// guarantee; the prompt's own rules are the second layer.
package sanitize

import "strings"

// DefaultSignatures is the default instruction-injection signature list.
// The list is configuration, not policy: deployments extend it via
// sanitize.signatures without touching call sites.
var DefaultSignatures = []string{
	"ignore previous",
	"system:",
	"assistant:",
	"you are an ai",
}

// Sanitizer scans chunk text for configured injection signatures.
// It is a pure function holder: no state changes after construction.
type Sanitizer struct {
	signatures []string
}

// New creates a Sanitizer from the given signature list. Signatures are
// lowercased once; matching is case-insensitive. A nil list falls back to
// DefaultSignatures; an explicitly empty list disables the guard, which
// is an operator decision and is honored as given.
func New(signatures []string) *Sanitizer {
	if signatures == nil {
		signatures = DefaultSignatures
	}

	lowered := make([]string, 0, len(signatures))
	for _, sig := range signatures {
		sig = strings.ToLower(strings.TrimSpace(sig))
		if sig != "" {
			lowered = append(lowered, sig)
		}
	}

	return &Sanitizer{signatures: lowered}
}

// Sanitize returns text unchanged when it is clean, or "" when any
// signature occurs anywhere in it (case-insensitive).
func (s *Sanitizer) Sanitize(text string) string {
	lowered := strings.ToLower(text)
	for _, sig := range s.signatures {
		if strings.Contains(lowered, sig) {
			return ""
		}
	}
	return text
}
