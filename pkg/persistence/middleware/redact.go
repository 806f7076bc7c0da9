package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/aretw0/weave/pkg/ports"
)

// Mask replaces redacted input values.
const Mask = "***"

type redactionMiddleware struct {
	next     ports.HistoryStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware creates a middleware that masks node input values
// whose key matches one of the patterns before the history is persisted.
// Masked values do not come back on Load.
func NewRedactionMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.HistoryStore) ports.HistoryStore {
		return &redactionMiddleware{next: next, patterns: patterns}
	}
}

func (m *redactionMiddleware) Save(ctx context.Context, key string, blob []byte) error {
	if len(m.patterns) == 0 {
		return m.next.Save(ctx, key, blob)
	}

	dec := json.NewDecoder(bytes.NewReader(blob))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return fmt.Errorf("failed to decode history for redaction: %w", err)
	}

	// The decoded tree is private to this call, so masking in place is safe.
	findInputs(tree, m.patterns)

	masked, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("failed to encode redacted history: %w", err)
	}
	return m.next.Save(ctx, key, masked)
}

func (m *redactionMiddleware) Load(ctx context.Context, key string) ([]byte, error) {
	return m.next.Load(ctx, key)
}

func (m *redactionMiddleware) Delete(ctx context.Context, key string) error {
	return m.next.Delete(ctx, key)
}

func (m *redactionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// Helpers

// findInputs walks the tree and masks every "inputs" object it meets.
func findInputs(v any, patterns []*regexp.Regexp) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if inputs, ok := child.(map[string]any); ok && k == "inputs" {
				maskMap(inputs, patterns)
				continue
			}
			findInputs(child, patterns)
		}
	case []any:
		for _, child := range t {
			findInputs(child, patterns)
		}
	}
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		if matchAny(k, patterns) {
			m[k] = Mask
			continue
		}
		maskValue(v, patterns)
	}
}

func maskValue(v any, patterns []*regexp.Regexp) {
	switch t := v.(type) {
	case map[string]any:
		maskMap(t, patterns)
	case []any:
		for _, item := range t {
			maskValue(item, patterns)
		}
	}
}

func matchAny(k string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(k) {
			return true
		}
	}
	return false
}
