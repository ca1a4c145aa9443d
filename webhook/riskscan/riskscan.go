package riskscan

import (
	"encoding/json"
	"regexp"
)

/* Structural risk scanner for parsed webhook payloads.
 * The assessment is advisory: legitimate provider payloads can be large
 * and deeply nested, so the pipeline logs findings but never rejects on
 * them. Blocking here would turn a false positive into a payment outage.
 */

const (
	// hardDepthCeiling stops the depth recursion on adversarial input.
	hardDepthCeiling = 50

	// suspiciousDepth is the depth beyond which a payload is flagged.
	suspiciousDepth = 20

	// DefaultMaxCollectionLen flags arrays above this element count.
	DefaultMaxCollectionLen = 1000
)

// Assessment is the result of scanning one payload.
// Patterns holds pattern identifiers, never matched substrings, so
// attacker-controlled content is not replayed into logs.
type Assessment struct {
	Suspicious             bool     `json:"suspicious"`
	Patterns               []string `json:"patterns,omitempty"`
	MaxDepth               int      `json:"max_depth"`
	HasOversizedCollection bool     `json:"has_oversized_collection"`
}

type pattern struct {
	id string
	re *regexp.Regexp
}

// Scanner holds the compiled pattern set. Built once at process start
// and treated as immutable afterwards.
type Scanner struct {
	patterns         []pattern
	maxCollectionLen int
}

// NewScanner compiles the fixed pattern classes: script/markup
// injection tokens, dynamic-code-execution calls, and DOM/global-object
// references.
func NewScanner() *Scanner {
	return &Scanner{
		patterns: []pattern{
			{id: "script_injection", re: regexp.MustCompile(`(?i)<script|javascript:|vbscript:`)},
			{id: "code_execution", re: regexp.MustCompile(`(?i)\b(eval|function|setTimeout|setInterval)\s*\(`)},
			{id: "global_object_reference", re: regexp.MustCompile(`(?i)(document\.|window\.|global\.)`)},
		},
		maxCollectionLen: DefaultMaxCollectionLen,
	}
}

// WithMaxCollectionLen overrides the oversized-collection ceiling.
func (s *Scanner) WithMaxCollectionLen(n int) *Scanner {
	if n > 0 {
		s.maxCollectionLen = n
	}
	return s
}

// Scan inspects a parsed payload and returns an advisory assessment.
func (s *Scanner) Scan(payload map[string]any) Assessment {
	var assessment Assessment

	serialized, err := json.Marshal(payload)
	if err == nil {
		for _, p := range s.patterns {
			if p.re.Match(serialized) {
				assessment.Patterns = append(assessment.Patterns, p.id)
			}
		}
	}

	assessment.MaxDepth = depthOf(payload, 0)
	assessment.HasOversizedCollection = hasOversizedCollection(payload, s.maxCollectionLen, 0)

	assessment.Suspicious = len(assessment.Patterns) > 0 ||
		assessment.MaxDepth > suspiciousDepth ||
		assessment.HasOversizedCollection

	return assessment
}

// depthOf walks the structure recursively. The recursion is capped so a
// crafted deeply-nested payload cannot blow the stack; past the ceiling
// the capped value is returned as-is.
func depthOf(value any, depth int) int {
	if depth > hardDepthCeiling {
		return depth
	}

	maxDepth := depth
	switch v := value.(type) {
	case map[string]any:
		for _, child := range v {
			if d := depthOf(child, depth+1); d > maxDepth {
				maxDepth = d
			}
		}
	case []any:
		for _, child := range v {
			if d := depthOf(child, depth+1); d > maxDepth {
				maxDepth = d
			}
		}
	}
	return maxDepth
}

func hasOversizedCollection(value any, maxLen, depth int) bool {
	if depth > hardDepthCeiling {
		return false
	}
	switch v := value.(type) {
	case []any:
		if len(v) > maxLen {
			return true
		}
		for _, child := range v {
			if hasOversizedCollection(child, maxLen, depth+1) {
				return true
			}
		}
	case map[string]any:
		for _, child := range v {
			if hasOversizedCollection(child, maxLen, depth+1) {
				return true
			}
		}
	}
	return false
}
