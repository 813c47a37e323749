package loader

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	tooltipPolicyOnce sync.Once
	tooltipPolicy     *bluemonday.Policy
)

// sanitizeTooltip keeps inline emphasis (tooltips reference other fields in
// <b> tags) and strips everything else.
func sanitizeTooltip(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(tooltipSanitizer().Sanitize(trimmed))
}

func tooltipSanitizer() *bluemonday.Policy {
	tooltipPolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("b", "strong", "i", "em", "code", "br")
		tooltipPolicy = policy
	})
	return tooltipPolicy
}
