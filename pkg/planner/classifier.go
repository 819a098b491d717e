package planner

import "strings"

// Known executor tags. Plans referencing anything else fall back to keyword
// classification, and finally to ExecutorGeneric.
const (
	ExecutorCodeGeneration   = "code_generation"
	ExecutorTesting          = "testing"
	ExecutorSecurityAnalysis = "security_analysis"
	ExecutorDeployment       = "deployment"
	ExecutorGeneric          = "generic"
)

var knownExecutors = map[string]struct{}{
	ExecutorCodeGeneration:   {},
	ExecutorTesting:          {},
	ExecutorSecurityAnalysis: {},
	ExecutorDeployment:       {},
	ExecutorGeneric:          {},
}

// Keyword table checked in order; the first matching group wins.
var classificationKeywords = []struct {
	executor string
	keywords []string
}{
	{ExecutorSecurityAnalysis, []string{"security", "vulnerability", "scan", "audit", "cve"}},
	{ExecutorTesting, []string{"test", "verify", "validate", "coverage", "assert"}},
	{ExecutorDeployment, []string{"deploy", "release", "rollout", "publish", "ship"}},
	{ExecutorCodeGeneration, []string{"generate", "implement", "write", "code", "refactor", "fix"}},
}

// Classify resolves a planned step to a known executor tag. A recognized
// suggestion is honored as-is; otherwise the description is matched against
// the keyword table, defaulting to ExecutorGeneric.
func Classify(description, suggested string) string {
	if _, ok := knownExecutors[suggested]; ok {
		return suggested
	}

	lowered := strings.ToLower(description)

	for _, group := range classificationKeywords {
		for _, keyword := range group.keywords {
			if strings.Contains(lowered, keyword) {
				return group.executor
			}
		}
	}

	return ExecutorGeneric
}
