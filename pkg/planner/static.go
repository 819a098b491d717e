package planner

import (
	"context"
	"strings"
)

// StaticPlanner is the builtin planner: a deterministic template expansion of
// the goal into a standard delivery sequence. It stands in wherever no
// external planner (an LLM service, typically) is wired up.
type StaticPlanner struct{}

func NewStaticPlanner() *StaticPlanner {
	return &StaticPlanner{}
}

func (p *StaticPlanner) GeneratePlan(_ context.Context, goal string, _ map[string]any) ([]PlannedStep, error) {
	lowered := strings.ToLower(goal)

	planned := []PlannedStep{
		{Description: "Analyze requirements for: " + goal, SuggestedExecutor: ExecutorGeneric},
		{Description: "Implement changes for: " + goal, SuggestedExecutor: ExecutorCodeGeneration},
		{Description: "Run the test suite covering: " + goal, SuggestedExecutor: ExecutorTesting},
	}

	if containsAny(lowered, "security", "auth", "credential", "secret", "crypto") {
		planned = append(planned, PlannedStep{
			Description:       "Security review of changes for: " + goal,
			SuggestedExecutor: ExecutorSecurityAnalysis,
		})
	}

	if containsAny(lowered, "deploy", "release", "ship", "rollout") {
		planned = append(planned, PlannedStep{
			Description:       "Deploy and verify rollout of: " + goal,
			SuggestedExecutor: ExecutorDeployment,
		})
	}

	return planned, nil
}

func containsAny(s string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}

	return false
}
