package narrator

import (
	"context"
	"fmt"
	"strings"
)

// MockProvider is a deterministic offline generator. It requests checks for
// a handful of obviously risky verbs and narrates everything else.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

var mockCheckKeywords = []struct {
	words []string
	skill string
}{
	{[]string{"sneak", "hide", "creep"}, "Stealth"},
	{[]string{"climb", "scale"}, "Climb"},
	{[]string{"attack", "strike", "swing", "stab"}, "Melee (Basic)"},
	{[]string{"threaten", "intimidate"}, "Intimidate"},
	{[]string{"persuade", "charm", "convince"}, "Charm"},
}

func (p *MockProvider) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if idx := strings.Index(prompt, outcomeMarker); idx >= 0 {
		line := firstLine(prompt[idx+len(outcomeMarker):])
		return fmt.Sprintf("The moment hangs in the smoky air. %s", strings.TrimSpace(line)), nil
	}

	action := ""
	if idx := strings.Index(prompt, actionMarker); idx >= 0 {
		action = strings.Trim(strings.TrimSpace(firstLine(prompt[idx+len(actionMarker):])), `"`)
	}
	lower := strings.ToLower(action)
	for _, kw := range mockCheckKeywords {
		for _, w := range kw.words {
			if strings.Contains(lower, w) {
				return fmt.Sprintf("{\"skill\": %q, \"modifier\": 0}", kw.skill), nil
			}
		}
	}
	if action == "" {
		return "The tavern murmurs on, indifferent.", nil
	}
	return fmt.Sprintf("You %s. Nobody in the tavern seems to care much.", strings.TrimSuffix(action, ".")), nil
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, " \t")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
