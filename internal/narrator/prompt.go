package narrator

import (
	"fmt"
	"strings"

	"github.com/antoniostano/ironhand/internal/character"
)

const (
	actionMarker  = "Player's action:"
	outcomeMarker = "Check outcome:"
)

// ActionInput is everything the classification prompt needs.
type ActionInput struct {
	Context   string
	Location  string
	Character character.Sheet
	Action    string
}

// ActionPrompt asks the generator to either request a check as a JSON object
// or narrate the action directly.
func ActionPrompt(in ActionInput) string {
	var b strings.Builder
	b.WriteString("You are the Game Master of a grim and perilous fantasy roleplaying game.\n\n")
	if loc := strings.TrimSpace(in.Location); loc != "" {
		fmt.Fprintf(&b, "Current location: %s\n\n", loc)
	}
	b.WriteString("Story so far:\n")
	b.WriteString(strings.TrimSpace(in.Context))
	b.WriteString("\n\nPlayer character:\n")
	b.WriteString(in.Character.Summary())
	fmt.Fprintf(&b, "\n\n%s %q\n\n", actionMarker, strings.TrimSpace(in.Action))
	b.WriteString(`Decide whether the action needs a skill or characteristic check.

If a check IS required, reply with ONLY a JSON object and nothing else:
{"skill": "<skill or characteristic from the sheet>", "modifier": <integer difficulty modifier, e.g. 20 easy, 0 standard, -30 very hard>}
Example: {"skill": "Stealth", "modifier": 0}

If no check is required, reply with a single narrative paragraph describing what happens. Do not mention dice or game mechanics.`)
	return b.String()
}

// OutcomePrompt asks the generator to narrate a resolved check.
func OutcomePrompt(sheet character.Sheet, check string, success bool, successLevel int) string {
	verdict := "fails"
	if success {
		verdict = "succeeds"
	}
	return fmt.Sprintf(
		"You are the Game Master of a grim and perilous fantasy roleplaying game.\n\n"+
			"%s %s the %s attempts a %s check and %s with a success level of %d.\n\n"+
			"Describe the result in one narrative paragraph. Keep the tone dark and gritty and do not mention dice.",
		outcomeMarker, sheet.Name, sheet.Career, check, verdict, successLevel,
	)
}
