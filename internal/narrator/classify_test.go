package narrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyFencedCheck(t *testing.T) {
	got := Classify("```json\n{\"skill\": \"Stealth\", \"modifier\": -10}\n```")
	assert.Equal(t, RequiresCheck{Skill: "Stealth", Modifier: -10}, got)
}

func TestClassifyBareObjectInProse(t *testing.T) {
	got := Classify(`A check is needed here: {"skill": "Melee (Basic)", "modifier": 20} good luck.`)
	assert.Equal(t, RequiresCheck{Skill: "Melee (Basic)", Modifier: 20}, got)
}

func TestClassifyModifierForms(t *testing.T) {
	cases := map[string]int{
		`{"skill": "Climb"}`:                     0,
		`{"skill": "Climb", "modifier": "-20"}`:  -20,
		`{"skill": "Climb", "modifier": "+10"}`:  10,
		`{"skill": "Climb", "modifier": +30}`:    30,
		`{"skill": "Climb", "modifier": 12.9}`:   12,
		`{"skill": "Climb", "modifier": null}`:   0,
		`{"skill": "Climb", "modifier": "hard"}`: 0,
	}
	for input, want := range cases {
		got := Classify(input)
		check, ok := got.(RequiresCheck)
		require.Truef(t, ok, "Classify(%s) = %#v", input, got)
		assert.Equalf(t, want, check.Modifier, "input %s", input)
	}
}

func TestClassifyDegradesToNarrative(t *testing.T) {
	inputs := []string{
		"You push through the crowd and find a seat by the fire.",
		`{"skill": "", "modifier": 10}`,
		`{"modifier": 10}`,
		`{"skill": 5}`,
		`{not json at all}`,
	}
	for _, input := range inputs {
		got := Classify(input)
		narrative, ok := got.(DirectNarrative)
		require.Truef(t, ok, "Classify(%q) = %#v", input, got)
		assert.Equal(t, input, narrative.Text)
	}
}

func TestExtractJSONSkipsBracesInStrings(t *testing.T) {
	raw, ok := ExtractJSON(`prefix {"skill": "odd } name", "modifier": 0} suffix`)
	require.True(t, ok)
	assert.Equal(t, `{"skill": "odd } name", "modifier": 0}`, raw)
}

func TestExtractJSONPrefersFencedBlock(t *testing.T) {
	text := "{\"x\": 1}\n```json\n{\"skill\": \"Charm\"}\n```"
	raw, ok := ExtractJSON(text)
	require.True(t, ok)
	assert.Equal(t, `{"skill": "Charm"}`, raw)
}

func TestExtractJSONNone(t *testing.T) {
	_, ok := ExtractJSON("no braces here { unbalanced")
	assert.False(t, ok)
}

func TestClassifyKeepsPlusSignsInsideStrings(t *testing.T) {
	got := Classify(`{"skill": "Lore: +1", "modifier": +10}`)
	assert.Equal(t, RequiresCheck{Skill: "Lore: +1", Modifier: 10}, got)

	got = Classify(`{"skill": "Lore: +1", "modifier": 5}`)
	assert.Equal(t, RequiresCheck{Skill: "Lore: +1", Modifier: 5}, got)
}
