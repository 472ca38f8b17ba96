package character

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupIsCaseAndWhitespaceInsensitive(t *testing.T) {
	sheet := DefaultCharacter()

	tests := []struct {
		name string
		want int
	}{
		{"Melee (Basic)", 55},
		{"melee(basic)", 55},
		{"  MELEE ( BASIC ) ", 55},
		{"intimidate", 50},
		{"WS", 45},
		{"ws", 45},
		{"Weapon Skill", 45},
		{"weaponSkill", 45},
		{"fel", 15},
		{"Fellowship", 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sheet.Lookup(tt.name))
		})
	}
}

func TestLookupFallsBackToDefaultScore(t *testing.T) {
	sheet := DefaultCharacter()
	for _, name := range []string{"Stealth", "", "   ", "Channelling (Aqshy)"} {
		if got := sheet.Lookup(name); got != DefaultScore {
			t.Fatalf("Lookup(%q) = %d, want %d", name, got, DefaultScore)
		}
	}

	var empty Sheet
	assert.Equal(t, DefaultScore, empty.Lookup("WS"))
}

func TestResolveReportsMisses(t *testing.T) {
	sheet := DefaultCharacter()
	if _, ok := sheet.Resolve("Stealth"); ok {
		t.Fatalf("Resolve(Stealth) ok = true, want false")
	}
	if v, ok := sheet.Resolve("Intimidate"); !ok || v != 50 {
		t.Fatalf("Resolve(Intimidate) = (%d, %v), want (50, true)", v, ok)
	}
}

func TestSummaryListsSheet(t *testing.T) {
	summary := DefaultCharacter().Summary()
	for _, want := range []string{"Grodni Ironhand", "Dwarf Ironbreaker", "WS: 45", "Melee (Basic): 55"} {
		if !strings.Contains(summary, want) {
			t.Fatalf("Summary() missing %q:\n%s", want, summary)
		}
	}
}

func TestNewCharacterDefaults(t *testing.T) {
	sheet := NewCharacter("owner-1", "", "")
	assert.NotEmpty(t, sheet.ID)
	assert.Equal(t, "Grommir Stonehand", sheet.Name)
	assert.Len(t, sheet.Characteristics, 10)
	for k, v := range sheet.Characteristics {
		assert.Equalf(t, DefaultScore, v, "characteristic %s", k)
	}
}
