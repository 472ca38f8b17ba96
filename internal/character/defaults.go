package character

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultCharacterID identifies the pre-generated character every store seeds.
const DefaultCharacterID = "grodni-ironhand"

// DefaultCharacter returns the pre-generated Dwarf Ironbreaker.
func DefaultCharacter() Sheet {
	return Sheet{
		ID:     DefaultCharacterID,
		Name:   "Grodni Ironhand",
		Career: "Dwarf Ironbreaker",
		Characteristics: map[string]int{
			"WS": 45, "BS": 30, "S": 40, "T": 50, "I": 25,
			"Ag": 20, "Dex": 35, "Int": 20, "WP": 40, "Fel": 15,
		},
		Skills: []Skill{
			{Name: "Melee (Basic)", Value: 55},
			{Name: "Intimidate", Value: 50},
		},
		CreatedAt: time.Unix(0, 0).UTC(),
	}
}

// NewCharacter builds a fresh sheet with every characteristic at DefaultScore.
func NewCharacter(ownerID, name, career string) Sheet {
	if strings.TrimSpace(name) == "" {
		name = "Grommir Stonehand"
	}
	if strings.TrimSpace(career) == "" {
		career = "Dwarf Ironbreaker"
	}
	chars := make(map[string]int, len(characteristicAliases))
	for _, short := range []string{"WS", "BS", "S", "T", "I", "Ag", "Dex", "Int", "WP", "Fel"} {
		chars[short] = DefaultScore
	}
	return Sheet{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		Name:            name,
		Career:          career,
		Characteristics: chars,
		Skills:          []Skill{},
		CreatedAt:       time.Now().UTC(),
	}
}
