// Package character holds the read-only capability sheets used as check
// targets and the stores they are loaded from.
package character

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
)

// DefaultScore is returned for any capability the sheet does not list.
const DefaultScore = 30

// Skill is a named, trained capability.
type Skill struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Sheet is a character's capability sheet.
type Sheet struct {
	ID              string         `json:"id"`
	OwnerID         string         `json:"ownerId"`
	Name            string         `json:"name"`
	Career          string         `json:"career"`
	Characteristics map[string]int `json:"characteristics"`
	Skills          []Skill        `json:"skills"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// characteristicAliases maps long characteristic names onto the short keys
// used on sheets. Keys are normalized.
var characteristicAliases = map[string]string{
	"weaponskill":    "ws",
	"ballisticskill": "bs",
	"strength":       "s",
	"toughness":      "t",
	"initiative":     "i",
	"agility":        "ag",
	"dexterity":      "dex",
	"intelligence":   "int",
	"willpower":      "wp",
	"fellowship":     "fel",
}

// Normalize folds case and drops all whitespace, so "Melee (Basic)" and
// "melee(basic)" compare equal.
func Normalize(name string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, name)
	// Casers carry state and are not safe to share across goroutines.
	return cases.Fold().String(stripped)
}

// Resolve looks a capability up by characteristic, characteristic alias or
// skill name. ok is false when nothing matched.
func (s Sheet) Resolve(name string) (value int, ok bool) {
	key := Normalize(name)
	if key == "" {
		return 0, false
	}

	if v, found := s.characteristic(key); found {
		return v, true
	}
	if short, isAlias := characteristicAliases[key]; isAlias {
		if v, found := s.characteristic(short); found {
			return v, true
		}
	}
	for _, sk := range s.Skills {
		if Normalize(sk.Name) == key {
			return sk.Value, true
		}
	}
	return 0, false
}

// Lookup resolves name and falls back to DefaultScore. It never fails.
func (s Sheet) Lookup(name string) int {
	if v, ok := s.Resolve(name); ok {
		return v
	}
	return DefaultScore
}

func (s Sheet) characteristic(key string) (int, bool) {
	for k, v := range s.Characteristics {
		if Normalize(k) == key {
			return v, true
		}
	}
	return 0, false
}

// Summary renders the sheet for generator prompts.
func (s Sheet) Summary() string {
	keys := make([]string, 0, len(s.Characteristics))
	for k := range s.Characteristics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	stats := make([]string, 0, len(keys))
	for _, k := range keys {
		stats = append(stats, fmt.Sprintf("%s: %d", k, s.Characteristics[k]))
	}

	skills := make([]string, 0, len(s.Skills))
	for _, sk := range s.Skills {
		skills = append(skills, fmt.Sprintf("%s: %d", sk.Name, sk.Value))
	}

	return fmt.Sprintf("Name: %s\nCareer: %s\nStats: %s\nSkills: %s",
		s.Name, s.Career, strings.Join(stats, ", "), strings.Join(skills, ", "))
}

func (s Sheet) clone() Sheet {
	c := s
	c.Characteristics = make(map[string]int, len(s.Characteristics))
	for k, v := range s.Characteristics {
		c.Characteristics[k] = v
	}
	c.Skills = append([]Skill(nil), s.Skills...)
	return c
}

func marshalParts(s Sheet) (characteristics, skills string, err error) {
	cb, err := json.Marshal(s.Characteristics)
	if err != nil {
		return "", "", fmt.Errorf("marshal characteristics: %w", err)
	}
	if s.Skills == nil {
		s.Skills = []Skill{}
	}
	sb, err := json.Marshal(s.Skills)
	if err != nil {
		return "", "", fmt.Errorf("marshal skills: %w", err)
	}
	return string(cb), string(sb), nil
}

func unmarshalParts(s *Sheet, characteristics, skills []byte) error {
	if err := json.Unmarshal(characteristics, &s.Characteristics); err != nil {
		return fmt.Errorf("unmarshal characteristics: %w", err)
	}
	if err := json.Unmarshal(skills, &s.Skills); err != nil {
		return fmt.Errorf("unmarshal skills: %w", err)
	}
	return nil
}
