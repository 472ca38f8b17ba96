package narrator

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ClassifiedAction is the generator's verdict on a player action: either
// RequiresCheck or DirectNarrative.
//
// Classification is best effort. The generator is asked for strict JSON but
// nothing guarantees it, so any response that does not yield a usable check
// request degrades to DirectNarrative carrying the whole response.
type ClassifiedAction interface {
	classifiedAction()
}

// RequiresCheck asks for a check of Skill adjusted by Modifier.
type RequiresCheck struct {
	Skill    string
	Modifier int
}

// DirectNarrative is prose to log as-is.
type DirectNarrative struct {
	Text string
}

func (RequiresCheck) classifiedAction()   {}
func (DirectNarrative) classifiedAction() {}

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json|JSON)?[ \\t]*\\r?\\n?\\s*(\\{.*?\\})\\s*```")

// Classify turns a generator response into a ClassifiedAction.
func Classify(response string) ClassifiedAction {
	text := strings.TrimSpace(response)
	raw, ok := ExtractJSON(text)
	if !ok {
		return DirectNarrative{Text: text}
	}
	req, ok := parseCheckRequest(raw)
	if !ok {
		return DirectNarrative{Text: text}
	}
	return req
}

// ExtractJSON finds an embedded JSON object: a fenced code block first, then
// the first balanced {...} span.
func ExtractJSON(text string) (string, bool) {
	if m := fencedJSONPattern.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end, ok := balancedEnd(text, start); ok {
			return text[start : end+1], true
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// balancedEnd returns the index of the brace closing the one at start,
// skipping braces inside JSON strings.
func balancedEnd(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

type checkRequest struct {
	Skill    *string         `json:"skill"`
	Modifier json.RawMessage `json:"modifier"`
}

func parseCheckRequest(raw string) (RequiresCheck, bool) {
	var req checkRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		// Generators like to write "+20", which is not valid JSON.
		req = checkRequest{}
		if err := json.Unmarshal([]byte(stripPlusSigns(raw)), &req); err != nil {
			return RequiresCheck{}, false
		}
	}
	if req.Skill == nil || strings.TrimSpace(*req.Skill) == "" {
		return RequiresCheck{}, false
	}
	return RequiresCheck{
		Skill:    strings.TrimSpace(*req.Skill),
		Modifier: parseModifier(req.Modifier),
	}, true
}

// stripPlusSigns drops a '+' that leads a number value outside JSON strings.
func stripPlusSigns(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	inString := false
	escaped := false
	prev := byte(0)
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			b.WriteByte(c)
			continue
		}
		switch {
		case c == '"':
			inString = true
		case c == '+' && (prev == ':' || prev == ',' || prev == '[') && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '9':
			continue
		}
		b.WriteByte(c)
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			prev = c
		}
	}
	return b.String()
}

// parseModifier accepts a JSON number or numeric string; anything else is 0.
func parseModifier(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return clampModifier(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimPrefix(strings.TrimSpace(s), "+")
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return clampModifier(f)
		}
	}
	return 0
}

func clampModifier(f float64) int {
	if math.IsNaN(f) {
		return 0
	}
	f = math.Trunc(f)
	switch {
	case f > 1000:
		return 1000
	case f < -1000:
		return -1000
	}
	return int(f)
}
