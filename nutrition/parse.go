package nutrition

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParseUnitMass reads amounts such as "250g", "1.5 kg" or "40 IU".
func ParseUnitMass(s string) (UnitMass, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnitMass{}, fmt.Errorf("amount is required")
	}
	i := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.' && r != '-' && r != '+' && r != 'e' && r != 'E'
	})
	if i <= 0 {
		return UnitMass{}, fmt.Errorf("invalid amount %q (expected <number><unit>)", s)
	}
	value, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return UnitMass{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	unit := strings.TrimSpace(s[i:])
	if !ValidUnit(unit) {
		return UnitMass{}, &UnknownUnitError{Unit: unit}
	}
	return UnitMass{Value: value, Unit: unit}, nil
}

func (m UnitMass) String() string {
	return strconv.FormatFloat(m.Value, 'f', -1, 64) + " " + m.Unit
}
