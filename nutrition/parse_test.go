package nutrition_test

import (
	"errors"
	"testing"

	"github.com/saadjs/foodkit/nutrition"
)

func TestParseUnitMass(t *testing.T) {
	t.Parallel()
	cases := map[string]nutrition.UnitMass{
		"250g":    {Value: 250, Unit: "g"},
		"1.5 kg":  {Value: 1.5, Unit: "kg"},
		" 40 IU ": {Value: 40, Unit: "IU"},
		"12µg":    {Value: 12, Unit: "µg"},
		"418kJ":   {Value: 418, Unit: "kJ"},
	}
	for in, want := range cases {
		got, err := nutrition.ParseUnitMass(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %+v, got %+v", in, want, got)
		}
	}
}

func TestParseUnitMassRejectsBadInput(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "g", "abc", "12"} {
		if _, err := nutrition.ParseUnitMass(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
	if _, err := nutrition.ParseUnitMass("2 cups"); !errors.Is(err, nutrition.ErrUnknownUnit) {
		t.Fatalf("expected ErrUnknownUnit, got %v", err)
	}
}
