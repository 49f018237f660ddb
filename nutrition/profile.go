package nutrition

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

const weightKey = "weight"

// NutrientProfile is a set of nutrient amounts anchored to Weight. A profile
// is read-only once built; use NewProfile to construct one.
type NutrientProfile struct {
	weight UnitMass
	values map[NutrientKey]UnitMass
}

// NewProfile copies values into a profile expressed against weight.
func NewProfile(weight UnitMass, values map[NutrientKey]UnitMass) NutrientProfile {
	copied := make(map[NutrientKey]UnitMass, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return NutrientProfile{weight: weight, values: copied}
}

func (p NutrientProfile) Weight() UnitMass { return p.weight }

// Get returns the amount for key and whether the profile carries it.
func (p NutrientProfile) Get(key NutrientKey) (UnitMass, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Value returns the numeric amount for key, or 0 when absent.
func (p NutrientProfile) Value(key NutrientKey) float64 {
	return p.values[key].Value
}

// Keys returns the carried keys in field table order.
func (p NutrientProfile) Keys() []NutrientKey {
	out := make([]NutrientKey, 0, len(p.values))
	for _, f := range fields {
		if _, ok := p.values[f.Key]; ok {
			out = append(out, f.Key)
		}
	}
	return out
}

// Values returns a copy of the carried amounts.
func (p NutrientProfile) Values() map[NutrientKey]UnitMass {
	out := make(map[NutrientKey]UnitMass, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

func (p NutrientProfile) Len() int { return len(p.values) }

// With returns a copy of p with key set to v.
func (p NutrientProfile) With(key NutrientKey, v UnitMass) NutrientProfile {
	values := p.Values()
	values[key] = v
	return NutrientProfile{weight: p.weight, values: values}
}

func (p NutrientProfile) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	w, err := json.Marshal(p.weight)
	if err != nil {
		return nil, fmt.Errorf("marshal profile weight: %w", err)
	}
	buf.WriteString(`"weight":`)
	buf.Write(w)
	for _, key := range p.Keys() {
		v, err := json.Marshal(p.values[key])
		if err != nil {
			return nil, fmt.Errorf("marshal nutrient %s: %w", key, err)
		}
		buf.WriteByte(',')
		name, _ := json.Marshal(string(key))
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *NutrientProfile) UnmarshalJSON(data []byte) error {
	var raw map[string]*UnitMass
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("nutrient profile must be a JSON object: %w", err)
	}
	var weight UnitMass
	values := make(map[NutrientKey]UnitMass, len(raw))
	unknown := make([]string, 0)
	for name, v := range raw {
		if name == weightKey {
			if v != nil {
				weight = *v
			}
			continue
		}
		if _, ok := fieldsByKey[NutrientKey(name)]; !ok {
			unknown = append(unknown, name)
			continue
		}
		if v == nil {
			continue
		}
		values[NutrientKey(name)] = *v
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown nutrient keys %q", unknown)
	}
	*p = NutrientProfile{weight: weight, values: values}
	return nil
}
