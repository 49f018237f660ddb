package nutrition

// UnitMass is a scalar tagged with a unit from the conversion vocabulary.
type UnitMass struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

func Grams(value float64) UnitMass {
	return UnitMass{Value: value, Unit: UnitGram}
}

// ServingUnit declares that one UnitName weighs Value Unit.
type ServingUnit struct {
	UnitName string  `json:"unitName"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit"`
}

type FoodAmount struct {
	SelectedUnit     string        `json:"selectedUnit"`
	SelectedQuantity float64       `json:"selectedQuantity"`
	ServingUnits     []ServingUnit `json:"servingUnits"`
	Weight           UnitMass      `json:"weight"`
}

// ServingUnit returns the entry named SelectedUnit.
func (a FoodAmount) ServingUnit() (ServingUnit, bool) {
	for _, su := range a.ServingUnits {
		if su.UnitName == a.SelectedUnit {
			return su, true
		}
	}
	return ServingUnit{}, false
}

// Ingredient carries a nutrient profile anchored to ReferenceNutrients.Weight.
type Ingredient struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	IconID             string          `json:"iconId"`
	Weight             UnitMass        `json:"weight"`
	ReferenceNutrients NutrientProfile `json:"referenceNutrients"`
	Amount             FoodAmount      `json:"amount"`
}

type FoodItem struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	IconID      string       `json:"iconId"`
	Amount      FoodAmount   `json:"amount"`
	Ingredients []Ingredient `json:"ingredients"`
	Weight      UnitMass     `json:"weight"`
}
