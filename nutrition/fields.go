package nutrition

import "fmt"

type NutrientKey string

const (
	Calories                     NutrientKey = "calories"
	Carbs                        NutrientKey = "carbs"
	Protein                      NutrientKey = "protein"
	Fat                          NutrientKey = "fat"
	SaturatedFat                 NutrientKey = "saturatedFat"
	TransFat                     NutrientKey = "transFat"
	MonounsaturatedFat           NutrientKey = "monounsaturatedFat"
	PolyunsaturatedFat           NutrientKey = "polyunsaturatedFat"
	Cholesterol                  NutrientKey = "cholesterol"
	Sodium                       NutrientKey = "sodium"
	Fibers                       NutrientKey = "fibers"
	Sugars                       NutrientKey = "sugars"
	SugarsAdded                  NutrientKey = "sugarsAdded"
	SugarAlcohol                 NutrientKey = "sugarAlcohol"
	Alcohol                      NutrientKey = "alcohol"
	VitaminA                     NutrientKey = "vitaminA"
	VitaminARAE                  NutrientKey = "vitaminARAE"
	VitaminB6                    NutrientKey = "vitaminB6"
	VitaminB12                   NutrientKey = "vitaminB12"
	VitaminB12Added              NutrientKey = "vitaminB12Added"
	VitaminC                     NutrientKey = "vitaminC"
	VitaminD                     NutrientKey = "vitaminD"
	VitaminE                     NutrientKey = "vitaminE"
	VitaminEAdded                NutrientKey = "vitaminEAdded"
	VitaminKPhylloquinone        NutrientKey = "vitaminKPhylloquinone"
	VitaminKMenaquinone4         NutrientKey = "vitaminKMenaquinone4"
	VitaminKDihydrophylloquinone NutrientKey = "vitaminKDihydrophylloquinone"
	FolicAcid                    NutrientKey = "folicAcid"
	Calcium                      NutrientKey = "calcium"
	Iron                         NutrientKey = "iron"
	Potassium                    NutrientKey = "potassium"
	Magnesium                    NutrientKey = "magnesium"
	Phosphorus                   NutrientKey = "phosphorus"
	Iodine                       NutrientKey = "iodine"
	Zinc                         NutrientKey = "zinc"
	Selenium                     NutrientKey = "selenium"
	Chromium                     NutrientKey = "chromium"
)

// Field describes one tracked nutrient and the unit used when no ingredient
// carries a value for it.
type Field struct {
	Key         NutrientKey
	DefaultUnit string
	Label       string
}

var fields = []Field{
	{Key: Calories, DefaultUnit: UnitKcal, Label: "calories"},
	{Key: Carbs, DefaultUnit: UnitGram, Label: "carbs"},
	{Key: Protein, DefaultUnit: UnitGram, Label: "protein"},
	{Key: Fat, DefaultUnit: UnitGram, Label: "fat"},
	{Key: SaturatedFat, DefaultUnit: UnitGram, Label: "saturated fat"},
	{Key: TransFat, DefaultUnit: UnitGram, Label: "trans fat"},
	{Key: MonounsaturatedFat, DefaultUnit: UnitGram, Label: "monounsaturated fat"},
	{Key: PolyunsaturatedFat, DefaultUnit: UnitGram, Label: "polyunsaturated fat"},
	{Key: Cholesterol, DefaultUnit: UnitMilligram, Label: "cholesterol"},
	{Key: Sodium, DefaultUnit: UnitMilligram, Label: "sodium"},
	{Key: Fibers, DefaultUnit: UnitGram, Label: "fibers"},
	{Key: Sugars, DefaultUnit: UnitGram, Label: "sugars"},
	{Key: SugarsAdded, DefaultUnit: UnitGram, Label: "added sugars"},
	{Key: SugarAlcohol, DefaultUnit: UnitGram, Label: "sugar alcohol"},
	{Key: Alcohol, DefaultUnit: UnitGram, Label: "alcohol"},
	{Key: VitaminA, DefaultUnit: UnitIU, Label: "vitamin A"},
	{Key: VitaminARAE, DefaultUnit: UnitMicrogram, Label: "vitamin A (RAE)"},
	{Key: VitaminB6, DefaultUnit: UnitMilligram, Label: "vitamin B6"},
	{Key: VitaminB12, DefaultUnit: UnitMicrogram, Label: "vitamin B12"},
	{Key: VitaminB12Added, DefaultUnit: UnitMicrogram, Label: "added vitamin B12"},
	{Key: VitaminC, DefaultUnit: UnitMilligram, Label: "vitamin C"},
	{Key: VitaminD, DefaultUnit: UnitIU, Label: "vitamin D"},
	{Key: VitaminE, DefaultUnit: UnitMilligram, Label: "vitamin E"},
	{Key: VitaminEAdded, DefaultUnit: UnitMilligram, Label: "added vitamin E"},
	{Key: VitaminKPhylloquinone, DefaultUnit: UnitMicrogram, Label: "vitamin K (phylloquinone)"},
	{Key: VitaminKMenaquinone4, DefaultUnit: UnitMicrogram, Label: "vitamin K (menaquinone-4)"},
	{Key: VitaminKDihydrophylloquinone, DefaultUnit: UnitMicrogram, Label: "vitamin K (dihydrophylloquinone)"},
	{Key: FolicAcid, DefaultUnit: UnitMicrogram, Label: "folic acid"},
	{Key: Calcium, DefaultUnit: UnitMilligram, Label: "calcium"},
	{Key: Iron, DefaultUnit: UnitMilligram, Label: "iron"},
	{Key: Potassium, DefaultUnit: UnitMilligram, Label: "potassium"},
	{Key: Magnesium, DefaultUnit: UnitMilligram, Label: "magnesium"},
	{Key: Phosphorus, DefaultUnit: UnitMilligram, Label: "phosphorus"},
	{Key: Iodine, DefaultUnit: UnitMicrogram, Label: "iodine"},
	{Key: Zinc, DefaultUnit: UnitMilligram, Label: "zinc"},
	{Key: Selenium, DefaultUnit: UnitMicrogram, Label: "selenium"},
	{Key: Chromium, DefaultUnit: UnitMicrogram, Label: "chromium"},
}

var fieldsByKey = func() map[NutrientKey]Field {
	out := make(map[NutrientKey]Field, len(fields))
	for _, f := range fields {
		out[f.Key] = f
	}
	return out
}()

// Fields returns the tracked nutrients in display order.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

func LookupField(key NutrientKey) (Field, bool) {
	f, ok := fieldsByKey[key]
	return f, ok
}

// CheckFieldUnit reports an error when unit is unknown or measures a
// different kind than the field's default unit.
func CheckFieldUnit(f Field, unit string) error {
	if !ValidUnit(unit) {
		return &UnknownUnitError{Unit: unit}
	}
	if !SameKind(unit, f.DefaultUnit) {
		return fmt.Errorf("%w: %s is measured like %s, got %s", ErrIncompatibleUnits, f.Key, f.DefaultUnit, unit)
	}
	return nil
}
