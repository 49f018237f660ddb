package usda

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/saadjs/foodkit/nutrition"
)

const defaultBaseURL = "https://api.nal.usda.gov"

// FoodLookup is one FoodData Central food. Search results report nutrient
// values per 100 g.
type FoodLookup struct {
	Barcode       string
	Description   string
	Brand         string
	ServingAmount float64
	ServingUnit   string
	Nutrients     map[nutrition.NutrientKey]nutrition.UnitMass
	FDCID         int64
}

type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

var nutrientNames = map[string]nutrition.NutrientKey{
	"energy":                                   nutrition.Calories,
	"carbohydrate, by difference":              nutrition.Carbs,
	"protein":                                  nutrition.Protein,
	"total lipid (fat)":                        nutrition.Fat,
	"fatty acids, total saturated":             nutrition.SaturatedFat,
	"fatty acids, total trans":                 nutrition.TransFat,
	"fatty acids, total monounsaturated":       nutrition.MonounsaturatedFat,
	"fatty acids, total polyunsaturated":       nutrition.PolyunsaturatedFat,
	"cholesterol":                              nutrition.Cholesterol,
	"sodium, na":                               nutrition.Sodium,
	"fiber, total dietary":                     nutrition.Fibers,
	"sugars, total including nlea":             nutrition.Sugars,
	"sugars, total":                            nutrition.Sugars,
	"sugars, added":                            nutrition.SugarsAdded,
	"alcohol, ethyl":                           nutrition.Alcohol,
	"vitamin a, iu":                            nutrition.VitaminA,
	"vitamin a, rae":                           nutrition.VitaminARAE,
	"vitamin b-6":                              nutrition.VitaminB6,
	"vitamin b-12":                             nutrition.VitaminB12,
	"vitamin b-12, added":                      nutrition.VitaminB12Added,
	"vitamin c, total ascorbic acid":           nutrition.VitaminC,
	"vitamin d (d2 + d3), international units": nutrition.VitaminD,
	"vitamin e (alpha-tocopherol)":             nutrition.VitaminE,
	"vitamin e, added":                         nutrition.VitaminEAdded,
	"vitamin k (phylloquinone)":                nutrition.VitaminKPhylloquinone,
	"vitamin k (menaquinone-4)":                nutrition.VitaminKMenaquinone4,
	"vitamin k (dihydrophylloquinone)":         nutrition.VitaminKDihydrophylloquinone,
	"folic acid":                               nutrition.FolicAcid,
	"calcium, ca":                              nutrition.Calcium,
	"iron, fe":                                 nutrition.Iron,
	"potassium, k":                             nutrition.Potassium,
	"magnesium, mg":                            nutrition.Magnesium,
	"phosphorus, p":                            nutrition.Phosphorus,
	"iodine, i":                                nutrition.Iodine,
	"zinc, zn":                                 nutrition.Zinc,
	"selenium, se":                             nutrition.Selenium,
	"chromium, cr":                             nutrition.Chromium,
}

func (c *Client) LookupBarcode(ctx context.Context, barcode string) (FoodLookup, []byte, error) {
	foods, body, err := c.search(ctx, barcode, []string{"Branded"}, 20)
	if err != nil {
		return FoodLookup{}, body, err
	}
	food, ok := selectBarcodeMatch(foods, barcode)
	if !ok {
		return FoodLookup{}, body, fmt.Errorf("no USDA branded food found for barcode %q", barcode)
	}
	out := toLookup(food)
	out.Barcode = barcode
	return out, body, nil
}

// SearchFoods runs a free-text search across FoodData Central.
func (c *Client) SearchFoods(ctx context.Context, query string, limit int) ([]FoodLookup, []byte, error) {
	if limit <= 0 {
		limit = 10
	}
	foods, body, err := c.search(ctx, strings.TrimSpace(query), nil, limit)
	if err != nil {
		return nil, body, err
	}
	if len(foods) == 0 {
		return nil, body, fmt.Errorf("no USDA food found for query %q", query)
	}
	out := make([]FoodLookup, 0, len(foods))
	for _, f := range foods {
		out = append(out, toLookup(f))
	}
	return out, body, nil
}

func (c *Client) search(ctx context.Context, query string, dataTypes []string, pageSize int) ([]usdaFood, []byte, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, nil, fmt.Errorf("missing USDA API key")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}

	reqBody := map[string]any{
		"query":    query,
		"pageSize": pageSize,
	}
	if len(dataTypes) > 0 {
		reqBody["dataType"] = dataTypes
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal USDA search payload: %w", err)
	}

	url := fmt.Sprintf("%s/fdc/v1/foods/search?api_key=%s", baseURL, c.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("create USDA request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("execute USDA request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read USDA response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, body, fmt.Errorf("USDA request failed with status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, body, fmt.Errorf("decode USDA response: %w", err)
	}
	return parsed.Foods, body, nil
}

func toLookup(food usdaFood) FoodLookup {
	out := FoodLookup{
		Barcode:       strings.TrimSpace(food.GTINUPC),
		Description:   strings.TrimSpace(food.Description),
		Brand:         strings.TrimSpace(food.BrandOwner),
		ServingAmount: food.ServingSize,
		ServingUnit:   strings.TrimSpace(food.ServingSizeUnit),
		FDCID:         food.FDCID,
		Nutrients:     map[nutrition.NutrientKey]nutrition.UnitMass{},
	}
	for _, n := range food.FoodNutrients {
		key, ok := nutrientNames[strings.ToLower(strings.TrimSpace(n.NutrientName))]
		if !ok || n.Value < 0 {
			continue
		}
		unit, ok := normalizeUnit(n.UnitName)
		if !ok {
			continue
		}
		if unit == "" {
			unit = defaultUnit(key)
		}
		if !nutrition.SameKind(unit, defaultUnit(key)) {
			continue
		}
		if key == nutrition.Calories {
			// Energy is listed in both kcal and kJ; kcal wins.
			if existing, seen := out.Nutrients[key]; seen && existing.Unit == nutrition.UnitKcal {
				continue
			}
		}
		out.Nutrients[key] = nutrition.UnitMass{Value: n.Value, Unit: unit}
	}
	return out
}

// normalizeUnit maps FoodData Central unit names (G, MG, UG, KCAL, kJ, IU)
// onto units the nutrition package understands.
func normalizeUnit(unit string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "g":
		return nutrition.UnitGram, true
	case "mg":
		return nutrition.UnitMilligram, true
	case "ug", "µg", "mcg":
		return nutrition.UnitMicrogram, true
	case "kcal":
		return nutrition.UnitKcal, true
	case "kj":
		return "kJ", true
	case "iu":
		return nutrition.UnitIU, true
	case "":
		return "", true
	default:
		return "", false
	}
}

func defaultUnit(key nutrition.NutrientKey) string {
	if f, ok := nutrition.LookupField(key); ok {
		return f.DefaultUnit
	}
	return nutrition.UnitGram
}

func selectBarcodeMatch(foods []usdaFood, barcode string) (usdaFood, bool) {
	for _, f := range foods {
		if strings.TrimSpace(f.GTINUPC) == barcode {
			return f, true
		}
	}
	if len(foods) > 0 {
		return foods[0], true
	}
	return usdaFood{}, false
}

type searchResponse struct {
	Foods []usdaFood `json:"foods"`
}

type usdaFood struct {
	FDCID           int64          `json:"fdcId"`
	Description     string         `json:"description"`
	BrandOwner      string         `json:"brandOwner"`
	GTINUPC         string         `json:"gtinUpc"`
	ServingSize     float64        `json:"servingSize"`
	ServingSizeUnit string         `json:"servingSizeUnit"`
	FoodNutrients   []usdaNutrient `json:"foodNutrients"`
}

type usdaNutrient struct {
	NutrientName string  `json:"nutrientName"`
	UnitName     string  `json:"unitName"`
	Value        float64 `json:"value"`
}
