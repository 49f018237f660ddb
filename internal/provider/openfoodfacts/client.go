package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/saadjs/foodkit/nutrition"
)

const (
	defaultBaseURL = "https://world.openfoodfacts.org"
	userAgent      = "foodkit/1.0 (+https://github.com/saadjs/foodkit)"
)

// FoodLookup is one product with nutrients expressed per 100 g.
type FoodLookup struct {
	Code          string
	Description   string
	Brand         string
	ImageURL      string
	ServingAmount float64
	ServingUnit   string
	Nutrients     map[nutrition.NutrientKey]nutrition.UnitMass
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// nutrimentKeys maps Open Food Facts nutriment names to tracked nutrients.
// Values under the _100g suffix are normalised by Open Food Facts to grams,
// except energy which is in kcal.
var nutrimentKeys = map[string]nutrition.NutrientKey{
	"energy-kcal":         nutrition.Calories,
	"carbohydrates":       nutrition.Carbs,
	"proteins":            nutrition.Protein,
	"fat":                 nutrition.Fat,
	"saturated-fat":       nutrition.SaturatedFat,
	"trans-fat":           nutrition.TransFat,
	"monounsaturated-fat": nutrition.MonounsaturatedFat,
	"polyunsaturated-fat": nutrition.PolyunsaturatedFat,
	"cholesterol":         nutrition.Cholesterol,
	"sodium":              nutrition.Sodium,
	"fiber":               nutrition.Fibers,
	"sugars":              nutrition.Sugars,
	"added-sugars":        nutrition.SugarsAdded,
	"polyols":             nutrition.SugarAlcohol,
	"alcohol":             nutrition.Alcohol,
	"vitamin-a":           nutrition.VitaminARAE,
	"vitamin-b6":          nutrition.VitaminB6,
	"vitamin-b12":         nutrition.VitaminB12,
	"vitamin-c":           nutrition.VitaminC,
	"vitamin-d":           nutrition.VitaminD,
	"vitamin-e":           nutrition.VitaminE,
	"vitamin-k":           nutrition.VitaminKPhylloquinone,
	"folates":             nutrition.FolicAcid,
	"calcium":             nutrition.Calcium,
	"iron":                nutrition.Iron,
	"potassium":           nutrition.Potassium,
	"magnesium":           nutrition.Magnesium,
	"phosphorus":          nutrition.Phosphorus,
	"iodine":              nutrition.Iodine,
	"zinc":                nutrition.Zinc,
	"selenium":            nutrition.Selenium,
	"chromium":            nutrition.Chromium,
}

func (c *Client) LookupBarcode(ctx context.Context, barcode string) (FoodLookup, []byte, error) {
	u := fmt.Sprintf("%s/api/v2/product/%s.json", c.baseURL(), url.PathEscape(barcode))
	body, err := c.get(ctx, u, "openfoodfacts")
	if err != nil {
		return FoodLookup{}, body, err
	}

	var parsed offResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return FoodLookup{}, body, fmt.Errorf("decode openfoodfacts response: %w", err)
	}
	if parsed.Status != 1 || strings.TrimSpace(parsed.Product.ProductName) == "" {
		return FoodLookup{}, body, fmt.Errorf("no openfoodfacts product found for barcode %q", barcode)
	}
	out := toLookup(parsed.Product)
	if out.Code == "" {
		out.Code = barcode
	}
	return out, body, nil
}

func (c *Client) SearchFoods(ctx context.Context, query string, limit int) ([]FoodLookup, []byte, error) {
	if limit <= 0 {
		limit = 10
	}
	u := fmt.Sprintf("%s/cgi/search.pl?search_terms=%s&search_simple=1&action=process&json=1&page_size=%d",
		c.baseURL(),
		url.QueryEscape(strings.TrimSpace(query)),
		limit,
	)
	body, err := c.get(ctx, u, "openfoodfacts search")
	if err != nil {
		return nil, body, err
	}
	var parsed offSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, body, fmt.Errorf("decode openfoodfacts search response: %w", err)
	}
	out := make([]FoodLookup, 0, len(parsed.Products))
	for _, p := range parsed.Products {
		if strings.TrimSpace(p.ProductName) == "" {
			continue
		}
		out = append(out, toLookup(p))
	}
	if len(out) == 0 {
		return nil, body, fmt.Errorf("no openfoodfacts product found for query %q", query)
	}
	return out, body, nil
}

func (c *Client) baseURL() string {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return defaultBaseURL
	}
	return base
}

func (c *Client) get(ctx context.Context, u, label string) ([]byte, error) {
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", label, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute %s request: %w", label, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", label, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, fmt.Errorf("%s request failed with status %d", label, resp.StatusCode)
	}
	return body, nil
}

func toLookup(p offProduct) FoodLookup {
	servingAmount, servingUnit := parseServing(p)
	return FoodLookup{
		Code:          strings.TrimSpace(p.Code),
		Description:   strings.TrimSpace(p.ProductName),
		Brand:         strings.TrimSpace(p.Brands),
		ImageURL:      strings.TrimSpace(p.ImageURL),
		ServingAmount: servingAmount,
		ServingUnit:   servingUnit,
		Nutrients:     parseNutriments(p.Nutriments),
	}
}

const vitaminDIUPerMicrogram = 40

func parseNutriments(n map[string]any) map[nutrition.NutrientKey]nutrition.UnitMass {
	out := make(map[nutrition.NutrientKey]nutrition.UnitMass)
	for base, key := range nutrimentKeys {
		v, ok := parseFloatAny(n[base+"_100g"])
		if !ok || v < 0 {
			continue
		}
		unit := nutrition.UnitGram
		switch key {
		case nutrition.Calories:
			unit = nutrition.UnitKcal
		case nutrition.VitaminD:
			// Reported in grams; tracked in IU at 40 IU per µg.
			v, unit = v*1e6*vitaminDIUPerMicrogram, nutrition.UnitIU
		}
		out[key] = nutrition.UnitMass{Value: v, Unit: unit}
	}
	if _, ok := out[nutrition.Calories]; !ok {
		if kj, ok := parseFloatAny(n["energy-kj_100g"]); ok && kj >= 0 {
			out[nutrition.Calories] = nutrition.UnitMass{Value: kj, Unit: "kJ"}
		}
	}
	return out
}

func parseFloatAny(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func parseServing(p offProduct) (float64, string) {
	if p.ServingQuantity > 0 {
		unit := strings.TrimSpace(p.ServingQuantityUnit)
		if unit == "" {
			unit = nutrition.UnitGram
		}
		return p.ServingQuantity, unit
	}
	if strings.TrimSpace(p.ServingSize) != "" {
		parts := strings.Fields(strings.TrimSpace(p.ServingSize))
		if len(parts) >= 2 {
			if val, err := strconv.ParseFloat(strings.ReplaceAll(parts[0], ",", ""), 64); err == nil && val > 0 {
				return val, parts[1]
			}
		}
		if m, err := nutrition.ParseUnitMass(parts[0]); err == nil && m.Value > 0 {
			return m.Value, m.Unit
		}
	}
	return 0, ""
}

type offResponse struct {
	Status  int        `json:"status"`
	Product offProduct `json:"product"`
}

type offProduct struct {
	Code                string         `json:"code"`
	ProductName         string         `json:"product_name"`
	Brands              string         `json:"brands"`
	ImageURL            string         `json:"image_url"`
	ServingSize         string         `json:"serving_size"`
	ServingQuantity     float64        `json:"serving_quantity"`
	ServingQuantityUnit string         `json:"serving_quantity_unit"`
	Nutriments          map[string]any `json:"nutriments"`
}

type offSearchResponse struct {
	Products []offProduct `json:"products"`
}
