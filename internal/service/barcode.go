package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/saadjs/foodkit/internal/model"
	"github.com/saadjs/foodkit/internal/provider/openfoodfacts"
	"github.com/saadjs/foodkit/internal/provider/usda"
	"github.com/saadjs/foodkit/nutrition"
)

const (
	ProviderUSDA          = "usda"
	ProviderOpenFoodFacts = "openfoodfacts"
	defaultBarcodeTTL     = 30 * 24 * time.Hour
	lookupTimeout         = 15 * time.Second
)

var barcodePattern = regexp.MustCompile(`^\d{8,14}$`)

// LookupResult is a provider food converted to an ingredient whose reference
// nutrients cover 100 g.
type LookupResult struct {
	Provider      string               `json:"provider"`
	Barcode       string               `json:"barcode,omitempty"`
	Description   string               `json:"description"`
	Brand         string               `json:"brand,omitempty"`
	ServingAmount float64              `json:"serving_amount,omitempty"`
	ServingUnit   string               `json:"serving_unit,omitempty"`
	SourceID      string               `json:"source_id,omitempty"`
	Ingredient    nutrition.Ingredient `json:"ingredient"`
	LookupTrail   []string             `json:"lookup_trail,omitempty"`
	FromCache     bool                 `json:"from_cache"`
}

type LookupOptions struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

type LookupCandidate struct {
	Provider string
	Options  LookupOptions
}

type foodClient interface {
	LookupBarcode(ctx context.Context, barcode string) (LookupResult, []byte, error)
	SearchFoods(ctx context.Context, query string, limit int) ([]LookupResult, []byte, error)
}

func newFoodClient(provider string, options LookupOptions) (foodClient, error) {
	switch normalizeProvider(provider) {
	case ProviderUSDA:
		return &usdaClientAdapter{client: &usda.Client{APIKey: options.APIKey, BaseURL: options.BaseURL, HTTPClient: options.HTTPClient}}, nil
	case ProviderOpenFoodFacts:
		return &openFoodFactsClientAdapter{client: &openfoodfacts.Client{BaseURL: options.BaseURL, HTTPClient: options.HTTPClient}}, nil
	default:
		return nil, fmt.Errorf("unsupported lookup provider %q", provider)
	}
}

// LookupBarcode resolves a barcode through the cache first and the provider
// second. Fresh provider results are cached for 30 days.
func LookupBarcode(db *sql.DB, provider, barcode string, options LookupOptions) (LookupResult, error) {
	provider = normalizeProvider(provider)
	client, err := newFoodClient(provider, options)
	if err != nil {
		return LookupResult{}, err
	}
	return lookupBarcodeWithClient(db, provider, client, barcode)
}

func RefreshBarcodeCache(db *sql.DB, provider, barcode string, options LookupOptions) (LookupResult, error) {
	provider = normalizeProvider(provider)
	barcode = strings.TrimSpace(barcode)
	if !isValidBarcode(barcode) {
		return LookupResult{}, fmt.Errorf("invalid barcode %q (expected 8-14 digits)", barcode)
	}
	client, err := newFoodClient(provider, options)
	if err != nil {
		return LookupResult{}, err
	}
	if _, err := db.Exec(`DELETE FROM barcode_cache WHERE provider = ? AND barcode = ?`, provider, barcode); err != nil {
		return LookupResult{}, fmt.Errorf("delete barcode cache row: %w", err)
	}
	return lookupBarcodeWithClient(db, provider, client, barcode)
}

func LookupBarcodeWithFallback(db *sql.DB, barcode string, candidates []LookupCandidate) (LookupResult, error) {
	if len(candidates) == 0 {
		return LookupResult{}, fmt.Errorf("no lookup providers configured")
	}
	attempts := make([]string, 0, len(candidates))
	errs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		provider := normalizeProvider(c.Provider)
		attempts = append(attempts, provider)
		result, err := LookupBarcode(db, provider, barcode, c.Options)
		if err == nil {
			result.LookupTrail = attempts
			return result, nil
		}
		errs = append(errs, fmt.Sprintf("%s: %v", provider, err))
	}
	return LookupResult{}, fmt.Errorf("lookup failed for %q across providers [%s]", barcode, strings.Join(errs, "; "))
}

// SearchFoods runs a free-text provider search bounded by ctx and the lookup
// timeout. Results are not cached.
func SearchFoods(ctx context.Context, provider, query string, limit int, options LookupOptions) ([]LookupResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query is required")
	}
	provider = normalizeProvider(provider)
	client, err := newFoodClient(provider, options)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()
	results, _, err := client.SearchFoods(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Provider = provider
	}
	return results, nil
}

// ImportLookup stores a lookup result as a food with a single ingredient and
// returns the new food id.
func ImportLookup(db *sql.DB, result LookupResult, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = result.Ingredient.Name
	}
	ref := result.Barcode
	if ref == "" {
		ref = result.SourceID
	}
	ing := result.Ingredient
	foodID, err := CreateFood(db, CreateFoodInput{
		Name:             name,
		IconID:           ing.IconID,
		ServingUnits:     ing.Amount.ServingUnits,
		SelectedUnit:     ing.Amount.SelectedUnit,
		SelectedQuantity: ing.Amount.SelectedQuantity,
		SourceProvider:   result.Provider,
		SourceRef:        ref,
	})
	if err != nil {
		return "", err
	}
	if _, err := AddIngredient(db, foodID, IngredientInput{
		Name:             ing.Name,
		IconID:           ing.IconID,
		ReferenceWeight:  ing.ReferenceNutrients.Weight(),
		Nutrients:        ing.ReferenceNutrients.Values(),
		ServingUnits:     ing.Amount.ServingUnits,
		SelectedUnit:     ing.Amount.SelectedUnit,
		SelectedQuantity: ing.Amount.SelectedQuantity,
	}); err != nil {
		_ = DeleteFood(db, foodID)
		return "", err
	}
	return foodID, nil
}

func ListBarcodeCache(db *sql.DB, provider string, limit int) ([]model.BarcodeCacheItem, error) {
	if limit <= 0 {
		limit = 100
	}
	base := `SELECT provider, barcode, description, brand, expires_at FROM barcode_cache`
	args := make([]any, 0, 2)
	if strings.TrimSpace(provider) != "" {
		base += ` WHERE provider = ?`
		args = append(args, normalizeProvider(provider))
	}
	base += ` ORDER BY fetched_at DESC LIMIT ?`
	args = append(args, limit)
	rows, err := db.Query(base, args...)
	if err != nil {
		return nil, fmt.Errorf("list barcode cache: %w", err)
	}
	defer rows.Close()
	out := make([]model.BarcodeCacheItem, 0)
	for rows.Next() {
		var item model.BarcodeCacheItem
		var expires string
		if err := rows.Scan(&item.Provider, &item.Barcode, &item.Description, &item.Brand, &expires); err != nil {
			return nil, fmt.Errorf("scan barcode cache: %w", err)
		}
		item.ExpiresAt, _ = time.Parse(time.RFC3339, expires)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate barcode cache: %w", err)
	}
	return out, nil
}

func PurgeBarcodeCache(db *sql.DB, provider, barcode string, purgeAll bool) (int64, error) {
	barcode = strings.TrimSpace(barcode)
	if strings.TrimSpace(provider) != "" {
		provider = normalizeProvider(provider)
	}

	var (
		res sql.Result
		err error
	)
	switch {
	case purgeAll:
		res, err = db.Exec(`DELETE FROM barcode_cache`)
	case provider != "" && barcode != "":
		res, err = db.Exec(`DELETE FROM barcode_cache WHERE provider = ? AND barcode = ?`, provider, barcode)
	case provider != "":
		res, err = db.Exec(`DELETE FROM barcode_cache WHERE provider = ?`, provider)
	case barcode != "":
		res, err = db.Exec(`DELETE FROM barcode_cache WHERE barcode = ?`, barcode)
	default:
		return 0, fmt.Errorf("specify --all, --provider, --barcode, or provider+barcode")
	}
	if err != nil {
		return 0, fmt.Errorf("purge barcode cache: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge barcode cache rows affected: %w", err)
	}
	return affected, nil
}

func lookupBarcodeWithClient(db *sql.DB, provider string, client foodClient, barcode string) (LookupResult, error) {
	barcode = strings.TrimSpace(barcode)
	if !isValidBarcode(barcode) {
		return LookupResult{}, fmt.Errorf("invalid barcode %q (expected 8-14 digits)", barcode)
	}

	cached, found, err := lookupBarcodeCache(db, provider, barcode, time.Now())
	if err != nil {
		return LookupResult{}, err
	}
	if found {
		cached.FromCache = true
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()
	result, raw, err := client.LookupBarcode(ctx, barcode)
	if err != nil {
		return LookupResult{}, err
	}
	result.Provider = provider
	result.Barcode = barcode
	if err := upsertBarcodeCache(db, result, raw, time.Now()); err != nil {
		return LookupResult{}, err
	}
	return result, nil
}

type usdaClientAdapter struct {
	client *usda.Client
}

func (a *usdaClientAdapter) LookupBarcode(ctx context.Context, barcode string) (LookupResult, []byte, error) {
	food, raw, err := a.client.LookupBarcode(ctx, barcode)
	if err != nil {
		return LookupResult{}, nil, err
	}
	result, err := usdaResult(food)
	return result, raw, err
}

func (a *usdaClientAdapter) SearchFoods(ctx context.Context, query string, limit int) ([]LookupResult, []byte, error) {
	foods, raw, err := a.client.SearchFoods(ctx, query, limit)
	if err != nil {
		return nil, nil, err
	}
	out := make([]LookupResult, 0, len(foods))
	for _, food := range foods {
		result, err := usdaResult(food)
		if err != nil {
			continue
		}
		out = append(out, result)
	}
	return out, raw, nil
}

func usdaResult(food usda.FoodLookup) (LookupResult, error) {
	ing, err := lookupIngredient(food.Description, food.Nutrients, food.ServingAmount, food.ServingUnit)
	if err != nil {
		return LookupResult{}, err
	}
	return LookupResult{
		Barcode:       food.Barcode,
		Description:   food.Description,
		Brand:         food.Brand,
		ServingAmount: food.ServingAmount,
		ServingUnit:   food.ServingUnit,
		SourceID:      strconv.FormatInt(food.FDCID, 10),
		Ingredient:    ing,
	}, nil
}

type openFoodFactsClientAdapter struct {
	client *openfoodfacts.Client
}

func (a *openFoodFactsClientAdapter) LookupBarcode(ctx context.Context, barcode string) (LookupResult, []byte, error) {
	food, raw, err := a.client.LookupBarcode(ctx, barcode)
	if err != nil {
		return LookupResult{}, nil, err
	}
	result, err := openFoodFactsResult(food)
	return result, raw, err
}

func (a *openFoodFactsClientAdapter) SearchFoods(ctx context.Context, query string, limit int) ([]LookupResult, []byte, error) {
	foods, raw, err := a.client.SearchFoods(ctx, query, limit)
	if err != nil {
		return nil, nil, err
	}
	out := make([]LookupResult, 0, len(foods))
	for _, food := range foods {
		result, err := openFoodFactsResult(food)
		if err != nil {
			continue
		}
		out = append(out, result)
	}
	return out, raw, nil
}

func openFoodFactsResult(food openfoodfacts.FoodLookup) (LookupResult, error) {
	ing, err := lookupIngredient(food.Description, food.Nutrients, food.ServingAmount, food.ServingUnit)
	if err != nil {
		return LookupResult{}, err
	}
	return LookupResult{
		Barcode:       food.Code,
		Description:   food.Description,
		Brand:         food.Brand,
		ServingAmount: food.ServingAmount,
		ServingUnit:   food.ServingUnit,
		SourceID:      food.Code,
		Ingredient:    ing,
	}, nil
}

// lookupIngredient builds an ingredient from per-100 g provider values. A
// provider serving with a mass unit becomes the selected "serving" unit;
// otherwise 100 g is selected.
func lookupIngredient(name string, nutrients map[nutrition.NutrientKey]nutrition.UnitMass, servingAmount float64, servingUnit string) (nutrition.Ingredient, error) {
	in := IngredientInput{
		Name:            name,
		ReferenceWeight: nutrition.ReferenceWeight,
		Nutrients:       nutrients,
	}
	if servingAmount > 0 && nutrition.MassUnit(servingUnit) {
		in.ServingUnits = []nutrition.ServingUnit{{UnitName: "serving", Value: servingAmount, Unit: servingUnit}}
		in.SelectedUnit = "serving"
		in.SelectedQuantity = 1
	}
	return buildIngredient(in)
}

func isValidBarcode(code string) bool {
	return barcodePattern.MatchString(code)
}

func lookupBarcodeCache(db *sql.DB, provider, barcode string, now time.Time) (LookupResult, bool, error) {
	var (
		row            LookupResult
		ingredientJSON string
		expiresAtRaw   string
	)
	err := db.QueryRow(`
SELECT provider, barcode, description, brand, ingredient_json, expires_at
FROM barcode_cache
WHERE provider = ? AND barcode = ?
`, provider, barcode).Scan(&row.Provider, &row.Barcode, &row.Description, &row.Brand, &ingredientJSON, &expiresAtRaw)
	if err == sql.ErrNoRows {
		return LookupResult{}, false, nil
	}
	if err != nil {
		return LookupResult{}, false, fmt.Errorf("lookup barcode cache: %w", err)
	}
	expiresAt, err := time.Parse(time.RFC3339, expiresAtRaw)
	if err != nil || now.After(expiresAt) {
		return LookupResult{}, false, nil
	}
	var cached cachedIngredient
	if err := json.Unmarshal([]byte(ingredientJSON), &cached); err != nil {
		return LookupResult{}, false, fmt.Errorf("decode cached ingredient: %w", err)
	}
	row.ServingAmount = cached.ServingAmount
	row.ServingUnit = cached.ServingUnit
	row.SourceID = cached.SourceID
	row.Ingredient = cached.Ingredient
	row.Ingredient.Amount.Weight = nutrition.ServingWeight(row.Ingredient)
	return row, true, nil
}

type cachedIngredient struct {
	ServingAmount float64              `json:"serving_amount,omitempty"`
	ServingUnit   string               `json:"serving_unit,omitempty"`
	SourceID      string               `json:"source_id,omitempty"`
	Ingredient    nutrition.Ingredient `json:"ingredient"`
}

func upsertBarcodeCache(db *sql.DB, result LookupResult, raw []byte, now time.Time) error {
	payload, err := json.Marshal(cachedIngredient{
		ServingAmount: result.ServingAmount,
		ServingUnit:   result.ServingUnit,
		SourceID:      result.SourceID,
		Ingredient:    result.Ingredient,
	})
	if err != nil {
		return fmt.Errorf("marshal cached ingredient: %w", err)
	}
	_, err = db.Exec(`
INSERT INTO barcode_cache(provider, barcode, description, brand, ingredient_json, raw_json, fetched_at, expires_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, barcode) DO UPDATE SET
  description=excluded.description,
  brand=excluded.brand,
  ingredient_json=excluded.ingredient_json,
  raw_json=excluded.raw_json,
  fetched_at=excluded.fetched_at,
  expires_at=excluded.expires_at
`, result.Provider, result.Barcode, result.Description, result.Brand, string(payload), string(raw),
		now.UTC().Format(time.RFC3339), now.Add(defaultBarcodeTTL).UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert barcode cache: %w", err)
	}
	return nil
}

func normalizeProvider(provider string) string {
	switch p := strings.ToLower(strings.TrimSpace(provider)); p {
	case "", "off", ProviderOpenFoodFacts:
		return ProviderOpenFoodFacts
	default:
		return p
	}
}
