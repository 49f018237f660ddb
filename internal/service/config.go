package service

import (
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	ConfigLookupProvider      = "lookup_provider"
	ConfigLookupFallbackOrder = "lookup_fallback_order"
	ConfigDefaultBasis        = "default_basis"
	ConfigRecognitionMinScore = "recognition_min_confidence"
)

var configValidators = map[string]func(string) error{
	ConfigLookupProvider: func(v string) error {
		_, err := newFoodClient(v, LookupOptions{})
		return err
	},
	ConfigLookupFallbackOrder: func(v string) error {
		_, err := parseProviderOrder(v)
		return err
	},
	ConfigDefaultBasis: func(v string) error {
		_, err := ParseBasis(v)
		return err
	},
	ConfigRecognitionMinScore: func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 100 {
			return fmt.Errorf("expected a number between 0 and 100")
		}
		return nil
	},
}

// ConfigKeys lists the keys accepted by SetConfig.
func ConfigKeys() []string {
	keys := make([]string, 0, len(configValidators))
	for k := range configValidators {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func SetConfig(db *sql.DB, key, value string) error {
	return setConfig(db, key, value)
}

func setConfig(q execer, key, value string) error {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return fmt.Errorf("config key is required")
	}
	value = strings.TrimSpace(value)
	validate, ok := configValidators[key]
	if !ok {
		return fmt.Errorf("unknown config key %q (expected one of: %s)", key, strings.Join(ConfigKeys(), ", "))
	}
	if err := validate(value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	_, err := q.Exec(`
INSERT INTO app_config(key, value, updated_at)
VALUES(?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
`, key, value)
	if err != nil {
		return fmt.Errorf("set config %q: %w", key, err)
	}
	return nil
}

func GetConfig(db *sql.DB, key string) (string, bool, error) {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return "", false, fmt.Errorf("config key is required")
	}
	var value string
	err := db.QueryRow(`SELECT value FROM app_config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get config %q: %w", key, err)
	}
	return value, true, nil
}

func ListConfig(db *sql.DB) (map[string]string, error) {
	rows, err := db.Query(`SELECT key, value FROM app_config ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("list config: %w", err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan config: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate config: %w", err)
	}
	return out, nil
}

// LookupCandidates resolves the provider order for barcode lookups. An
// explicit provider wins; otherwise the stored fallback order is used, then
// the stored provider, then Open Food Facts followed by USDA.
func LookupCandidates(db *sql.DB, provider string, options LookupOptions) ([]LookupCandidate, error) {
	var order []string
	switch {
	case strings.TrimSpace(provider) != "":
		order = []string{normalizeProvider(provider)}
	default:
		stored, ok, err := GetConfig(db, ConfigLookupFallbackOrder)
		if err != nil {
			return nil, err
		}
		if ok && stored != "" {
			if order, err = parseProviderOrder(stored); err != nil {
				return nil, err
			}
			break
		}
		single, ok, err := GetConfig(db, ConfigLookupProvider)
		if err != nil {
			return nil, err
		}
		if ok && single != "" {
			order = []string{normalizeProvider(single)}
		} else {
			order = []string{ProviderOpenFoodFacts, ProviderUSDA}
		}
	}
	out := make([]LookupCandidate, 0, len(order))
	for _, p := range order {
		if p == ProviderUSDA && strings.TrimSpace(options.APIKey) == "" && len(order) > 1 {
			continue
		}
		out = append(out, LookupCandidate{Provider: p, Options: options})
	}
	return out, nil
}

func parseProviderOrder(value string) ([]string, error) {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	seen := map[string]bool{}
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		p := normalizeProvider(part)
		if _, err := newFoodClient(p, LookupOptions{}); err != nil {
			return nil, err
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("provider order is empty")
	}
	return out, nil
}
