package foodkit

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/saadjs/foodkit/internal/service"
	"github.com/saadjs/foodkit/nutrition"
	"github.com/spf13/cobra"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Lookup nutrition data from external providers",
}

const (
	usdaAPIGuideURL      = "https://fdc.nal.usda.gov/api-guide/"
	usdaSignupURL        = "https://api.data.gov/signup/"
	usdaRateLimitSummary = "USDA default rate limit is 1,000 requests per hour per IP."
	offAPIDocsURL        = "https://openfoodfacts.github.io/openfoodfacts-server/api/"
	offRateLimitSummary  = "Open Food Facts enforces fair-use limits and requires a descriptive User-Agent."
)

var (
	lookupProvider string
	lookupFallback string
	lookupJSON     bool
	lookupSave     bool
	lookupSaveName string
	lookupRefresh  bool
	searchLimit    int
	cacheLimit     int
	cacheBarcode   string
	cachePurgeAll  bool
)

var lookupBarcodeCmd = &cobra.Command{
	Use:   "barcode <code>",
	Short: "Lookup food by barcode using the configured providers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		barcode := strings.TrimSpace(args[0])
		return withDB(func(sqldb *sql.DB) error {
			var (
				result service.LookupResult
				err    error
			)
			switch {
			case lookupRefresh:
				provider, perr := primaryProvider(sqldb, lookupProvider)
				if perr != nil {
					return perr
				}
				result, err = service.RefreshBarcodeCache(sqldb, provider, barcode, lookupOptions())
			default:
				candidates, cerr := barcodeCandidates(sqldb, lookupProvider, lookupFallback)
				if cerr != nil {
					return cerr
				}
				result, err = service.LookupBarcodeWithFallback(sqldb, barcode, candidates)
			}
			if err != nil {
				return err
			}
			logger.Info("barcode lookup", "barcode", barcode, "provider", result.Provider, "cache", result.FromCache, "trail", result.LookupTrail)

			if lookupSave {
				id, err := service.ImportLookup(sqldb, result, lookupSaveName)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Saved food %s\n", id)
			}
			if lookupJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			printLookupResult(cmd, result)
			return nil
		})
	},
}

var lookupSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search provider foods by text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		return withDB(func(sqldb *sql.DB) error {
			provider, err := primaryProvider(sqldb, lookupProvider)
			if err != nil {
				return err
			}
			results, err := service.SearchFoods(cmd.Context(), provider, query, searchLimit, lookupOptions())
			if err != nil {
				return err
			}
			if lookupJSON {
				return writeJSON(cmd.OutOrStdout(), results)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "PROVIDER\tID\tNAME\tBRAND\tKCAL/100G")
			for _, r := range results {
				id := r.Barcode
				if id == "" {
					id = r.SourceID
				}
				kcal := r.Ingredient.ReferenceNutrients.Value(nutrition.Calories)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\t%.1f\n", r.Provider, id, r.Description, r.Brand, kcal)
			}
			return nil
		})
	},
}

var lookupCacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and purge the barcode cache",
}

var lookupCacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached barcode lookups",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			items, err := service.ListBarcodeCache(sqldb, lookupProvider, cacheLimit)
			if err != nil {
				return err
			}
			if lookupJSON {
				return writeJSON(cmd.OutOrStdout(), items)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "PROVIDER\tBARCODE\tNAME\tBRAND\tEXPIRES")
			for _, it := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\t%s\n", it.Provider, it.Barcode, it.Description, it.Brand, it.ExpiresAt.Format(time.RFC3339))
			}
			return nil
		})
	},
}

var lookupCachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete cached barcode lookups",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			n, err := service.PurgeBarcodeCache(sqldb, lookupProvider, cacheBarcode, cachePurgeAll)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d cache row(s)\n", n)
			return nil
		})
	},
}

var lookupProvidersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List available lookup providers and setup",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), providersHelpText())
		return nil
	},
}

func printLookupResult(cmd *cobra.Command, r service.LookupResult) {
	out := cmd.OutOrStdout()
	source := "live"
	if r.FromCache {
		source = "cache"
	}
	fmt.Fprintf(out, "Provider: %s (%s)\n", r.Provider, source)
	if len(r.LookupTrail) > 1 {
		fmt.Fprintf(out, "Tried: %s\n", strings.Join(r.LookupTrail, " -> "))
	}
	fmt.Fprintf(out, "Barcode: %s\n", r.Barcode)
	fmt.Fprintf(out, "Food: %s\n", r.Description)
	if r.Brand != "" {
		fmt.Fprintf(out, "Brand: %s\n", r.Brand)
	}
	if r.ServingAmount > 0 {
		fmt.Fprintf(out, "Serving: %.2f %s\n", r.ServingAmount, r.ServingUnit)
	}
	ref := r.Ingredient.ReferenceNutrients
	fmt.Fprintf(out, "Per %s:\n", ref.Weight())
	for _, field := range nutrition.Fields() {
		v, ok := ref.Get(field.Key)
		if !ok {
			continue
		}
		shown := service.DisplayAmount(field, v)
		fmt.Fprintf(out, "  %s: %.2f %s\n", field.Label, shown.Value, shown.Unit)
	}
}

func primaryProvider(sqldb *sql.DB, provider string) (string, error) {
	candidates, err := service.LookupCandidates(sqldb, provider, lookupOptions())
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no lookup providers configured")
	}
	return candidates[0].Provider, nil
}

// barcodeCandidates prefers an explicit --fallback list, then --provider,
// then the stored configuration.
func barcodeCandidates(sqldb *sql.DB, provider, fallback string) ([]service.LookupCandidate, error) {
	opts := lookupOptions()
	if strings.TrimSpace(fallback) == "" {
		return service.LookupCandidates(sqldb, provider, opts)
	}
	out := make([]service.LookupCandidate, 0)
	seen := map[string]bool{}
	for _, p := range append([]string{provider}, strings.Split(fallback, ",")...) {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "off" {
			p = service.ProviderOpenFoodFacts
		}
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, service.LookupCandidate{Provider: p, Options: opts})
	}
	return out, nil
}

func usdaHelpText() string {
	return fmt.Sprintf(`USDA Lookup Setup

1) Get an API key:
- Sign up at: %s
- USDA API docs: %s

2) Configure key for foodkit:
- export FOODKIT_USDA_API_KEY=your_key_here
- or add it to a .env file in the working directory

3) Try a lookup:
- foodkit lookup barcode 786012004549 --provider usda
- foodkit lookup search "greek yogurt" --provider usda

Rate limits:
- %s
- Barcode results are cached for 30 days to reduce repeated provider requests.`, usdaSignupURL, usdaAPIGuideURL, usdaRateLimitSummary)
}

func providersHelpText() string {
	return fmt.Sprintf(`Available providers:
- openfoodfacts (default, alias: off): no API key required
  Docs: %s
  %s
- usda: requires FOODKIT_USDA_API_KEY; used as a fallback when the key is set

%s

Useful commands:
- foodkit lookup barcode <code> --provider usda|openfoodfacts
- foodkit lookup barcode <code> --fallback openfoodfacts,usda --save
- foodkit config set --fallback-order openfoodfacts,usda`, offAPIDocsURL, offRateLimitSummary, usdaHelpText())
}

func init() {
	rootCmd.AddCommand(lookupCmd)
	lookupCmd.AddCommand(lookupBarcodeCmd, lookupSearchCmd, lookupCacheCmd, lookupProvidersCmd)
	lookupCacheCmd.AddCommand(lookupCacheListCmd, lookupCachePurgeCmd)

	lookupCmd.PersistentFlags().StringVar(&lookupProvider, "provider", "", "Lookup provider: openfoodfacts or usda")
	lookupCmd.PersistentFlags().BoolVar(&lookupJSON, "json", false, "Output as JSON")

	lookupBarcodeCmd.Flags().StringVar(&lookupFallback, "fallback", "", "Providers to try after --provider (comma-separated)")
	lookupBarcodeCmd.Flags().BoolVar(&lookupSave, "save", false, "Save the result as a food")
	lookupBarcodeCmd.Flags().StringVar(&lookupSaveName, "name", "", "Food name used with --save (default: product name)")
	lookupBarcodeCmd.Flags().BoolVar(&lookupRefresh, "refresh", false, "Bypass and replace the cached result")

	lookupSearchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Max results")

	lookupCacheListCmd.Flags().IntVar(&cacheLimit, "limit", 100, "Max rows to return")
	lookupCachePurgeCmd.Flags().StringVar(&cacheBarcode, "barcode", "", "Purge a single barcode")
	lookupCachePurgeCmd.Flags().BoolVar(&cachePurgeAll, "all", false, "Purge every cached row")
}
