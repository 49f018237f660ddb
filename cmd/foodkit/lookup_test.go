package foodkit

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/saadjs/foodkit/internal/db"
	"github.com/saadjs/foodkit/internal/provider/rekognition"
	"github.com/saadjs/foodkit/internal/service"
)

func TestBarcodeCandidatesWithFallback(t *testing.T) {
	got, err := barcodeCandidates(nil, "usda", "off, openfoodfacts,usda")
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	want := []string{service.ProviderUSDA, service.ProviderOpenFoodFacts}
	if len(got) != len(want) {
		t.Fatalf("unexpected candidates: %+v", got)
	}
	for i := range want {
		if got[i].Provider != want[i] {
			t.Fatalf("unexpected provider at %d: got=%q want=%q", i, got[i].Provider, want[i])
		}
	}
}

func TestBarcodeCandidatesFromConfig(t *testing.T) {
	sqldb := openTestDB(t)
	if err := service.SetConfig(sqldb, service.ConfigLookupProvider, "usda"); err != nil {
		t.Fatalf("set provider: %v", err)
	}
	got, err := barcodeCandidates(sqldb, "", "")
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(got) != 1 || got[0].Provider != service.ProviderUSDA {
		t.Fatalf("expected stored provider, got %+v", got)
	}
	provider, err := primaryProvider(sqldb, "off")
	if err != nil || provider != service.ProviderOpenFoodFacts {
		t.Fatalf("expected explicit provider to win, got %q err=%v", provider, err)
	}
}

func TestRecognizeOptionsUsesStoredConfidence(t *testing.T) {
	sqldb := openTestDB(t)
	if err := service.SetConfig(sqldb, service.ConfigRecognitionMinScore, "82.5"); err != nil {
		t.Fatalf("set confidence: %v", err)
	}
	resetFlags(recognizeCmd)
	opts, err := recognizeOptions(recognizeCmd, sqldb)
	if err != nil {
		t.Fatalf("recognize options: %v", err)
	}
	if opts.MinConfidence != 82.5 || opts.Provider != service.ProviderOpenFoodFacts || opts.MaxLabels != 3 {
		t.Fatalf("unexpected options %+v", opts)
	}
}

type fakeDetector struct {
	labels []rekognition.Label
}

func (f fakeDetector) DetectFoodLabels(ctx context.Context, image []byte) ([]rekognition.Label, error) {
	return f.labels, nil
}

func TestRecognizeCommandFiltersLowConfidence(t *testing.T) {
	orig := newLabelDetector
	t.Cleanup(func() { newLabelDetector = orig })
	newLabelDetector = func(ctx context.Context, region string) (service.LabelDetector, error) {
		return fakeDetector{labels: []rekognition.Label{{Name: "Apple", Confidence: 55}}}, nil
	}

	env := testEnv(t)
	image := filepath.Join(t.TempDir(), "meal.jpg")
	if err := os.WriteFile(image, []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	_, err := runCLI(t, append(env, "recognize", "--image", image, "--min-confidence", "90")...)
	if err == nil || !strings.Contains(err.Error(), "no food recognized") {
		t.Fatalf("expected low confidence labels to be dropped, got %v", err)
	}
	if _, err := runCLI(t, append(env, "recognize", "--image", filepath.Join(t.TempDir(), "missing.jpg"))...); err == nil {
		t.Fatalf("expected missing image to fail")
	}
}

func TestLookupCacheCommands(t *testing.T) {
	env := testEnv(t)
	if _, err := runCLI(t, append(env, "lookup", "cache", "purge")...); err == nil {
		t.Fatalf("expected purge without a selector to fail")
	}
	out, err := runCLI(t, append(env, "lookup", "cache", "purge", "--all")...)
	if err != nil {
		t.Fatalf("purge all: %v", err)
	}
	if !strings.Contains(out, "Purged 0") {
		t.Fatalf("unexpected purge output %q", out)
	}
	if _, err := runCLI(t, append(env, "lookup", "barcode", "12ab")...); err == nil {
		t.Fatalf("expected invalid barcode to fail")
	}
}

func TestProvidersHelpText(t *testing.T) {
	out := providersHelpText()
	for _, want := range []string{
		"openfoodfacts",
		"FOODKIT_USDA_API_KEY",
		"api.data.gov/signup",
		"1,000 requests per hour per IP",
		"fair-use limits",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("providers help missing %q:\n%s", want, out)
		}
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	sqldb, err := db.Open(filepath.Join(t.TempDir(), "foodkit.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(sqldb); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	t.Cleanup(func() { _ = sqldb.Close() })
	return sqldb
}
