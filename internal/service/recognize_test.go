package service_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/saadjs/foodkit/internal/provider/rekognition"
	"github.com/saadjs/foodkit/internal/service"
)

type fakeDetector struct {
	labels []rekognition.Label
}

func (f fakeDetector) DetectFoodLabels(ctx context.Context, image []byte) ([]rekognition.Label, error) {
	return f.labels, nil
}

func TestRecognizeFoodSearchesDistinctLabels(t *testing.T) {
	t.Parallel()

	queries := make(chan string, 10)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("search_terms")
		queries <- q
		if q == "granny smith" {
			_, _ = w.Write([]byte(`{"products":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"products":[{"code":"1","product_name":"Apple","nutriments":{"energy-kcal_100g":52}}]}`))
	}))
	defer ts.Close()

	detector := fakeDetector{labels: []rekognition.Label{
		{Name: "Apple", Confidence: 98},
		{Name: "APPLE", Confidence: 97},
		{Name: "Granny  Smith", Confidence: 90},
		{Name: "Pear", Confidence: 40},
	}}
	got, err := service.RecognizeFood(context.Background(), detector, []byte{1}, service.RecognizeOptions{
		Provider:      service.ProviderOpenFoodFacts,
		MinConfidence: 50,
		Lookup:        service.LookupOptions{BaseURL: ts.URL, HTTPClient: ts.Client()},
	})
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %+v", got)
	}
	if got[0].Label != "Apple" || len(got[0].Matches) != 1 || got[0].Matches[0].Provider != service.ProviderOpenFoodFacts {
		t.Fatalf("unexpected first candidate: %+v", got[0])
	}
	if got[1].Error == "" || len(got[1].Matches) != 0 {
		t.Fatalf("expected search error on second candidate: %+v", got[1])
	}
	close(queries)
	var seen []string
	for q := range queries {
		seen = append(seen, q)
	}
	if len(seen) != 2 || seen[0] != "apple" || seen[1] != "granny smith" {
		t.Fatalf("unexpected queries: %v", seen)
	}
}

func TestRecognizeFoodNothingFound(t *testing.T) {
	t.Parallel()

	detector := fakeDetector{labels: []rekognition.Label{{Name: "Soup", Confidence: 10}}}
	if _, err := service.RecognizeFood(context.Background(), detector, []byte{1}, service.RecognizeOptions{MinConfidence: 50}); err == nil {
		t.Fatalf("expected no recognition error")
	}
}

func TestRecognizeFoodStopsWhenCancelled(t *testing.T) {
	t.Parallel()

	requests := make(chan string, 4)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r.URL.Query().Get("search_terms")
		_, _ = w.Write([]byte(`{"products":[]}`))
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	detector := fakeDetector{labels: []rekognition.Label{{Name: "Apple", Confidence: 99}, {Name: "Banana", Confidence: 95}}}
	_, err := service.RecognizeFood(ctx, detector, []byte{1}, service.RecognizeOptions{
		Provider: service.ProviderOpenFoodFacts,
		Lookup:   service.LookupOptions{BaseURL: ts.URL, HTTPClient: ts.Client()},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(requests) != 0 {
		t.Fatalf("expected no provider searches, got %d", len(requests))
	}
}
