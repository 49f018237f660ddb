package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/saadjs/foodkit/internal/provider/rekognition"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type LabelDetector interface {
	DetectFoodLabels(ctx context.Context, image []byte) ([]rekognition.Label, error)
}

type RecognizeOptions struct {
	Provider      string
	MinConfidence float64
	MaxLabels     int
	PerLabel      int
	Lookup        LookupOptions
}

// RecognitionCandidate pairs a detected label with provider foods that match it.
type RecognitionCandidate struct {
	Label      string         `json:"label"`
	Confidence float64        `json:"confidence"`
	Matches    []LookupResult `json:"matches"`
	Error      string         `json:"error,omitempty"`
}

// RecognizeFood detects food labels in image and searches the provider for
// each distinct label. A failed search is reported on its candidate rather
// than aborting the whole run; a cancelled ctx stops the run.
func RecognizeFood(ctx context.Context, detector LabelDetector, image []byte, opts RecognizeOptions) ([]RecognitionCandidate, error) {
	labels, err := detector.DetectFoodLabels(ctx, image)
	if err != nil {
		return nil, err
	}
	if opts.MaxLabels <= 0 {
		opts.MaxLabels = 3
	}
	if opts.PerLabel <= 0 {
		opts.PerLabel = 3
	}

	lower := cases.Lower(language.English)
	seen := map[string]bool{}
	out := make([]RecognitionCandidate, 0, opts.MaxLabels)
	for _, l := range labels {
		if len(out) >= opts.MaxLabels {
			break
		}
		if l.Confidence < opts.MinConfidence {
			continue
		}
		query := strings.Join(strings.Fields(lower.String(l.Name)), " ")
		if query == "" || seen[query] {
			continue
		}
		seen[query] = true
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("recognize food: %w", err)
		}
		candidate := RecognitionCandidate{Label: l.Name, Confidence: l.Confidence}
		matches, err := SearchFoods(ctx, opts.Provider, query, opts.PerLabel, opts.Lookup)
		if err != nil {
			candidate.Error = err.Error()
		} else {
			candidate.Matches = matches
		}
		out = append(out, candidate)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no food recognized in image")
	}
	return out, nil
}
