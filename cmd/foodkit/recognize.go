package foodkit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/saadjs/foodkit/internal/provider/rekognition"
	"github.com/saadjs/foodkit/internal/service"
	"github.com/saadjs/foodkit/nutrition"
	"github.com/spf13/cobra"
)

var (
	recognizeImage         string
	recognizeProvider      string
	recognizeLimit         int
	recognizePerLabel      int
	recognizeMinConfidence float64
	recognizeJSON          bool
)

// newLabelDetector builds the label source for recognize.
var newLabelDetector = func(ctx context.Context, region string) (service.LabelDetector, error) {
	client, err := rekognition.New(ctx, region)
	if err != nil {
		return nil, err
	}
	return client, nil
}

var recognizeCmd = &cobra.Command{
	Use:   "recognize",
	Short: "Suggest foods for a photo using AWS Rekognition labels",
	RunE: func(cmd *cobra.Command, args []string) error {
		image, err := os.ReadFile(recognizeImage)
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		return withDB(func(sqldb *sql.DB) error {
			opts, err := recognizeOptions(cmd, sqldb)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			detector, err := newLabelDetector(ctx, cfg.AWSRegion)
			if err != nil {
				return err
			}
			candidates, err := service.RecognizeFood(ctx, detector, image, opts)
			if err != nil {
				return err
			}
			if recognizeJSON {
				return writeJSON(cmd.OutOrStdout(), candidates)
			}
			out := cmd.OutOrStdout()
			for _, c := range candidates {
				fmt.Fprintf(out, "%s (%.1f%%)\n", c.Label, c.Confidence)
				if c.Error != "" {
					fmt.Fprintf(out, "  search failed: %s\n", c.Error)
					continue
				}
				for _, m := range c.Matches {
					kcal := m.Ingredient.ReferenceNutrients.Value(nutrition.Calories)
					fmt.Fprintf(out, "  %s\t%s\t%.1f kcal/100g\n", m.Description, m.Brand, kcal)
				}
			}
			return nil
		})
	},
}

func recognizeOptions(cmd *cobra.Command, sqldb *sql.DB) (service.RecognizeOptions, error) {
	provider, err := primaryProvider(sqldb, recognizeProvider)
	if err != nil {
		return service.RecognizeOptions{}, err
	}
	opts := service.RecognizeOptions{
		Provider:      provider,
		MinConfidence: recognizeMinConfidence,
		MaxLabels:     recognizeLimit,
		PerLabel:      recognizePerLabel,
		Lookup:        lookupOptions(),
	}
	if !cmd.Flags().Changed("min-confidence") {
		stored, ok, err := service.GetConfig(sqldb, service.ConfigRecognitionMinScore)
		if err != nil {
			return service.RecognizeOptions{}, err
		}
		if ok {
			if opts.MinConfidence, err = strconv.ParseFloat(stored, 64); err != nil {
				return service.RecognizeOptions{}, fmt.Errorf("stored %s: %w", service.ConfigRecognitionMinScore, err)
			}
		}
	}
	return opts, nil
}

func init() {
	rootCmd.AddCommand(recognizeCmd)
	recognizeCmd.Flags().StringVar(&recognizeImage, "image", "", "Path to a JPEG or PNG photo")
	recognizeCmd.Flags().StringVar(&recognizeProvider, "provider", "", "Provider searched for each label")
	recognizeCmd.Flags().IntVar(&recognizeLimit, "limit", 3, "Max labels to search")
	recognizeCmd.Flags().IntVar(&recognizePerLabel, "per-label", 3, "Max matches per label")
	recognizeCmd.Flags().Float64Var(&recognizeMinConfidence, "min-confidence", 0, "Minimum label confidence (0-100)")
	recognizeCmd.Flags().BoolVar(&recognizeJSON, "json", false, "Output as JSON")
	_ = recognizeCmd.MarkFlagRequired("image")
}
