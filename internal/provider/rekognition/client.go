package rekognition

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

const (
	defaultMaxLabels     = 25
	defaultMinConfidence = 70
)

// Label is one food-related label detected in an image.
type Label struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

type detectLabelsAPI interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

type Client struct {
	api           detectLabelsAPI
	MaxLabels     int32
	MinConfidence float32
}

// New builds a client from the default AWS credential chain.
func New(ctx context.Context, region string) (*Client, error) {
	opts := []func(*config.LoadOptions) error{}
	if strings.TrimSpace(region) != "" {
		opts = append(opts, config.WithRegion(strings.TrimSpace(region)))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("AWS region is not set (use AWS_REGION or aws_region in config)")
	}
	return &Client{api: rekognition.NewFromConfig(cfg)}, nil
}

// DetectFoodLabels returns labels from the food categories of Rekognition,
// highest confidence first.
func (c *Client) DetectFoodLabels(ctx context.Context, image []byte) ([]Label, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("image is empty")
	}
	maxLabels := c.MaxLabels
	if maxLabels <= 0 {
		maxLabels = defaultMaxLabels
	}
	minConfidence := c.MinConfidence
	if minConfidence <= 0 {
		minConfidence = defaultMinConfidence
	}
	out, err := c.api.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: image},
		MaxLabels:     aws.Int32(maxLabels),
		MinConfidence: aws.Float32(minConfidence),
	})
	if err != nil {
		return nil, fmt.Errorf("detect labels: %w", err)
	}

	labels := make([]Label, 0, len(out.Labels))
	for _, l := range out.Labels {
		name := strings.TrimSpace(aws.ToString(l.Name))
		if name == "" || !isFoodLabel(l) {
			continue
		}
		labels = append(labels, Label{Name: name, Confidence: float64(aws.ToFloat32(l.Confidence))})
	}
	sort.SliceStable(labels, func(i, j int) bool { return labels[i].Confidence > labels[j].Confidence })
	return labels, nil
}

// genericLabels name the category itself rather than a dish.
var genericLabels = map[string]bool{
	"food":              true,
	"food and beverage": true,
	"meal":              true,
	"dish":              true,
	"produce":           true,
	"beverage":          true,
	"drink":             true,
}

func isFoodLabel(l types.Label) bool {
	if genericLabels[strings.ToLower(aws.ToString(l.Name))] {
		return false
	}
	for _, c := range l.Categories {
		if isFoodCategory(aws.ToString(c.Name)) {
			return true
		}
	}
	for _, p := range l.Parents {
		if isFoodCategory(aws.ToString(p.Name)) {
			return true
		}
	}
	return false
}

func isFoodCategory(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "food", "food and beverage", "fruit", "vegetable", "produce", "beverage", "dessert", "meal", "dish":
		return true
	default:
		return false
	}
}
