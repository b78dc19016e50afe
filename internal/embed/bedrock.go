package embed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"golang.org/x/sync/errgroup"
)

// Bedrock defaults.
const (
	DefaultBedrockModel  = "amazon.titan-embed-text-v2:0"
	DefaultBedrockRegion = "us-east-1"
	bedrockConcurrency   = 4
)

// bedrockInvoker is the subset of the Bedrock runtime client used here.
type bedrockInvoker interface {
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type titanRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions,omitempty"`
	Normalize  bool   `json:"normalize"`
}

type titanResponse struct {
	Embedding           []float64 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// BedrockConfig configures BedrockEmbedder.
type BedrockConfig struct {
	Region     string
	Model      string
	Dimensions int
}

// BedrockEmbedder calls an Amazon Titan text embedding model. Titan takes
// one text per request, so batches fan out with bounded concurrency.
type BedrockEmbedder struct {
	client bedrockInvoker
	model  string
	dims   int
}

var _ Embedder = (*BedrockEmbedder)(nil)

// NewBedrockEmbedder loads AWS credentials from the default chain.
func NewBedrockEmbedder(ctx context.Context, cfg BedrockConfig) (*BedrockEmbedder, error) {
	if cfg.Region == "" {
		cfg.Region = DefaultBedrockRegion
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newBedrockEmbedder(ctx, bedrockruntime.NewFromConfig(awsCfg), cfg)
}

func newBedrockEmbedder(ctx context.Context, client bedrockInvoker, cfg BedrockConfig) (*BedrockEmbedder, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultBedrockModel
	}
	e := &BedrockEmbedder{client: client, model: cfg.Model, dims: cfg.Dimensions}
	if e.dims == 0 {
		probe, err := e.Embed(ctx, "dimension probe")
		if err != nil {
			return nil, fmt.Errorf("probe bedrock model %s: %w", cfg.Model, err)
		}
		e.dims = len(probe)
	}
	return e, nil
}

// Embed implements Embedder.
func (e *BedrockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(titanRequest{InputText: text, Dimensions: e.dims, Normalize: true})
	if err != nil {
		return nil, err
	}

	out, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(e.model),
		Body:        body,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("invoke bedrock model %s: %w", e.model, err)
	}

	var resp titanResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("decode bedrock response: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("bedrock model %s returned an empty embedding", e.model)
	}
	return toFloat32(resp.Embedding), nil
}

// EmbedBatch implements Embedder.
func (e *BedrockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bedrockConcurrency)
	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.Embed(gctx, text)
			if err != nil {
				return err
			}
			out[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Dimensions implements Embedder.
func (e *BedrockEmbedder) Dimensions() int { return e.dims }

// ModelName implements Embedder.
func (e *BedrockEmbedder) ModelName() string { return e.model }

// Available implements Embedder.
func (e *BedrockEmbedder) Available(context.Context) bool { return true }

// Close implements Embedder.
func (e *BedrockEmbedder) Close() error { return nil }
