package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/platewise/platewise/model"
)

// EmbedderOptions configure the embedding client.
type EmbedderOptions struct {
	Model string
}

// Embedder turns text into vectors via the OpenAI Embeddings API. It
// satisfies the memory package's Embedder interface.
type Embedder struct {
	client *openai.Client
	opts   EmbedderOptions
}

// NewEmbedder creates an embedding client using ambient credentials.
func NewEmbedder(optFns ...func(o *EmbedderOptions)) *Embedder {
	client := openai.NewClient()
	return NewEmbedderFromClient(&client, optFns...)
}

// NewEmbedderFromClient creates an embedding client from an existing OpenAI client.
func NewEmbedderFromClient(client *openai.Client, optFns ...func(o *EmbedderOptions)) *Embedder {
	opts := EmbedderOptions{Model: string(openai.EmbeddingModelTextEmbedding3Small)}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Embedder{client: client, opts: opts}
}

// Embed returns the embedding vector for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.opts.Model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	if len(resp.Data) == 0 {
		return nil, model.NewInvocationError("openai", 0, fmt.Errorf("no embedding returned"))
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}

	return vec, nil
}
