package embedding

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// DefaultModelID is the Titan embeddings model used unless configured
// otherwise.
const DefaultModelID = "amazon.titan-embed-text-v2:0"

// Titan text embedding request format (what Bedrock expects)
type titanEmbedRequest struct {
	InputText string `json:"inputText"`
}

// Titan text embedding response format (what Bedrock returns)
type titanEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// BedrockEmbedder computes embeddings via Amazon Titan on Bedrock.
type BedrockEmbedder struct {
	client  *bedrockruntime.Client
	modelID string
}

func NewBedrockEmbedder(client *bedrockruntime.Client, modelID string) *BedrockEmbedder {
	if modelID == "" {
		modelID = DefaultModelID
	}
	return &BedrockEmbedder{
		client:  client,
		modelID: modelID,
	}
}

func (e *BedrockEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(titanEmbedRequest{InputText: text})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrEmbeddingFailed, err)
	}

	output, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &e.modelID,
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: invoke %s: %v", ErrEmbeddingFailed, e.modelID, err)
	}

	var response titanEmbedResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return nil, fmt.Errorf("%w: unmarshal response: %v", ErrEmbeddingFailed, err)
	}

	if len(response.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", ErrEmbeddingFailed)
	}

	return response.Embedding, nil
}

// GenerateBatchEmbeddings embeds texts one by one; Titan has no batch
// endpoint. The first failure aborts the whole batch.
func (e *BedrockEmbedder) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(texts))
	for i, text := range texts {
		embedding, err := e.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		embeddings = append(embeddings, embedding)
	}
	return embeddings, nil
}
