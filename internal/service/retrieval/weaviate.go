package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// WeaviateSearcher implements Searcher against a weaviate document
// index. Queries are embedded through the OpenAI embeddings endpoint
// and matched with a near-vector search.
type WeaviateSearcher struct {
	client          *weaviate.Client
	embedder        *openai.Client
	className       string
	embeddingsModel string
	logger          *slog.Logger
}

// NewWeaviateSearcher creates a new WeaviateSearcher
func NewWeaviateSearcher(client *weaviate.Client, embedder *openai.Client, className, embeddingsModel string, logger *slog.Logger) *WeaviateSearcher {
	return &WeaviateSearcher{
		client:          client,
		embedder:        embedder,
		className:       className,
		embeddingsModel: embeddingsModel,
		logger:          logger,
	}
}

// SimilaritySearch embeds the query and returns the top-k chunks in
// scope: (user AND thread) OR persona.
func (s *WeaviateSearcher) SimilaritySearch(ctx context.Context, query string, k int, f Filter) ([]Result, error) {
	embedding, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(embedding)

	fields := []graphql.Field{
		{Name: "chunkId"},
		{Name: "documentId"},
		{Name: "fileName"},
		{Name: "pageContent"},
		{Name: "_additional { id certainty }"},
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(s.className).
		WithFields(fields...).
		WithWhere(s.scopeFilter(f)).
		WithNearVector(nearVector).
		WithLimit(k).
		Do(ctx)

	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("similarity search: %s", result.Errors[0].Message)
	}

	return s.parseResults(result), nil
}

// HasPersonaDocuments implements Searcher with a limit-1 existence
// query, no embedding round trip.
func (s *WeaviateSearcher) HasPersonaDocuments(ctx context.Context, personaID string) (bool, error) {
	result, err := s.client.GraphQL().Get().
		WithClassName(s.className).
		WithFields(graphql.Field{Name: "_additional { id }"}).
		WithWhere(filters.Where().
			WithPath([]string{"personaId"}).
			WithOperator(filters.Equal).
			WithValueString(personaID)).
		WithLimit(1).
		Do(ctx)

	if err != nil {
		return false, fmt.Errorf("persona document lookup: %w", err)
	}
	if len(result.Errors) > 0 {
		return false, fmt.Errorf("persona document lookup: %s", result.Errors[0].Message)
	}

	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return false, nil
	}
	objects, ok := data[s.className].([]interface{})
	return ok && len(objects) > 0, nil
}

func (s *WeaviateSearcher) embedQuery(ctx context.Context, query string) ([]float32, error) {
	resp, err := s.embedder.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{query},
		Model: openai.EmbeddingModel(s.embeddingsModel),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}

func (s *WeaviateSearcher) scopeFilter(f Filter) *filters.WhereBuilder {
	userScope := filters.Where().
		WithOperator(filters.And).
		WithOperands([]*filters.WhereBuilder{
			filters.Where().
				WithPath([]string{"user"}).
				WithOperator(filters.Equal).
				WithValueString(f.HashedUserID),
			filters.Where().
				WithPath([]string{"chatThreadId"}).
				WithOperator(filters.Equal).
				WithValueString(f.ThreadID),
		})

	if f.PersonaID == "" {
		return userScope
	}

	return filters.Where().
		WithOperator(filters.Or).
		WithOperands([]*filters.WhereBuilder{
			userScope,
			filters.Where().
				WithPath([]string{"personaId"}).
				WithOperator(filters.Equal).
				WithValueString(f.PersonaID),
		})
}

func (s *WeaviateSearcher) parseResults(result *models.GraphQLResponse) []Result {
	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return []Result{}
	}

	objects, ok := data[s.className].([]interface{})
	if !ok {
		return []Result{}
	}

	results := make([]Result, 0, len(objects))
	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue // skip malformed objects
		}

		r := Result{
			ID:         getString(m, "chunkId"),
			DocumentID: getString(m, "documentId"),
			FileName:   getString(m, "fileName"),
			Passage:    getString(m, "pageContent"),
		}

		if additional, ok := m["_additional"].(map[string]interface{}); ok {
			if r.ID == "" {
				r.ID = getString(additional, "id")
			}
			if certainty, ok := additional["certainty"].(float64); ok {
				r.Score = certainty
			}
		}

		results = append(results, r)
	}

	return results
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
