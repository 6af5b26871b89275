package config

import (
	"os"
)

type Config struct {
	Port            string
	Environment     string
	SupabaseURL     string
	SupabaseKey     string
	SupabaseDBURL   string
	SupabaseJWKSURL string // Constructed from SupabaseURL + /auth/v1/.well-known/jwks.json
	CORSOrigins     string
	TablePrefix     string
	// Provider configuration
	OpenAIAPIKey    string
	OpenAIBaseURL   string // Optional override for gateway/proxy deployments
	MistralAPIKey   string
	MistralBaseURL  string // Chat-completions-compatible alternate vendor endpoint
	AssistantID     string // Provider-side assistant used by the assistant strategy
	DALLEModel      string
	EmbeddingsModel string
	// Retrieval configuration
	WeaviateHost   string
	WeaviateScheme string
	WeaviateClass  string
	// Tool collaborators
	ImageStoreDir  string // Directory for generated image files
	PublicBaseURL  string // External base URL used in generated image links
	DeckServiceURL string // Deck export collaborator endpoint
	DeckServiceKey string // Optional bearer key for the deck collaborator
	// Debug flags
	Debug bool // Enables DEBUG features like SSE event IDs
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	tablePrefix := getTablePrefix(env)
	supabaseURL := getEnv("SUPABASE_URL", "")

	// Construct JWKS URL from Supabase URL
	jwksURL := supabaseURL + "/auth/v1/.well-known/jwks.json"

	return &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     env,
		SupabaseURL:     supabaseURL,
		SupabaseKey:     getEnv("SUPABASE_KEY", ""),
		SupabaseDBURL:   getEnv("SUPABASE_DB_URL", ""),
		SupabaseJWKSURL: jwksURL,
		CORSOrigins:     getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix:     tablePrefix,
		// Provider configuration
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		MistralAPIKey:   getEnv("MISTRAL_API_KEY", ""),
		MistralBaseURL:  getEnv("MISTRAL_BASE_URL", "https://api.mistral.ai/v1"),
		AssistantID:     getEnv("ASSISTANT_ID", ""),
		DALLEModel:      getEnv("DALLE_MODEL", "dall-e-3"),
		EmbeddingsModel: getEnv("EMBEDDINGS_MODEL", "text-embedding-3-small"),
		// Retrieval configuration
		WeaviateHost:   getEnv("WEAVIATE_HOST", "localhost:8090"),
		WeaviateScheme: getEnv("WEAVIATE_SCHEME", "http"),
		WeaviateClass:  getEnv("WEAVIATE_CLASS", "DocumentChunk"),
		// Tool collaborators
		ImageStoreDir:  getEnv("IMAGE_STORE_DIR", "./data/images"),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:"+getEnv("PORT", "8080")),
		DeckServiceURL: getEnv("DECK_SERVICE_URL", ""),
		DeckServiceKey: getEnv("DECK_SERVICE_KEY", ""),
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true" // Enable DEBUG in dev/test by default
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	// Auto-generate based on environment
	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	case "dev":
		return "dev_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
