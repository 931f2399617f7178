package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic messages API. LLM only.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// SupportsEmbedding returns true if the provider offers an embeddings API.
func (p AIProvider) SupportsEmbedding() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI
}

// APIKeyEnv names the environment variable read when no key is configured.
func (p AIProvider) APIKeyEnv() string {
	switch p {
	case AIProviderOpenAI:
		return "OPENAI_API_KEY"
	case AIProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return ""
	}
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud, summaries only)"
	default:
		return unknownDescription
	}
}

// StorageBackend selects the similarity store implementation.
type StorageBackend string

// Available storage backends.
const (
	StorageSQLite   StorageBackend = "sqlite"
	StoragePostgres StorageBackend = "postgres"
)

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions overrides the model's default vector size.
	Dimensions int `validate:"gte=0"`

	// RequestsPerSecond caps embedding calls. Zero disables limiting.
	RequestsPerSecond float64 `validate:"gte=0"`
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.SupportsEmbedding() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Temperature is the sampling temperature for summaries.
	Temperature float64 `validate:"gte=0,lte=2"`
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// IndexSettings tunes chunking and embedding batches.
type IndexSettings struct {
	ChunkSize    int `validate:"gt=0"`
	ChunkOverlap int `validate:"gte=0,ltfield=ChunkSize"`

	// OverlapAnchorSegments is how many trailing segments of a closed
	// chunk the next chunk may re-anchor its start time to.
	OverlapAnchorSegments int `validate:"gt=0"`

	BatchSize  int `validate:"gt=0"`
	MaxWorkers int `validate:"gt=0"`

	// TokenCeiling is the per-request budget checked before submission.
	TokenCeiling int `validate:"gt=0"`

	MaxRetries     int           `validate:"gt=0"`
	MaxSplitDepth  int           `validate:"gt=0"`
	RetryBaseDelay time.Duration `validate:"gte=0"`
}

// RetrievalSettings tunes ranking and summaries.
type RetrievalSettings struct {
	// RelevanceFloor drops results scoring below it.
	RelevanceFloor float64 `validate:"gte=0,lte=1"`

	DefaultLimit     int `validate:"gte=1,lte=20"`
	SummaryMaxLength int `validate:"gt=3"`
	Summaries        bool
}

// StorageSettings locates transcripts, registry and stores.
type StorageSettings struct {
	Backend        StorageBackend `validate:"oneof=sqlite postgres"`
	VectorstoreDir string         `validate:"required"`
	TranscriptsDir string         `validate:"required"`
	ChannelsFile   string
	PostgresDSN    string `validate:"required_if=Backend postgres"`
}

// Settings holds all application settings.
type Settings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Index     IndexSettings
	Retrieval RetrievalSettings
	Storage   StorageSettings
}

// Default tuning values.
const (
	DefaultChunkSize             = 1000
	DefaultChunkOverlap          = 200
	DefaultOverlapAnchorSegments = 3
	DefaultBatchSize             = 50
	DefaultMaxWorkers            = 4
	DefaultTokenCeiling          = 200000
	DefaultMaxRetries            = 3
	DefaultMaxSplitDepth         = 16
	DefaultRetryBaseDelay        = time.Second
	DefaultRelevanceFloor        = 0.7
	DefaultSummaryMaxLength      = 150
	DefaultEmbeddingModel        = "text-embedding-ada-002"
	DefaultLLMModel              = "gpt-4o-mini"
	DefaultLLMTemperature        = 0.1
)

// DefaultSettings returns settings with sensible defaults.
// AI providers default to OpenAI; the API key comes from the environment.
func DefaultSettings() Settings {
	return Settings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOpenAI,
			Model:    DefaultEmbeddingModel,
		},
		LLM: LLMSettings{
			Provider:    AIProviderOpenAI,
			Model:       DefaultLLMModel,
			Temperature: DefaultLLMTemperature,
		},
		Index: IndexSettings{
			ChunkSize:             DefaultChunkSize,
			ChunkOverlap:          DefaultChunkOverlap,
			OverlapAnchorSegments: DefaultOverlapAnchorSegments,
			BatchSize:             DefaultBatchSize,
			MaxWorkers:            DefaultMaxWorkers,
			TokenCeiling:          DefaultTokenCeiling,
			MaxRetries:            DefaultMaxRetries,
			MaxSplitDepth:         DefaultMaxSplitDepth,
			RetryBaseDelay:        DefaultRetryBaseDelay,
		},
		Retrieval: RetrievalSettings{
			RelevanceFloor:   DefaultRelevanceFloor,
			DefaultLimit:     DefaultSearchLimit,
			SummaryMaxLength: DefaultSummaryMaxLength,
			Summaries:        true,
		},
		Storage: StorageSettings{
			Backend:        StorageSQLite,
			VectorstoreDir: "./data/vectorstore",
			TranscriptsDir: "./data/2-target",
			ChannelsFile:   "./data/channels.json",
		},
	}
}
