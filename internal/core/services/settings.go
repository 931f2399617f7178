package services

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDimensions = "embedding.dimensions"
	keyEmbedRPS        = "embedding.requests_per_second"

	keyLLMProvider    = "llm.provider"
	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMAPIKey      = "llm.api_key"
	keyLLMTemperature = "llm.temperature"

	keyChunkSize      = "index.chunk_size"
	keyChunkOverlap   = "index.chunk_overlap"
	keyAnchorSegments = "index.overlap_anchor_segments"
	keyBatchSize      = "index.batch_size"
	keyMaxWorkers     = "index.max_workers"
	keyTokenCeiling   = "index.token_ceiling"
	keyMaxRetries     = "index.max_retries"
	keyMaxSplitDepth  = "index.max_split_depth"
	keyRetryDelay     = "index.retry_base_delay"

	keyRelevanceFloor = "retrieval.relevance_floor"
	keyDefaultLimit   = "retrieval.default_limit"
	keySummaryLength  = "retrieval.summary_max_length"
	keySummaries      = "retrieval.summaries"

	keyBackend        = "storage.backend"
	keyVectorstoreDir = "storage.vectorstore_dir"
	keyTranscriptsDir = "storage.transcripts_dir"
	keyChannelsFile   = "storage.channels_file"
	keyPostgresDSN    = "storage.postgres_dsn"
)

// SettingsService reads and writes application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	validate    *validator.Validate
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		validate:    validator.New(),
	}
}

// Get returns the current settings with defaults applied. Invalid
// settings return an error wrapping domain.ErrConfigInvalid.
func (s *SettingsService) Get() (domain.Settings, error) {
	d := domain.DefaultSettings()
	embedProvider := s.getProvider(keyEmbedProvider, d.Embedding.Provider)
	llmProvider := s.getProvider(keyLLMProvider, d.LLM.Provider)

	settings := domain.Settings{
		Embedding: domain.EmbeddingSettings{
			Provider:          embedProvider,
			Model:             s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL),
			APIKey:            s.getString(keyEmbedAPIKey, providerKey(embedProvider)),
			Dimensions:        s.getInt(keyEmbedDimensions, d.Embedding.Dimensions),
			RequestsPerSecond: s.getFloat(keyEmbedRPS, d.Embedding.RequestsPerSecond),
		},
		LLM: domain.LLMSettings{
			Provider:    llmProvider,
			Model:       s.getString(keyLLMModel, d.LLM.Model),
			BaseURL:     s.configStore.GetString(keyLLMBaseURL),
			APIKey:      s.getString(keyLLMAPIKey, providerKey(llmProvider)),
			Temperature: s.getFloat(keyLLMTemperature, d.LLM.Temperature),
		},
		Index: domain.IndexSettings{
			ChunkSize:             s.getInt(keyChunkSize, d.Index.ChunkSize),
			ChunkOverlap:          s.getInt(keyChunkOverlap, d.Index.ChunkOverlap),
			OverlapAnchorSegments: s.getInt(keyAnchorSegments, d.Index.OverlapAnchorSegments),
			BatchSize:             s.getInt(keyBatchSize, d.Index.BatchSize),
			MaxWorkers:            s.getInt(keyMaxWorkers, d.Index.MaxWorkers),
			TokenCeiling:          s.getInt(keyTokenCeiling, d.Index.TokenCeiling),
			MaxRetries:            s.getInt(keyMaxRetries, d.Index.MaxRetries),
			MaxSplitDepth:         s.getInt(keyMaxSplitDepth, d.Index.MaxSplitDepth),
			RetryBaseDelay:        s.getDuration(keyRetryDelay, d.Index.RetryBaseDelay),
		},
		Retrieval: domain.RetrievalSettings{
			RelevanceFloor:   s.getFloat(keyRelevanceFloor, d.Retrieval.RelevanceFloor),
			DefaultLimit:     s.getInt(keyDefaultLimit, d.Retrieval.DefaultLimit),
			SummaryMaxLength: s.getInt(keySummaryLength, d.Retrieval.SummaryMaxLength),
			Summaries:        s.getBool(keySummaries, d.Retrieval.Summaries),
		},
		Storage: domain.StorageSettings{
			Backend:        domain.StorageBackend(s.getString(keyBackend, string(d.Storage.Backend))),
			VectorstoreDir: s.getString(keyVectorstoreDir, d.Storage.VectorstoreDir),
			TranscriptsDir: s.getString(keyTranscriptsDir, d.Storage.TranscriptsDir),
			ChannelsFile:   s.getString(keyChannelsFile, d.Storage.ChannelsFile),
			PostgresDSN:    s.configStore.GetString(keyPostgresDSN),
		},
	}

	if err := s.Validate(settings); err != nil {
		return settings, err
	}
	return settings, nil
}

// Validate checks settings against their struct constraints.
func (s *SettingsService) Validate(settings domain.Settings) error {
	err := s.validate.Struct(settings)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", domain.ErrConfigInvalid, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", domain.ErrConfigInvalid, strings.Join(msgs, "; "))
}

// Set stores one configuration value after checking the key is known.
func (s *SettingsService) Set(key string, value any) error {
	if !IsKnownKey(key) {
		return fmt.Errorf("%w: unknown config key %q", domain.ErrInvalidInput, key)
	}
	if err := s.configStore.Set(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Path returns the configuration file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

var knownKeys = map[string]struct{}{
	keyEmbedProvider: {}, keyEmbedModel: {}, keyEmbedBaseURL: {}, keyEmbedAPIKey: {},
	keyEmbedDimensions: {}, keyEmbedRPS: {},
	keyLLMProvider: {}, keyLLMModel: {}, keyLLMBaseURL: {}, keyLLMAPIKey: {}, keyLLMTemperature: {},
	keyChunkSize: {}, keyChunkOverlap: {}, keyAnchorSegments: {}, keyBatchSize: {},
	keyMaxWorkers: {}, keyTokenCeiling: {}, keyMaxRetries: {}, keyMaxSplitDepth: {}, keyRetryDelay: {},
	keyRelevanceFloor: {}, keyDefaultLimit: {}, keySummaryLength: {}, keySummaries: {},
	keyBackend: {}, keyVectorstoreDir: {}, keyTranscriptsDir: {}, keyChannelsFile: {}, keyPostgresDSN: {},
}

// IsKnownKey reports whether key is a recognised setting.
func IsKnownKey(key string) bool {
	_, ok := knownKeys[key]
	return ok
}

// KnownKeys returns every recognised setting key in sorted order.
func KnownKeys() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SettingsValues flattens settings into their config keys.
func SettingsValues(settings domain.Settings) map[string]any {
	return map[string]any{
		keyEmbedProvider:   string(settings.Embedding.Provider),
		keyEmbedModel:      settings.Embedding.Model,
		keyEmbedBaseURL:    settings.Embedding.BaseURL,
		keyEmbedAPIKey:     settings.Embedding.APIKey,
		keyEmbedDimensions: settings.Embedding.Dimensions,
		keyEmbedRPS:        settings.Embedding.RequestsPerSecond,

		keyLLMProvider:    string(settings.LLM.Provider),
		keyLLMModel:       settings.LLM.Model,
		keyLLMBaseURL:     settings.LLM.BaseURL,
		keyLLMAPIKey:      settings.LLM.APIKey,
		keyLLMTemperature: settings.LLM.Temperature,

		keyChunkSize:      settings.Index.ChunkSize,
		keyChunkOverlap:   settings.Index.ChunkOverlap,
		keyAnchorSegments: settings.Index.OverlapAnchorSegments,
		keyBatchSize:      settings.Index.BatchSize,
		keyMaxWorkers:     settings.Index.MaxWorkers,
		keyTokenCeiling:   settings.Index.TokenCeiling,
		keyMaxRetries:     settings.Index.MaxRetries,
		keyMaxSplitDepth:  settings.Index.MaxSplitDepth,
		keyRetryDelay:     settings.Index.RetryBaseDelay.String(),

		keyRelevanceFloor: settings.Retrieval.RelevanceFloor,
		keyDefaultLimit:   settings.Retrieval.DefaultLimit,
		keySummaryLength:  settings.Retrieval.SummaryMaxLength,
		keySummaries:      settings.Retrieval.Summaries,

		keyBackend:        string(settings.Storage.Backend),
		keyVectorstoreDir: settings.Storage.VectorstoreDir,
		keyTranscriptsDir: settings.Storage.TranscriptsDir,
		keyChannelsFile:   settings.Storage.ChannelsFile,
		keyPostgresDSN:    settings.Storage.PostgresDSN,
	}
}

// IsSecretKey reports whether the value of key must be masked on display.
func IsSecretKey(key string) bool {
	return key == keyEmbedAPIKey || key == keyLLMAPIKey || key == keyPostgresDSN
}

// providerKey reads the provider's API key from its environment variable.
func providerKey(p domain.AIProvider) string {
	if env := p.APIKeyEnv(); env != "" {
		return os.Getenv(env)
	}
	return ""
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	str := s.configStore.GetString(key)
	if str == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
