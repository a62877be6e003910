// Package config loads application configuration from the environment
// and an optional TOML tunables file.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/atelier-labs/ragdrive/internal/logger"
)

// DefaultAddr is the HTTP listen address when RAGDRIVE_ADDR is unset.
const DefaultAddr = ":8080"

// DefaultTunablesFile is the optional TOML file with pipeline tunables,
// looked up in the working directory.
const DefaultTunablesFile = "ragdrive.toml"

// Config holds everything needed to wire the application.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// Google Drive credentials. Either ServiceAccountKey or the OAuth
	// triple must be set.
	ServiceAccountKey string
	ClientID          string
	ClientSecret      string
	RefreshToken      string

	// FolderID is the default Drive folder to ingest when a request
	// does not name one.
	FolderID string

	// GeminiAPIKey authenticates embedding and generation calls.
	GeminiAPIKey string

	// PineconeAPIKey and PineconeIndex configure the vector store.
	PineconeAPIKey string
	PineconeIndex  string

	// Tunables are optional pipeline overrides.
	Tunables Tunables
}

// Tunables are the optional overrides read from ragdrive.toml. Zero
// values mean "use the built-in default".
type Tunables struct {
	// MaxChunkSize is the soft chunk size ceiling in characters.
	MaxChunkSize int `toml:"max_chunk_size"`

	// OverlapSize is the character overlap seeded between chunks.
	OverlapSize int `toml:"overlap_size"`

	// EmbeddingModels overrides the embedding model fallback list.
	EmbeddingModels []string `toml:"embedding_models"`

	// GenerationModels overrides the generation model fallback list.
	GenerationModels []string `toml:"generation_models"`

	// TopK is the number of chunks retrieved per question.
	TopK int `toml:"top_k"`

	// CacheEntries bounds the embedding cache.
	CacheEntries int `toml:"cache_entries"`

	// CacheTTLMinutes is the embedding cache expiry in minutes.
	CacheTTLMinutes int `toml:"cache_ttl_minutes"`
}

// Load reads configuration from the environment, after loading a .env
// file if one is present, and merges tunables from ragdrive.toml if it
// exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := &Config{
		Addr:              envOr("RAGDRIVE_ADDR", DefaultAddr),
		ServiceAccountKey: os.Getenv("GOOGLE_SERVICE_ACCOUNT_KEY"),
		ClientID:          os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret:      os.Getenv("GOOGLE_CLIENT_SECRET"),
		RefreshToken:      os.Getenv("GOOGLE_REFRESH_TOKEN"),
		FolderID:          os.Getenv("GOOGLE_DRIVE_FOLDER_ID"),
		GeminiAPIKey:      os.Getenv("GOOGLE_AI_API_KEY"),
		PineconeAPIKey:    os.Getenv("PINECONE_API_KEY"),
		PineconeIndex:     os.Getenv("PINECONE_INDEX_NAME"),
	}

	if err := loadTunables(DefaultTunablesFile, &cfg.Tunables); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadTunables merges the TOML tunables file into dst. A missing file
// is not an error.
func loadTunables(path string, dst *Tunables) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	logger.Debug("loaded tunables from %s", path)
	return nil
}

func (c *Config) validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("config: GOOGLE_AI_API_KEY is required")
	}
	if c.PineconeAPIKey == "" {
		return fmt.Errorf("config: PINECONE_API_KEY is required")
	}
	if c.PineconeIndex == "" {
		return fmt.Errorf("config: PINECONE_INDEX_NAME is required")
	}

	hasServiceAccount := c.ServiceAccountKey != ""
	hasOAuth := c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
	if !hasServiceAccount && !hasOAuth {
		return fmt.Errorf("config: set GOOGLE_SERVICE_ACCOUNT_KEY or the GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET/GOOGLE_REFRESH_TOKEN triple")
	}
	return nil
}

// envOr returns the value of key, or fallback when unset.
func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
