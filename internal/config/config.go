package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PathsConfig holds the on-disk layout of pipeline inputs and artifacts.
type PathsConfig struct {
	Archives       string `yaml:"archives"`
	ExtractedFiles string `yaml:"extracted_files"`
	ExtractedText  string `yaml:"extracted_text"`
	Chunks         string `yaml:"chunks"`
	Embeddings     string `yaml:"embeddings"`
	Index          string `yaml:"index"`
}

// OCRConfig configures the external OCR engine.
type OCRConfig struct {
	Binary      string `yaml:"binary"`
	Languages   string `yaml:"languages"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// ChunkerConfig configures how cleaned text is split into chunks.
type ChunkerConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	Overlap   int `yaml:"overlap"`
}

// OpenAIEmbedderConfig holds configuration for the remote embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// GeneratorConfig configures the chat-completion backend of the answer
// pipeline.
type GeneratorConfig struct {
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// SearchConfig holds query-time defaults.
type SearchConfig struct {
	TopK          int     `yaml:"top_k"`
	MinSimilarity float64 `yaml:"min_similarity"`
}

// ContextConfig bounds the assembled answer context.
type ContextConfig struct {
	MaxTokens int `yaml:"max_tokens"`
}

// AppConfig is the root application configuration structure. It is built
// once at process start and handed to component constructors.
type AppConfig struct {
	Paths     PathsConfig     `yaml:"paths"`
	OCR       OCRConfig       `yaml:"ocr"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Generator GeneratorConfig `yaml:"generator"`
	Search    SearchConfig    `yaml:"search"`
	Context   ContextConfig   `yaml:"context"`
}

// Load reads a config from a specified path. If the file does not exist,
// returns defaults. The file is decoded over a pre-populated default
// config, so an omitted field keeps its default while an explicit zero
// (`overlap: 0`, `min_similarity: 0`) stays zero.
func Load(path string) (*AppConfig, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			finishConfig(cfg)
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	finishConfig(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/georag/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	finishConfig(cfg)
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "georag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Paths: PathsConfig{
			Archives:       "tiff_reports",
			ExtractedFiles: "data/extracted_files",
			ExtractedText:  "data/extracted_text",
			Chunks:         "data/processed_chunks",
			Embeddings:     "data/embeddings",
		},
		OCR:       OCRConfig{Binary: "tesseract", Languages: "rus", TimeoutSecs: 120},
		Chunker:   ChunkerConfig{ChunkSize: 1000, Overlap: 200},
		Embedder:  EmbedderConfig{Type: "tfidf"},
		Generator: GeneratorConfig{APIKeyEnv: "OPENAI_API_KEY", Model: "gpt-3.5-turbo", MaxTokens: 1500, Temperature: 0.3, TimeoutSecs: 60},
		Search:    SearchConfig{TopK: 5, MinSimilarity: 0.01},
		Context:   ContextConfig{MaxTokens: 6000},
	}
	return cfg
}

// finishConfig fills the fields that cannot be pre-populated before
// decoding: the index path derives from the embeddings directory, and the
// optional openai block only exists once the user writes it.
func finishConfig(cfg *AppConfig) {
	if cfg.Paths.Index == "" {
		cfg.Paths.Index = filepath.Join(cfg.Paths.Embeddings, "search_index.gob")
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}
}
