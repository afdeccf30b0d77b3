// Package config provides configuration loading and structs for the embex server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Models     ModelsConfig     `yaml:"models"`
	Reduction  ReductionConfig  `yaml:"reduction"`
	Similarity SimilarityConfig `yaml:"similarity"`
	Build      BuildConfig      `yaml:"build"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	APIPrefix      string        `yaml:"api_prefix"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BaseURL is the address CLI client commands talk to.
func (s ServerConfig) BaseURL() string {
	return "http://" + s.Addr() + s.APIPrefix
}

// ModelsConfig locates the model artifacts.
type ModelsConfig struct {
	Dir          string `yaml:"dir"`
	TFIDFFile    string `yaml:"tfidf_file"`
	CBOWFile     string `yaml:"cbow_file"`
	SkipGramFile string `yaml:"skipgram_file"`
	LexiconFile  string `yaml:"lexicon_file"`
	// Watch reloads models when their artifacts change on disk.
	Watch bool `yaml:"watch"`
}

// Path joins a file name onto Dir unless it is already absolute.
func (m ModelsConfig) Path(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(m.Dir, file)
}

// ReductionConfig holds defaults and bounds of the visualization endpoints.
type ReductionConfig struct {
	DefaultMethod     string  `yaml:"default_method"`
	DefaultNumWords   int     `yaml:"default_num_words"`
	MinNumWords       int     `yaml:"min_num_words"`
	MaxNumWords       int     `yaml:"max_num_words"`
	DefaultPerplexity int     `yaml:"default_perplexity"`
	MinPerplexity     int     `yaml:"min_perplexity"`
	MaxPerplexity     int     `yaml:"max_perplexity"`
	TSNEIterations    int     `yaml:"tsne_iterations"`
	TSNELearningRate  float64 `yaml:"tsne_learning_rate"`
	Seed              int64   `yaml:"seed"`
	// CacheCapacity bounds the projection cache; 0 keeps every entry.
	CacheCapacity int `yaml:"cache_capacity"`
}

// SimilarityConfig holds defaults and bounds of the similarity endpoints.
type SimilarityConfig struct {
	DefaultTopN      int `yaml:"default_topn"`
	MaxTopN          int `yaml:"max_topn"`
	BatchDefaultTopN int `yaml:"batch_default_topn"`
	BatchMaxTopN     int `yaml:"batch_max_topn"`
	MaxBatch         int `yaml:"max_batch"`
	NeighborsDefault int `yaml:"neighbors_default"`
	NeighborsMin     int `yaml:"neighbors_min"`
	NeighborsMax     int `yaml:"neighbors_max"`
	Suggestions      int `yaml:"suggestions"`
	// SuggestionMinFrequency hides suggestions rarer than this corpus count.
	SuggestionMinFrequency int `yaml:"suggestion_min_frequency"`
}

// BuildConfig holds settings of the offline TF-IDF build.
type BuildConfig struct {
	CorpusDir     string   `yaml:"corpus_dir"`
	Extensions    []string `yaml:"extensions"`
	ChunkSize     int      `yaml:"chunk_size"`
	ChunkOverlap  int      `yaml:"chunk_overlap"`
	Dimensions    int      `yaml:"dimensions"`
	MinWordLength int      `yaml:"min_word_length"`
	StopWords     []string `yaml:"stop_words"`
}

// Load reads and parses the config file at path, applies environment overrides
// (including a .env file next to the config), applies defaults and expands paths.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	configDir := filepath.Dir(path)
	if err := LoadDotEnv(filepath.Join(configDir, ".env")); err != nil {
		return nil, err
	}
	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	expandPaths(&cfg, configDir)
	return &cfg, nil
}

// Default returns a fully defaulted config with paths relative to the working directory.
func Default() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	if err := LoadDotEnv(filepath.Join(cwd, ".env")); err != nil {
		return nil, err
	}
	var cfg Config
	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	expandPaths(&cfg, cwd)
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// LoadDotEnv loads the given .env files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg from API_HOST, API_PORT, CORS_ORIGINS, EMBEX_MODELS_DIR and EMBEX_DEBUG.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv("API_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid API_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("EMBEX_MODELS_DIR"); v != "" {
		cfg.Models.Dir = v
	}
	if v := os.Getenv("EMBEX_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid EMBEX_DEBUG %q: %w", v, err)
		}
		cfg.Debug = debug
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func expandPaths(cfg *Config, configDir string) {
	cfg.Models.Dir = expandPath(cfg.Models.Dir, configDir)
	if cfg.Build.CorpusDir != "" {
		cfg.Build.CorpusDir = expandPath(cfg.Build.CorpusDir, configDir)
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
