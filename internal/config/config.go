package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/menta2k/image-cropper/pkg/focus"
	"github.com/menta2k/image-cropper/pkg/viewport"
)

// Config holds the application configuration
type Config struct {
	Viewport viewport.Viewport `json:"viewport" yaml:"viewport"`
	Pan      PanConfig         `json:"pan" yaml:"pan"`
	Scale    ScaleConfig       `json:"scale" yaml:"scale"`
	Crop     CropConfig        `json:"crop" yaml:"crop"`
	Analyzer AnalyzerConfig    `json:"analyzer" yaml:"analyzer"`
	Focus    FocusConfig       `json:"focus" yaml:"focus"`
	Output   OutputConfig      `json:"output" yaml:"output"`
}

// PanConfig selects how pan positions are expressed
type PanConfig struct {
	Convention string `json:"convention" yaml:"convention"`
}

// ScaleConfig bounds the user zoom multiplier
type ScaleConfig struct {
	MinMultiplier float64 `json:"min_multiplier" yaml:"min_multiplier"`
	MaxMultiplier float64 `json:"max_multiplier" yaml:"max_multiplier"`
	Step          float64 `json:"step" yaml:"step"`
}

// CropConfig holds configuration for crop rectangle computation
type CropConfig struct {
	ClampToImage bool `json:"clamp_to_image" yaml:"clamp_to_image"`
}

// AnalyzerConfig holds configuration for image size lookup
type AnalyzerConfig struct {
	SupportedFormats []string `json:"supported_formats" yaml:"supported_formats"`
	MinImageSize     int      `json:"min_image_size" yaml:"min_image_size"`
}

// FocusConfig holds configuration for initial framing
type FocusConfig struct {
	Strategy      string  `json:"strategy" yaml:"strategy"`
	Cascade       string  `json:"cascade" yaml:"cascade"`
	Backend       string  `json:"backend" yaml:"backend"`
	URL           string  `json:"url" yaml:"url"`
	Model         string  `json:"model" yaml:"model"`
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Format    string `json:"format" yaml:"format"`
	Quality   int    `json:"quality" yaml:"quality"`
	Lossless  bool   `json:"lossless" yaml:"lossless"`
	OutputDir string `json:"output_dir" yaml:"output_dir"`
	Prefix    string `json:"prefix" yaml:"prefix"`
	Suffix    string `json:"suffix" yaml:"suffix"`
}

// Default returns a configuration with default values
func Default() *Config {
	vc := viewport.DefaultConfig()
	return &Config{
		Viewport: vc.Viewport,
		Pan:      PanConfig{Convention: vc.Convention.String()},
		Scale: ScaleConfig{
			MinMultiplier: vc.MinMultiplier,
			MaxMultiplier: vc.MaxMultiplier,
			Step:          vc.MultiplierStep,
		},
		Crop: CropConfig{ClampToImage: vc.ClampToImage},
		Analyzer: AnalyzerConfig{
			SupportedFormats: []string{"jpeg", "png", "webp"},
			MinImageSize:     1,
		},
		Focus: FocusConfig{
			Strategy:      string(focus.StrategyCenter),
			Backend:       "ollama",
			URL:           "http://localhost:11434",
			Model:         "llava:7b",
			MinConfidence: 0.3,
		},
		Output: OutputConfig{
			Format:    "jpg",
			Quality:   90,
			OutputDir: "./output",
			Suffix:    "_cropped",
		},
	}
}

func isYAML(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".yaml" || ext == ".yml"
}

// LoadFromFile loads configuration from a JSON or YAML file, chosen by
// extension. Keys missing from the file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if isYAML(filename) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON or YAML file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(filename) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// EngineConfig converts the viewport, pan, scale and crop sections into a
// viewport engine configuration
func (c *Config) EngineConfig() (viewport.Config, error) {
	convention, err := viewport.ParsePanConvention(c.Pan.Convention)
	if err != nil {
		return viewport.Config{}, fmt.Errorf("pan.convention: %w", err)
	}
	return viewport.Config{
		Viewport:       c.Viewport,
		Convention:     convention,
		MinMultiplier:  c.Scale.MinMultiplier,
		MaxMultiplier:  c.Scale.MaxMultiplier,
		MultiplierStep: c.Scale.Step,
		ClampToImage:   c.Crop.ClampToImage,
	}, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	ec, err := c.EngineConfig()
	if err != nil {
		return err
	}
	if err := ec.Validate(); err != nil {
		return err
	}

	if c.Analyzer.MinImageSize < 1 {
		return fmt.Errorf("analyzer.min_image_size must be positive")
	}

	strategy, err := focus.ParseStrategy(c.Focus.Strategy)
	if err != nil {
		return fmt.Errorf("focus.strategy: %w", err)
	}
	if strategy == focus.StrategyFace && c.Focus.Cascade == "" {
		return fmt.Errorf("focus.cascade is required for the face strategy")
	}
	if strategy == focus.StrategyVision {
		switch c.Focus.Backend {
		case "ollama", "llamacpp":
		default:
			return fmt.Errorf("focus.backend must be ollama or llamacpp, got %q", c.Focus.Backend)
		}
		if c.Focus.Model == "" {
			return fmt.Errorf("focus.model is required for the vision strategy")
		}
	}
	if c.Focus.MinConfidence < 0 || c.Focus.MinConfidence > 1 {
		return fmt.Errorf("focus.min_confidence must be between 0 and 1")
	}

	switch strings.ToLower(c.Output.Format) {
	case "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("output.format must be jpg, png or webp, got %q", c.Output.Format)
	}
	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "image-cropper", "config.json")
}
