package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"numrush/internal/game"
)

// DefaultPath is read when NUMRUSH_CONFIG is unset and the file exists.
const DefaultPath = "numrush.yaml"

type Config struct {
	Port          string        `yaml:"port"`
	BaseURL       string        `yaml:"base_url"`
	LogLevel      string        `yaml:"log_level"`
	LogFormat     string        `yaml:"log_format"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	CORSOrigins   []string      `yaml:"cors_origins"`
	Game          GameConfig    `yaml:"game"`
}

// GameConfig mirrors game.Settings in the config file.
type GameConfig struct {
	PointCount     int           `yaml:"point_count"`
	MaxPointCount  int           `yaml:"max_point_count"`
	AreaWidth      float64       `yaml:"area_width"`
	AreaHeight     float64       `yaml:"area_height"`
	PointSize      float64       `yaml:"point_size"`
	Margin         float64       `yaml:"margin"`
	OverlapGuard   int           `yaml:"overlap_guard"`
	HideDelay      time.Duration `yaml:"hide_delay"`
	AutoClickDelay time.Duration `yaml:"auto_click_delay"`
	TickInterval   time.Duration `yaml:"tick_interval"`
}

func Default() Config {
	s := game.DefaultSettings()
	return Config{
		Port:          "8080",
		LogLevel:      "info",
		LogFormat:     "console",
		SessionTTL:    30 * time.Minute,
		SweepInterval: time.Minute,
		Game: GameConfig{
			PointCount:     s.PointCount,
			MaxPointCount:  s.MaxPointCount,
			AreaWidth:      s.AreaWidth,
			AreaHeight:     s.AreaHeight,
			PointSize:      s.PointSize,
			Margin:         s.Margin,
			OverlapGuard:   s.OverlapGuard,
			HideDelay:      s.HideDelay,
			AutoClickDelay: s.AutoClickDelay,
			TickInterval:   s.TickInterval,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path and the
// environment, in that order. An empty path falls back to NUMRUSH_CONFIG and
// then to DefaultPath; a missing default file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("NUMRUSH_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		path = DefaultPath
	}
	if err := loadFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	cfg.Validate()
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.BaseURL = getEnv("BASE_URL", cfg.BaseURL)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.SessionTTL = getEnvAsDuration("SESSION_TTL", cfg.SessionTTL)
	cfg.SweepInterval = getEnvAsDuration("SWEEP_INTERVAL", cfg.SweepInterval)
	if origins := getEnv("CORS_ORIGINS", ""); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}

	g := &cfg.Game
	g.PointCount = getEnvAsInt("POINT_COUNT", g.PointCount)
	g.MaxPointCount = getEnvAsInt("MAX_POINT_COUNT", g.MaxPointCount)
	g.AreaWidth = getEnvAsFloat("AREA_WIDTH", g.AreaWidth)
	g.AreaHeight = getEnvAsFloat("AREA_HEIGHT", g.AreaHeight)
	g.PointSize = getEnvAsFloat("POINT_SIZE", g.PointSize)
	g.Margin = getEnvAsFloat("POINT_MARGIN", g.Margin)
	g.OverlapGuard = getEnvAsInt("OVERLAP_GUARD", g.OverlapGuard)
	g.HideDelay = getEnvAsDuration("HIDE_DELAY", g.HideDelay)
	g.AutoClickDelay = getEnvAsDuration("AUTO_CLICK_DELAY", g.AutoClickDelay)
	g.TickInterval = getEnvAsDuration("TICK_INTERVAL", g.TickInterval)
}

// Validate replaces out-of-range values with defaults or clamps them. It never fails.
func (c *Config) Validate() {
	d := Default()
	c.Port = strings.TrimPrefix(strings.TrimSpace(c.Port), ":")
	if c.Port == "" {
		c.Port = d.Port
	}
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.LogFormat != "json" {
		c.LogFormat = "console"
	}
	if c.SessionTTL < 0 {
		c.SessionTTL = 0
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = d.SweepInterval
	}

	s := c.Game.settings().Normalize()
	c.Game = GameConfig{
		PointCount:     s.PointCount,
		MaxPointCount:  s.MaxPointCount,
		AreaWidth:      s.AreaWidth,
		AreaHeight:     s.AreaHeight,
		PointSize:      s.PointSize,
		Margin:         s.Margin,
		OverlapGuard:   s.OverlapGuard,
		HideDelay:      s.HideDelay,
		AutoClickDelay: s.AutoClickDelay,
		TickInterval:   s.TickInterval,
	}
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return ":" + c.Port
}

// Settings converts the game section to engine settings.
func (c Config) Settings() game.Settings {
	return c.Game.settings().Normalize()
}

func (g GameConfig) settings() game.Settings {
	return game.Settings{
		PointCount:     g.PointCount,
		MaxPointCount:  g.MaxPointCount,
		AreaWidth:      g.AreaWidth,
		AreaHeight:     g.AreaHeight,
		PointSize:      g.PointSize,
		Margin:         g.Margin,
		OverlapGuard:   g.OverlapGuard,
		HideDelay:      g.HideDelay,
		AutoClickDelay: g.AutoClickDelay,
		TickInterval:   g.TickInterval,
	}
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("1.5s") or a bare number of milliseconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
