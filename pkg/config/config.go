// Package config loads the building and server settings.
// 설정은 기본값 -> YAML 파일 -> 환경 변수(.env 포함) 순서로 적용됩니다.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"elevator-dispatch/pkg/elevator"
)

// MinTopFloor is the smallest building the simulator is configured for.
const MinTopFloor = 20

// Config holds every setting the commands need.
type Config struct {
	ID             string  `yaml:"id"`
	Port           string  `yaml:"port"`
	Debug          bool    `yaml:"debug"`
	TopFloor       int     `yaml:"topFloor"`
	ForbiddenFloor int     `yaml:"forbiddenFloor"`
	MaxCapacity    int     `yaml:"maxCapacity"`
	MaxWeight      float64 `yaml:"maxWeight"`
	PlaybackSpeed  float64 `yaml:"playbackSpeed"` // ticks per second, 0 = manual stepping
}

// Default returns the stock building.
func Default() Config {
	return Config{
		ID:             "car-1",
		Port:           "8080",
		TopFloor:       20,
		ForbiddenFloor: 13,
		MaxCapacity:    10,
		MaxWeight:      2000,
		PlaybackSpeed:  1,
	}
}

// Load reads envFile (a missing file is fine), then the YAML file named by
// ELEVATOR_CONFIG if any, then the environment, and validates the result.
func Load(envFile string) (Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := Default()
	if path := os.Getenv("ELEVATOR_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.loadEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("ELEVATOR_ID"); ok {
		c.ID = v
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		c.Port = v
	}
	if v, ok := lookup("DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DEBUG: %w", err)
		}
		c.Debug = b
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"TOP_FLOOR", &c.TopFloor},
		{"FORBIDDEN_FLOOR", &c.ForbiddenFloor},
		{"MAX_CAPACITY", &c.MaxCapacity},
	}
	for _, it := range ints {
		if v, ok := lookup(it.key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", it.key, err)
			}
			*it.dst = n
		}
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"MAX_WEIGHT", &c.MaxWeight},
		{"PLAYBACK_SPEED", &c.PlaybackSpeed},
	}
	for _, it := range floats {
		if v, ok := lookup(it.key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", it.key, err)
			}
			*it.dst = f
		}
	}
	return nil
}

// Validate checks the settings the dispatcher does not check itself.
func (c Config) Validate() error {
	if c.TopFloor < MinTopFloor {
		return fmt.Errorf("invalid config: TopFloor (%d) < %d", c.TopFloor, MinTopFloor)
	}
	if c.PlaybackSpeed < 0 {
		return fmt.Errorf("invalid config: PlaybackSpeed (%v) < 0", c.PlaybackSpeed)
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid config: Port %q: %w", c.Port, err)
	}
	return nil
}

// Elevator converts the settings into a dispatcher configuration.
func (c Config) Elevator() elevator.Config {
	return elevator.Config{
		ID:             c.ID,
		TopFloor:       c.TopFloor,
		ForbiddenFloor: c.ForbiddenFloor,
		MaxCapacity:    c.MaxCapacity,
		MaxWeight:      c.MaxWeight,
	}
}

// TickInterval is the time between ticks, or 0 for manual stepping.
func (c Config) TickInterval() time.Duration {
	if c.PlaybackSpeed == 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / c.PlaybackSpeed)
}
