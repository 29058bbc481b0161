// Package config holds the deployment knobs of the trivia service. The two
// backend sections double as topology switches: an empty redis addr keeps the
// record store in-process (single instance only), and an empty postgres url
// serves the built-in demo bank instead of the question_banks table.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	// Redis backs the shared record store (games, players, answers) and the
	// bank cache. TTL bounds how long an abandoned room's keys linger.
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	// Postgres holds only the static question_banks table.
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	// Bank selects which question bank hosted games run through.
	Bank struct {
		ID  string `yaml:"id"`
		TTL string `yaml:"ttl"`
	} `yaml:"bank"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
