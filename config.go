package main

import (
	"encoding/json"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr       string `json:"addr"`
	BackendURL string `json:"backend_url"`
}

// loadConfig layers defaults, an optional JSON file, and environment
// variables (highest priority). A .env file is honored when present.
func loadConfig(path string) Config {
	godotenv.Load()

	cfg := Config{
		Addr:       ":8000",
		BackendURL: "http://localhost:5000",
	}

	if f, err := os.Open(path); err == nil {
		json.NewDecoder(f).Decode(&cfg)
		f.Close()
	}

	if v := os.Getenv("LECTERN_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("LECTERN_BACKEND_URL"); v != "" {
		cfg.BackendURL = v
	}
	return cfg
}
