package config

import (
	"os"

	"github.com/joho/godotenv"
)

// envFiles are loaded in order. Variables already set are never overridden.
var envFiles = []string{".env", ".env.local"}

func loadEnvFiles() {
	for _, name := range envFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		_ = godotenv.Load(name)
	}
}

// applyEnv fills TLS paths from SSL_CERT_PATH and SSL_KEY_PATH when the file
// leaves them empty.
func applyEnv(cfg *Config) {
	if cfg.Server.TLS.CertFile == "" {
		cfg.Server.TLS.CertFile = os.Getenv("SSL_CERT_PATH")
	}
	if cfg.Server.TLS.KeyFile == "" {
		cfg.Server.TLS.KeyFile = os.Getenv("SSL_KEY_PATH")
	}
}
