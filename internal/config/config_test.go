package config

import (
	"os"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{}
	cfg.Embedding.Model = "text-embedding-3-small"
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()

	if cfg.Retrieval.QAThreshold != 0.85 {
		t.Errorf("qa_threshold default = %v, want 0.85", cfg.Retrieval.QAThreshold)
	}
	if cfg.Retrieval.ChunkThreshold != 0.70 {
		t.Errorf("chunk_threshold default = %v, want 0.70", cfg.Retrieval.ChunkThreshold)
	}
	if cfg.Retrieval.MaxQAMatches != 3 || cfg.Retrieval.MaxChunks != 5 {
		t.Errorf("result caps = %d/%d, want 3/5", cfg.Retrieval.MaxQAMatches, cfg.Retrieval.MaxChunks)
	}
	if cfg.Chunking.WindowSize != 500 || cfg.Chunking.Overlap != 50 {
		t.Errorf("chunking defaults = %d/%d, want 500/50", cfg.Chunking.WindowSize, cfg.Chunking.Overlap)
	}
	if cfg.Storage.Driver != "bolt" {
		t.Errorf("storage driver default = %q, want bolt", cfg.Storage.Driver)
	}
	if cfg.Storage.KeyPrefix != "recall:" {
		t.Errorf("key prefix default = %q, want recall:", cfg.Storage.KeyPrefix)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "sqlite" }, "storage.driver"},
		{"redis without addrs", func(c *Config) { c.Storage.Driver = "redis" }, "storage.addrs"},
		{"qa threshold above 1", func(c *Config) { c.Retrieval.QAThreshold = 1.5 }, "qa_threshold"},
		{"missing embedding model", func(c *Config) { c.Embedding.Model = "" }, "embedding.model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("RECALL_TEST_KEY", "sk-123")
	defer os.Unsetenv("RECALL_TEST_KEY")

	got := string(expandEnvVars([]byte("api_key: ${RECALL_TEST_KEY}\nmodel: ${RECALL_TEST_MISSING:-fallback}")))
	if !strings.Contains(got, "sk-123") {
		t.Errorf("env var not expanded: %s", got)
	}
	if !strings.Contains(got, "fallback") {
		t.Errorf("default value not applied: %s", got)
	}
}
