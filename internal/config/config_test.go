package config

import (
	"path/filepath"
	"testing"
)

// setBaseEnv sets the required key and points writable paths at a temp dir.
func setBaseEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GOOGLE_API_KEY", "test-key")
	t.Setenv("DB_PATH", filepath.Join(dir, "data", "test.db"))
	t.Setenv("UPLOAD_DIR", filepath.Join(dir, "uploads"))
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.GeminiModel != "gemini-2.5-flash" {
		t.Errorf("GeminiModel = %q", cfg.GeminiModel)
	}
	if cfg.QdrantCollection != "documents" {
		t.Errorf("QdrantCollection = %q", cfg.QdrantCollection)
	}
	if cfg.QdrantVectorSize != 768 {
		t.Errorf("QdrantVectorSize = %d", cfg.QdrantVectorSize)
	}
	if cfg.ChunkSize != 1000 || cfg.ChunkOverlap != 200 {
		t.Errorf("chunking = %d/%d, want 1000/200", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.TopK != 4 {
		t.Errorf("TopK = %d, want 4", cfg.TopK)
	}
	if cfg.RateLimit != 25 || cfg.RateWindowHours != 1 {
		t.Errorf("rate limit = %d/%dh, want 25/1h", cfg.RateLimit, cfg.RateWindowHours)
	}
	if cfg.HistoryLimit != 50 {
		t.Errorf("HistoryLimit = %d, want 50", cfg.HistoryLimit)
	}
	if cfg.APIPort != "8000" {
		t.Errorf("APIPort = %q, want 8000", cfg.APIPort)
	}
}

func TestLoad_MissingAPIKey(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("GOOGLE_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error without GOOGLE_API_KEY")
	}
}

func TestLoad_InvalidChunking(t *testing.T) {
	tests := []struct {
		name    string
		size    string
		overlap string
	}{
		{name: "overlap equals size", size: "100", overlap: "100"},
		{name: "overlap exceeds size", size: "100", overlap: "200"},
		{name: "zero size", size: "0", overlap: "0"},
		{name: "negative overlap", size: "100", overlap: "-1"},
		{name: "non-numeric size", size: "lots", overlap: "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv("CHUNK_SIZE", tt.size)
			t.Setenv("CHUNK_OVERLAP", tt.overlap)

			if _, err := Load(); err == nil {
				t.Fatal("Load() expected error for invalid chunking config")
			}
		})
	}
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TOP_K", "8")
	t.Setenv("RATE_LIMIT", "5")
	t.Setenv("QDRANT_COLLECTION", "corpus")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TopK != 8 || cfg.RateLimit != 5 || cfg.QdrantCollection != "corpus" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}
