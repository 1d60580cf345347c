package main

import (
	"strings"
	"testing"

	"github.com/IshaanNene/NewsHarvest/internal/config"
)

func TestStorageFlagListsEveryBackend(t *testing.T) {
	flag := newRootCmd().PersistentFlags().Lookup("storage")
	if flag == nil {
		t.Fatal("--storage flag not registered")
	}
	for _, backend := range config.StorageBackends {
		if !strings.Contains(flag.Usage, backend) {
			t.Errorf("--storage usage %q does not mention %q", flag.Usage, backend)
		}
	}
}

func TestApplyStorageOverride(t *testing.T) {
	defer func() { storageType = "" }()

	cfg := config.DefaultConfig()
	storageType = "file"
	applyCLIOverrides(cfg)
	if cfg.Storage.Type != "file" {
		t.Errorf("storage type = %q, want file", cfg.Storage.Type)
	}
	if err := config.Validate(cfg); err != nil {
		t.Errorf("file override with default path should validate: %v", err)
	}
}
