package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/artpar/recordbase/adapters/hasher"
	"github.com/artpar/recordbase/bootstrap"
	"github.com/artpar/recordbase/config"
	"github.com/artpar/recordbase/core/record"
	"github.com/artpar/recordbase/core/schema"
	"github.com/artpar/recordbase/core/storage"
)

// resolveModelsDir returns --models, or models.dir of the config file, or
// RECORDBASE_MODELS_DIR, in that order.
func resolveModelsDir() (string, error) {
	if modelsDir != "" {
		return modelsDir, nil
	}
	if _, err := os.Stat(cfgFile); err == nil {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return "", err
		}
		return cfg.Models.Dir, nil
	}
	if dir := os.Getenv("RECORDBASE_MODELS_DIR"); dir != "" {
		return dir, nil
	}
	return "", fmt.Errorf("no models directory: pass --models, create %s or set RECORDBASE_MODELS_DIR", cfgFile)
}

// offlineManager registers defs on an in-memory store. Nothing is persisted;
// it exists to build queries and check definitions.
func offlineManager(ctx context.Context, defs []schema.Definition) (*record.Manager, error) {
	m := record.NewManager(record.Deps{Store: storage.NewMemoryStore(), Logger: zerolog.Nop()})
	if _, err := bootstrap.LoadModels(ctx, m, "", bootstrap.ModelConfig{
		Hasher:   hasher.Fake{},
		Embedded: defs,
	}); err != nil {
		return nil, err
	}
	return m, nil
}
