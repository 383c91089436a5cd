package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/artpar/recordbase/core/record"
	"github.com/artpar/recordbase/core/schema"
	"github.com/artpar/recordbase/ports"
)

// ModelConfig configures model loading.
type ModelConfig struct {
	// Hasher hashes secret fields. Models with secret fields require it.
	Hasher ports.Hasher

	// Hooks are per-model hooks chained after the built-in ones.
	Hooks map[string]record.Hooks

	// Embedded are definitions declared in code, registered before the
	// directory is read.
	Embedded []schema.Definition
}

// LoadModels registers every definition found under dir (plus the embedded
// ones) with m and checks relation targets once all are known. It returns
// the number of registered models. Every failing model is reported.
func LoadModels(ctx context.Context, m *record.Manager, dir string, cfg ModelConfig) (int, error) {
	defs := append([]schema.Definition{}, cfg.Embedded...)

	if dir != "" {
		parsed, err := schema.ParseDir(dir)
		if err != nil {
			return 0, fmt.Errorf("parse models from %q: %w", dir, err)
		}
		defs = append(defs, parsed...)
	}

	var errs []error
	count := 0
	for _, def := range defs {
		if err := loadModel(ctx, m, def, cfg); err != nil {
			errs = append(errs, err)
			continue
		}
		count++
	}
	if len(errs) > 0 {
		return count, errors.Join(errs...)
	}

	if err := m.Check(); err != nil {
		return count, err
	}

	return count, nil
}

func loadModel(ctx context.Context, m *record.Manager, def schema.Definition, cfg ModelConfig) error {
	if len(def.Secret) > 0 && cfg.Hasher == nil {
		return fmt.Errorf("model %q: secret fields need a hasher", def.Name)
	}

	hooks := ModelHooks(def, cfg.Hasher)
	if extra, ok := cfg.Hooks[def.Name]; ok {
		hooks = hooks.Chain(extra)
	}

	if _, err := m.Register(ctx, def, hooks); err != nil {
		return fmt.Errorf("load model %q: %w", def.Name, err)
	}
	return nil
}
