package bootstrap

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/artpar/recordbase/adapters/hasher"
	"github.com/artpar/recordbase/core/events"
	"github.com/artpar/recordbase/core/record"
	"github.com/artpar/recordbase/core/schema"
	"github.com/artpar/recordbase/ports"
)

// ModelHooks returns the built-in hooks of a model served over HTTP:
// secret fields are hashed before validation, and the public projection
// is the record data without its secret fields.
func ModelHooks(def schema.Definition, h ports.Hasher) record.Hooks {
	hooks := record.Hooks{Output: PublicOutput(def)}
	if h != nil {
		hooks = hooks.Chain(hasher.SecretHooks(h, def.Secret))
	}
	return hooks
}

// PublicOutput projects every field of a record except secret ones.
func PublicOutput(def schema.Definition) func(r *record.Record) map[string]any {
	return func(r *record.Record) map[string]any {
		data := r.Data()
		out := make(map[string]any, len(data))
		for k, v := range data {
			if def.IsSecret(k) {
				continue
			}
			out[k] = v
		}
		return out
	}
}

// SubscribeAudit logs every lifecycle event at info level.
func SubscribeAudit(bus *events.Bus, logger zerolog.Logger) {
	audit := logger.With().Str("component", "audit").Logger()
	bus.Subscribe("*", func(ctx context.Context, ev events.Event) error {
		audit.Info().
			Str("event_id", ev.ID).
			Str("event", ev.Name).
			Interface("record_id", ev.RecordID).
			Time("at", ev.Time).
			Msg("record changed")
		return nil
	})
}
