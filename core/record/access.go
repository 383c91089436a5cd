package record

import "context"

// Accessible reports whether actor may access the record in mode. Without a
// Hooks.Accessible override only read access (the unset mode) is granted.
func (r *Record) Accessible(ctx context.Context, actor any, mode string) (bool, error) {
	if r.model.hooks.Accessible != nil {
		return r.model.hooks.Accessible(ctx, r, actor, mode)
	}
	return mode == ModeRead, nil
}

// FindAndCheckAccessOrDie loads a record and passes it through the access
// gate. It fails with a *GateError wrapping ErrNotFound when no record has
// the identity and ErrNotAccessible when the gate denies the actor.
func (m *Model) FindAndCheckAccessOrDie(ctx context.Context, id any, actor any, mode string) (*Record, error) {
	r, err := m.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, &GateError{Kind: ErrNotFound, Model: m.Name, ID: id}
	}

	ok, err := r.Accessible(ctx, actor, mode)
	if err != nil {
		return nil, err
	}
	if !ok {
		m.manager.metrics.AccessDenied(m.Name, modeVerb(mode))
		m.manager.logger.Warn().
			Str("model", m.Name).
			Interface("id", id).
			Str("mode", mode).
			Msg("access denied")
		return nil, &GateError{Kind: ErrNotAccessible, Model: m.Name, ID: id, Mode: mode}
	}
	return r, nil
}
