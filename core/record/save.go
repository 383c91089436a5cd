package record

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/recordbase/core/convention"
	"github.com/artpar/recordbase/core/events"
	"github.com/artpar/recordbase/core/query"
	"github.com/artpar/recordbase/core/schema"
)

// Create keeps the fields of data allowed on create, instantiates a record
// with them and saves it.
func (m *Model) Create(ctx context.Context, data map[string]any) (*Record, error) {
	filtered, err := m.filter(convention.OpCreate, data)
	if err != nil {
		return nil, err
	}

	r := m.New(filtered)
	if err := r.Save(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Update merges the fields of data allowed on update into a persisted record
// and saves it. The record is unchanged when the save fails.
func (r *Record) Update(ctx context.Context, data map[string]any) error {
	m := r.model
	if !r.persisted {
		return fmt.Errorf("update %s: %w", m.Name, ErrNotPersisted)
	}

	filtered, err := m.filter(convention.OpUpdate, data)
	if err != nil {
		return err
	}

	merged := copyData(r.data)
	for k, v := range filtered {
		merged[k] = v
	}
	return r.save(ctx, merged)
}

// Save runs the pre-save sequence and writes the record:
//
//  1. unknown fields are dropped when the model ignores extra fields,
//     and rejected otherwise;
//  2. lifecycle timestamps are set and Hooks.BeforeValidation runs;
//  3. Validate;
//  4. CheckUniqueness, raising and ignoring null keys;
//  5. Hooks.AfterValidation runs;
//  6. the row is inserted or updated.
//
// Steps 2 to 6 run on a staged copy inside one store transaction when the
// store supports them. Nothing is written and the record is unchanged when
// any step fails.
func (r *Record) Save(ctx context.Context) error {
	return r.save(ctx, r.data)
}

func (r *Record) save(ctx context.Context, data map[string]any) error {
	m := r.model
	log := m.manager.logger

	op := convention.OpCreate
	action := events.ActionCreated
	if r.persisted {
		op = convention.OpUpdate
		action = events.ActionUpdated
	}

	stage := r.clone()
	stripped, err := m.stripUnknown(op, data)
	if err != nil {
		return err
	}
	stage.data = stripped

	err = m.manager.inTx(ctx, func(ctx context.Context) error {
		m.touch(stage)

		if m.hooks.BeforeValidation != nil {
			if err := m.hooks.BeforeValidation(ctx, stage); err != nil {
				return err
			}
		}

		if err := stage.Validate(ctx); err != nil {
			return err
		}

		if _, err := stage.CheckUniqueness(ctx, UniquenessOptions{RaiseOnFailure: true, IgnoreNulls: true}); err != nil {
			return err
		}

		if m.hooks.AfterValidation != nil {
			if err := m.hooks.AfterValidation(ctx, stage); err != nil {
				return err
			}
		}

		return m.write(ctx, stage)
	})
	if err != nil {
		var ve *schema.ValidationError
		if errors.As(err, &ve) {
			log.Warn().
				Str("model", m.Name).
				Str("operation", string(op)).
				Strs("fields", ve.Fields()).
				Msg("record rejected")
		}
		return err
	}

	r.data = stage.data
	r.persisted = true

	m.manager.metrics.RecordSaved(m.Name, string(op))
	m.manager.publish(ctx, m.Name, action, r.ID(), r.Data())

	log.Debug().
		Str("model", m.Name).
		Interface("id", r.ID()).
		Str("operation", string(op)).
		Msg("record saved")

	return nil
}

// stripUnknown returns a copy of data without fields the model does not
// describe, or fails on the first one when extra fields are not tolerated.
func (m *Model) stripUnknown(op convention.Operation, data map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(data))
	for _, field := range sortedKeys(data) {
		if !m.Rules.Has(field) {
			if m.IgnoreExtraFields {
				continue
			}
			return nil, fieldError(ErrUnknownField, m.Name, field, op)
		}
		out[field] = data[field]
	}
	return out, nil
}

// touch sets the lifecycle timestamps the model declares.
func (m *Model) touch(r *Record) {
	if !r.persisted && m.HasSpecial(convention.FieldCreatedAt) && r.data[convention.FieldCreatedAt] == nil {
		r.data[convention.FieldCreatedAt] = m.stamp(convention.FieldCreatedAt)
	}
	if m.HasSpecial(convention.FieldUpdatedAt) {
		r.data[convention.FieldUpdatedAt] = m.stamp(convention.FieldUpdatedAt)
	}
}

// stamp returns the current time in the representation the field's rule
// accepts: Unix seconds for integer fields, RFC 3339 text otherwise.
func (m *Model) stamp(field string) any {
	now := m.manager.clock.Now().UTC()
	rule := m.Rules[field]
	if rule.Type.Has(schema.TypeInteger) && !rule.Type.Has(schema.TypeString) {
		return now.Unix()
	}
	return now.Format(time.RFC3339)
}

func (m *Model) write(ctx context.Context, r *Record) error {
	store := m.manager.store

	if r.persisted {
		id, ok := r.IntID()
		if !ok {
			return fmt.Errorf("update %s: identity %v is not an integer", m.Name, r.ID())
		}
		if err := store.Update(ctx, m.Name, id, r.data); err != nil {
			return fmt.Errorf("update %s #%d: %w", m.Name, id, err)
		}
		return nil
	}

	id, err := store.Insert(ctx, m.Name, r.data)
	if err != nil {
		return fmt.Errorf("insert %s: %w", m.Name, err)
	}
	r.data[m.Identity] = id
	return nil
}

// Delete removes a persisted record. Models declaring deleted_at are soft
// deleted: only the marker is written, without validation. Other models
// lose the row.
func (r *Record) Delete(ctx context.Context) error {
	m := r.model
	if !r.persisted {
		return fmt.Errorf("delete %s: %w", m.Name, ErrNotPersisted)
	}
	id, ok := r.IntID()
	if !ok {
		return fmt.Errorf("delete %s: identity %v is not an integer", m.Name, r.ID())
	}

	store := m.manager.store

	if m.HasSpecial(convention.FieldDeletedAt) {
		marker := m.stamp(convention.FieldDeletedAt)
		if err := store.Update(ctx, m.Name, id, map[string]any{convention.FieldDeletedAt: marker}); err != nil {
			return fmt.Errorf("soft delete %s #%d: %w", m.Name, id, err)
		}
		r.data[convention.FieldDeletedAt] = marker
	} else {
		n, err := store.Delete(ctx, query.Delete(m.Table).Where(m.Identity, id))
		if err != nil {
			return fmt.Errorf("delete %s #%d: %w", m.Name, id, err)
		}
		if n == 0 {
			return &GateError{Kind: ErrNotFound, Model: m.Name, ID: id}
		}
		r.persisted = false
	}

	m.manager.metrics.RecordSaved(m.Name, "delete")
	m.manager.publish(ctx, m.Name, events.ActionDeleted, id, r.Data())

	m.manager.logger.Debug().
		Str("model", m.Name).
		Int64("id", id).
		Bool("soft", m.HasSpecial(convention.FieldDeletedAt)).
		Msg("record deleted")

	return nil
}
