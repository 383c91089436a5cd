package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/artpar/recordbase/core/convention"
	"github.com/artpar/recordbase/core/query"
	"github.com/artpar/recordbase/core/schema"
)

func productModel() convention.Derived {
	return convention.Derive(schema.Definition{
		Name: "Product",
		Rules: schema.Rules{
			"name":   {Type: schema.Types{schema.TypeString}, Required: true},
			"price":  {Type: schema.Types{schema.TypeInteger}},
			"active": {Type: schema.Types{schema.TypeBoolean}},
			"tags":   {Type: schema.Types{schema.TypeArray}},
		},
	})
}

// storeFactories lists every Store implementation the shared tests run against.
func storeFactories(t *testing.T) map[string]func() Store {
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore() },
		"sqlite": func() Store {
			s, err := NewSQLiteStore(":memory:")
			if err != nil {
				t.Fatalf("NewSQLiteStore failed: %v", err)
			}
			return s
		},
	}
}

func TestStore_CRUD(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			defer store.Close()

			ctx := context.Background()
			mod := productModel()
			if err := store.Register(ctx, mod); err != nil {
				t.Fatalf("Register failed: %v", err)
			}

			id, err := store.Insert(ctx, "Product", map[string]any{
				"name":   "Widget",
				"price":  100,
				"active": true,
				"tags":   []any{"a", "b"},
			})
			if err != nil {
				t.Fatalf("Insert failed: %v", err)
			}
			if id != 1 {
				t.Errorf("id = %d, want 1", id)
			}

			row, err := store.Find(ctx, "Product", id)
			if err != nil {
				t.Fatalf("Find failed: %v", err)
			}
			if row == nil {
				t.Fatal("Find returned nil row")
			}
			if row["name"] != "Widget" {
				t.Errorf("name = %v, want Widget", row["name"])
			}
			if !query.Equal(row["price"], 100) {
				t.Errorf("price = %v, want 100", row["price"])
			}
			if row["active"] != true {
				t.Errorf("active = %v, want true", row["active"])
			}
			if !reflect.DeepEqual(row["tags"], []any{"a", "b"}) {
				t.Errorf("tags = %#v, want [a b]", row["tags"])
			}

			if err := store.Update(ctx, "Product", id, map[string]any{"price": 150, "active": false}); err != nil {
				t.Fatalf("Update failed: %v", err)
			}
			row, _ = store.Find(ctx, "Product", id)
			if !query.Equal(row["price"], 150) {
				t.Errorf("price = %v, want 150", row["price"])
			}
			if row["active"] != false {
				t.Errorf("active = %v, want false", row["active"])
			}

			missing, err := store.Find(ctx, "Product", 99)
			if err != nil || missing != nil {
				t.Errorf("Find(99) = %v, %v; want nil, nil", missing, err)
			}

			err = store.Update(ctx, "Product", 99, map[string]any{"price": 1})
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Update(99) error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_SelectAndDelete(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			defer store.Close()

			ctx := context.Background()
			mod := productModel()
			if err := store.Register(ctx, mod); err != nil {
				t.Fatalf("Register failed: %v", err)
			}
			for _, n := range []string{"a", "b", "c", "d"} {
				if _, err := store.Insert(ctx, "Product", map[string]any{"name": n, "active": n != "b"}); err != nil {
					t.Fatalf("Insert failed: %v", err)
				}
			}

			rows, err := store.Select(ctx, query.Select(mod.Table).Where("id", []int{3, 1}))
			if err != nil {
				t.Fatalf("Select failed: %v", err)
			}
			if len(rows) != 2 || rows[0]["name"] != "a" || rows[1]["name"] != "c" {
				t.Errorf("Select IN = %v, want rows a, c", rows)
			}

			rows, err = store.Select(ctx, query.Select(mod.Table).Where("active", true))
			if err != nil {
				t.Fatalf("Select failed: %v", err)
			}
			if len(rows) != 3 {
				t.Errorf("Select active = %d rows, want 3", len(rows))
			}

			if _, err := store.Select(ctx, query.Delete(mod.Table)); err == nil {
				t.Error("Select should reject a delete query")
			}

			n, err := store.Delete(ctx, query.Delete(mod.Table).Where("name", []string{"a", "b"}))
			if err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if n != 2 {
				t.Errorf("deleted = %d, want 2", n)
			}

			rows, _ = store.Select(ctx, query.Select(mod.Table))
			if len(rows) != 2 {
				t.Errorf("remaining = %d, want 2", len(rows))
			}
		})
	}
}

func TestStore_InsertWithIdentity(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			defer store.Close()

			ctx := context.Background()
			store.Register(ctx, productModel())

			id, err := store.Insert(ctx, "Product", map[string]any{"id": 42, "name": "x"})
			if err != nil {
				t.Fatalf("Insert failed: %v", err)
			}
			if id != 42 {
				t.Errorf("id = %d, want 42", id)
			}
			if _, err := store.Insert(ctx, "Product", map[string]any{"id": 42, "name": "y"}); err == nil {
				t.Error("duplicate identity should fail")
			}
		})
	}
}

func TestStore_Transactions(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			defer store.Close()

			tx, ok := store.(Transactor)
			if !ok {
				t.Fatalf("%T does not implement Transactor", store)
			}

			ctx := context.Background()
			mod := productModel()
			store.Register(ctx, mod)

			boom := errors.New("boom")
			err := tx.InTx(ctx, func(ctx context.Context) error {
				if _, err := store.Insert(ctx, "Product", map[string]any{"name": "rolled back"}); err != nil {
					return err
				}
				return boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("InTx error = %v, want boom", err)
			}

			rows, _ := store.Select(ctx, query.Select(mod.Table))
			if len(rows) != 0 {
				t.Errorf("rows after rollback = %d, want 0", len(rows))
			}

			err = tx.InTx(ctx, func(ctx context.Context) error {
				_, err := store.Insert(ctx, "Product", map[string]any{"name": "kept"})
				return err
			})
			if err != nil {
				t.Fatalf("InTx failed: %v", err)
			}

			rows, _ = store.Select(ctx, query.Select(mod.Table))
			if len(rows) != 1 {
				t.Errorf("rows after commit = %d, want 1", len(rows))
			}
		})
	}
}

func TestMemoryStore_RollbackKeepsOutsideWrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	mod := productModel()
	store.Register(ctx, mod)

	for _, name := range []string{"edited", "victim"} {
		if _, err := store.Insert(ctx, "Product", map[string]any{"name": name}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	boom := errors.New("boom")
	err := store.InTx(ctx, func(txCtx context.Context) error {
		if err := store.Update(txCtx, "Product", 1, map[string]any{"name": "changed"}); err != nil {
			return err
		}
		if _, err := store.Insert(txCtx, "Product", map[string]any{"name": "rolled back"}); err != nil {
			return err
		}

		// Writes through a context outside the transaction.
		if _, err := store.Delete(ctx, query.Delete(mod.Table).Where("id", int64(2))); err != nil {
			return err
		}
		if _, err := store.Insert(ctx, "Product", map[string]any{"name": "outside"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx error = %v, want boom", err)
	}

	rows, _ := store.Select(ctx, query.Select(mod.Table))
	var names []string
	for _, row := range rows {
		names = append(names, row["name"].(string))
	}
	if want := []string{"edited", "outside"}; !reflect.DeepEqual(names, want) {
		t.Errorf("rows after rollback = %v, want %v", names, want)
	}

	if row, _ := store.Find(ctx, "Product", 2); row != nil {
		t.Errorf("deleted row came back: %v", row)
	}

	if _, err := store.Insert(ctx, "Product", map[string]any{"name": "next"}); err != nil {
		t.Fatalf("Insert after rollback failed: %v", err)
	}
	rows, _ = store.Select(ctx, query.Select(mod.Table))
	if len(rows) != 3 {
		t.Errorf("rows after insert = %d, want 3", len(rows))
	}
}

func TestStore_UnregisteredModel(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			defer store.Close()
			ctx := context.Background()

			if _, err := store.Find(ctx, "Nope", 1); err == nil {
				t.Error("Find should fail for an unregistered model")
			}
			if _, err := store.Select(ctx, query.Select("nope")); err == nil {
				t.Error("Select should fail for an unregistered table")
			}
		})
	}
}

func TestID(t *testing.T) {
	tests := []struct {
		in     any
		want   int64
		wantOK bool
	}{
		{1, 1, true},
		{int64(7), 7, true},
		{float64(3), 3, true},
		{1.5, 0, false},
		{"1", 0, false},
		{nil, 0, false},
	}

	for _, tt := range tests {
		got, ok := ID(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ID(%v) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
