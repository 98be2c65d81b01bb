package registry

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ggoomipapa/fammoney-core/internal/classifier"
	"github.com/ggoomipapa/fammoney-core/internal/model"
	"github.com/ggoomipapa/fammoney-core/internal/service"
	"github.com/ggoomipapa/fammoney-core/internal/storage"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))

	r := New(store, classifier.New(0))
	require.NoError(t, r.Seed(ctx))
	return r
}

func customPattern() *model.BankPattern {
	return &model.BankPattern{
		DisplayName:   "My Bank",
		SourceApps:    []string{"com.example.mybank"},
		AmountPattern: `([0-9,]+)원`,
	}
}

func TestRegistry_SeedAndList(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	patterns, err := r.List(ctx)
	require.NoError(t, err)
	require.Equal(t, len(Builtins()), len(patterns))

	// Built-ins come back in seed order, all enabled, none custom.
	for i, p := range patterns {
		assert.Equal(t, Builtins()[i].ID, p.ID)
		assert.True(t, p.Enabled)
		assert.False(t, p.Custom)
	}

	// Seeding again changes nothing.
	require.NoError(t, r.Seed(ctx))
	again, err := r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(patterns), len(again))
}

func TestRegistry_SaveCustom(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	p := customPattern()
	require.NoError(t, r.Save(ctx, p))

	// A generated ID marks the pattern as user-created.
	assert.True(t, strings.HasPrefix(p.ID, "custom-"))
	assert.True(t, p.Custom)

	got, err := r.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "My Bank", got.DisplayName)
	assert.True(t, got.Custom)

	// Custom patterns list after every built-in.
	patterns, err := r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, p.ID, patterns[len(patterns)-1].ID)

	// An explicit, previously unknown ID is accepted as-is.
	named := customPattern()
	named.ID = "custom-my-bank"
	require.NoError(t, r.Save(ctx, named))
	got, err = r.Get(ctx, "custom-my-bank")
	require.NoError(t, err)
	assert.True(t, got.Custom)
}

func TestRegistry_SaveInvalid(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		pattern *model.BankPattern
	}{
		{name: "nil pattern", pattern: nil},
		{
			name: "no amount group",
			pattern: &model.BankPattern{
				DisplayName:   "Bad",
				SourceApps:    []string{"com.example"},
				AmountPattern: `[0-9]+원`,
			},
		},
		{
			name: "no source apps",
			pattern: &model.BankPattern{
				DisplayName:   "Bad",
				AmountPattern: `([0-9]+)원`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Save(ctx, tt.pattern)
			var invalidErr *InvalidPatternError
			assert.ErrorAs(t, err, &invalidErr)
		})
	}

	// Nothing was stored.
	patterns, err := r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(Builtins()), len(patterns))
}

// readFailingStore fails every pattern read, simulating a transient storage
// fault during the built-in guard lookup.
type readFailingStore struct {
	service.Storage
}

func (s readFailingStore) GetPattern(context.Context, string) (*model.BankPattern, error) {
	return nil, errors.New("disk I/O error")
}

func TestRegistry_SaveSurfacesStorageReadErrors(t *testing.T) {
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))

	r := New(readFailingStore{Storage: store}, classifier.New(0))

	p := customPattern()
	p.ID = "custom-explicit"
	err = r.Save(ctx, p)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotEditable)
	assert.Contains(t, err.Error(), "disk I/O error")

	// The failed save stored nothing.
	_, err = store.GetPattern(ctx, "custom-explicit")
	assert.ErrorIs(t, err, storage.ErrPatternNotFound)
}

func TestRegistry_BuiltinsAreImmutable(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	builtinID := Builtins()[0].ID

	edit := customPattern()
	edit.ID = builtinID
	assert.ErrorIs(t, r.Save(ctx, edit), ErrNotEditable)

	err := r.Delete(ctx, builtinID)
	var notDeletable *NotDeletableError
	require.ErrorAs(t, err, &notDeletable)
	assert.Equal(t, builtinID, notDeletable.ID)

	// Toggling is the one allowed mutation.
	require.NoError(t, r.SetEnabled(ctx, builtinID, false))
	got, err := r.Get(ctx, builtinID)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
}

func TestRegistry_DeleteCustom(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	p := customPattern()
	require.NoError(t, r.Save(ctx, p))
	require.NoError(t, r.Delete(ctx, p.ID))

	_, err := r.Get(ctx, p.ID)
	assert.ErrorIs(t, err, storage.ErrPatternNotFound)

	assert.ErrorIs(t, r.Delete(ctx, "no-such-pattern"), storage.ErrPatternNotFound)
}

func TestRegistry_ResetToDefaults(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, customPattern()))
	require.NoError(t, r.SetEnabled(ctx, Builtins()[0].ID, false))

	require.NoError(t, r.ResetToDefaults(ctx))

	// Post-reset state matches a fresh seed exactly.
	patterns, err := r.List(ctx)
	require.NoError(t, err)
	require.Equal(t, len(Builtins()), len(patterns))
	for _, p := range patterns {
		assert.True(t, p.Enabled)
		assert.False(t, p.Custom)
	}
}

func TestRegistry_EnabledForSource(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	patterns, err := r.EnabledForSource(ctx, "com.kbstar.kbbank")
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, "kb-bank", patterns[0].ID)

	// Disabled patterns never apply.
	require.NoError(t, r.SetEnabled(ctx, "kb-bank", false))
	patterns, err = r.EnabledForSource(ctx, "com.kbstar.kbbank")
	require.NoError(t, err)
	assert.Empty(t, patterns)

	// Unknown source apps match nothing.
	patterns, err = r.EnabledForSource(ctx, "com.example.unknown")
	require.NoError(t, err)
	assert.Empty(t, patterns)

	// A custom pattern for the same app lists after the built-in.
	require.NoError(t, r.SetEnabled(ctx, "kb-bank", true))
	extra := customPattern()
	extra.SourceApps = []string{"com.kbstar.kbbank"}
	require.NoError(t, r.Save(ctx, extra))

	patterns, err = r.EnabledForSource(ctx, "com.kbstar.kbbank")
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	assert.Equal(t, "kb-bank", patterns[0].ID)
	assert.Equal(t, extra.ID, patterns[1].ID)
}

func TestRegistry_Test(t *testing.T) {
	r := newTestRegistry(t)

	outcome := r.Test(&model.BankPattern{
		AmountPattern:   `([0-9,]+)\s*원`,
		ExpenseKeywords: []string{"승인"},
	}, "[KB국민] 쿠팡 승인 50,000원")

	require.True(t, outcome.Success)
	assert.Equal(t, int64(50000), outcome.Amount)
	assert.Equal(t, model.TypeExpense, outcome.Type)
}
