package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ggoomipapa/fammoney-core/internal/model"
	"github.com/ggoomipapa/fammoney-core/internal/service"
	"github.com/ggoomipapa/fammoney-core/internal/storage"
)

// seedPending creates two mutual duplicates and returns the pending record
// linking them.
func seedPending(t *testing.T, store service.Storage) *model.PendingDuplicate {
	t.Helper()

	d := NewDetector(store, DefaultConfig())
	base := time.Now().UTC().Truncate(time.Second)

	ingestAndCheck(t, store, d, makeTxn("t1", "app.a", 50000, base))
	outcome := ingestAndCheck(t, store, d, makeTxn("t2", "app.b", 50000, base.Add(time.Minute)))
	require.Equal(t, PendingCreated, outcome.Kind)
	return outcome.Pending
}

func TestResolver_KeepBoth(t *testing.T) {
	store := newTestStore(t)
	pending := seedPending(t, store)
	ctx := context.Background()

	require.NoError(t, NewResolver(store).Resolve(ctx, pending.ID, model.KeepBoth, false))

	for _, id := range []string{"t1", "t2"} {
		_, err := store.GetTransactionByID(ctx, id)
		assert.NoError(t, err)
	}
	pendings, err := store.ListPendingDuplicates(ctx, "family")
	require.NoError(t, err)
	assert.Empty(t, pendings)
}

func TestResolver_KeepFirst(t *testing.T) {
	store := newTestStore(t)
	pending := seedPending(t, store)
	ctx := context.Background()

	require.NoError(t, NewResolver(store).Resolve(ctx, pending.ID, model.KeepFirst, false))

	// Exactly the second transaction is gone.
	_, err := store.GetTransactionByID(ctx, "t1")
	assert.NoError(t, err)
	_, err = store.GetTransactionByID(ctx, "t2")
	assert.ErrorIs(t, err, storage.ErrTransactionNotFound)
}

func TestResolver_KeepSecond(t *testing.T) {
	store := newTestStore(t)
	pending := seedPending(t, store)
	ctx := context.Background()

	require.NoError(t, NewResolver(store).Resolve(ctx, pending.ID, model.KeepSecond, false))

	_, err := store.GetTransactionByID(ctx, "t1")
	assert.ErrorIs(t, err, storage.ErrTransactionNotFound)
	_, err = store.GetTransactionByID(ctx, "t2")
	assert.NoError(t, err)
}

func TestResolver_DoubleResolve(t *testing.T) {
	store := newTestStore(t)
	pending := seedPending(t, store)
	ctx := context.Background()
	r := NewResolver(store)

	require.NoError(t, r.Resolve(ctx, pending.ID, model.KeepBoth, false))

	err := r.Resolve(ctx, pending.ID, model.KeepFirst, false)
	var already *AlreadyResolvedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, pending.ID, already.ID)

	// The failed second attempt deleted nothing.
	for _, id := range []string{"t1", "t2"} {
		_, err := store.GetTransactionByID(ctx, id)
		assert.NoError(t, err)
	}
}

func TestResolver_InvalidResolution(t *testing.T) {
	store := newTestStore(t)
	pending := seedPending(t, store)
	ctx := context.Background()

	err := NewResolver(store).Resolve(ctx, pending.ID, "KEEP_ALL", false)
	assert.ErrorIs(t, err, ErrInvalidResolution)

	// The pending record still stands.
	_, err = store.GetPendingDuplicate(ctx, pending.ID)
	assert.NoError(t, err)
}

func TestResolver_ApplyToFuture(t *testing.T) {
	store := newTestStore(t)
	pending := seedPending(t, store)
	ctx := context.Background()

	require.NoError(t, NewResolver(store).Resolve(ctx, pending.ID, model.KeepFirst, true))

	rule, err := store.GetResolutionRule(ctx, model.SourcePairKey("app.a", "app.b"))
	require.NoError(t, err)
	assert.Equal(t, model.KeepFirst, rule.Resolution)

	// The same pair arriving again is resolved silently.
	d := NewDetector(store, DefaultConfig())
	base := time.Now().UTC().Truncate(time.Second)
	ingestAndCheck(t, store, d, makeTxn("t3", "app.a", 9900, base))
	outcome := ingestAndCheck(t, store, d, makeTxn("t4", "app.b", 9900, base.Add(time.Minute)))

	require.Equal(t, AutoResolved, outcome.Kind)
	assert.Equal(t, model.KeepFirst, outcome.Resolution)
	_, err = store.GetTransactionByID(ctx, "t4")
	assert.ErrorIs(t, err, storage.ErrTransactionNotFound)
}

func TestResolver_ApplyToFutureOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	r := NewResolver(store)

	first := seedPending(t, store)
	require.NoError(t, r.Resolve(ctx, first.ID, model.KeepFirst, true))

	// A later decision for the same pair replaces the standing rule. The
	// detector would auto-resolve now, so bypass it and seed the pending
	// record directly.
	base := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.CreateTransaction(ctx, makeTxn("t5", "app.a", 700, base)))
	require.NoError(t, store.CreateTransaction(ctx, makeTxn("t6", "app.b", 700, base)))
	pending := &model.PendingDuplicate{
		ID:             "pending-manual",
		Scope:          "family",
		Transaction1ID: "t5",
		Transaction2ID: "t6",
		SourceApp1:     "app.a",
		SourceApp2:     "app.b",
		Amount:         700,
		DetectedAt:     base,
	}
	require.NoError(t, store.CreatePendingDuplicate(ctx, pending))
	require.NoError(t, r.Resolve(ctx, pending.ID, model.KeepBoth, true))

	rule, err := store.GetResolutionRule(ctx, model.SourcePairKey("app.a", "app.b"))
	require.NoError(t, err)
	assert.Equal(t, model.KeepBoth, rule.Resolution)
}

func TestResolver_RuleManagement(t *testing.T) {
	store := newTestStore(t)
	pending := seedPending(t, store)
	ctx := context.Background()
	r := NewResolver(store)

	require.NoError(t, r.Resolve(ctx, pending.ID, model.KeepFirst, true))

	rules, err := r.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, model.SourcePairKey("app.a", "app.b"), rules[0].PairKey)

	// Deleting accepts the apps in either order.
	require.NoError(t, r.DeleteRule(ctx, "app.b", "app.a"))
	rules, err = r.ListRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules)

	// Without the rule, a fresh pair surfaces as pending again.
	d := NewDetector(store, DefaultConfig())
	base := time.Now().UTC().Truncate(time.Second)
	ingestAndCheck(t, store, d, makeTxn("t7", "app.a", 300, base))
	outcome := ingestAndCheck(t, store, d, makeTxn("t8", "app.b", 300, base.Add(time.Minute)))
	assert.Equal(t, PendingCreated, outcome.Kind)
}

func TestResolver_ListPending(t *testing.T) {
	store := newTestStore(t)
	pending := seedPending(t, store)
	r := NewResolver(store)
	ctx := context.Background()

	listed, err := r.ListPending(ctx, "family")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, pending.ID, listed[0].ID)

	// Empty scope lists everything; a foreign scope lists nothing.
	listed, err = r.ListPending(ctx, "")
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	listed, err = r.ListPending(ctx, "work")
	require.NoError(t, err)
	assert.Empty(t, listed)
}
