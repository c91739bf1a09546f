package sessionvalkey_test

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/memory-match/internal/dbtest/valkeytest"
	"github.com/openkcm/memory-match/internal/record"
	"github.com/openkcm/memory-match/internal/serviceerr"
	sessionvalkey "github.com/openkcm/memory-match/internal/session/valkey"
)

var (
	client     valkey.Client
	clientAddr string
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	valkeyClient, port, terminate := valkeytest.Start(ctx)
	client = valkeyClient
	clientAddr = net.JoinHostPort("localhost", port.Port())

	code := m.Run()
	terminate(ctx)

	os.Exit(code)
}

func prepareKey(t *testing.T, prefix, typ, slot, value string) {
	t.Helper()

	key := valkeytest.Key(prefix, typ, slot)
	require.NoError(t, valkeytest.Set(t.Context(), client, key, value), "inserting %s", key)
}

func midGameRecord() record.SaveRecord {
	return record.SaveRecord{
		CardIDs: []int{0, 1, 0, 1},
		CardStates: []record.CardState{
			{IsFlipped: true, IsMatched: true},
			{IsFlipped: true},
			{IsFlipped: true, IsMatched: true},
			{},
		},
		Score:        100,
		Combo:        1,
		Rows:         2,
		Columns:      2,
		MatchedPairs: 1,
	}
}

func TestRepository_StoreAndLoadRecord(t *testing.T) {
	for _, format := range []record.Format{record.FormatJSON, record.FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			ctx := t.Context()
			prefix := "memory-match-store-" + string(format)
			repo := sessionvalkey.NewRepository(client, prefix, format, 0)

			first := midGameRecord()
			require.NoError(t, repo.StoreRecord(ctx, "default", first))

			second := midGameRecord()
			second.Score = 250
			second.Combo = 0
			require.NoError(t, repo.StoreRecord(ctx, "default", second))

			got, err := repo.LoadRecord(ctx, "default")
			require.NoError(t, err)
			if diff := cmp.Diff(second, got); diff != "" {
				t.Errorf("LoadRecord() mismatch (-want +got):\n%s", diff)
			}

			// The metadata key carries the format, so another configuration still reads it.
			other := sessionvalkey.NewRepository(client, prefix, record.FormatJSON, 0)
			got, err = other.LoadRecord(ctx, "default")
			require.NoError(t, err)
			assert.Equal(t, 250, got.Score)
		})
	}
}

func TestRepository_LoadRecord(t *testing.T) {
	const prefix = "memory-match-load-test"

	prepareKey(t, prefix, "save", "corrupt", `{"cardIds":[0]}`)
	prepareKey(t, prefix, "meta", "corrupt", `{"format":"json"}`)
	prepareKey(t, prefix, "save", "no-meta", `{"cardIds":[0,0],"cardStates":[{"isFlipped":false,"isMatched":false},{"isFlipped":false,"isMatched":false}],"score":0,"combo":0,"rows":1,"columns":2,"matchedPairs":0}`)
	prepareKey(t, prefix, "save", "bad-meta", `{}`)
	prepareKey(t, prefix, "meta", "bad-meta", `not json`)
	prepareKey(t, prefix, "save", "unknown-format", `{}`)
	prepareKey(t, prefix, "meta", "unknown-format", `{"format":"xml"}`)

	tests := []struct {
		name      string
		slot      string
		wantRows  int
		assertErr assert.ErrorAssertionFunc
		wantErr   error
	}{
		{
			name:      "Missing metadata falls back to the configured format",
			slot:      "no-meta",
			wantRows:  1,
			assertErr: assert.NoError,
		},
		{
			name:      "Error does not exist",
			slot:      "does-not-exist",
			assertErr: assert.Error,
			wantErr:   serviceerr.ErrNotFound,
		},
		{
			name:      "Error corrupt payload",
			slot:      "corrupt",
			assertErr: assert.Error,
			wantErr:   serviceerr.ErrCorruptSave,
		},
		{
			name:      "Error corrupt metadata",
			slot:      "bad-meta",
			assertErr: assert.Error,
			wantErr:   serviceerr.ErrCorruptSave,
		},
		{
			name:      "Error unknown format",
			slot:      "unknown-format",
			assertErr: assert.Error,
			wantErr:   serviceerr.ErrCorruptSave,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := sessionvalkey.NewRepository(client, prefix, record.FormatJSON, 0)

			got, err := repo.LoadRecord(t.Context(), tt.slot)
			if !tt.assertErr(t, err) || err != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			assert.Equal(t, tt.wantRows, got.Rows)
		})
	}
}

func TestRepository_StoreRecord_Invalid(t *testing.T) {
	repo := sessionvalkey.NewRepository(client, "memory-match-invalid-test", record.FormatJSON, 0)
	rec := midGameRecord()
	rec.CardIDs = rec.CardIDs[:3]

	err := repo.StoreRecord(t.Context(), "default", rec)
	require.ErrorIs(t, err, serviceerr.ErrCorruptSave)

	ok, err := repo.HasRecord(t.Context(), "default")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepository_HasAndDeleteRecord(t *testing.T) {
	ctx := t.Context()
	repo := sessionvalkey.NewRepository(client, "memory-match-delete-test", record.FormatJSON, 0)

	ok, err := repo.HasRecord(ctx, "default")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.StoreRecord(ctx, "default", midGameRecord()))

	ok, err = repo.HasRecord(ctx, "default")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.DeleteRecord(ctx, "default"))
	require.ErrorIs(t, repo.DeleteRecord(ctx, "default"), serviceerr.ErrNotFound)

	_, err = repo.LoadRecord(ctx, "default")
	require.ErrorIs(t, err, serviceerr.ErrNotFound)
}

func TestRepository_ListSlots(t *testing.T) {
	const prefix = "memory-match-list-test"
	ctx := t.Context()
	repo := sessionvalkey.NewRepository(client, prefix, record.FormatJSON, 0)

	before := time.Now().Add(-time.Second)
	require.NoError(t, repo.StoreRecord(ctx, "b-slot", midGameRecord()))
	require.NoError(t, repo.StoreRecord(ctx, "a-slot", midGameRecord()))
	prepareKey(t, prefix, "save", "broken", `{}`)
	prepareKey(t, prefix, "meta", "broken", `not json`)

	slots, err := repo.ListSlots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 3)

	assert.Equal(t, "a-slot", slots[0].Name)
	assert.Equal(t, "b-slot", slots[1].Name)
	assert.Equal(t, "broken", slots[2].Name)
	assert.True(t, slots[0].UpdatedAt.After(before))
	assert.True(t, slots[2].UpdatedAt.IsZero())
}

func TestRepository_TTL(t *testing.T) {
	const prefix = "memory-match-ttl-test"
	ctx := t.Context()
	repo := sessionvalkey.NewRepository(client, prefix, record.FormatJSON, time.Hour)

	require.NoError(t, repo.StoreRecord(ctx, "default", midGameRecord()))

	for _, typ := range []string{"save", "meta"} {
		key := valkeytest.Key(prefix, typ, "default")
		ttl, err := client.Do(ctx, client.B().Ttl().Key(key).Build()).AsInt64()
		require.NoError(t, err)
		assert.Greater(t, ttl, int64(0), "ttl of %s", key)
		assert.LessOrEqual(t, ttl, int64(time.Hour/time.Second))
	}
}

func TestRepository_CleanupSeededSlots(t *testing.T) {
	const prefix = "memory-match-seed-test"
	ctx := t.Context()
	require.NoError(t, valkeytest.Seed(ctx, client, prefix))

	repo := sessionvalkey.NewRepository(client, prefix, record.FormatJSON, 0)

	slots, err := repo.ListSlots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, valkeytest.CorruptSlot, slots[0].Name)
	assert.True(t, slots[0].UpdatedAt.IsZero())
	assert.Equal(t, valkeytest.StaleSlot, slots[1].Name)
	assert.True(t, slots[1].UpdatedAt.Equal(valkeytest.StaleTime), "updated at %v", slots[1].UpdatedAt)

	rec, err := repo.LoadRecord(ctx, valkeytest.StaleSlot)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.MatchedPairs)

	_, err = repo.LoadRecord(ctx, valkeytest.CorruptSlot)
	require.ErrorIs(t, err, serviceerr.ErrCorruptSave)
}

func TestRepository_StoreRecord_FailedRollback(t *testing.T) {
	closed, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{clientAddr}})
	require.NoError(t, err)
	closed.Close()

	repo := sessionvalkey.NewRepository(closed, "memory-match-rollback-test", record.FormatJSON, 0)

	err = repo.StoreRecord(t.Context(), "default", midGameRecord())
	require.ErrorIs(t, err, sessionvalkey.ErrStoreRecord)
	assert.ErrorContains(t, err, "executing set command")
	assert.ErrorContains(t, err, "rolling back")
}
