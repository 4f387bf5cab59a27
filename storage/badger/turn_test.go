package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpvia/normabot/core"
	"github.com/jpvia/normabot/storage"
)

func appendTestTurn(t *testing.T, repo storage.TurnRepository, session, query string) *core.ConversationTurn {
	t.Helper()
	turn, err := repo.AppendTurn(context.Background(), &core.ConversationTurn{
		SessionId: session,
		Query:     query,
		Response:  "respuesta",
	})
	require.NoError(t, err)
	return turn
}

func TestAppendTurn_AssignsSequence(t *testing.T) {
	_, turnRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	t1 := appendTestTurn(t, turnRepo, "s1", "primera")
	t2 := appendTestTurn(t, turnRepo, "s1", "segunda")
	t3 := appendTestTurn(t, turnRepo, "s2", "otra sesión")

	assert.Equal(t, uint64(1), t1.Sequence)
	assert.Equal(t, uint64(2), t2.Sequence)
	assert.Equal(t, uint64(1), t3.Sequence, "sequences are per session")

	assert.NotZero(t, t1.Id)
	assert.NotEqual(t, t1.Id, t2.Id)
	assert.False(t, t1.Timestamp.IsZero())
}

func TestGetTurn(t *testing.T) {
	_, turnRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	appendTestTurn(t, turnRepo, "s1", "primera")

	got, err := turnRepo.GetTurn(context.Background(), "s1", 1)
	require.NoError(t, err)
	assert.Equal(t, "primera", got.Query)

	_, err = turnRepo.GetTurn(context.Background(), "s1", 99)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetSessionTurns_Order(t *testing.T) {
	_, turnRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	appendTestTurn(t, turnRepo, "s1", "uno")
	appendTestTurn(t, turnRepo, "s1", "dos")
	appendTestTurn(t, turnRepo, "s1", "tres")
	appendTestTurn(t, turnRepo, "s2", "ajeno")

	turns, err := turnRepo.GetSessionTurns(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, turns, 3)

	assert.Equal(t, "uno", turns[0].Query)
	assert.Equal(t, "dos", turns[1].Query)
	assert.Equal(t, "tres", turns[2].Query)
}

func TestGetRecentTurns(t *testing.T) {
	_, turnRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	for _, q := range []string{"uno", "dos", "tres", "cuatro"} {
		appendTestTurn(t, turnRepo, "s1", q)
	}

	recent, err := turnRepo.GetRecentTurns(context.Background(), "s1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	// Most recent first
	assert.Equal(t, "cuatro", recent[0].Query)
	assert.Equal(t, "tres", recent[1].Query)
}

func TestGetRecentTurns_EmptySession(t *testing.T) {
	_, turnRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	recent, err := turnRepo.GetRecentTurns(context.Background(), "nope", 5)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestUpdateTurns_Consolidated(t *testing.T) {
	_, turnRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	turn := appendTestTurn(t, turnRepo, "s1", "uno")
	require.False(t, turn.Consolidated)

	turn.Consolidated = true
	_, err = turnRepo.UpdateTurns(ctx, turn)
	require.NoError(t, err)

	got, err := turnRepo.GetTurn(ctx, "s1", 1)
	require.NoError(t, err)
	assert.True(t, got.Consolidated)
}

func TestUpdateTurns_NotFound(t *testing.T) {
	_, turnRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	_, err = turnRepo.UpdateTurns(context.Background(), &core.ConversationTurn{
		SessionId: "missing",
		Sequence:  1,
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetUnconsolidatedTurns(t *testing.T) {
	_, turnRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	t1 := appendTestTurn(t, turnRepo, "s1", "uno")
	appendTestTurn(t, turnRepo, "s1", "dos")
	appendTestTurn(t, turnRepo, "s2", "tres")

	t1.Consolidated = true
	_, err = turnRepo.UpdateTurns(ctx, t1)
	require.NoError(t, err)

	pending, err := turnRepo.GetUnconsolidatedTurns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	for _, turn := range pending {
		assert.False(t, turn.Consolidated)
	}
}

func TestEvictOlderThan(t *testing.T) {
	_, turnRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	old := time.Now().UTC().Add(-48 * time.Hour)

	_, err = turnRepo.AppendTurn(ctx, &core.ConversationTurn{
		SessionId: "s1",
		Query:     "vieja",
		Response:  "r",
		Timestamp: old,
	})
	require.NoError(t, err)
	appendTestTurn(t, turnRepo, "s1", "nueva")

	evicted, err := turnRepo.EvictOlderThan(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, evicted)

	count, err := turnRepo.CountTurns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	turns, err := turnRepo.GetSessionTurns(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "nueva", turns[0].Query)
}

func TestEvictToCap(t *testing.T) {
	_, turnRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)
	for i, q := range []string{"uno", "dos", "tres", "cuatro", "cinco"} {
		_, err = turnRepo.AppendTurn(ctx, &core.ConversationTurn{
			SessionId: "s1",
			Query:     q,
			Response:  "r",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	evicted, err := turnRepo.EvictToCap(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, evicted)

	turns, err := turnRepo.GetSessionTurns(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 3)

	// Oldest evicted first
	assert.Equal(t, "tres", turns[0].Query)
	assert.Equal(t, "cinco", turns[2].Query)
}

func TestEvictToCap_UnderCap(t *testing.T) {
	_, turnRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	appendTestTurn(t, turnRepo, "s1", "uno")

	evicted, err := turnRepo.EvictToCap(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, evicted)
}

func TestEvictSessionToCap(t *testing.T) {
	_, turnRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	for _, q := range []string{"uno", "dos", "tres", "cuatro"} {
		appendTestTurn(t, turnRepo, "s1", q)
	}
	appendTestTurn(t, turnRepo, "s2", "ajena")

	evicted, err := turnRepo.EvictSessionToCap(ctx, "s1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, evicted)

	turns, err := turnRepo.GetSessionTurns(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "tres", turns[0].Query)
	assert.Equal(t, "cuatro", turns[1].Query)

	// Other sessions are untouched
	other, err := turnRepo.GetSessionTurns(ctx, "s2")
	require.NoError(t, err)
	assert.Len(t, other, 1)

	// Date index entries went with the records
	count, err := turnRepo.CountTurns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestGetSessionTurns_DelimiterInSessionId(t *testing.T) {
	_, turnRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	appendTestTurn(t, turnRepo, "a", "propia")
	appendTestTurn(t, turnRepo, "a:b", "ajena")

	// A session id containing the key delimiter must not fold into
	// another session's key range.
	turns, err := turnRepo.GetSessionTurns(ctx, "a")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "a", turns[0].SessionId)

	other, err := turnRepo.GetSessionTurns(ctx, "a:b")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "a:b", other[0].SessionId)
}

func TestEvictSessionToCap_DelimiterInSessionId(t *testing.T) {
	_, turnRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	appendTestTurn(t, turnRepo, "a", "uno")
	appendTestTurn(t, turnRepo, "a:b", "ajena")

	// Session "a" holds one turn, so capping it at 1 must not reach into
	// session "a:b".
	evicted, err := turnRepo.EvictSessionToCap(ctx, "a", 1)
	require.NoError(t, err)
	assert.Zero(t, evicted)

	other, err := turnRepo.GetSessionTurns(ctx, "a:b")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestEvictSessionToCap_UnderCap(t *testing.T) {
	_, turnRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	appendTestTurn(t, turnRepo, "s1", "uno")

	evicted, err := turnRepo.EvictSessionToCap(context.Background(), "s1", 5)
	require.NoError(t, err)
	assert.Zero(t, evicted)
}
