package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lynkr/lynkr/internal/domain"
)

func TestConversationRepo_CreatePair(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := NewConversationRepo(pool)

	userA := createUser(t, pool, "alice")
	userB := createUser(t, pool, "bob")

	t.Run("creates conversation with both participants", func(t *testing.T) {
		conv := createConversation(t, pool, userA, userB)
		require.Len(t, conv.Participants, 2)
		assert.True(t, conv.HasParticipant(userA))
		assert.True(t, conv.HasParticipant(userB))
	})

	t.Run("repeated create converges on the first row", func(t *testing.T) {
		first := createConversation(t, pool, userA, userB)
		second := createConversation(t, pool, userB, userA)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("concurrent creates converge on one row", func(t *testing.T) {
		userC := createUser(t, pool, "carol")
		userD := createUser(t, pool, "dave")
		pairKey := domain.PairKey(userC, userD)

		const racers = 8
		ids := make([]uuid.UUID, racers)
		errs := make([]error, racers)
		var wg sync.WaitGroup
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				now := time.Now().UTC()
				conv, err := repo.CreatePair(ctx, &domain.Conversation{
					ID:            uuid.New(),
					PairKey:       pairKey,
					CreatedAt:     now,
					UpdatedAt:     now,
					LastMessageAt: now,
				}, userC, userD)
				if err != nil {
					errs[i] = err
					return
				}
				ids[i] = conv.ID
			}(i)
		}
		wg.Wait()

		for i := 0; i < racers; i++ {
			require.NoError(t, errs[i])
		}
		for i := 1; i < racers; i++ {
			assert.Equal(t, ids[0], ids[i])
		}
	})
}

func TestConversationRepo_ListByUser(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := NewConversationRepo(pool)
	msgRepo := NewMessageRepo(pool)

	userA := createUser(t, pool, "alice")
	userB := createUser(t, pool, "bob")
	userC := createUser(t, pool, "carol")

	older := createConversation(t, pool, userA, userB)
	newer := createConversation(t, pool, userA, userC)

	// A message in the older conversation moves it to the front.
	require.NoError(t, msgRepo.Create(ctx,
		textMessage(older.ID, userB, "bump", time.Now().UTC().Add(time.Minute))))

	convs, err := repo.ListByUser(ctx, userA)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, older.ID, convs[0].ID)
	assert.Equal(t, newer.ID, convs[1].ID)
	require.Len(t, convs[0].Participants, 2)

	// Counterpart is not in the listing.
	convs, err = repo.ListByUser(ctx, userB)
	require.NoError(t, err)
	require.Len(t, convs, 1)

	outsider, err := repo.ListByUser(ctx, createUser(t, pool, "eve"))
	require.NoError(t, err)
	assert.Empty(t, outsider)
}

func TestConversationRepo_MarkRead(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := NewConversationRepo(pool)

	userA := createUser(t, pool, "alice")
	userB := createUser(t, pool, "bob")
	conv := createConversation(t, pool, userA, userB)

	readAt := func() *time.Time {
		var at *time.Time
		err := pool.QueryRow(ctx,
			"SELECT last_read_at FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2",
			conv.ID, userA).Scan(&at)
		require.NoError(t, err)
		return at
	}

	require.Nil(t, readAt())

	first := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.MarkRead(ctx, conv.ID, userA, first))
	require.NotNil(t, readAt())
	assert.True(t, readAt().Equal(first))

	// An older timestamp never moves the watermark backwards.
	require.NoError(t, repo.MarkRead(ctx, conv.ID, userA, first.Add(-time.Hour)))
	assert.True(t, readAt().Equal(first))

	later := first.Add(time.Minute)
	require.NoError(t, repo.MarkRead(ctx, conv.ID, userA, later))
	assert.True(t, readAt().Equal(later))
}
