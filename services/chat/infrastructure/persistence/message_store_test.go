package persistence_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghuser/lostfound/pkg/database/dbtest"
	"github.com/ghuser/lostfound/services/chat/domain/models"
	"github.com/ghuser/lostfound/services/chat/infrastructure/persistence"
	itemmodels "github.com/ghuser/lostfound/services/item/domain/models"
	itemsqlite "github.com/ghuser/lostfound/services/item/infrastructure/persistence/sqlite"
)

func TestMessageStore_AppendAndHistory(t *testing.T) {
	ctx := context.Background()
	db := dbtest.NewSQLite(t)
	items := itemsqlite.NewItemRepository(db)
	store := persistence.NewMessageStore(db)

	owner := uuid.New()
	item, err := itemmodels.NewItem(owner, itemmodels.CategoryFound, itemmodels.ItemDetails{
		Title: "Gloves", Description: "Pair of red gloves", Contact: "desk",
	}, time.Now())
	require.NoError(t, err)
	require.NoError(t, items.Create(ctx, item))

	empty, err := store.History(ctx, item.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	// identical timestamps still come back in append order
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var want []string
	for k := 0; k < 5; k++ {
		text := fmt.Sprintf("message %d", k)
		want = append(want, text)
		require.NoError(t, store.Append(ctx, &models.Message{
			ID: uuid.New(), ItemID: item.ID, SenderID: owner, Text: text, CreatedAt: ts,
		}))
	}

	got, err := store.History(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for k, m := range got {
		assert.Equal(t, want[k], m.Text)
		assert.Equal(t, owner, m.SenderID)
		assert.True(t, m.CreatedAt.Equal(ts))
	}

	other, err := store.History(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMessageStore_UnknownItemRejected(t *testing.T) {
	store := persistence.NewMessageStore(dbtest.NewSQLite(t))
	err := store.Append(context.Background(), &models.Message{
		ID: uuid.New(), ItemID: uuid.New(), SenderID: uuid.New(), Text: "hi", CreatedAt: time.Now(),
	})
	assert.Error(t, err)
}
