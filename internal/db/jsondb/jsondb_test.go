package jsondb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/libtrack/internal/models"
)

const testDBFileName = "db_test.json"

func Test(t *testing.T) {
	t.Run("The base jsondb package test", func(t *testing.T) {
		theStorage, err := New(testDBFileName)
		require.NoError(t, err)
		require.NotNil(t, theStorage)
		defer func() {
			err := os.Remove(testDBFileName)
			require.NoError(t, err)
		}()

		ctx := context.Background()

		userID, err := theStorage.CreateUser(ctx, "alice", nil)
		assert.NoError(t, err)
		assert.Equal(t, 1, userID)

		usr, found, err := theStorage.GetUserByID(ctx, userID, nil)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, &models.User{ID: 1, Username: "alice"}, usr)

		_, found, err = theStorage.GetUserByID(ctx, 10, nil)
		assert.NoError(t, err)
		assert.False(t, found)

		usr, found, err = theStorage.FindUserByUsername(ctx, "alice", nil)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, 1, usr.ID)

		updated, err := theStorage.UpdateUser(ctx, &models.User{ID: 1, Username: "alicia"}, nil)
		assert.NoError(t, err)
		assert.True(t, updated)

		updated, err = theStorage.UpdateUser(ctx, &models.User{ID: 10, Username: "nobody"}, nil)
		assert.NoError(t, err)
		assert.False(t, updated)

		bookID, err := theStorage.CreateBook(ctx, "Dune", "Frank Herbert", nil)
		assert.NoError(t, err)
		assert.Equal(t, 1, bookID)

		book, found, err := theStorage.GetBookByID(ctx, bookID, nil)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "Dune", book.Title)

		trnID, err := theStorage.CreateTransaction(
			ctx,
			&models.Transaction{
				UserID:       userID,
				BookID:       &bookID,
				CheckoutDate: time.Now(),
				Status:       models.StatusCheckedOut,
			},
			nil,
		)
		assert.NoError(t, err)
		assert.Equal(t, 1, trnID)

		active, err := theStorage.HasActiveCheckout(ctx, userID, bookID, nil)
		assert.NoError(t, err)
		assert.True(t, active)

		active, err = theStorage.HasActiveCheckout(ctx, userID, 99, nil)
		assert.NoError(t, err)
		assert.False(t, active)

		count, err := theStorage.CountTransactions(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 1, count)

		err = theStorage.Ping(ctx)
		assert.NoError(t, err)

		err = theStorage.Close()
		assert.NoError(t, err)

		// A fresh instance must see the flushed dataset.
		reopened, err := New(testDBFileName)
		require.NoError(t, err)

		usr, found, err = reopened.GetUserByID(ctx, 1, nil)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "alicia", usr.Username)

		transactions, err := reopened.GetTransactionsPage(ctx, 0, 5)
		assert.NoError(t, err)
		require.Len(t, transactions, 1)
		assert.Equal(t, models.StatusCheckedOut, transactions[0].Status)
	})
}

func TestUsersPageIsSortedAndWindowed(t *testing.T) {
	theStorage, err := New(testDBFileName + ".users")
	require.NoError(t, err)
	defer func() {
		require.NoError(t, os.Remove(testDBFileName+".users"))
	}()

	ctx := context.Background()
	for _, username := range []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7"} {
		_, err := theStorage.CreateUser(ctx, username, nil)
		require.NoError(t, err)
	}

	page, err := theStorage.GetUsersPage(ctx, 5, 5)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 6, page[0].ID)
	assert.Equal(t, 7, page[1].ID)

	empty, err := theStorage.GetUsersPage(ctx, 100, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, theStorage.Close())
}

func TestDeleteLeavesDanglingTransactionReferences(t *testing.T) {
	theStorage, err := New(testDBFileName + ".dangling")
	require.NoError(t, err)
	defer func() {
		require.NoError(t, os.Remove(testDBFileName+".dangling"))
	}()

	ctx := context.Background()

	userID, err := theStorage.CreateUser(ctx, "bob", nil)
	require.NoError(t, err)
	bookID, err := theStorage.CreateBook(ctx, "Solaris", "Stanislaw Lem", nil)
	require.NoError(t, err)

	_, err = theStorage.CreateTransaction(
		ctx,
		&models.Transaction{
			UserID:       userID,
			BookID:       &bookID,
			CheckoutDate: time.Now(),
			Status:       models.StatusCheckedOut,
		},
		nil,
	)
	require.NoError(t, err)

	deleted, err := theStorage.DeleteUser(ctx, userID)
	require.NoError(t, err)
	assert.True(t, deleted)

	transactions, err := theStorage.GetTransactionsPage(ctx, 0, 5)
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, userID, transactions[0].UserID)

	require.NoError(t, theStorage.Close())
}
