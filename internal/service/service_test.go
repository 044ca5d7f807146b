package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/libtrack/internal/db/memorystorage"
	"github.com/patric-chuzhbe/libtrack/internal/mockstorage"
	"github.com/patric-chuzhbe/libtrack/internal/models"
	"github.com/patric-chuzhbe/libtrack/internal/pagination"
)

func newTestService(t *testing.T, pageSize int) (*Service, *memorystorage.MemoryStorage) {
	t.Helper()

	db, err := memorystorage.New()
	require.NoError(t, err)

	return New(db, pageSize), db
}

func TestCreateUser(t *testing.T) {
	svc, _ := newTestService(t, 5)
	ctx := context.Background()

	userID, err := svc.CreateUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, userID)

	_, err = svc.CreateUser(ctx, "  ")
	assert.ErrorIs(t, err, ErrEmptyField)

	_, err = svc.CreateUser(ctx, "alice")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestUpdateUser(t *testing.T) {
	svc, _ := newTestService(t, 5)
	ctx := context.Background()

	aliceID, err := svc.CreateUser(ctx, "alice")
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, "bob")
	require.NoError(t, err)

	err = svc.UpdateUser(ctx, aliceID, "alicia")
	require.NoError(t, err)

	usr, err := svc.GetUser(ctx, aliceID)
	require.NoError(t, err)
	assert.Equal(t, "alicia", usr.Username)

	// Renaming to an unchanged own username is allowed.
	err = svc.UpdateUser(ctx, aliceID, "alicia")
	assert.NoError(t, err)

	err = svc.UpdateUser(ctx, aliceID, "bob")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	err = svc.UpdateUser(ctx, 99, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	err = svc.UpdateUser(ctx, aliceID, "")
	assert.ErrorIs(t, err, ErrEmptyField)
}

func TestDeleteUser(t *testing.T) {
	svc, _ := newTestService(t, 5)
	ctx := context.Background()

	userID, err := svc.CreateUser(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, userID))
	assert.ErrorIs(t, svc.DeleteUser(ctx, userID), ErrNotFound)

	_, err = svc.GetUser(ctx, userID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateBookValidation(t *testing.T) {
	svc, _ := newTestService(t, 5)
	ctx := context.Background()

	_, err := svc.CreateBook(ctx, "Dune", "")
	assert.ErrorIs(t, err, ErrEmptyField)

	_, err = svc.CreateBook(ctx, "", "Frank Herbert")
	assert.ErrorIs(t, err, ErrEmptyField)

	list, err := svc.ListBooks(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, list.Books, "a rejected book must not be created")

	bookID, err := svc.CreateBook(ctx, "Dune", "Frank Herbert")
	require.NoError(t, err)
	assert.Equal(t, 1, bookID)
}

func TestUpdateAndDeleteBook(t *testing.T) {
	svc, _ := newTestService(t, 5)
	ctx := context.Background()

	bookID, err := svc.CreateBook(ctx, "Dune", "Frank Herbert")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateBook(ctx, bookID, "Dune Messiah", "Frank Herbert"))

	book, err := svc.GetBook(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", book.Title)

	assert.ErrorIs(t, svc.UpdateBook(ctx, 99, "x", "y"), ErrNotFound)
	assert.ErrorIs(t, svc.UpdateBook(ctx, bookID, "", "y"), ErrEmptyField)

	require.NoError(t, svc.DeleteBook(ctx, bookID))
	assert.ErrorIs(t, svc.DeleteBook(ctx, bookID), ErrNotFound)
}

func TestPayloadFromForm(t *testing.T) {
	payload, err := PayloadFromForm("checked_out", "3", "", "")
	require.NoError(t, err)
	assert.Equal(t, models.CheckOutPayload{BookID: 3}, payload)

	payload, err = PayloadFromForm("checked_in", "", "  Dune ", " Frank Herbert ")
	require.NoError(t, err)
	assert.Equal(t, models.CheckInPayload{Title: "Dune", Author: "Frank Herbert"}, payload)

	_, err = PayloadFromForm("checked_out", "not-a-number", "", "")
	assert.ErrorIs(t, err, ErrUnknownBook)

	_, err = PayloadFromForm("lost", "1", "", "")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = PayloadFromForm("", "1", "", "")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCreateTransactionCheckOut(t *testing.T) {
	svc, db := newTestService(t, 5)
	ctx := context.Background()

	userID, err := svc.CreateUser(ctx, "alice")
	require.NoError(t, err)
	bookID, err := svc.CreateBook(ctx, "Dune", "Frank Herbert")
	require.NoError(t, err)

	trnID, err := svc.CreateTransaction(ctx, userID, models.CheckOutPayload{BookID: bookID})
	require.NoError(t, err)
	assert.Equal(t, 1, trnID)

	transactions, err := db.GetTransactionsPage(ctx, 0, 5)
	require.NoError(t, err)
	require.Len(t, transactions, 1)

	trn := transactions[0]
	assert.Equal(t, models.StatusCheckedOut, trn.Status)
	require.NotNil(t, trn.BookID)
	assert.Equal(t, bookID, *trn.BookID)
	assert.Empty(t, trn.Title, "a checkout must never populate the inline title")
	assert.Empty(t, trn.Author, "a checkout must never populate the inline author")
	assert.False(t, trn.CheckoutDate.IsZero())
}

func TestCreateTransactionCheckOutErrors(t *testing.T) {
	svc, db := newTestService(t, 5)
	ctx := context.Background()

	userID, err := svc.CreateUser(ctx, "alice")
	require.NoError(t, err)
	bookID, err := svc.CreateBook(ctx, "Dune", "Frank Herbert")
	require.NoError(t, err)

	_, err = svc.CreateTransaction(ctx, 99, models.CheckOutPayload{BookID: bookID})
	assert.ErrorIs(t, err, ErrUnknownUser)

	_, err = svc.CreateTransaction(ctx, userID, models.CheckOutPayload{BookID: 42})
	assert.ErrorIs(t, err, ErrUnknownBook)

	count, err := db.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "failed submissions must not create records")

	_, err = svc.CreateTransaction(ctx, userID, models.CheckOutPayload{BookID: bookID})
	require.NoError(t, err)

	_, err = svc.CreateTransaction(ctx, userID, models.CheckOutPayload{BookID: bookID})
	assert.ErrorIs(t, err, ErrAlreadyCheckedOut)
}

func TestCreateTransactionCheckIn(t *testing.T) {
	svc, db := newTestService(t, 5)
	ctx := context.Background()

	userID, err := svc.CreateUser(ctx, "alice")
	require.NoError(t, err)

	_, err = svc.CreateTransaction(ctx, userID, models.CheckInPayload{Title: "Solaris", Author: "Stanislaw Lem"})
	require.NoError(t, err)

	transactions, err := db.GetTransactionsPage(ctx, 0, 5)
	require.NoError(t, err)
	require.Len(t, transactions, 1)

	trn := transactions[0]
	assert.Equal(t, models.StatusCheckedIn, trn.Status)
	assert.Nil(t, trn.BookID, "a check-in must not reference the catalog")
	assert.Equal(t, "Solaris", trn.Title)
	assert.Equal(t, "Stanislaw Lem", trn.Author)

	books, err := db.GetAllBooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, books, "a check-in must not create a catalog book")
}

func TestCreateTransactionCheckInMissingFields(t *testing.T) {
	svc, db := newTestService(t, 5)
	ctx := context.Background()

	userID, err := svc.CreateUser(ctx, "alice")
	require.NoError(t, err)

	_, err = svc.CreateTransaction(ctx, userID, models.CheckInPayload{Title: "", Author: "Stanislaw Lem"})
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = svc.CreateTransaction(ctx, userID, models.CheckInPayload{Title: "Solaris", Author: ""})
	assert.ErrorIs(t, err, ErrMissingField)

	count, err := db.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestListUsersPagination(t *testing.T) {
	svc, _ := newTestService(t, 10)
	ctx := context.Background()

	for i := 1; i <= 25; i++ {
		_, err := svc.CreateUser(ctx, fmt.Sprintf("user%02d", i))
		require.NoError(t, err)
	}

	list, err := svc.ListUsers(ctx, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, list.Page.TotalPages)
	assert.Equal(t, 3, list.Page.CurrentPage)
	assert.False(t, list.Page.HasNext(), "page 3 of 3 must not offer a next link")

	require.Len(t, list.Users, 5)
	assert.Equal(t, 21, list.Users[0].ID)
	assert.Equal(t, 25, list.Users[4].ID)

	clamped, err := svc.ListUsers(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, 3, clamped.Page.CurrentPage)

	_, err = svc.ListUsers(ctx, 0)
	assert.ErrorIs(t, err, pagination.ErrInvalidPage)
}

func TestListTransactionsResolvesReferences(t *testing.T) {
	svc, _ := newTestService(t, 10)
	ctx := context.Background()

	aliceID, err := svc.CreateUser(ctx, "alice")
	require.NoError(t, err)
	bobID, err := svc.CreateUser(ctx, "bob")
	require.NoError(t, err)
	bookID, err := svc.CreateBook(ctx, "Dune", "Frank Herbert")
	require.NoError(t, err)

	_, err = svc.CreateTransaction(ctx, aliceID, models.CheckOutPayload{BookID: bookID})
	require.NoError(t, err)
	_, err = svc.CreateTransaction(ctx, bobID, models.CheckInPayload{Title: "Solaris", Author: "Stanislaw Lem"})
	require.NoError(t, err)

	list, err := svc.ListTransactions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list.Rows, 2)

	assert.Equal(t, "alice", list.Rows[0].Username)
	assert.Equal(t, "Dune", list.Rows[0].BookTitle)
	assert.Equal(t, models.StatusCheckedOut, list.Rows[0].Status)

	assert.Equal(t, "bob", list.Rows[1].Username)
	assert.Equal(t, "Solaris", list.Rows[1].BookTitle, "check-in rows display the inline title")
	assert.Equal(t, models.StatusCheckedIn, list.Rows[1].Status)
}

func TestListTransactionsDanglingReferences(t *testing.T) {
	svc, _ := newTestService(t, 10)
	ctx := context.Background()

	userID, err := svc.CreateUser(ctx, "alice")
	require.NoError(t, err)
	bookID, err := svc.CreateBook(ctx, "Dune", "Frank Herbert")
	require.NoError(t, err)

	_, err = svc.CreateTransaction(ctx, userID, models.CheckOutPayload{BookID: bookID})
	require.NoError(t, err)

	// No cascade: the transaction survives both deletions and the list
	// renders placeholders for the dangling references.
	require.NoError(t, svc.DeleteUser(ctx, userID))
	require.NoError(t, svc.DeleteBook(ctx, bookID))

	list, err := svc.ListTransactions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list.Rows, 1)

	assert.Equal(t, Unknown, list.Rows[0].Username)
	assert.Equal(t, Unknown, list.Rows[0].BookTitle)
}

func TestCreateTransactionRollsBackOnStorageFailure(t *testing.T) {
	db := &mockstorage.StorageMock{}
	svc := New(db, 5)
	ctx := context.Background()

	bookID := 7
	storageErr := errors.New("insert failed")

	db.On("BeginTransaction").Return(nil, nil)
	db.On("GetUserByID", mock.Anything, 1, mock.Anything).
		Return(&models.User{ID: 1, Username: "alice"}, true, nil)
	db.On("GetBookByID", mock.Anything, bookID, mock.Anything).
		Return(&models.Book{ID: bookID, Title: "Dune", Author: "Frank Herbert"}, true, nil)
	db.On("HasActiveCheckout", mock.Anything, 1, bookID, mock.Anything).
		Return(false, nil)
	db.On("CreateTransaction", mock.Anything, mock.Anything, mock.Anything).
		Return(0, storageErr)
	db.On("RollbackTransaction", mock.Anything).Return(nil)

	_, err := svc.CreateTransaction(ctx, 1, models.CheckOutPayload{BookID: bookID})
	require.ErrorIs(t, err, storageErr)

	db.AssertCalled(t, "RollbackTransaction", mock.Anything)
	db.AssertNotCalled(t, "CommitTransaction", mock.Anything)
}

func TestPingPropagatesStorageError(t *testing.T) {
	db := &mockstorage.StorageMock{}
	svc := New(db, 5)

	pingErr := errors.New("connection refused")
	db.On("Ping", mock.Anything).Return(pingErr)

	assert.ErrorIs(t, svc.Ping(context.Background()), pingErr)
}
