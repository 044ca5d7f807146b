// Package mockstorage provides a testify-based mock implementation of the
// storage contract. It is used to unit test handlers and the service
// against simulated storage behavior, including failure paths a real
// backend will not produce on demand.
package mockstorage

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/libtrack/internal/models"
)

// StorageMock is a testify mock that implements every storage interface
// the service consumes.
type StorageMock struct {
	mock.Mock
}

// CreateUser mocks user insertion.
func (m *StorageMock) CreateUser(ctx context.Context, username string, tx *sqlx.Tx) (int, error) {
	args := m.Called(ctx, username, tx)
	return args.Int(0), args.Error(1)
}

// GetUserByID mocks fetching a user by id.
func (m *StorageMock) GetUserByID(ctx context.Context, userID int, tx *sqlx.Tx) (*models.User, bool, error) {
	args := m.Called(ctx, userID, tx)
	usr, _ := args.Get(0).(*models.User)
	return usr, args.Bool(1), args.Error(2)
}

// FindUserByUsername mocks the username lookup.
func (m *StorageMock) FindUserByUsername(ctx context.Context, username string, tx *sqlx.Tx) (*models.User, bool, error) {
	args := m.Called(ctx, username, tx)
	usr, _ := args.Get(0).(*models.User)
	return usr, args.Bool(1), args.Error(2)
}

// UpdateUser mocks overwriting a user record.
func (m *StorageMock) UpdateUser(ctx context.Context, usr *models.User, tx *sqlx.Tx) (bool, error) {
	args := m.Called(ctx, usr, tx)
	return args.Bool(0), args.Error(1)
}

// DeleteUser mocks user removal.
func (m *StorageMock) DeleteUser(ctx context.Context, userID int) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

// GetUsersPage mocks the paginated user listing.
func (m *StorageMock) GetUsersPage(ctx context.Context, offset, limit int) ([]models.User, error) {
	args := m.Called(ctx, offset, limit)
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}

// GetAllUsers mocks the full user listing.
func (m *StorageMock) GetAllUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}

// CountUsers mocks the user count.
func (m *StorageMock) CountUsers(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// CreateBook mocks catalog insertion.
func (m *StorageMock) CreateBook(ctx context.Context, title, author string, tx *sqlx.Tx) (int, error) {
	args := m.Called(ctx, title, author, tx)
	return args.Int(0), args.Error(1)
}

// GetBookByID mocks fetching a catalog book by id.
func (m *StorageMock) GetBookByID(ctx context.Context, bookID int, tx *sqlx.Tx) (*models.Book, bool, error) {
	args := m.Called(ctx, bookID, tx)
	book, _ := args.Get(0).(*models.Book)
	return book, args.Bool(1), args.Error(2)
}

// UpdateBook mocks overwriting a book record.
func (m *StorageMock) UpdateBook(ctx context.Context, book *models.Book, tx *sqlx.Tx) (bool, error) {
	args := m.Called(ctx, book, tx)
	return args.Bool(0), args.Error(1)
}

// DeleteBook mocks catalog removal.
func (m *StorageMock) DeleteBook(ctx context.Context, bookID int) (bool, error) {
	args := m.Called(ctx, bookID)
	return args.Bool(0), args.Error(1)
}

// GetBooksPage mocks the paginated catalog listing.
func (m *StorageMock) GetBooksPage(ctx context.Context, offset, limit int) ([]models.Book, error) {
	args := m.Called(ctx, offset, limit)
	books, _ := args.Get(0).([]models.Book)
	return books, args.Error(1)
}

// GetAllBooks mocks the full catalog listing.
func (m *StorageMock) GetAllBooks(ctx context.Context) ([]models.Book, error) {
	args := m.Called(ctx)
	books, _ := args.Get(0).([]models.Book)
	return books, args.Error(1)
}

// CountBooks mocks the catalog count.
func (m *StorageMock) CountBooks(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// CreateTransaction mocks appending a circulation record.
func (m *StorageMock) CreateTransaction(ctx context.Context, trn *models.Transaction, tx *sqlx.Tx) (int, error) {
	args := m.Called(ctx, trn, tx)
	return args.Int(0), args.Error(1)
}

// GetTransactionsPage mocks the paginated transaction listing.
func (m *StorageMock) GetTransactionsPage(ctx context.Context, offset, limit int) ([]models.Transaction, error) {
	args := m.Called(ctx, offset, limit)
	transactions, _ := args.Get(0).([]models.Transaction)
	return transactions, args.Error(1)
}

// CountTransactions mocks the transaction count.
func (m *StorageMock) CountTransactions(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// HasActiveCheckout mocks the duplicate checkout guard.
func (m *StorageMock) HasActiveCheckout(ctx context.Context, userID, bookID int, tx *sqlx.Tx) (bool, error) {
	args := m.Called(ctx, userID, bookID, tx)
	return args.Bool(0), args.Error(1)
}

// BeginTransaction mocks starting a transaction.
func (m *StorageMock) BeginTransaction() (*sqlx.Tx, error) {
	args := m.Called()
	tx, _ := args.Get(0).(*sqlx.Tx)
	return tx, args.Error(1)
}

// RollbackTransaction mocks rolling a transaction back.
func (m *StorageMock) RollbackTransaction(tx *sqlx.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// CommitTransaction mocks committing a transaction.
func (m *StorageMock) CommitTransaction(tx *sqlx.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// Ping mocks the storage health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks releasing storage resources.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
