// Package storage declares the full contract a record store must satisfy.
// Consumers depend on narrower, locally declared interfaces; this one
// exists for implementations and mocks.
package storage

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/patric-chuzhbe/libtrack/internal/models"
)

// Storage is the union of every persistence operation the service needs.
// Methods taking a *sqlx.Tx run inside that transaction when it is
// non-nil; file and memory backends accept a nil transaction.
type Storage interface {
	CreateUser(ctx context.Context, username string, transaction *sqlx.Tx) (int, error)

	GetUserByID(ctx context.Context, userID int, transaction *sqlx.Tx) (*models.User, bool, error)

	FindUserByUsername(ctx context.Context, username string, transaction *sqlx.Tx) (*models.User, bool, error)

	UpdateUser(ctx context.Context, usr *models.User, transaction *sqlx.Tx) (bool, error)

	DeleteUser(ctx context.Context, userID int) (bool, error)

	GetUsersPage(ctx context.Context, offset, limit int) ([]models.User, error)

	GetAllUsers(ctx context.Context) ([]models.User, error)

	CountUsers(ctx context.Context) (int, error)

	CreateBook(ctx context.Context, title, author string, transaction *sqlx.Tx) (int, error)

	GetBookByID(ctx context.Context, bookID int, transaction *sqlx.Tx) (*models.Book, bool, error)

	UpdateBook(ctx context.Context, book *models.Book, transaction *sqlx.Tx) (bool, error)

	DeleteBook(ctx context.Context, bookID int) (bool, error)

	GetBooksPage(ctx context.Context, offset, limit int) ([]models.Book, error)

	GetAllBooks(ctx context.Context) ([]models.Book, error)

	CountBooks(ctx context.Context) (int, error)

	CreateTransaction(ctx context.Context, trn *models.Transaction, transaction *sqlx.Tx) (int, error)

	GetTransactionsPage(ctx context.Context, offset, limit int) ([]models.Transaction, error)

	CountTransactions(ctx context.Context) (int, error)

	HasActiveCheckout(ctx context.Context, userID, bookID int, transaction *sqlx.Tx) (bool, error)

	BeginTransaction() (*sqlx.Tx, error)

	RollbackTransaction(transaction *sqlx.Tx) error

	CommitTransaction(transaction *sqlx.Tx) error

	Ping(ctx context.Context) error

	Close() error
}
