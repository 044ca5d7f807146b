// Package postgresdb provides the PostgreSQL-backed implementation of the
// record store for users, books and circulation transactions. Queries are
// built with goqu and executed through sqlx; schema migrations run with
// goose on startup.
package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/jackc/pgx/v5/stdlib"                  // pgx database/sql driver
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/patric-chuzhbe/libtrack/internal/models"
)

const dialect = "postgres"

const (
	tableUsers        = "users"
	tableBooks        = "books"
	tableTransactions = "book_transactions"
)

// PostgresDB is a PostgreSQL-backed record store.
type PostgresDB struct {
	database          *sqlx.DB
	connectionTimeout time.Duration
}

type queryer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type initOptions struct {
	DBPreReset bool
}

// InitOption configures database initialization.
type InitOption func(*initOptions)

// WithDBPreReset drops every table in the public schema before running
// migrations. Test setups only.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New connects to PostgreSQL, optionally resets the schema, runs goose
// migrations and returns the configured store.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sqlx.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil, fmt.Errorf("resetting database schema: %w", err)
		}
	}

	if err := goose.SetDialect(dialect); err != nil {
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(result.database.DB, migrationsDir); err != nil {
		return nil, fmt.Errorf("applying migrations: %w", err)
	}

	return result, nil
}

func (db *PostgresDB) queryerFor(transaction *sqlx.Tx) queryer {
	if transaction == nil {
		return db.database
	}

	return transaction
}

func (db *PostgresDB) executorFor(transaction *sqlx.Tx) executor {
	if transaction == nil {
		return db.database
	}

	return transaction
}

// CreateUser inserts a user and returns the assigned id.
func (db *PostgresDB) CreateUser(ctx context.Context, username string, transaction *sqlx.Tx) (int, error) {
	query, args, err := goqu.Dialect(dialect).
		Insert(tableUsers).
		Rows(goqu.Record{"username": username}).
		Returning("id").
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, err
	}

	var userID int
	if err := db.queryerFor(transaction).GetContext(ctx, &userID, query, args...); err != nil {
		return 0, err
	}

	return userID, nil
}

// GetUserByID fetches a user by id; the second result reports presence.
func (db *PostgresDB) GetUserByID(ctx context.Context, userID int, transaction *sqlx.Tx) (*models.User, bool, error) {
	query, args, err := goqu.Dialect(dialect).
		From(tableUsers).
		Select("id", "username").
		Where(goqu.Ex{"id": userID}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, false, err
	}

	var usr models.User
	if err := db.queryerFor(transaction).GetContext(ctx, &usr, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &usr, true, nil
}

// FindUserByUsername looks a user up by exact username.
func (db *PostgresDB) FindUserByUsername(ctx context.Context, username string, transaction *sqlx.Tx) (*models.User, bool, error) {
	query, args, err := goqu.Dialect(dialect).
		From(tableUsers).
		Select("id", "username").
		Where(goqu.Ex{"username": username}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, false, err
	}

	var usr models.User
	if err := db.queryerFor(transaction).GetContext(ctx, &usr, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &usr, true, nil
}

// UpdateUser overwrites the mutable fields of an existing user.
// Returns false when the id does not resolve.
func (db *PostgresDB) UpdateUser(ctx context.Context, usr *models.User, transaction *sqlx.Tx) (bool, error) {
	query, args, err := goqu.Dialect(dialect).
		Update(tableUsers).
		Set(goqu.Record{"username": usr.Username}).
		Where(goqu.Ex{"id": usr.ID}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return false, err
	}

	result, err := db.executorFor(transaction).ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}

	return affected(result)
}

// DeleteUser removes a user. Dependent transactions are left in place and
// keep their now dangling user reference.
func (db *PostgresDB) DeleteUser(ctx context.Context, userID int) (bool, error) {
	query, args, err := goqu.Dialect(dialect).
		Delete(tableUsers).
		Where(goqu.Ex{"id": userID}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return false, err
	}

	result, err := db.database.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}

	return affected(result)
}

// GetUsersPage returns one page of users ordered by id ascending.
func (db *PostgresDB) GetUsersPage(ctx context.Context, offset, limit int) ([]models.User, error) {
	query, args, err := goqu.Dialect(dialect).
		From(tableUsers).
		Select("id", "username").
		Order(goqu.C("id").Asc()).
		Offset(uint(offset)).
		Limit(uint(limit)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}

	users := []models.User{}
	if err := db.database.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, err
	}

	return users, nil
}

// GetAllUsers returns every user ordered by id ascending.
func (db *PostgresDB) GetAllUsers(ctx context.Context) ([]models.User, error) {
	query, args, err := goqu.Dialect(dialect).
		From(tableUsers).
		Select("id", "username").
		Order(goqu.C("id").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}

	users := []models.User{}
	if err := db.database.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, err
	}

	return users, nil
}

// CountUsers returns the total number of users.
func (db *PostgresDB) CountUsers(ctx context.Context) (int, error) {
	return db.countRows(ctx, tableUsers)
}

// CreateBook inserts a catalog book and returns the assigned id.
func (db *PostgresDB) CreateBook(ctx context.Context, title, author string, transaction *sqlx.Tx) (int, error) {
	query, args, err := goqu.Dialect(dialect).
		Insert(tableBooks).
		Rows(goqu.Record{"title": title, "author": author}).
		Returning("id").
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, err
	}

	var bookID int
	if err := db.queryerFor(transaction).GetContext(ctx, &bookID, query, args...); err != nil {
		return 0, err
	}

	return bookID, nil
}

// GetBookByID fetches a catalog book by id; the second result reports presence.
func (db *PostgresDB) GetBookByID(ctx context.Context, bookID int, transaction *sqlx.Tx) (*models.Book, bool, error) {
	query, args, err := goqu.Dialect(dialect).
		From(tableBooks).
		Select("id", "title", "author").
		Where(goqu.Ex{"id": bookID}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, false, err
	}

	var book models.Book
	if err := db.queryerFor(transaction).GetContext(ctx, &book, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &book, true, nil
}

// UpdateBook overwrites title and author of an existing book.
func (db *PostgresDB) UpdateBook(ctx context.Context, book *models.Book, transaction *sqlx.Tx) (bool, error) {
	query, args, err := goqu.Dialect(dialect).
		Update(tableBooks).
		Set(goqu.Record{"title": book.Title, "author": book.Author}).
		Where(goqu.Ex{"id": book.ID}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return false, err
	}

	result, err := db.executorFor(transaction).ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}

	return affected(result)
}

// DeleteBook removes a catalog book. Checkout transactions referencing it
// are left in place.
func (db *PostgresDB) DeleteBook(ctx context.Context, bookID int) (bool, error) {
	query, args, err := goqu.Dialect(dialect).
		Delete(tableBooks).
		Where(goqu.Ex{"id": bookID}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return false, err
	}

	result, err := db.database.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}

	return affected(result)
}

// GetBooksPage returns one page of books in insertion order.
func (db *PostgresDB) GetBooksPage(ctx context.Context, offset, limit int) ([]models.Book, error) {
	query, args, err := goqu.Dialect(dialect).
		From(tableBooks).
		Select("id", "title", "author").
		Order(goqu.C("id").Asc()).
		Offset(uint(offset)).
		Limit(uint(limit)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}

	books := []models.Book{}
	if err := db.database.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, err
	}

	return books, nil
}

// GetAllBooks returns the whole catalog in insertion order.
func (db *PostgresDB) GetAllBooks(ctx context.Context) ([]models.Book, error) {
	query, args, err := goqu.Dialect(dialect).
		From(tableBooks).
		Select("id", "title", "author").
		Order(goqu.C("id").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}

	books := []models.Book{}
	if err := db.database.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, err
	}

	return books, nil
}

// CountBooks returns the total number of catalog books.
func (db *PostgresDB) CountBooks(ctx context.Context) (int, error) {
	return db.countRows(ctx, tableBooks)
}

// CreateTransaction appends one immutable circulation record and returns
// the assigned id.
func (db *PostgresDB) CreateTransaction(ctx context.Context, trn *models.Transaction, transaction *sqlx.Tx) (int, error) {
	query, args, err := goqu.Dialect(dialect).
		Insert(tableTransactions).
		Rows(goqu.Record{
			"user_id":       trn.UserID,
			"book_id":       trn.BookID,
			"title":         trn.Title,
			"author":        trn.Author,
			"checkout_date": trn.CheckoutDate,
			"status":        trn.Status,
		}).
		Returning("id").
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, err
	}

	var trnID int
	if err := db.queryerFor(transaction).GetContext(ctx, &trnID, query, args...); err != nil {
		return 0, err
	}

	return trnID, nil
}

// GetTransactionsPage returns one page of transactions in insertion order.
func (db *PostgresDB) GetTransactionsPage(ctx context.Context, offset, limit int) ([]models.Transaction, error) {
	query, args, err := goqu.Dialect(dialect).
		From(tableTransactions).
		Select("id", "user_id", "book_id", "title", "author", "checkout_date", "status").
		Order(goqu.C("id").Asc()).
		Offset(uint(offset)).
		Limit(uint(limit)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}

	transactions := []models.Transaction{}
	if err := db.database.SelectContext(ctx, &transactions, query, args...); err != nil {
		return nil, err
	}

	return transactions, nil
}

// CountTransactions returns the total number of circulation records.
func (db *PostgresDB) CountTransactions(ctx context.Context) (int, error) {
	return db.countRows(ctx, tableTransactions)
}

// HasActiveCheckout reports whether the user already holds a checked_out
// record for the given book.
func (db *PostgresDB) HasActiveCheckout(ctx context.Context, userID, bookID int, transaction *sqlx.Tx) (bool, error) {
	query, args, err := goqu.Dialect(dialect).
		From(tableTransactions).
		Select(goqu.COUNT("*")).
		Where(goqu.Ex{
			"user_id": userID,
			"book_id": bookID,
			"status":  models.StatusCheckedOut,
		}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return false, err
	}

	var count int
	if err := db.queryerFor(transaction).GetContext(ctx, &count, query, args...); err != nil {
		return false, err
	}

	return count > 0, nil
}

// BeginTransaction starts a new SQL transaction. The caller commits or
// rolls it back.
func (db *PostgresDB) BeginTransaction() (*sqlx.Tx, error) {
	return db.database.Beginx()
}

// RollbackTransaction rolls back the given SQL transaction.
func (db *PostgresDB) RollbackTransaction(transaction *sqlx.Tx) error {
	return transaction.Rollback()
}

// CommitTransaction commits the given SQL transaction.
func (db *PostgresDB) CommitTransaction(transaction *sqlx.Tx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred while committing transaction: %v", r)
		}
	}()

	return transaction.Commit()
}

// Ping verifies connectivity within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close releases the underlying connection pool.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) countRows(ctx context.Context, table string) (int, error) {
	query, _, err := goqu.Dialect(dialect).
		From(table).
		Select(goqu.COUNT("*")).
		ToSQL()
	if err != nil {
		return 0, err
	}

	var count int
	if err := db.database.GetContext(ctx, &count, query); err != nil {
		return 0, err
	}

	return count, nil
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf("dropping public schema tables: %w", err)
	}

	return nil
}

func affected(result sql.Result) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}
