// Package jsondb implements the record store on top of a single JSON file.
// The whole dataset lives in memory and is flushed to disk on Close.
package jsondb

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/jmoiron/sqlx"

	"github.com/patric-chuzhbe/libtrack/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CacheStruct is the serialized shape of the dataset. Record slices keep
// insertion order; ids grow monotonically and are never reused.
type CacheStruct struct {
	Users             []models.User
	Books             []models.Book
	Transactions      []models.Transaction
	NextUserID        int
	NextBookID        int
	NextTransactionID int
}

// JSONDB is a file-backed record store. All operations are guarded by a
// single RW mutex, which gives the per-record atomicity concurrent
// requests rely on.
type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	Cache    CacheStruct
}

// NewCache returns an initialized, empty dataset.
func NewCache() CacheStruct {
	return CacheStruct{
		Users:             []models.User{},
		Books:             []models.Book{},
		Transactions:      []models.Transaction{},
		NextUserID:        1,
		NextBookID:        1,
		NextTransactionID: 1,
	}
}

func initDBFile(fileName string) error {
	dbFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	emptyCache, err := json.MarshalIndent(NewCache(), "", "    ")
	if err != nil {
		return err
	}

	if _, err := dbFile.Write(emptyCache); err != nil {
		return err
	}

	return dbFile.Close()
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "    ")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %s", err)
	}

	file, err2 := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err2 != nil {
		return fmt.Errorf("error opening file: %s", err2)
	}
	defer file.Close()

	if _, err := file.Write(jsonData); err != nil {
		return fmt.Errorf("error writing to file: %s", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(cache)
}

// New loads the dataset from fileName, creating an empty file when none
// exists yet.
func New(fileName string) (*JSONDB, error) {
	db := JSONDB{
		fileName: fileName,
		Cache:    NewCache(),
	}

	err := parseJSONFile(db.fileName, &db.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := initDBFile(fileName); err != nil {
			return nil, err
		}
		if err := parseJSONFile(db.fileName, &db.Cache); err != nil {
			return nil, err
		}
	}

	return &db, nil
}

// CreateUser appends a user and returns the assigned id.
func (db *JSONDB) CreateUser(ctx context.Context, username string, transaction *sqlx.Tx) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	userID := db.Cache.NextUserID
	db.Cache.NextUserID++
	db.Cache.Users = append(db.Cache.Users, models.User{ID: userID, Username: username})

	return userID, nil
}

// GetUserByID fetches a user by id; the second result reports presence.
func (db *JSONDB) GetUserByID(ctx context.Context, userID int, transaction *sqlx.Tx) (*models.User, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, usr := range db.Cache.Users {
		if usr.ID == userID {
			found := usr
			return &found, true, nil
		}
	}

	return nil, false, nil
}

// FindUserByUsername looks a user up by exact username.
func (db *JSONDB) FindUserByUsername(ctx context.Context, username string, transaction *sqlx.Tx) (*models.User, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, usr := range db.Cache.Users {
		if usr.Username == username {
			found := usr
			return &found, true, nil
		}
	}

	return nil, false, nil
}

// UpdateUser overwrites the mutable fields of an existing user.
func (db *JSONDB) UpdateUser(ctx context.Context, usr *models.User, transaction *sqlx.Tx) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.Cache.Users {
		if db.Cache.Users[i].ID == usr.ID {
			db.Cache.Users[i].Username = usr.Username
			return true, nil
		}
	}

	return false, nil
}

// DeleteUser removes a user. Transactions referencing it keep their now
// dangling user reference.
func (db *JSONDB) DeleteUser(ctx context.Context, userID int) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.Cache.Users {
		if db.Cache.Users[i].ID == userID {
			db.Cache.Users = append(db.Cache.Users[:i], db.Cache.Users[i+1:]...)
			return true, nil
		}
	}

	return false, nil
}

// GetUsersPage returns one page of users ordered by id ascending.
func (db *JSONDB) GetUsersPage(ctx context.Context, offset, limit int) ([]models.User, error) {
	users, err := db.GetAllUsers(ctx)
	if err != nil {
		return nil, err
	}

	return sliceWindow(users, offset, limit), nil
}

// GetAllUsers returns every user ordered by id ascending.
func (db *JSONDB) GetAllUsers(ctx context.Context) ([]models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	users := make([]models.User, len(db.Cache.Users))
	copy(users, db.Cache.Users)
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	return users, nil
}

// CountUsers returns the total number of users.
func (db *JSONDB) CountUsers(ctx context.Context) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.Cache.Users), nil
}

// CreateBook appends a catalog book and returns the assigned id.
func (db *JSONDB) CreateBook(ctx context.Context, title, author string, transaction *sqlx.Tx) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	bookID := db.Cache.NextBookID
	db.Cache.NextBookID++
	db.Cache.Books = append(db.Cache.Books, models.Book{ID: bookID, Title: title, Author: author})

	return bookID, nil
}

// GetBookByID fetches a catalog book by id; the second result reports presence.
func (db *JSONDB) GetBookByID(ctx context.Context, bookID int, transaction *sqlx.Tx) (*models.Book, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, book := range db.Cache.Books {
		if book.ID == bookID {
			found := book
			return &found, true, nil
		}
	}

	return nil, false, nil
}

// UpdateBook overwrites title and author of an existing book.
func (db *JSONDB) UpdateBook(ctx context.Context, book *models.Book, transaction *sqlx.Tx) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.Cache.Books {
		if db.Cache.Books[i].ID == book.ID {
			db.Cache.Books[i].Title = book.Title
			db.Cache.Books[i].Author = book.Author
			return true, nil
		}
	}

	return false, nil
}

// DeleteBook removes a catalog book.
func (db *JSONDB) DeleteBook(ctx context.Context, bookID int) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.Cache.Books {
		if db.Cache.Books[i].ID == bookID {
			db.Cache.Books = append(db.Cache.Books[:i], db.Cache.Books[i+1:]...)
			return true, nil
		}
	}

	return false, nil
}

// GetBooksPage returns one page of books in insertion order.
func (db *JSONDB) GetBooksPage(ctx context.Context, offset, limit int) ([]models.Book, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	books := make([]models.Book, len(db.Cache.Books))
	copy(books, db.Cache.Books)

	return sliceWindow(books, offset, limit), nil
}

// GetAllBooks returns the whole catalog in insertion order.
func (db *JSONDB) GetAllBooks(ctx context.Context) ([]models.Book, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	books := make([]models.Book, len(db.Cache.Books))
	copy(books, db.Cache.Books)

	return books, nil
}

// CountBooks returns the total number of catalog books.
func (db *JSONDB) CountBooks(ctx context.Context) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.Cache.Books), nil
}

// CreateTransaction appends one immutable circulation record and returns
// the assigned id.
func (db *JSONDB) CreateTransaction(ctx context.Context, trn *models.Transaction, transaction *sqlx.Tx) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored := *trn
	stored.ID = db.Cache.NextTransactionID
	db.Cache.NextTransactionID++
	db.Cache.Transactions = append(db.Cache.Transactions, stored)

	return stored.ID, nil
}

// GetTransactionsPage returns one page of transactions in insertion order.
func (db *JSONDB) GetTransactionsPage(ctx context.Context, offset, limit int) ([]models.Transaction, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	transactions := make([]models.Transaction, len(db.Cache.Transactions))
	copy(transactions, db.Cache.Transactions)

	return sliceWindow(transactions, offset, limit), nil
}

// CountTransactions returns the total number of circulation records.
func (db *JSONDB) CountTransactions(ctx context.Context) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.Cache.Transactions), nil
}

// HasActiveCheckout reports whether the user already holds a checked_out
// record for the given book.
func (db *JSONDB) HasActiveCheckout(ctx context.Context, userID, bookID int, transaction *sqlx.Tx) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, trn := range db.Cache.Transactions {
		if trn.Status != models.StatusCheckedOut || trn.BookID == nil {
			continue
		}
		if trn.UserID == userID && *trn.BookID == bookID {
			return true, nil
		}
	}

	return false, nil
}

// BeginTransaction is a no-op for the file backend.
func (db *JSONDB) BeginTransaction() (*sqlx.Tx, error) {
	return nil, nil
}

// RollbackTransaction is a no-op for the file backend.
func (db *JSONDB) RollbackTransaction(transaction *sqlx.Tx) error {
	return nil
}

// CommitTransaction is a no-op for the file backend.
func (db *JSONDB) CommitTransaction(transaction *sqlx.Tx) error {
	return nil
}

// Ping always succeeds; the dataset lives in memory.
func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close flushes the dataset to the backing file.
func (db *JSONDB) Close() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return writeToJSONFile(db.fileName, db.Cache)
}

func sliceWindow[T any](records []T, offset, limit int) []T {
	if offset >= len(records) {
		return []T{}
	}

	end := offset + limit
	if end > len(records) {
		end = len(records)
	}

	return records[offset:end]
}
