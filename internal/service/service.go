// Package service implements the application logic of the library admin:
// user and book CRUD, the checkout/check-in transaction lifecycle, and the
// assembly of paginated list pages.
package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/libtrack/internal/models"
	"github.com/patric-chuzhbe/libtrack/internal/pagination"
)

type userKeeper interface {
	CreateUser(ctx context.Context, username string, transaction *sqlx.Tx) (int, error)

	GetUserByID(ctx context.Context, userID int, transaction *sqlx.Tx) (*models.User, bool, error)

	FindUserByUsername(ctx context.Context, username string, transaction *sqlx.Tx) (*models.User, bool, error)

	UpdateUser(ctx context.Context, usr *models.User, transaction *sqlx.Tx) (bool, error)

	DeleteUser(ctx context.Context, userID int) (bool, error)

	GetUsersPage(ctx context.Context, offset, limit int) ([]models.User, error)

	GetAllUsers(ctx context.Context) ([]models.User, error)

	CountUsers(ctx context.Context) (int, error)
}

type bookKeeper interface {
	CreateBook(ctx context.Context, title, author string, transaction *sqlx.Tx) (int, error)

	GetBookByID(ctx context.Context, bookID int, transaction *sqlx.Tx) (*models.Book, bool, error)

	UpdateBook(ctx context.Context, book *models.Book, transaction *sqlx.Tx) (bool, error)

	DeleteBook(ctx context.Context, bookID int) (bool, error)

	GetBooksPage(ctx context.Context, offset, limit int) ([]models.Book, error)

	GetAllBooks(ctx context.Context) ([]models.Book, error)

	CountBooks(ctx context.Context) (int, error)
}

type transactionKeeper interface {
	CreateTransaction(ctx context.Context, trn *models.Transaction, transaction *sqlx.Tx) (int, error)

	GetTransactionsPage(ctx context.Context, offset, limit int) ([]models.Transaction, error)

	CountTransactions(ctx context.Context) (int, error)

	HasActiveCheckout(ctx context.Context, userID, bookID int, transaction *sqlx.Tx) (bool, error)
}

type transactioner interface {
	BeginTransaction() (*sqlx.Tx, error)

	RollbackTransaction(transaction *sqlx.Tx) error

	CommitTransaction(transaction *sqlx.Tx) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	userKeeper
	bookKeeper
	transactionKeeper
	transactioner
	pinger
}

// Errors surfaced to the requester as user-visible messages.
var (
	// ErrEmptyField is returned when a required form field is empty.
	ErrEmptyField = errors.New("required field is empty")

	// ErrUsernameTaken is returned when another user already owns the username.
	ErrUsernameTaken = errors.New("username is already taken")

	// ErrUnknownUser is returned when a transaction references a user id
	// that does not resolve.
	ErrUnknownUser = errors.New("user does not exist")

	// ErrUnknownBook is returned when a checkout references a book id that
	// does not resolve.
	ErrUnknownBook = errors.New("book does not exist")

	// ErrMissingField is returned when a check-in lacks title or author.
	ErrMissingField = errors.New("check-in requires both title and author")

	// ErrInvalidStatus is returned for a status outside the two recognized
	// variants.
	ErrInvalidStatus = errors.New("unrecognized transaction status")

	// ErrAlreadyCheckedOut is returned when the user already holds an open
	// checkout for the same book.
	ErrAlreadyCheckedOut = errors.New("book is already checked out by this user")
)

// ErrNotFound mirrors the storage-level sentinel for handler convenience.
var ErrNotFound = models.ErrNotFound

// Unknown is the display placeholder for dangling user or book references
// in the transaction list.
const Unknown = "Unknown"

// UserList is one page of the users view.
type UserList struct {
	Users []models.User
	Page  pagination.Page
}

// BookList is one page of the books view.
type BookList struct {
	Books []models.Book
	Page  pagination.Page
}

// TransactionList is one page of the transactions view, with references
// already resolved to display rows.
type TransactionList struct {
	Rows []models.TransactionRow
	Page pagination.Page
}

// Service carries the application logic over an injected storage.
type Service struct {
	db       storage
	pageSize int
	now      func() time.Time
}

// New returns a Service listing pageSize records per page.
func New(db storage, pageSize int) *Service {
	return &Service{
		db:       db,
		pageSize: pageSize,
		now:      time.Now,
	}
}

// ListUsers returns the requested page of users sorted by id ascending.
func (s *Service) ListUsers(ctx context.Context, requestedPage int) (*UserList, error) {
	total, err := s.db.CountUsers(ctx)
	if err != nil {
		return nil, err
	}

	page, err := pagination.Paginate(total, s.pageSize, requestedPage)
	if err != nil {
		return nil, err
	}

	users, err := s.db.GetUsersPage(ctx, page.Offset, page.Limit)
	if err != nil {
		return nil, err
	}

	return &UserList{Users: users, Page: page}, nil
}

// CreateUser adds a user with a non-empty, not yet taken username.
func (s *Service) CreateUser(ctx context.Context, username string) (int, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return 0, ErrEmptyField
	}

	_, taken, err := s.db.FindUserByUsername(ctx, username, nil)
	if err != nil {
		return 0, err
	}
	if taken {
		return 0, ErrUsernameTaken
	}

	return s.db.CreateUser(ctx, username, nil)
}

// UpdateUser overwrites the username of an existing user.
func (s *Service) UpdateUser(ctx context.Context, userID int, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrEmptyField
	}

	owner, taken, err := s.db.FindUserByUsername(ctx, username, nil)
	if err != nil {
		return err
	}
	if taken && owner.ID != userID {
		return ErrUsernameTaken
	}

	updated, err := s.db.UpdateUser(ctx, &models.User{ID: userID, Username: username}, nil)
	if err != nil {
		return err
	}
	if !updated {
		return ErrNotFound
	}

	return nil
}

// GetUser fetches a single user for the edit form.
func (s *Service) GetUser(ctx context.Context, userID int) (*models.User, error) {
	usr, found, err := s.db.GetUserByID(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}

	return usr, nil
}

// DeleteUser removes a user. Transactions referencing the user are kept
// and render with an "Unknown" username afterwards.
func (s *Service) DeleteUser(ctx context.Context, userID int) error {
	deleted, err := s.db.DeleteUser(ctx, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}

	return nil
}

// ListBooks returns the requested page of the catalog in insertion order.
func (s *Service) ListBooks(ctx context.Context, requestedPage int) (*BookList, error) {
	total, err := s.db.CountBooks(ctx)
	if err != nil {
		return nil, err
	}

	page, err := pagination.Paginate(total, s.pageSize, requestedPage)
	if err != nil {
		return nil, err
	}

	books, err := s.db.GetBooksPage(ctx, page.Offset, page.Limit)
	if err != nil {
		return nil, err
	}

	return &BookList{Books: books, Page: page}, nil
}

// CreateBook adds a catalog book with non-empty title and author.
func (s *Service) CreateBook(ctx context.Context, title, author string) (int, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" || author == "" {
		return 0, ErrEmptyField
	}

	return s.db.CreateBook(ctx, title, author, nil)
}

// GetBook fetches a single catalog book for the edit form.
func (s *Service) GetBook(ctx context.Context, bookID int) (*models.Book, error) {
	book, found, err := s.db.GetBookByID(ctx, bookID, nil)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}

	return book, nil
}

// UpdateBook overwrites title and author of an existing book.
func (s *Service) UpdateBook(ctx context.Context, bookID int, title, author string) error {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" || author == "" {
		return ErrEmptyField
	}

	updated, err := s.db.UpdateBook(ctx, &models.Book{ID: bookID, Title: title, Author: author}, nil)
	if err != nil {
		return err
	}
	if !updated {
		return ErrNotFound
	}

	return nil
}

// DeleteBook removes a catalog book. Checkout transactions referencing it
// are kept and render with an "Unknown" title afterwards.
func (s *Service) DeleteBook(ctx context.Context, bookID int) error {
	deleted, err := s.db.DeleteBook(ctx, bookID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}

	return nil
}

// PayloadFromForm maps the submitted status and its companion fields onto
// the transaction payload variant. The two statuses require mutually
// exclusive field sets, so everything else is rejected up front.
func PayloadFromForm(status, bookID, title, author string) (models.TransactionPayload, error) {
	switch status {
	case models.StatusCheckedOut:
		id, err := strconv.Atoi(strings.TrimSpace(bookID))
		if err != nil {
			return nil, ErrUnknownBook
		}
		return models.CheckOutPayload{BookID: id}, nil

	case models.StatusCheckedIn:
		return models.CheckInPayload{
			Title:  strings.TrimSpace(title),
			Author: strings.TrimSpace(author),
		}, nil

	default:
		return nil, ErrInvalidStatus
	}
}

// CreateTransaction validates the submission against the payload variant
// and appends exactly one immutable transaction record. A checkout must
// reference an existing catalog book the user does not already hold; a
// check-in stands alone and never touches the catalog.
func (s *Service) CreateTransaction(ctx context.Context, userID int, payload models.TransactionPayload) (int, error) {
	tx, err := s.db.BeginTransaction()
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = s.db.RollbackTransaction(tx)
	}()

	_, found, err := s.db.GetUserByID(ctx, userID, tx)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrUnknownUser
	}

	var trn models.Transaction

	switch p := payload.(type) {
	case models.CheckOutPayload:
		_, found, err := s.db.GetBookByID(ctx, p.BookID, tx)
		if err != nil {
			return 0, err
		}
		if !found {
			return 0, ErrUnknownBook
		}

		active, err := s.db.HasActiveCheckout(ctx, userID, p.BookID, tx)
		if err != nil {
			return 0, err
		}
		if active {
			return 0, ErrAlreadyCheckedOut
		}

		bookID := p.BookID
		trn = models.Transaction{
			UserID:       userID,
			BookID:       &bookID,
			CheckoutDate: s.now(),
			Status:       models.StatusCheckedOut,
		}

	case models.CheckInPayload:
		if p.Title == "" || p.Author == "" {
			return 0, ErrMissingField
		}

		trn = models.Transaction{
			UserID:       userID,
			Title:        p.Title,
			Author:       p.Author,
			CheckoutDate: s.now(),
			Status:       models.StatusCheckedIn,
		}

	default:
		return 0, ErrInvalidStatus
	}

	trnID, err := s.db.CreateTransaction(ctx, &trn, tx)
	if err != nil {
		return 0, err
	}

	if err := s.db.CommitTransaction(tx); err != nil {
		return 0, err
	}

	return trnID, nil
}

// ListTransactions returns the requested page of transactions with user
// and book references resolved for display. Dangling references render as
// "Unknown" rather than failing the page.
func (s *Service) ListTransactions(ctx context.Context, requestedPage int) (*TransactionList, error) {
	total, err := s.db.CountTransactions(ctx)
	if err != nil {
		return nil, err
	}

	page, err := pagination.Paginate(total, s.pageSize, requestedPage)
	if err != nil {
		return nil, err
	}

	transactions, err := s.db.GetTransactionsPage(ctx, page.Offset, page.Limit)
	if err != nil {
		return nil, err
	}

	users, err := s.db.GetAllUsers(ctx)
	if err != nil {
		return nil, err
	}

	books, err := s.db.GetAllBooks(ctx)
	if err != nil {
		return nil, err
	}

	usersByID := funk.ToMap(users, "ID").(map[int]models.User)
	booksByID := funk.ToMap(books, "ID").(map[int]models.Book)

	rows := make([]models.TransactionRow, 0, len(transactions))
	for _, trn := range transactions {
		rows = append(rows, models.TransactionRow{
			ID:           trn.ID,
			BookTitle:    resolveBookTitle(trn, booksByID),
			Username:     resolveUsername(trn, usersByID),
			CheckoutDate: trn.CheckoutDate,
			Status:       trn.Status,
		})
	}

	return &TransactionList{Rows: rows, Page: page}, nil
}

// GetAllUsers returns every user for the transaction form selector.
func (s *Service) GetAllUsers(ctx context.Context) ([]models.User, error) {
	return s.db.GetAllUsers(ctx)
}

// GetAllBooks returns the whole catalog for the transaction form selector.
func (s *Service) GetAllBooks(ctx context.Context) ([]models.Book, error) {
	return s.db.GetAllBooks(ctx)
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func resolveUsername(trn models.Transaction, usersByID map[int]models.User) string {
	if usr, ok := usersByID[trn.UserID]; ok {
		return usr.Username
	}

	return Unknown
}

func resolveBookTitle(trn models.Transaction, booksByID map[int]models.Book) string {
	if trn.Status == models.StatusCheckedIn {
		return trn.Title
	}

	if trn.BookID != nil {
		if book, ok := booksByID[*trn.BookID]; ok {
			return book.Title
		}
	}

	return Unknown
}
