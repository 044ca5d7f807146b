package models

import (
	"errors"
	"time"
)

// Transaction status values recognized by the service.
const (
	StatusCheckedOut = "checked_out"
	StatusCheckedIn  = "checked_in"
)

// User is a library member managed through the admin pages.
type User struct {
	ID       int    `json:"id" db:"id"`
	Username string `json:"username" db:"username" validate:"required"`
}

// Book is a catalog entry. Title and author are both mandatory.
type Book struct {
	ID     int    `json:"id" db:"id"`
	Title  string `json:"title" db:"title" validate:"required"`
	Author string `json:"author" db:"author" validate:"required"`
}

// Transaction records a single checkout or check-in. A record is appended
// once and never mutated afterwards. For checkouts BookID references a
// catalog book and Title/Author stay empty; for check-ins the returned book
// is described inline by Title/Author and BookID stays nil.
type Transaction struct {
	ID           int       `json:"id" db:"id"`
	UserID       int       `json:"user_id" db:"user_id"`
	BookID       *int      `json:"book_id,omitempty" db:"book_id"`
	Title        string    `json:"title,omitempty" db:"title"`
	Author       string    `json:"author,omitempty" db:"author"`
	CheckoutDate time.Time `json:"checkout_date" db:"checkout_date"`
	Status       string    `json:"status" db:"status"`
}

// TransactionPayload is the variant part of a transaction submission.
// The two statuses require mutually exclusive field sets, so the payload is
// a closed sum over exactly two variants; anything else never gets past
// form decoding.
type TransactionPayload interface {
	isTransactionPayload()
}

// CheckOutPayload borrows an existing catalog book.
type CheckOutPayload struct {
	BookID int
}

// CheckInPayload returns a book described ad hoc, not necessarily matching
// any catalog entry.
type CheckInPayload struct {
	Title  string
	Author string
}

func (CheckOutPayload) isTransactionPayload() {}
func (CheckInPayload) isTransactionPayload()  {}

// TransactionRow is the presentation shape of a transaction in the list
// view, with user and book references already resolved to display strings.
type TransactionRow struct {
	ID           int
	BookTitle    string
	Username     string
	CheckoutDate time.Time
	Status       string
}

// Storage backend kinds selectable via configuration.
const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)

// ErrNotFound is returned by storage implementations and the service when
// an id does not resolve to an existing record.
var ErrNotFound = errors.New("record not found")
