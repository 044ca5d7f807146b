// Package view renders the server-side HTML pages from templates embedded
// into the binary.
package view

import (
	"embed"
	"html/template"
	"io"
	"time"

	"github.com/patric-chuzhbe/libtrack/internal/models"
	"github.com/patric-chuzhbe/libtrack/internal/pagination"
)

//go:embed templates/*.gohtml
var templatesFS embed.FS

// View holds the parsed template set.
type View struct {
	templates *template.Template
}

// New parses the embedded templates.
func New() (*View, error) {
	templates, err := template.New("").
		Funcs(template.FuncMap{
			"formatDate": func(t time.Time) string {
				return t.Format("2006-01-02 15:04")
			},
		}).
		ParseFS(templatesFS, "templates/*.gohtml")
	if err != nil {
		return nil, err
	}

	return &View{templates: templates}, nil
}

// Render executes the named page template with the given data.
func (v *View) Render(w io.Writer, name string, data interface{}) error {
	return v.templates.ExecuteTemplate(w, name, data)
}

// HomeData feeds the home page.
type HomeData struct{}

// UsersData feeds the paginated users page.
type UsersData struct {
	Users    []models.User
	Page     pagination.Page
	PagePath string
	Error    string
}

// EditUserData feeds the user edit form.
type EditUserData struct {
	User  models.User
	Error string
}

// BooksData feeds the paginated books page.
type BooksData struct {
	Books    []models.Book
	Page     pagination.Page
	PagePath string
	Error    string
}

// EditBookData feeds the book edit form.
type EditBookData struct {
	Book  models.Book
	Error string
}

// TransactionsData feeds the paginated transactions page together with the
// selector contents for the add-transaction form.
type TransactionsData struct {
	Rows     []models.TransactionRow
	Users    []models.User
	Books    []models.Book
	Page     pagination.Page
	PagePath string
	Error    string
}
