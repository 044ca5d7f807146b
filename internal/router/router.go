// Package router wires the HTTP surface of the application: the paginated
// list pages, the modal form submissions and the health check.
package router

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/libtrack/internal/gzippedhttp"
	"github.com/patric-chuzhbe/libtrack/internal/logger"
	"github.com/patric-chuzhbe/libtrack/internal/models"
	"github.com/patric-chuzhbe/libtrack/internal/pagination"
	"github.com/patric-chuzhbe/libtrack/internal/service"
	"github.com/patric-chuzhbe/libtrack/internal/view"
)

type sessioner interface {
	WithSession(h http.Handler) http.Handler
}

type handlers struct {
	service *service.Service
	views   *view.View
}

// New builds the chi router with logging, gzip and session middlewares and
// every route of the admin UI.
func New(svc *service.Service, views *view.View, sessions sessioner) chi.Router {
	h := &handlers{
		service: svc,
		views:   views,
	}

	router := chi.NewRouter()
	router.Use(logger.WithLoggingHTTPMiddleware)
	router.Use(gzippedhttp.GzipResponse)
	router.Use(sessions.WithSession)

	router.Get(`/`, h.getHome)
	router.Get(`/ping`, h.getPing)

	router.Route(`/users`, func(r chi.Router) {
		r.Get(`/`, h.getUsers)
		r.Post(`/add`, h.postAddUser)
		r.Get(`/edit/{id}`, h.getEditUser)
		r.Post(`/update/{id}`, h.postUpdateUser)
		r.Get(`/delete/{id}`, h.getDeleteUser)
	})

	router.Route(`/books`, func(r chi.Router) {
		r.Get(`/`, h.getBooks)
		r.Post(`/add`, h.postAddBook)
		r.Get(`/edit/{id}`, h.getEditBook)
		r.Post(`/edit/{id}`, h.postEditBook)
		r.Get(`/delete/{id}`, h.getDeleteBook)
	})

	router.Route(`/transactions`, func(r chi.Router) {
		r.Get(`/`, h.getTransactions)
		r.Post(`/add_transaction`, h.postAddTransaction)
	})

	return router
}

// statusForError maps service errors onto HTTP status codes. Anything
// unrecognized is a storage failure and reads as a 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrAlreadyCheckedOut):
		return http.StatusConflict

	case errors.Is(err, service.ErrEmptyField),
		errors.Is(err, service.ErrMissingField),
		errors.Is(err, service.ErrUnknownUser),
		errors.Is(err, service.ErrUnknownBook):
		return http.StatusUnprocessableEntity

	case errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, pagination.ErrInvalidPage):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

func parsePage(req *http.Request) (int, error) {
	raw := req.URL.Query().Get("page")
	if raw == "" {
		return 1, nil
	}

	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, pagination.ErrInvalidPage
	}

	return page, nil
}

func parseIDParam(req *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(req, "id"))
}

// render executes a page template into a buffer first, so a template
// failure can still produce a clean 500 instead of a torn page.
func (h *handlers) render(res http.ResponseWriter, name string, statusCode int, data interface{}) {
	var buf bytes.Buffer
	if err := h.views.Render(&buf, name, data); err != nil {
		logger.Log.Errorln("Error rendering the page: ", zap.Error(err))
		http.Error(res, "internal server error", http.StatusInternalServerError)

		return
	}

	res.Header().Set("Content-Type", "text/html; charset=utf-8")
	res.WriteHeader(statusCode)
	_, _ = res.Write(buf.Bytes())
}

func (h *handlers) getHome(res http.ResponseWriter, req *http.Request) {
	h.render(res, "home", http.StatusOK, view.HomeData{})
}

func (h *handlers) getPing(res http.ResponseWriter, req *http.Request) {
	if err := h.service.Ping(req.Context()); err != nil {
		logger.Log.Errorln("Storage ping failed: ", zap.Error(err))
		res.WriteHeader(http.StatusInternalServerError)

		return
	}

	res.WriteHeader(http.StatusOK)
}

func (h *handlers) renderUsersPage(res http.ResponseWriter, req *http.Request, requestedPage, statusCode int, errMsg string) {
	list, err := h.service.ListUsers(req.Context(), requestedPage)
	if err != nil {
		http.Error(res, err.Error(), statusForError(err))

		return
	}

	h.render(res, "users", statusCode, view.UsersData{
		Users:    list.Users,
		Page:     list.Page,
		PagePath: "/users",
		Error:    errMsg,
	})
}

func (h *handlers) getUsers(res http.ResponseWriter, req *http.Request) {
	page, err := parsePage(req)
	if err != nil {
		http.Error(res, err.Error(), statusForError(err))

		return
	}

	h.renderUsersPage(res, req, page, http.StatusOK, "")
}

func (h *handlers) postAddUser(res http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)

		return
	}

	if _, err := h.service.CreateUser(req.Context(), req.PostFormValue("username")); err != nil {
		h.renderUsersPage(res, req, 1, statusForError(err), err.Error())

		return
	}

	http.Redirect(res, req, "/users", http.StatusSeeOther)
}

func (h *handlers) getEditUser(res http.ResponseWriter, req *http.Request) {
	userID, err := parseIDParam(req)
	if err != nil {
		http.Error(res, "user not found", http.StatusNotFound)

		return
	}

	usr, err := h.service.GetUser(req.Context(), userID)
	if err != nil {
		http.Error(res, err.Error(), statusForError(err))

		return
	}

	h.render(res, "edit_user", http.StatusOK, view.EditUserData{User: *usr})
}

func (h *handlers) postUpdateUser(res http.ResponseWriter, req *http.Request) {
	userID, err := parseIDParam(req)
	if err != nil {
		http.Error(res, "user not found", http.StatusNotFound)

		return
	}

	if err := req.ParseForm(); err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)

		return
	}

	username := req.PostFormValue("username")
	if err := h.service.UpdateUser(req.Context(), userID, username); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			http.Error(res, err.Error(), http.StatusNotFound)

			return
		}

		h.render(res, "edit_user", statusForError(err), view.EditUserData{
			User:  models.User{ID: userID, Username: username},
			Error: err.Error(),
		})

		return
	}

	http.Redirect(res, req, "/users", http.StatusSeeOther)
}

func (h *handlers) getDeleteUser(res http.ResponseWriter, req *http.Request) {
	userID, err := parseIDParam(req)
	if err != nil {
		http.Error(res, "user not found", http.StatusNotFound)

		return
	}

	if err := h.service.DeleteUser(req.Context(), userID); err != nil {
		http.Error(res, err.Error(), statusForError(err))

		return
	}

	http.Redirect(res, req, "/users", http.StatusSeeOther)
}

func (h *handlers) renderBooksPage(res http.ResponseWriter, req *http.Request, requestedPage, statusCode int, errMsg string) {
	list, err := h.service.ListBooks(req.Context(), requestedPage)
	if err != nil {
		http.Error(res, err.Error(), statusForError(err))

		return
	}

	h.render(res, "books", statusCode, view.BooksData{
		Books:    list.Books,
		Page:     list.Page,
		PagePath: "/books",
		Error:    errMsg,
	})
}

func (h *handlers) getBooks(res http.ResponseWriter, req *http.Request) {
	page, err := parsePage(req)
	if err != nil {
		http.Error(res, err.Error(), statusForError(err))

		return
	}

	h.renderBooksPage(res, req, page, http.StatusOK, "")
}

func (h *handlers) postAddBook(res http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)

		return
	}

	title := req.PostFormValue("title")
	author := req.PostFormValue("author")
	if _, err := h.service.CreateBook(req.Context(), title, author); err != nil {
		h.renderBooksPage(res, req, 1, statusForError(err), err.Error())

		return
	}

	http.Redirect(res, req, "/books", http.StatusSeeOther)
}

func (h *handlers) getEditBook(res http.ResponseWriter, req *http.Request) {
	bookID, err := parseIDParam(req)
	if err != nil {
		http.Error(res, "book not found", http.StatusNotFound)

		return
	}

	book, err := h.service.GetBook(req.Context(), bookID)
	if err != nil {
		http.Error(res, err.Error(), statusForError(err))

		return
	}

	h.render(res, "edit_book", http.StatusOK, view.EditBookData{Book: *book})
}

func (h *handlers) postEditBook(res http.ResponseWriter, req *http.Request) {
	bookID, err := parseIDParam(req)
	if err != nil {
		http.Error(res, "book not found", http.StatusNotFound)

		return
	}

	if err := req.ParseForm(); err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)

		return
	}

	title := req.PostFormValue("title")
	author := req.PostFormValue("author")
	if err := h.service.UpdateBook(req.Context(), bookID, title, author); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			http.Error(res, err.Error(), http.StatusNotFound)

			return
		}

		h.render(res, "edit_book", statusForError(err), view.EditBookData{
			Book:  models.Book{ID: bookID, Title: title, Author: author},
			Error: err.Error(),
		})

		return
	}

	http.Redirect(res, req, "/books", http.StatusSeeOther)
}

func (h *handlers) getDeleteBook(res http.ResponseWriter, req *http.Request) {
	bookID, err := parseIDParam(req)
	if err != nil {
		http.Error(res, "book not found", http.StatusNotFound)

		return
	}

	if err := h.service.DeleteBook(req.Context(), bookID); err != nil {
		http.Error(res, err.Error(), statusForError(err))

		return
	}

	http.Redirect(res, req, "/books", http.StatusSeeOther)
}

func (h *handlers) renderTransactionsPage(res http.ResponseWriter, req *http.Request, requestedPage, statusCode int, errMsg string) {
	list, err := h.service.ListTransactions(req.Context(), requestedPage)
	if err != nil {
		http.Error(res, err.Error(), statusForError(err))

		return
	}

	users, err := h.service.GetAllUsers(req.Context())
	if err != nil {
		http.Error(res, err.Error(), http.StatusInternalServerError)

		return
	}

	books, err := h.service.GetAllBooks(req.Context())
	if err != nil {
		http.Error(res, err.Error(), http.StatusInternalServerError)

		return
	}

	h.render(res, "transactions", statusCode, view.TransactionsData{
		Rows:     list.Rows,
		Users:    users,
		Books:    books,
		Page:     list.Page,
		PagePath: "/transactions",
		Error:    errMsg,
	})
}

func (h *handlers) getTransactions(res http.ResponseWriter, req *http.Request) {
	page, err := parsePage(req)
	if err != nil {
		http.Error(res, err.Error(), statusForError(err))

		return
	}

	h.renderTransactionsPage(res, req, page, http.StatusOK, "")
}

func (h *handlers) postAddTransaction(res http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)

		return
	}

	userID, err := strconv.Atoi(req.PostFormValue("user_id"))
	if err != nil {
		h.renderTransactionsPage(
			res,
			req,
			1,
			statusForError(service.ErrUnknownUser),
			service.ErrUnknownUser.Error(),
		)

		return
	}

	payload, err := service.PayloadFromForm(
		req.PostFormValue("status"),
		req.PostFormValue("book_id"),
		req.PostFormValue("title"),
		req.PostFormValue("author"),
	)
	if err != nil {
		h.renderTransactionsPage(res, req, 1, statusForError(err), err.Error())

		return
	}

	if _, err := h.service.CreateTransaction(req.Context(), userID, payload); err != nil {
		h.renderTransactionsPage(res, req, 1, statusForError(err), err.Error())

		return
	}

	http.Redirect(res, req, "/transactions", http.StatusSeeOther)
}
