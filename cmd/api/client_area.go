// cmd/api/client_area.go
// This file contains HTTP request handlers for the authenticated client area:
// the dashboard, the client's own borrowed books, and the browsable catalog.
package main

import (
	"net/http"

	"github.com/clms-project/clms/internal/data"
	"github.com/clms-project/clms/internal/validator"
)

// clientDashboardHandler handles GET /v1/client/dashboard.
// It returns the caller's circulation summary: how many copies they hold and
// how many requests of theirs are pending.
func (app *applicationDependencies) clientDashboardHandler(w http.ResponseWriter, r *http.Request) {
	principal := app.contextGetPrincipal(r)

	borrowed, err := app.models.BookNumbers.CountAssignedToClient(principal.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	requests, err := app.models.BorrowRequests.GetAllForClient(principal.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	pending := 0
	for _, request := range requests {
		if request.Status == data.RequestPending {
			pending++
		}
	}

	summary := envelope{
		"dashboard": map[string]int{
			"borrowed_books":   borrowed,
			"pending_requests": pending,
			"borrow_limit":     data.MaxBorrowLimit,
		},
	}

	err = app.writeJSON(w, http.StatusOK, summary, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// clientBooksHandler handles GET /v1/client/books.
// Lists the copies currently out with the caller, with titles and due dates.
func (app *applicationDependencies) clientBooksHandler(w http.ResponseWriter, r *http.Request) {
	principal := app.contextGetPrincipal(r)

	borrowed, err := app.models.BookNumbers.GetBorrowedByClient(principal.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"borrowed_books": borrowed}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// clientLibraryHandler handles GET /v1/client/library.
// The browsable catalog shows only books with at least one free copy, and
// marks the ones the caller has already requested so the UI can disable the
// request button.
func (app *applicationDependencies) clientLibraryHandler(w http.ResponseWriter, r *http.Request) {
	principal := app.contextGetPrincipal(r)

	qs := r.URL.Query()
	search := app.readString(qs, "search", "")

	var filters data.Filters
	filters.Page = app.readInt(qs, "page", 1)
	filters.PageSize = app.readInt(qs, "page_size", 20)
	filters.Sort = app.readString(qs, "sort", "title")
	filters.SortSafeList = []string{"title", "author", "year", "-title", "-author", "-year"}

	v := validator.New()
	data.ValidateFilters(v, filters)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	books, metadata, err := app.models.Books.GetAvailable(search, filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	bookIDs := make([]int64, 0, len(books))
	for _, book := range books {
		bookIDs = append(bookIDs, book.ID)
	}

	requestedIDs, err := app.models.BorrowRequests.PendingBookIDs(principal.ID, bookIDs)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{
		"books":              books,
		"requested_book_ids": requestedIDs,
		"metadata":           metadata,
	}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
