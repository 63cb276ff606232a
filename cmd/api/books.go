// cmd/api/books.go
// This file contains HTTP request handlers for the books resource.
// Each handler is a method on *applicationDependencies so it has access
// to the logger and database models.
package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/clms-project/clms/internal/data"
	"github.com/clms-project/clms/internal/validator"
)

// createBookHandler handles POST /v1/books.
// It creates the book record and bulk-creates one copy per total_copies with
// sequentially generated labels, then responds with the book, its copies,
// and a 201 Created status. The label prefix defaults to "BK<book id>" when
// not supplied.
func (app *applicationDependencies) createBookHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Title       string `json:"title"`
		Author      string `json:"author"`
		Year        int    `json:"year"`
		TotalCopies int    `json:"total_copies"`
		LabelPrefix string `json:"label_prefix"`
		LabelSuffix string `json:"label_suffix"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	book := &data.Book{
		Title:       input.Title,
		Author:      input.Author,
		Year:        input.Year,
		TotalCopies: input.TotalCopies,
	}

	v := validator.New()
	data.ValidateBook(v, book)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.Books.Insert(book)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	prefix := input.LabelPrefix
	if prefix == "" {
		prefix = fmt.Sprintf("BK%d", book.ID)
	}

	copies, err := app.models.BookNumbers.CreateBatch(book.ID, prefix, book.TotalCopies, input.LabelSuffix)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrDuplicateLabel):
			v.AddError("label_prefix", "generated labels collide with existing book numbers")
			app.failedValidationResponse(w, r, v.Errors)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"book": book, "book_numbers": copies}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showBookHandler handles GET /v1/books/:id.
// It returns the book together with all of its copies, mirroring the book
// details page. Responds 404 if no book with that ID exists.
func (app *applicationDependencies) showBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	book, err := app.models.Books.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	copies, err := app.models.BookNumbers.GetAllForBook(book.ID, "")
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"book": book, "book_numbers": copies}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listBooksHandler handles GET /v1/books.
// Supports ?search= over title/author plus the standard page/page_size/sort
// query parameters.
func (app *applicationDependencies) listBooksHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	search := app.readString(qs, "search", "")

	var filters data.Filters
	filters.Page = app.readInt(qs, "page", 1)
	filters.PageSize = app.readInt(qs, "page_size", 20)
	filters.Sort = app.readString(qs, "sort", "id")
	filters.SortSafeList = []string{"id", "title", "author", "year", "-id", "-title", "-author", "-year"}

	v := validator.New()
	data.ValidateFilters(v, filters)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	books, metadata, err := app.models.Books.GetAll(search, filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"books": books, "metadata": metadata}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateBookHandler handles PATCH /v1/books/:id.
// It reads a partial JSON body, applies only the non-nil fields, and saves
// the changes. Shrinking total_copies below the number of currently assigned
// copies is rejected with a validation error.
func (app *applicationDependencies) updateBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	book, err := app.models.Books.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	// Each field is a pointer; nil means "not provided, leave as-is".
	var input struct {
		Title       *string `json:"title"`
		Author      *string `json:"author"`
		Year        *int    `json:"year"`
		TotalCopies *int    `json:"total_copies"`
	}

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if input.Title != nil {
		book.Title = *input.Title
	}
	if input.Author != nil {
		book.Author = *input.Author
	}
	if input.Year != nil {
		book.Year = *input.Year
	}
	if input.TotalCopies != nil {
		book.TotalCopies = *input.TotalCopies
	}

	v := validator.New()
	data.ValidateBook(v, book)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.Books.Update(book)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"book": book}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteBookHandler handles DELETE /v1/books/:id.
// Deleting a book cascades to its copies. Responds 404 if no book with that
// ID exists.
func (app *applicationDependencies) deleteBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.models.Books.Delete(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "book successfully deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listAvailableNumbersHandler handles GET /v1/books/:id/available-numbers.
// It returns the available copies of one book, for the admin approval flow.
func (app *applicationDependencies) listAvailableNumbersHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	// Confirm the book exists so an unknown ID is a 404 rather than an
	// empty list.
	_, err = app.models.Books.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	copies, err := app.models.BookNumbers.GetAvailableForBook(id)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"available_numbers": copies}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
