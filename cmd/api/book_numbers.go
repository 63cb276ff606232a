// cmd/api/book_numbers.go
// This file contains HTTP request handlers for physical copies ("book
// numbers") and the circulation report listings.
package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/clms-project/clms/internal/data"
	"github.com/clms-project/clms/internal/validator"
)

// listBookNumbersHandler handles GET /v1/book-numbers?book_id=N&search=...
// A book_id is required; the optional search term filters labels.
func (app *applicationDependencies) listBookNumbersHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	bookID := int64(app.readInt(qs, "book_id", 0))
	search := app.readString(qs, "search", "")

	v := validator.New()
	v.Check(bookID > 0, "book_id", "must be provided")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	copies, err := app.models.BookNumbers.GetAllForBook(bookID, search)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"book_numbers": copies}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// createBookNumberHandler handles POST /v1/book-numbers.
// It adds a single extra copy to an existing book, growing the book's
// total_copies with it. Label collisions surface as a field-level validation
// error.
func (app *applicationDependencies) createBookNumberHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		BookID int64  `json:"book_id"`
		Label  string `json:"label"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	bn := &data.BookNumber{
		BookID: input.BookID,
		Label:  input.Label,
		Status: data.CopyAvailable,
	}

	v := validator.New()
	data.ValidateBookNumber(v, bn)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.BookNumbers.Insert(bn)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			v.AddError("book_id", "must be an existing book")
			app.failedValidationResponse(w, r, v.Errors)
		case errors.Is(err, data.ErrDuplicateLabel):
			v.AddError("label", "a book number with this label already exists")
			app.failedValidationResponse(w, r, v.Errors)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"book_number": bn}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showBookNumberHandler handles GET /v1/book-numbers/:id.
func (app *applicationDependencies) showBookNumberHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	bn, err := app.models.BookNumbers.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"book_number": bn}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateBookNumberHandler handles PATCH /v1/book-numbers/:id.
// Only the label is editable here; circulation state changes exclusively
// through assign, collect, and borrow-request approval.
func (app *applicationDependencies) updateBookNumberHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	bn, err := app.models.BookNumbers.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	var input struct {
		Label *string `json:"label"`
	}

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if input.Label != nil {
		bn.Label = *input.Label
	}

	v := validator.New()
	data.ValidateBookNumber(v, bn)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.BookNumbers.UpdateLabel(bn)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrDuplicateLabel):
			v.AddError("label", "a book number with this label already exists")
			app.failedValidationResponse(w, r, v.Errors)
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"book_number": bn}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteBookNumberHandler handles DELETE /v1/book-numbers/:id.
// Copies that are out with a client must be collected before they can be
// removed.
func (app *applicationDependencies) deleteBookNumberHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.models.BookNumbers.Delete(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, data.ErrCopyAssigned):
			app.conflictResponse(w, r, "this book copy is currently borrowed and must be collected first")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "book number successfully deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// assignBookNumberHandler handles PUT /v1/book-numbers/:id/assign.
// Direct staff assignment of a copy to a client, with a due date no earlier
// than today. Responds 409 if the copy is not currently available.
func (app *applicationDependencies) assignBookNumberHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input struct {
		AssignedTo       int64  `json:"assigned_to"`
		DateToBeReturned string `json:"date_to_be_returned"`
	}

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(input.AssignedTo > 0, "assigned_to", "must be provided")
	v.Check(input.DateToBeReturned != "", "date_to_be_returned", "must be provided")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	dueDate, err := parseDate(input.DateToBeReturned)
	if err != nil {
		v.AddError("date_to_be_returned", "must be a valid date in YYYY-MM-DD format")
		app.failedValidationResponse(w, r, v.Errors)
		return
	}
	if dueDate.Before(today()) {
		v.AddError("date_to_be_returned", "must not be in the past")
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	// The borrower must be an existing client.
	_, err = app.models.Clients.Get(input.AssignedTo)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			v.AddError("assigned_to", "must be an existing client")
			app.failedValidationResponse(w, r, v.Errors)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	bn, err := app.models.BookNumbers.Assign(id, input.AssignedTo, dueDate)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, data.ErrCopyUnavailable):
			app.conflictResponse(w, r, "this book copy is currently not available for assignment")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"book_number": bn}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// collectBookNumberHandler handles PUT /v1/book-numbers/:id/collect.
// It marks a borrowed copy as returned, clearing the borrower and due date
// and releasing the book's counter.
func (app *applicationDependencies) collectBookNumberHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	bn, err := app.models.BookNumbers.Collect(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"book_number": bn}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// reportAssignedHandler handles GET /v1/reports/assigned.
func (app *applicationDependencies) reportAssignedHandler(w http.ResponseWriter, r *http.Request) {
	app.listCopiesResponse(w, r, func() ([]*data.BookNumber, error) {
		return app.models.BookNumbers.GetByStatus(data.CopyAssigned)
	})
}

// reportAvailableHandler handles GET /v1/reports/available.
func (app *applicationDependencies) reportAvailableHandler(w http.ResponseWriter, r *http.Request) {
	app.listCopiesResponse(w, r, func() ([]*data.BookNumber, error) {
		return app.models.BookNumbers.GetByStatus(data.CopyAvailable)
	})
}

// reportOverdueHandler handles GET /v1/reports/overdue.
// Overdue status is computed against the wall clock at request time; no
// background job maintains it.
func (app *applicationDependencies) reportOverdueHandler(w http.ResponseWriter, r *http.Request) {
	app.listCopiesResponse(w, r, func() ([]*data.BookNumber, error) {
		return app.models.BookNumbers.GetOverdue(time.Now())
	})
}

// reportAlmostOverdueHandler handles GET /v1/reports/almost-overdue.
// Lists assigned copies due within the next two days.
func (app *applicationDependencies) reportAlmostOverdueHandler(w http.ResponseWriter, r *http.Request) {
	app.listCopiesResponse(w, r, func() ([]*data.BookNumber, error) {
		return app.models.BookNumbers.GetAlmostOverdue(time.Now())
	})
}

// listCopiesResponse runs a copy query and writes the standard listing envelope.
func (app *applicationDependencies) listCopiesResponse(w http.ResponseWriter, r *http.Request, query func() ([]*data.BookNumber, error)) {
	copies, err := query()
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"book_numbers": copies}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
