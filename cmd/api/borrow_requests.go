// cmd/api/borrow_requests.go
// This file contains HTTP request handlers for the borrow-request workflow:
// clients submit and cancel requests, admins review and decide them.
package main

import (
	"errors"
	"net/http"

	"github.com/clms-project/clms/internal/data"
	"github.com/clms-project/clms/internal/validator"
)

// createBorrowRequestHandler handles POST /v1/client/borrow-requests.
// The requesting client comes from the session; the body names the book.
// Business-rule violations (no copies, duplicate pending request, borrow
// limit) are conflicts, not validation errors: the request was well-formed
// but the current state refuses it.
func (app *applicationDependencies) createBorrowRequestHandler(w http.ResponseWriter, r *http.Request) {
	principal := app.contextGetPrincipal(r)

	var input struct {
		BookID int64 `json:"book_id"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(input.BookID > 0, "book_id", "must be provided")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	request, err := app.models.BorrowRequests.Submit(principal.ID, input.BookID)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, data.ErrBookUnavailable):
			app.conflictResponse(w, r, "this book has no available copies right now")
		case errors.Is(err, data.ErrDuplicateRequest):
			app.conflictResponse(w, r, "you already have a pending request for this book")
		case errors.Is(err, data.ErrBorrowLimitReached):
			app.conflictResponse(w, r, "you have reached the maximum number of borrowed and requested books")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"borrow_request": request}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listOwnBorrowRequestsHandler handles GET /v1/client/borrow-requests.
func (app *applicationDependencies) listOwnBorrowRequestsHandler(w http.ResponseWriter, r *http.Request) {
	principal := app.contextGetPrincipal(r)

	requests, err := app.models.BorrowRequests.GetAllForClient(principal.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"borrow_requests": requests}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// cancelBorrowRequestHandler handles DELETE /v1/client/borrow-requests/:id.
// A client may only cancel their own request, and only while it is pending.
func (app *applicationDependencies) cancelBorrowRequestHandler(w http.ResponseWriter, r *http.Request) {
	principal := app.contextGetPrincipal(r)

	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	request, err := app.models.BorrowRequests.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	if request.ClientID != principal.ID {
		app.notPermittedResponse(w, r)
		return
	}

	err = app.models.BorrowRequests.Cancel(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, data.ErrAlreadyProcessed):
			app.conflictResponse(w, r, "this request has already been processed and can no longer be cancelled")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "borrow request cancelled"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listBorrowRequestsHandler handles GET /v1/borrow-requests.
// Admin review listing, newest first, with optional status and search filters.
func (app *applicationDependencies) listBorrowRequestsHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	status := app.readString(qs, "status", "")
	search := app.readString(qs, "search", "")

	var filters data.Filters
	filters.Page = app.readInt(qs, "page", 1)
	filters.PageSize = app.readInt(qs, "page_size", 20)
	filters.Sort = app.readString(qs, "sort", "id")
	filters.SortSafeList = []string{"id", "-id"}

	v := validator.New()
	data.ValidateFilters(v, filters)
	if status != "" {
		v.Check(validator.In(status, data.RequestPending, data.RequestApproved, data.RequestRejected),
			"status", "must be one of pending, approved, or rejected")
	}
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	requests, metadata, err := app.models.BorrowRequests.GetAll(status, search, filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"borrow_requests": requests, "metadata": metadata}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showBorrowRequestHandler handles GET /v1/borrow-requests/:id.
func (app *applicationDependencies) showBorrowRequestHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	request, err := app.models.BorrowRequests.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"borrow_request": request}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateBorrowRequestHandler handles PUT /v1/borrow-requests/:id.
// The body carries the decision: {"status": "rejected"} or
// {"status": "approved", "book_number_id": N, "date_to_be_returned": "..."}.
// Approval runs the four-write transaction in the data layer; a copy consumed
// by a concurrent approval surfaces as a 409 and the request stays pending.
func (app *applicationDependencies) updateBorrowRequestHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Status           string `json:"status"`
		BookNumberID     int64  `json:"book_number_id"`
		DateToBeReturned string `json:"date_to_be_returned"`
	}

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(validator.In(input.Status, data.RequestApproved, data.RequestRejected),
		"status", "must be either approved or rejected")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	if input.Status == data.RequestRejected {
		err = app.models.BorrowRequests.Reject(id)
		if err != nil {
			switch {
			case errors.Is(err, data.ErrRecordNotFound):
				app.notFoundResponse(w, r)
			case errors.Is(err, data.ErrAlreadyProcessed):
				app.conflictResponse(w, r, "this request has already been processed")
			default:
				app.serverErrorResponse(w, r, err)
			}
			return
		}

		err = app.writeJSON(w, http.StatusOK, envelope{"message": "borrow request rejected"}, nil)
		if err != nil {
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	// Approval requires a concrete copy and a due date.
	v.Check(input.BookNumberID > 0, "book_number_id", "must be provided")
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

	request, err := app.models.BorrowRequests.Approve(id, input.BookNumberID, dueDate)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, data.ErrAlreadyProcessed):
			app.conflictResponse(w, r, "this request has already been processed")
		case errors.Is(err, data.ErrCopyUnavailable):
			app.conflictResponse(w, r, "the selected book number is no longer available; choose another copy")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"borrow_request": request}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
