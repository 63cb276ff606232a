// cmd/api/clients.go
// This file contains HTTP request handlers for the client directory in the
// admin console. Client self-service lives in auth.go and client_area.go.
package main

import (
	"errors"
	"net/http"

	"github.com/clms-project/clms/internal/data"
	"github.com/clms-project/clms/internal/validator"
)

// defaultClientPassword is used when staff create a client account without
// supplying a password. The client is expected to change it after first login.
const defaultClientPassword = "library123"

// listClientsHandler handles GET /v1/clients.
// Supports ?search= over name/email/ID number plus pagination.
func (app *applicationDependencies) listClientsHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	search := app.readString(qs, "search", "")

	var filters data.Filters
	filters.Page = app.readInt(qs, "page", 1)
	filters.PageSize = app.readInt(qs, "page_size", 20)
	filters.Sort = app.readString(qs, "sort", "name")
	filters.SortSafeList = []string{"id", "name", "email", "-id", "-name", "-email"}

	v := validator.New()
	data.ValidateFilters(v, filters)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	clients, metadata, err := app.models.Clients.GetAll(search, filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"clients": clients, "metadata": metadata}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// createClientHandler handles POST /v1/clients.
// Staff-created accounts default to the shared initial password when none is
// given, and are active immediately.
func (app *applicationDependencies) createClientHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name        string `json:"name"`
		IDNumber    string `json:"id_number"`
		PhoneNumber string `json:"phone_number"`
		Email       string `json:"email"`
		Password    string `json:"password"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if input.Password == "" {
		input.Password = defaultClientPassword
	}

	client := &data.Client{
		Name:        input.Name,
		IDNumber:    input.IDNumber,
		PhoneNumber: input.PhoneNumber,
		Email:       input.Email,
		Status:      data.ClientActive,
	}
	err = client.Password.Set(input.Password)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	v := validator.New()
	data.ValidateClient(v, client)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.Clients.Insert(client)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrDuplicateEmail):
			v.AddError("email", "an account with this email address already exists")
			app.failedValidationResponse(w, r, v.Errors)
		case errors.Is(err, data.ErrDuplicateIDNumber):
			v.AddError("id_number", "an account with this ID number already exists")
			app.failedValidationResponse(w, r, v.Errors)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"client": client}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showClientHandler handles GET /v1/clients/:id.
// The response includes the copies the client currently holds, matching the
// client details page.
func (app *applicationDependencies) showClientHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	client, err := app.models.Clients.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	borrowed, err := app.models.BookNumbers.GetBorrowedByClient(client.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"client": client, "borrowed_books": borrowed}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateClientHandler handles PATCH /v1/clients/:id.
// Partial update of directory details, status, and optionally the password.
func (app *applicationDependencies) updateClientHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	client, err := app.models.Clients.Get(id)
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
		Name        *string `json:"name"`
		IDNumber    *string `json:"id_number"`
		PhoneNumber *string `json:"phone_number"`
		Email       *string `json:"email"`
		Status      *string `json:"status"`
		Password    *string `json:"password"`
	}

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if input.Name != nil {
		client.Name = *input.Name
	}
	if input.IDNumber != nil {
		client.IDNumber = *input.IDNumber
	}
	if input.PhoneNumber != nil {
		client.PhoneNumber = *input.PhoneNumber
	}
	if input.Email != nil {
		client.Email = *input.Email
	}
	if input.Status != nil {
		client.Status = *input.Status
	}
	if input.Password != nil {
		err = client.Password.Set(*input.Password)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
	}

	v := validator.New()
	data.ValidateClient(v, client)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.Clients.Update(client)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrDuplicateEmail):
			v.AddError("email", "an account with this email address already exists")
			app.failedValidationResponse(w, r, v.Errors)
		case errors.Is(err, data.ErrDuplicateIDNumber):
			v.AddError("id_number", "an account with this ID number already exists")
			app.failedValidationResponse(w, r, v.Errors)
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"client": client}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteClientHandler handles DELETE /v1/clients/:id.
// Deleting a client while they still hold copies is refused, so circulation
// records cannot be orphaned by accident.
func (app *applicationDependencies) deleteClientHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	held, err := app.models.BookNumbers.CountAssignedToClient(id)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	if held > 0 {
		app.conflictResponse(w, r, "this client still has borrowed books that must be collected first")
		return
	}

	err = app.models.Clients.Delete(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	// Any sessions the deleted client still holds are dead weight now.
	err = app.models.Sessions.DeleteAllFor(data.PrincipalClient, id)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "client successfully deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
