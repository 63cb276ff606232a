// cmd/api/auth.go
// This file contains registration, login, and logout handlers for the two
// principal types. Admins and clients authenticate against separate tables
// but share the same session mechanics: a server-side session row referenced
// by an HttpOnly cookie.
package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/clms-project/clms/internal/data"
	"github.com/clms-project/clms/internal/validator"
)

const (
	sessionCookieName = "clms_session"
	sessionTTL        = 24 * time.Hour
)

// setSessionCookie writes the session cookie for a freshly created session.
func setSessionCookie(w http.ResponseWriter, session *data.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.Expiry,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie immediately.
func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// registerAdminHandler handles POST /v1/admin/register.
// It creates a staff account. Unlike client registration it does not log the
// new admin in; they log in explicitly afterwards.
func (app *applicationDependencies) registerAdminHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	admin := &data.Admin{
		Name:  input.Name,
		Email: input.Email,
	}
	err = admin.Password.Set(input.Password)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	v := validator.New()
	data.ValidateAdmin(v, admin)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.Admins.Insert(admin)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrDuplicateEmail):
			v.AddError("email", "an account with this email address already exists")
			app.failedValidationResponse(w, r, v.Errors)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"admin": admin}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// loginAdminHandler handles POST /v1/admin/login.
// On success it creates an admin session and sets the session cookie.
func (app *applicationDependencies) loginAdminHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(input.Email != "", "email", "must be provided")
	v.Check(input.Password != "", "password", "must be provided")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	admin, err := app.models.Admins.GetByEmail(input.Email)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.invalidCredentialsResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	match, err := admin.Password.Matches(input.Password)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	if !match {
		app.invalidCredentialsResponse(w, r)
		return
	}

	session, err := app.models.Sessions.New(data.PrincipalAdmin, admin.ID, sessionTTL)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	setSessionCookie(w, session)

	err = app.writeJSON(w, http.StatusOK, envelope{"admin": admin}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// registerClientHandler handles POST /v1/client/register.
// Self-registration creates an active client account and, mirroring the web
// flow, logs the new client straight in.
func (app *applicationDependencies) registerClientHandler(w http.ResponseWriter, r *http.Request) {
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

	session, err := app.models.Sessions.New(data.PrincipalClient, client.ID, sessionTTL)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	setSessionCookie(w, session)

	err = app.writeJSON(w, http.StatusCreated, envelope{"client": client}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// loginClientHandler handles POST /v1/client/login.
func (app *applicationDependencies) loginClientHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(input.Email != "", "email", "must be provided")
	v.Check(input.Password != "", "password", "must be provided")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	client, err := app.models.Clients.GetByEmail(input.Email)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.invalidCredentialsResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	match, err := client.Password.Matches(input.Password)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	if !match {
		app.invalidCredentialsResponse(w, r)
		return
	}

	session, err := app.models.Sessions.New(data.PrincipalClient, client.ID, sessionTTL)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	setSessionCookie(w, session)

	err = app.writeJSON(w, http.StatusOK, envelope{"client": client}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// logoutHandler handles POST /v1/admin/logout and POST /v1/client/logout.
// It deletes the server-side session and expires the cookie. The route
// wrappers guarantee an authenticated caller, so the cookie is present.
func (app *applicationDependencies) logoutHandler(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil {
		err = app.models.Sessions.Delete(cookie.Value)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
	}
	clearSessionCookie(w)

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "you have been logged out"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
