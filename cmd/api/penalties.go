// cmd/api/penalties.go
// This file contains HTTP request handlers for the penalty and payment
// ledgers in the admin console.
package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/clms-project/clms/internal/data"
	"github.com/clms-project/clms/internal/validator"
)

// listPenaltiesHandler handles GET /v1/penalties.
func (app *applicationDependencies) listPenaltiesHandler(w http.ResponseWriter, r *http.Request) {
	penalties, err := app.models.Penalties.GetAll()
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"penalties": penalties}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// createPenaltyHandler handles POST /v1/penalties.
// Staff flag an overdue copy manually; the penalty snapshots the client's
// name and phone as entered. When days_overdue is omitted it is derived from
// the due date and today.
func (app *applicationDependencies) createPenaltyHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ClientName       string  `json:"client_name"`
		ClientPhone      string  `json:"client_phone"`
		DateToBeReturned string  `json:"date_to_be_returned"`
		DaysOverdue      int     `json:"days_overdue"`
		FeeAmount        float64 `json:"fee_amount"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
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

	if input.DaysOverdue == 0 {
		input.DaysOverdue = data.OverdueDays(dueDate, time.Now())
	}

	penalty := &data.Penalty{
		ClientName:       input.ClientName,
		ClientPhone:      input.ClientPhone,
		DateToBeReturned: dueDate,
		DaysOverdue:      input.DaysOverdue,
		FeeAmount:        input.FeeAmount,
	}

	data.ValidatePenalty(v, penalty)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.Penalties.Insert(penalty)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"penalty": penalty}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deletePenaltyHandler handles DELETE /v1/penalties/:id.
// Deletion waives the fee with no payment recorded; relieve is the paid path.
func (app *applicationDependencies) deletePenaltyHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.models.Penalties.Delete(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "penalty successfully deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// refreshPenaltiesHandler handles PUT /v1/penalties/refresh.
// Recomputes days_overdue and fee_amount for the whole ledger against today,
// at the daily rate given in the body. There is no scheduled job; staff
// trigger this explicitly.
func (app *applicationDependencies) refreshPenaltiesHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		DailyRate float64 `json:"daily_rate"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(input.DailyRate > 0, "daily_rate", "must be greater than zero")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	updated, err := app.models.Penalties.Refresh(input.DailyRate, time.Now())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "penalties refreshed", "updated": updated}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// relievePenaltyHandler handles POST /v1/penalties/:id/relieve.
// Records a payment for the penalty and removes it from the active ledger in
// one transaction.
func (app *applicationDependencies) relievePenaltyHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input struct {
		AmountPaid float64 `json:"amount_paid"`
	}

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(input.AmountPaid > 0, "amount_paid", "must be greater than zero")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	payment, err := app.models.Penalties.Relieve(id, input.AmountPaid)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"payment": payment}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listPaymentsHandler handles GET /v1/payments.
func (app *applicationDependencies) listPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	payments, err := app.models.Payments.GetAll()
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"payments": payments}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// createPaymentHandler handles POST /v1/payments.
// Direct payment entry, for fees settled outside the relieve flow.
func (app *applicationDependencies) createPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ClientName  string  `json:"client_name"`
		ClientPhone string  `json:"client_phone"`
		AmountPaid  float64 `json:"amount_paid"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	payment := &data.Payment{
		ClientName:  input.ClientName,
		ClientPhone: input.ClientPhone,
		AmountPaid:  input.AmountPaid,
	}

	v := validator.New()
	data.ValidatePayment(v, payment)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.Payments.Insert(payment)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"payment": payment}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
