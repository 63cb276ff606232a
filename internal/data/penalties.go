// internal/data/penalties.go
//
// The penalty and payment ledgers are deliberately free-standing: penalties
// snapshot the client's name and phone at flagging time and carry no foreign
// keys, matching how staff actually use them (a penalty can outlive the copy
// or even the client record it was raised for).
package data

import (
	"database/sql"
	"errors"
	"time"

	"github.com/clms-project/clms/internal/validator"
)

// Penalty is one overdue fee on the active ledger. days_overdue and
// fee_amount are stored as entered (or as last refreshed), never recomputed
// by a background job.
type Penalty struct {
	ID               int64     `json:"id"`
	ClientName       string    `json:"client_name"`
	ClientPhone      string    `json:"client_phone"`
	DateToBeReturned time.Time `json:"date_to_be_returned"`
	DaysOverdue      int       `json:"days_overdue"`
	FeeAmount        float64   `json:"fee_amount"`
	CreatedAt        time.Time `json:"created_at"`
}

// Payment records a fee that was paid. Like penalties, payments are
// free-standing snapshots; removing the penalty is the record of resolution.
type Payment struct {
	ID          int64     `json:"id"`
	ClientName  string    `json:"client_name"`
	ClientPhone string    `json:"client_phone"`
	AmountPaid  float64   `json:"amount_paid"`
	DatePaid    time.Time `json:"date_paid"`
}

// ValidatePenalty checks a penalty record before insert.
func ValidatePenalty(v *validator.Validator, p *Penalty) {
	v.Check(p.ClientName != "", "client_name", "must be provided")
	v.Check(len(p.ClientName) <= 255, "client_name", "must not be more than 255 characters long")
	v.Check(p.ClientPhone != "", "client_phone", "must be provided")
	v.Check(len(p.ClientPhone) <= 20, "client_phone", "must not be more than 20 characters long")
	v.Check(!p.DateToBeReturned.IsZero(), "date_to_be_returned", "must be provided")
	v.Check(p.DaysOverdue >= 1, "days_overdue", "must be at least 1")
	v.Check(p.FeeAmount > 0, "fee_amount", "must be greater than zero")
}

// ValidatePayment checks a payment record before insert.
func ValidatePayment(v *validator.Validator, p *Payment) {
	v.Check(p.ClientName != "", "client_name", "must be provided")
	v.Check(len(p.ClientName) <= 255, "client_name", "must not be more than 255 characters long")
	v.Check(p.ClientPhone != "", "client_phone", "must be provided")
	v.Check(len(p.ClientPhone) <= 20, "client_phone", "must not be more than 20 characters long")
	v.Check(p.AmountPaid > 0, "amount_paid", "must be greater than zero")
}

// OverdueDays reports how many whole days past due a copy is at the given
// instant, never negative. Both values are compared by their wall-clock
// calendar dates; truncating against the UTC epoch instead would shift the
// day boundary for non-UTC times.
func OverdueDays(due, now time.Time) int {
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	nowDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := int(nowDay.Sub(dueDay) / (24 * time.Hour))
	if days < 0 {
		return 0
	}
	return days
}

// PenaltyModel wraps a *sql.DB connection and provides the overdue-fee ledger.
type PenaltyModel struct {
	DB *sql.DB
}

// Insert adds a penalty to the active ledger.
func (m PenaltyModel) Insert(p *Penalty) error {
	query := `
		INSERT INTO penalties (client_name, client_phone, date_to_be_returned, days_overdue, fee_amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return m.DB.QueryRow(query, p.ClientName, p.ClientPhone, p.DateToBeReturned, p.DaysOverdue, p.FeeAmount).
		Scan(&p.ID, &p.CreatedAt)
}

// Get retrieves a single penalty by its primary key.
func (m PenaltyModel) Get(id int64) (*Penalty, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT id, client_name, client_phone, date_to_be_returned, days_overdue, fee_amount, created_at
		FROM penalties
		WHERE id = $1`

	var p Penalty
	err := m.DB.QueryRow(query, id).Scan(
		&p.ID, &p.ClientName, &p.ClientPhone, &p.DateToBeReturned, &p.DaysOverdue, &p.FeeAmount, &p.CreatedAt,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &p, nil
}

// GetAll lists the active ledger, newest first.
func (m PenaltyModel) GetAll() ([]*Penalty, error) {
	query := `
		SELECT id, client_name, client_phone, date_to_be_returned, days_overdue, fee_amount, created_at
		FROM penalties
		ORDER BY created_at DESC, id DESC`

	rows, err := m.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	penalties := []*Penalty{}
	for rows.Next() {
		var p Penalty
		err := rows.Scan(&p.ID, &p.ClientName, &p.ClientPhone, &p.DateToBeReturned, &p.DaysOverdue, &p.FeeAmount, &p.CreatedAt)
		if err != nil {
			return nil, err
		}
		penalties = append(penalties, &p)
	}
	return penalties, rows.Err()
}

// Delete removes a penalty from the active ledger.
func (m PenaltyModel) Delete(id int64) error {
	if id < 1 {
		return ErrRecordNotFound
	}

	result, err := m.DB.Exec(`DELETE FROM penalties WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Refresh recomputes every penalty's days_overdue from the given instant
// against its stored due date and overwrites the fee as days × dailyRate.
// This is the manual, stateless "refresh" action; nothing schedules it.
// Returns the number of penalties updated.
func (m PenaltyModel) Refresh(dailyRate float64, now time.Time) (int, error) {
	query := `
		UPDATE penalties
		SET days_overdue = GREATEST(($1::date - date_to_be_returned::date), 0),
		    fee_amount   = GREATEST(($1::date - date_to_be_returned::date), 0) * $2`

	result, err := m.DB.Exec(query, now, dailyRate)
	if err != nil {
		return 0, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rowsAffected), nil
}

// Relieve records a payment for the penalty and removes the penalty, in one
// transaction: the ledger can never show a penalty as both paid and active.
// The payment snapshots the penalty's client name and phone.
func (m PenaltyModel) Relieve(id int64, amountPaid float64) (*Payment, error) {
	tx, err := m.DB.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var p Penalty
	err = tx.QueryRow(`
		SELECT id, client_name, client_phone
		FROM penalties
		WHERE id = $1
		FOR UPDATE`, id).Scan(&p.ID, &p.ClientName, &p.ClientPhone)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	payment := &Payment{
		ClientName:  p.ClientName,
		ClientPhone: p.ClientPhone,
		AmountPaid:  amountPaid,
	}
	err = tx.QueryRow(`
		INSERT INTO payments (client_name, client_phone, amount_paid)
		VALUES ($1, $2, $3)
		RETURNING id, date_paid`, payment.ClientName, payment.ClientPhone, payment.AmountPaid).
		Scan(&payment.ID, &payment.DatePaid)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(`DELETE FROM penalties WHERE id = $1`, id); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return payment, nil
}

// PaymentModel wraps a *sql.DB connection and provides the payment ledger.
type PaymentModel struct {
	DB *sql.DB
}

// Insert records a payment directly, outside the relieve flow.
func (m PaymentModel) Insert(p *Payment) error {
	query := `
		INSERT INTO payments (client_name, client_phone, amount_paid)
		VALUES ($1, $2, $3)
		RETURNING id, date_paid`

	return m.DB.QueryRow(query, p.ClientName, p.ClientPhone, p.AmountPaid).Scan(&p.ID, &p.DatePaid)
}

// GetAll lists recorded payments, newest first.
func (m PaymentModel) GetAll() ([]*Payment, error) {
	query := `
		SELECT id, client_name, client_phone, amount_paid, date_paid
		FROM payments
		ORDER BY date_paid DESC, id DESC`

	rows, err := m.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []*Payment{}
	for rows.Next() {
		var p Payment
		err := rows.Scan(&p.ID, &p.ClientName, &p.ClientPhone, &p.AmountPaid, &p.DatePaid)
		if err != nil {
			return nil, err
		}
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}
