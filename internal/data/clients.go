// internal/data/clients.go
package data

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/clms-project/clms/internal/validator"
)

var (
	// ErrDuplicateEmail is returned when an email collides with an existing account.
	ErrDuplicateEmail = errors.New("duplicate email")

	// ErrDuplicateIDNumber is returned when a client's external ID number is already taken.
	ErrDuplicateIDNumber = errors.New("duplicate id number")
)

// Client statuses.
const (
	ClientActive   = "active"
	ClientInactive = "inactive"
)

// Client represents a library client: both an authenticatable account (the
// "client" principal) and the directory record staff manage. There is
// deliberately only one client type; the password hash lives on the same row.
type Client struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	IDNumber    string    `json:"id_number"`
	PhoneNumber string    `json:"phone_number"`
	Email       string    `json:"email"`
	Password    password  `json:"-"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// password wraps the plaintext (only held between input and hashing) and the
// bcrypt hash that is actually stored.
type password struct {
	plaintext *string
	hash      []byte
}

// Set hashes the plaintext password with bcrypt and stores both forms.
func (p *password) Set(plaintextPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintextPassword), 12)
	if err != nil {
		return err
	}
	p.plaintext = &plaintextPassword
	p.hash = hash
	return nil
}

// Matches reports whether the plaintext candidate matches the stored hash.
func (p *password) Matches(plaintextPassword string) (bool, error) {
	err := bcrypt.CompareHashAndPassword(p.hash, []byte(plaintextPassword))
	if err != nil {
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, err
		}
	}
	return true, nil
}

// ValidatePasswordPlaintext checks a candidate password against the minimum policy.
func ValidatePasswordPlaintext(v *validator.Validator, plaintext string) {
	v.Check(plaintext != "", "password", "must be provided")
	v.Check(len(plaintext) >= 8, "password", "must be at least 8 characters long")
	v.Check(len(plaintext) <= 72, "password", "must not be more than 72 characters long")
}

// ValidateClient checks a client record before it is written to the database.
func ValidateClient(v *validator.Validator, client *Client) {
	v.Check(client.Name != "", "name", "must be provided")
	v.Check(len(client.Name) <= 255, "name", "must not be more than 255 characters long")
	v.Check(client.IDNumber != "", "id_number", "must be provided")
	v.Check(len(client.IDNumber) <= 20, "id_number", "must not be more than 20 characters long")
	v.Check(client.PhoneNumber != "", "phone_number", "must be provided")
	v.Check(len(client.PhoneNumber) <= 20, "phone_number", "must not be more than 20 characters long")
	v.Check(client.Email != "", "email", "must be provided")
	v.Check(validator.Matches(client.Email, validator.EmailRX), "email", "must be a valid email address")
	v.Check(validator.In(client.Status, ClientActive, ClientInactive), "status", "must be either active or inactive")

	if client.Password.plaintext != nil {
		ValidatePasswordPlaintext(v, *client.Password.plaintext)
	}

	// A client record must never reach the database without a hash; that is a
	// programming error, not a user-facing validation failure.
	if client.Password.hash == nil {
		panic("missing password hash for client")
	}
}

// ClientModel wraps a *sql.DB connection and provides methods for managing
// client accounts.
type ClientModel struct {
	DB *sql.DB
}

// Insert adds a new client record. Email and ID-number collisions surface as
// ErrDuplicateEmail and ErrDuplicateIDNumber respectively.
func (m ClientModel) Insert(client *Client) error {
	query := `
		INSERT INTO clients (name, id_number, phone_number, email, password_hash, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	args := []any{
		client.Name,
		client.IDNumber,
		client.PhoneNumber,
		strings.ToLower(client.Email),
		client.Password.hash,
		client.Status,
	}

	err := m.DB.QueryRow(query, args...).Scan(&client.ID, &client.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err) && strings.Contains(err.Error(), "clients_email_key"):
			return ErrDuplicateEmail
		case isUniqueViolation(err):
			return ErrDuplicateIDNumber
		default:
			return err
		}
	}
	return nil
}

// Get retrieves a single client by its primary key.
func (m ClientModel) Get(id int64) (*Client, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT id, name, id_number, phone_number, email, password_hash, status, created_at
		FROM clients
		WHERE id = $1`

	return m.getOne(query, id)
}

// GetByEmail retrieves a client account by email address, for login.
func (m ClientModel) GetByEmail(email string) (*Client, error) {
	query := `
		SELECT id, name, id_number, phone_number, email, password_hash, status, created_at
		FROM clients
		WHERE email = $1`

	return m.getOne(query, strings.ToLower(email))
}

// GetAll retrieves a paginated list of clients, optionally filtered by a
// case-insensitive search over name, email, and ID number.
func (m ClientModel) GetAll(search string, filters Filters) ([]*Client, Metadata, error) {
	query := `
		SELECT count(*) OVER(), id, name, id_number, phone_number, email, password_hash, status, created_at
		FROM clients
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%' OR id_number ILIKE '%' || $1 || '%')
		ORDER BY name ASC, id ASC
		LIMIT $2 OFFSET $3`

	rows, err := m.DB.Query(query, search, filters.limit(), filters.offset())
	if err != nil {
		return nil, Metadata{}, err
	}
	defer rows.Close()

	totalRecords := 0
	clients := []*Client{}

	for rows.Next() {
		var client Client
		err := rows.Scan(
			&totalRecords,
			&client.ID,
			&client.Name,
			&client.IDNumber,
			&client.PhoneNumber,
			&client.Email,
			&client.Password.hash,
			&client.Status,
			&client.CreatedAt,
		)
		if err != nil {
			return nil, Metadata{}, err
		}
		clients = append(clients, &client)
	}

	if err = rows.Err(); err != nil {
		return nil, Metadata{}, err
	}

	metadata := calculateMetadata(totalRecords, filters.Page, filters.PageSize)
	return clients, metadata, nil
}

// Update saves the modified fields of a client back to the database,
// including the password hash so password changes ride the same call.
func (m ClientModel) Update(client *Client) error {
	query := `
		UPDATE clients
		SET name = $1, id_number = $2, phone_number = $3, email = $4, password_hash = $5, status = $6
		WHERE id = $7
		RETURNING id`

	args := []any{
		client.Name,
		client.IDNumber,
		client.PhoneNumber,
		strings.ToLower(client.Email),
		client.Password.hash,
		client.Status,
		client.ID,
	}

	err := m.DB.QueryRow(query, args...).Scan(&client.ID)
	if err != nil {
		switch {
		case isUniqueViolation(err) && strings.Contains(err.Error(), "clients_email_key"):
			return ErrDuplicateEmail
		case isUniqueViolation(err):
			return ErrDuplicateIDNumber
		case errors.Is(err, sql.ErrNoRows):
			return ErrRecordNotFound
		default:
			return err
		}
	}
	return nil
}

// Delete removes a client record. Their borrow requests are removed by
// ON DELETE CASCADE. The HTTP layer refuses to delete a client who still
// holds copies, so the ON DELETE SET NULL on book_numbers.assigned_to never
// fires for an assigned copy; if it did, the copy would be left assigned
// with no borrower.
func (m ClientModel) Delete(id int64) error {
	if id < 1 {
		return ErrRecordNotFound
	}

	result, err := m.DB.Exec(`DELETE FROM clients WHERE id = $1`, id)
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

func (m ClientModel) getOne(query string, arg any) (*Client, error) {
	var client Client
	err := m.DB.QueryRow(query, arg).Scan(
		&client.ID,
		&client.Name,
		&client.IDNumber,
		&client.PhoneNumber,
		&client.Email,
		&client.Password.hash,
		&client.Status,
		&client.CreatedAt,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &client, nil
}
