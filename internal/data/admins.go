// internal/data/admins.go
package data

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/clms-project/clms/internal/validator"
)

// Admin represents a staff account (the "admin" principal). Admins and
// clients authenticate against separate tables and carry separate principal
// types in the session layer.
type Admin struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  password  `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidateAdmin checks an admin record before it is written to the database.
func ValidateAdmin(v *validator.Validator, admin *Admin) {
	v.Check(admin.Name != "", "name", "must be provided")
	v.Check(len(admin.Name) <= 255, "name", "must not be more than 255 characters long")
	v.Check(admin.Email != "", "email", "must be provided")
	v.Check(validator.Matches(admin.Email, validator.EmailRX), "email", "must be a valid email address")

	if admin.Password.plaintext != nil {
		ValidatePasswordPlaintext(v, *admin.Password.plaintext)
	}
	if admin.Password.hash == nil {
		panic("missing password hash for admin")
	}
}

// AdminModel wraps a *sql.DB connection and provides methods for managing
// staff accounts.
type AdminModel struct {
	DB *sql.DB
}

// Insert adds a new admin account. Email collisions surface as ErrDuplicateEmail.
func (m AdminModel) Insert(admin *Admin) error {
	query := `
		INSERT INTO admins (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := m.DB.QueryRow(query, admin.Name, strings.ToLower(admin.Email), admin.Password.hash).
		Scan(&admin.ID, &admin.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// Get retrieves a single admin by its primary key.
func (m AdminModel) Get(id int64) (*Admin, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT id, name, email, password_hash, created_at
		FROM admins
		WHERE id = $1`

	return m.getOne(query, id)
}

// GetByEmail retrieves an admin account by email address, for login.
func (m AdminModel) GetByEmail(email string) (*Admin, error) {
	query := `
		SELECT id, name, email, password_hash, created_at
		FROM admins
		WHERE email = $1`

	return m.getOne(query, strings.ToLower(email))
}

func (m AdminModel) getOne(query string, arg any) (*Admin, error) {
	var admin Admin
	err := m.DB.QueryRow(query, arg).Scan(
		&admin.ID,
		&admin.Name,
		&admin.Email,
		&admin.Password.hash,
		&admin.CreatedAt,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &admin, nil
}
