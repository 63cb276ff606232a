// Package data provides the data models and database interaction logic
// for the library management system.
package data

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/clms-project/clms/internal/validator"
)

// Book represents a single book title stored in the database.
// Physical copies are tracked separately as BookNumber records; the
// assigned_copies column is a counter kept in step with those records
// by the assign/collect/approve transactions.
type Book struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Author         string    `json:"author"`
	Year           int       `json:"year"`
	TotalCopies    int       `json:"total_copies"`
	AssignedCopies int       `json:"assigned_copies"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AvailableCopies reports how many copies of the book are free to borrow.
func (b *Book) AvailableCopies() int {
	return b.TotalCopies - b.AssignedCopies
}

// ValidateBook checks the fields of a book before it is written to the database.
func ValidateBook(v *validator.Validator, book *Book) {
	v.Check(book.Title != "", "title", "must be provided")
	v.Check(len(book.Title) <= 255, "title", "must not be more than 255 characters long")
	v.Check(book.Author != "", "author", "must be provided")
	v.Check(len(book.Author) <= 255, "author", "must not be more than 255 characters long")
	v.Check(book.Year >= 1000, "year", "must be 1000 or later")
	v.Check(book.Year <= time.Now().Year(), "year", "must not be in the future")
	v.Check(book.TotalCopies >= 0, "total_copies", "must not be negative")
	v.Check(book.AssignedCopies >= 0, "assigned_copies", "must not be negative")
	v.Check(book.AssignedCopies <= book.TotalCopies, "total_copies", "must not be less than the number of assigned copies")
}

// BookModel wraps a *sql.DB connection and provides methods for
// creating, reading, updating, and deleting book records.
type BookModel struct {
	DB *sql.DB // Shared database connection pool
}

// Insert adds a new book record to the database.
// After a successful insert, the database-assigned id, created_at, and
// updated_at values are written back into the book struct.
func (m BookModel) Insert(book *Book) error {
	query := `
		INSERT INTO books (title, author, year, total_copies)
		VALUES ($1, $2, $3, $4)
		RETURNING id, assigned_copies, created_at, updated_at`

	err := m.DB.QueryRow(
		query,
		book.Title,
		book.Author,
		book.Year,
		book.TotalCopies,
	).Scan(&book.ID, &book.AssignedCopies, &book.CreatedAt, &book.UpdatedAt)

	return err
}

// Get retrieves a single book by its primary key.
// Returns ErrRecordNotFound if no book with the given id exists.
func (m BookModel) Get(id int64) (*Book, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT id, title, author, year, total_copies, assigned_copies, created_at, updated_at
		FROM books
		WHERE id = $1`

	var book Book
	err := m.DB.QueryRow(query, id).Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Year,
		&book.TotalCopies,
		&book.AssignedCopies,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &book, nil
}

// GetAll retrieves a paginated, sorted list of books. The search term, when
// non-empty, is matched case-insensitively against title and author.
// It uses a COUNT(*) OVER() window function so only one round-trip is needed.
func (m BookModel) GetAll(search string, filters Filters) ([]*Book, Metadata, error) {
	query := fmt.Sprintf(`
		SELECT count(*) OVER(), id, title, author, year, total_copies, assigned_copies, created_at, updated_at
		FROM books
		WHERE ($1 = '' OR title ILIKE '%%' || $1 || '%%' OR author ILIKE '%%' || $1 || '%%')
		ORDER BY %s %s, id ASC
		LIMIT $2 OFFSET $3`, filters.sortColumn(), filters.sortDirection())

	rows, err := m.DB.Query(query, search, filters.limit(), filters.offset())
	if err != nil {
		return nil, Metadata{}, err
	}
	defer rows.Close()

	totalRecords := 0
	books := []*Book{}

	for rows.Next() {
		var book Book
		err := rows.Scan(
			&totalRecords, // COUNT(*) OVER() – same value on every row
			&book.ID,
			&book.Title,
			&book.Author,
			&book.Year,
			&book.TotalCopies,
			&book.AssignedCopies,
			&book.CreatedAt,
			&book.UpdatedAt,
		)
		if err != nil {
			return nil, Metadata{}, err
		}
		books = append(books, &book)
	}

	if err = rows.Err(); err != nil {
		return nil, Metadata{}, err
	}

	metadata := calculateMetadata(totalRecords, filters.Page, filters.PageSize)
	return books, metadata, nil
}

// GetAvailable retrieves the paginated list of books that still have at least
// one free copy, ordered by title. This backs the client-facing catalog page.
func (m BookModel) GetAvailable(search string, filters Filters) ([]*Book, Metadata, error) {
	query := `
		SELECT count(*) OVER(), id, title, author, year, total_copies, assigned_copies, created_at, updated_at
		FROM books
		WHERE total_copies - assigned_copies > 0
		AND ($1 = '' OR title ILIKE '%' || $1 || '%' OR author ILIKE '%' || $1 || '%')
		ORDER BY title ASC, id ASC
		LIMIT $2 OFFSET $3`

	rows, err := m.DB.Query(query, search, filters.limit(), filters.offset())
	if err != nil {
		return nil, Metadata{}, err
	}
	defer rows.Close()

	totalRecords := 0
	books := []*Book{}

	for rows.Next() {
		var book Book
		err := rows.Scan(
			&totalRecords,
			&book.ID,
			&book.Title,
			&book.Author,
			&book.Year,
			&book.TotalCopies,
			&book.AssignedCopies,
			&book.CreatedAt,
			&book.UpdatedAt,
		)
		if err != nil {
			return nil, Metadata{}, err
		}
		books = append(books, &book)
	}

	if err = rows.Err(); err != nil {
		return nil, Metadata{}, err
	}

	metadata := calculateMetadata(totalRecords, filters.Page, filters.PageSize)
	return books, metadata, nil
}

// Update saves the modified fields of book back to the database.
// The database refuses updates that would leave assigned_copies greater than
// total_copies via a CHECK constraint; the refreshed updated_at is scanned
// back into the struct.
func (m BookModel) Update(book *Book) error {
	query := `
		UPDATE books
		SET title = $1, author = $2, year = $3, total_copies = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $5
		RETURNING updated_at`

	args := []any{
		book.Title,
		book.Author,
		book.Year,
		book.TotalCopies,
		book.ID,
	}

	err := m.DB.QueryRow(query, args...).Scan(&book.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrRecordNotFound
		default:
			return err
		}
	}
	return nil
}

// Delete removes the book with the given id from the database. Its copies
// are removed by the ON DELETE CASCADE on book_numbers.
// Returns ErrRecordNotFound if no matching record exists.
func (m BookModel) Delete(id int64) error {
	if id < 1 {
		return ErrRecordNotFound
	}

	query := `DELETE FROM books WHERE id = $1`

	result, err := m.DB.Exec(query, id)
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
