// internal/data/book_numbers.go
package data

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/clms-project/clms/internal/validator"
)

// Copy statuses. A copy is either on the shelf or out with a client;
// there are no other states.
const (
	CopyAvailable = "available"
	CopyAssigned  = "assigned"
)

var (
	// ErrDuplicateLabel is returned when a copy label collides with an existing one.
	ErrDuplicateLabel = errors.New("duplicate book number label")

	// ErrCopyUnavailable is returned when an assignment targets a copy that is
	// not currently available (or does not belong to the expected book).
	ErrCopyUnavailable = errors.New("book copy unavailable")

	// ErrCopyAssigned is returned when a deletion targets a copy that is
	// currently out with a client.
	ErrCopyAssigned = errors.New("book copy currently assigned")
)

// BookNumber represents one physical, individually trackable copy of a Book.
// Invariant: Status == CopyAssigned exactly when AssignedTo and
// DateToBeReturned are both non-nil. Every write path that touches these
// fields goes through a transaction that also maintains books.assigned_copies.
type BookNumber struct {
	ID               int64      `json:"id"`
	BookID           int64      `json:"book_id"`
	Label            string     `json:"label"`
	Status           string     `json:"status"`
	AssignedTo       *int64     `json:"assigned_to"`
	DateToBeReturned *time.Time `json:"date_to_be_returned"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// BorrowedBook is the client-facing view of an assigned copy, joined with the
// book title for the "my books" listing.
type BorrowedBook struct {
	ID               int64     `json:"id"`
	BookID           int64     `json:"book_id"`
	Title            string    `json:"title"`
	Label            string    `json:"label"`
	BorrowedAt       time.Time `json:"borrowed_at"`
	DateToBeReturned time.Time `json:"date_to_be_returned"`
}

// ValidateBookNumber checks a copy record before insert/update.
func ValidateBookNumber(v *validator.Validator, bn *BookNumber) {
	v.Check(bn.BookID > 0, "book_id", "must be provided")
	v.Check(bn.Label != "", "label", "must be provided")
	v.Check(len(bn.Label) <= 255, "label", "must not be more than 255 characters long")
	v.Check(validator.In(bn.Status, CopyAvailable, CopyAssigned), "status", "must be either available or assigned")
}

// GenerateLabels produces count sequential copy labels of the form
// prefix-index[-suffix], with the index zero-padded to three digits.
func GenerateLabels(prefix string, count int, suffix string) []string {
	labels := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		label := fmt.Sprintf("%s-%03d", prefix, i)
		if suffix != "" {
			label += "-" + suffix
		}
		labels = append(labels, label)
	}
	return labels
}

// BookNumberModel wraps a *sql.DB connection and provides methods for
// managing physical copies and their circulation state.
type BookNumberModel struct {
	DB *sql.DB
}

// Insert adds a single copy record and grows the owning book's total_copies
// in the same transaction, so availability math sees the new copy immediately.
// Label collisions surface as ErrDuplicateLabel; an unknown book as
// ErrRecordNotFound.
func (m BookNumberModel) Insert(bn *BookNumber) error {
	tx, err := m.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Updating the book row first also locks it, serialising concurrent
	// copy additions for the same book.
	result, err := tx.Exec(`
		UPDATE books SET total_copies = total_copies + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`, bn.BookID)
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

	err = tx.QueryRow(`
		INSERT INTO book_numbers (book_id, label, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`, bn.BookID, bn.Label, bn.Status).
		Scan(&bn.ID, &bn.CreatedAt, &bn.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateLabel
		}
		return err
	}

	return tx.Commit()
}

// CreateBatch inserts count copies for the given book with sequentially
// generated labels, all inside one transaction so a label collision leaves
// no partial batch behind.
func (m BookNumberModel) CreateBatch(bookID int64, prefix string, count int, suffix string) ([]*BookNumber, error) {
	tx, err := m.DB.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO book_numbers (book_id, label, status)
		VALUES ($1, $2, 'available')
		RETURNING id, created_at, updated_at`

	copies := make([]*BookNumber, 0, count)
	for _, label := range GenerateLabels(prefix, count, suffix) {
		bn := &BookNumber{BookID: bookID, Label: label, Status: CopyAvailable}
		err := tx.QueryRow(query, bookID, label).Scan(&bn.ID, &bn.CreatedAt, &bn.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, ErrDuplicateLabel
			}
			return nil, err
		}
		copies = append(copies, bn)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return copies, nil
}

// Get retrieves a single copy by its primary key.
func (m BookNumberModel) Get(id int64) (*BookNumber, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT id, book_id, label, status, assigned_to, date_to_be_returned, created_at, updated_at
		FROM book_numbers
		WHERE id = $1`

	var bn BookNumber
	err := m.DB.QueryRow(query, id).Scan(
		&bn.ID,
		&bn.BookID,
		&bn.Label,
		&bn.Status,
		&bn.AssignedTo,
		&bn.DateToBeReturned,
		&bn.CreatedAt,
		&bn.UpdatedAt,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &bn, nil
}

// GetAllForBook lists the copies belonging to one book, optionally filtered
// by a case-insensitive label search.
func (m BookNumberModel) GetAllForBook(bookID int64, search string) ([]*BookNumber, error) {
	query := `
		SELECT id, book_id, label, status, assigned_to, date_to_be_returned, created_at, updated_at
		FROM book_numbers
		WHERE book_id = $1
		AND ($2 = '' OR label ILIKE '%' || $2 || '%')
		ORDER BY label ASC`

	return m.queryCopies(query, bookID, search)
}

// GetAvailableForBook lists the available copies of one book, ordered by
// label. Used by the admin approval flow to pick a copy.
func (m BookNumberModel) GetAvailableForBook(bookID int64) ([]*BookNumber, error) {
	query := `
		SELECT id, book_id, label, status, assigned_to, date_to_be_returned, created_at, updated_at
		FROM book_numbers
		WHERE book_id = $1 AND status = 'available'
		ORDER BY label ASC`

	return m.queryCopies(query, bookID)
}

// GetByStatus lists all copies with the given status, for the report pages.
func (m BookNumberModel) GetByStatus(status string) ([]*BookNumber, error) {
	query := `
		SELECT id, book_id, label, status, assigned_to, date_to_be_returned, created_at, updated_at
		FROM book_numbers
		WHERE status = $1
		ORDER BY label ASC`

	return m.queryCopies(query, status)
}

// GetOverdue lists the assigned copies whose due date has passed as of now.
// Overdue state is never stored; it is recomputed from the wall clock on
// every call.
func (m BookNumberModel) GetOverdue(now time.Time) ([]*BookNumber, error) {
	query := `
		SELECT id, book_id, label, status, assigned_to, date_to_be_returned, created_at, updated_at
		FROM book_numbers
		WHERE status = 'assigned' AND date_to_be_returned < $1
		ORDER BY date_to_be_returned ASC`

	return m.queryCopies(query, now)
}

// GetAlmostOverdue lists the assigned copies due within the next two days.
func (m BookNumberModel) GetAlmostOverdue(now time.Time) ([]*BookNumber, error) {
	query := `
		SELECT id, book_id, label, status, assigned_to, date_to_be_returned, created_at, updated_at
		FROM book_numbers
		WHERE status = 'assigned' AND date_to_be_returned <= $1
		ORDER BY date_to_be_returned ASC`

	return m.queryCopies(query, now.AddDate(0, 0, 2))
}

// GetBorrowedByClient returns the copies currently assigned to a client,
// joined with their book titles, newest borrow first.
func (m BookNumberModel) GetBorrowedByClient(clientID int64) ([]*BorrowedBook, error) {
	query := `
		SELECT bn.id, bn.book_id, b.title, bn.label, bn.updated_at, bn.date_to_be_returned
		FROM book_numbers bn
		INNER JOIN books b ON b.id = bn.book_id
		WHERE bn.assigned_to = $1 AND bn.status = 'assigned'
		ORDER BY bn.updated_at DESC`

	rows, err := m.DB.Query(query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	borrowed := []*BorrowedBook{}
	for rows.Next() {
		var bb BorrowedBook
		err := rows.Scan(&bb.ID, &bb.BookID, &bb.Title, &bb.Label, &bb.BorrowedAt, &bb.DateToBeReturned)
		if err != nil {
			return nil, err
		}
		borrowed = append(borrowed, &bb)
	}
	return borrowed, rows.Err()
}

// CountAssignedToClient reports how many copies a client currently has out.
func (m BookNumberModel) CountAssignedToClient(clientID int64) (int, error) {
	var count int
	query := `SELECT count(*) FROM book_numbers WHERE assigned_to = $1 AND status = 'assigned'`
	err := m.DB.QueryRow(query, clientID).Scan(&count)
	return count, err
}

// UpdateLabel renames a copy. Status and borrower fields are deliberately not
// updatable here; circulation state only changes through Assign, Collect, and
// the borrow-request approval transaction.
func (m BookNumberModel) UpdateLabel(bn *BookNumber) error {
	query := `
		UPDATE book_numbers
		SET label = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
		RETURNING updated_at`

	err := m.DB.QueryRow(query, bn.Label, bn.ID).Scan(&bn.UpdatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return ErrDuplicateLabel
		case errors.Is(err, sql.ErrNoRows):
			return ErrRecordNotFound
		default:
			return err
		}
	}
	return nil
}

// Delete removes an available copy and shrinks the owning book's total_copies
// in the same transaction. A copy that is currently out returns
// ErrCopyAssigned: it must be collected first, otherwise the book's counters
// would keep counting a copy that no longer exists.
func (m BookNumberModel) Delete(id int64) error {
	if id < 1 {
		return ErrRecordNotFound
	}

	tx, err := m.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var (
		bookID int64
		status string
	)
	err = tx.QueryRow(`
		SELECT book_id, status
		FROM book_numbers
		WHERE id = $1
		FOR UPDATE`, id).Scan(&bookID, &status)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrRecordNotFound
		default:
			return err
		}
	}

	if status == CopyAssigned {
		return ErrCopyAssigned
	}

	if _, err := tx.Exec(`DELETE FROM book_numbers WHERE id = $1`, id); err != nil {
		return err
	}

	_, err = tx.Exec(`
		UPDATE books SET total_copies = total_copies - 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`, bookID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Assign marks an available copy as borrowed by a client with the given due
// date, and increments the owning book's assigned-copy counter. Both writes
// commit together. The copy row is locked and re-checked inside the
// transaction, so a concurrent assignment of the same copy fails with
// ErrCopyUnavailable instead of double-assigning it.
func (m BookNumberModel) Assign(id, clientID int64, dueDate time.Time) (*BookNumber, error) {
	tx, err := m.DB.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var bn BookNumber
	err = tx.QueryRow(`
		SELECT id, book_id, label, status
		FROM book_numbers
		WHERE id = $1
		FOR UPDATE`, id).Scan(&bn.ID, &bn.BookID, &bn.Label, &bn.Status)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	if bn.Status != CopyAvailable {
		return nil, ErrCopyUnavailable
	}

	err = tx.QueryRow(`
		UPDATE book_numbers
		SET status = 'assigned', assigned_to = $1, date_to_be_returned = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
		RETURNING status, assigned_to, date_to_be_returned, created_at, updated_at`,
		clientID, dueDate, id,
	).Scan(&bn.Status, &bn.AssignedTo, &bn.DateToBeReturned, &bn.CreatedAt, &bn.UpdatedAt)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(`UPDATE books SET assigned_copies = assigned_copies + 1, updated_at = CURRENT_TIMESTAMP WHERE id = $1`, bn.BookID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &bn, nil
}

// Collect marks a borrowed copy as returned: the copy is reset to available
// with borrower and due date cleared, and the book's assigned-copy counter is
// decremented in the same transaction. Collecting an already-available copy
// is a no-op that simply returns the current record.
func (m BookNumberModel) Collect(id int64) (*BookNumber, error) {
	tx, err := m.DB.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var bn BookNumber
	err = tx.QueryRow(`
		SELECT id, book_id, label, status
		FROM book_numbers
		WHERE id = $1
		FOR UPDATE`, id).Scan(&bn.ID, &bn.BookID, &bn.Label, &bn.Status)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	wasAssigned := bn.Status == CopyAssigned

	err = tx.QueryRow(`
		UPDATE book_numbers
		SET status = 'available', assigned_to = NULL, date_to_be_returned = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING status, assigned_to, date_to_be_returned, created_at, updated_at`,
		id,
	).Scan(&bn.Status, &bn.AssignedTo, &bn.DateToBeReturned, &bn.CreatedAt, &bn.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if wasAssigned {
		_, err = tx.Exec(`UPDATE books SET assigned_copies = assigned_copies - 1, updated_at = CURRENT_TIMESTAMP WHERE id = $1`, bn.BookID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &bn, nil
}

// queryCopies runs a SELECT returning full book_numbers rows and scans them.
func (m BookNumberModel) queryCopies(query string, args ...any) ([]*BookNumber, error) {
	rows, err := m.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	copies := []*BookNumber{}
	for rows.Next() {
		var bn BookNumber
		err := rows.Scan(
			&bn.ID,
			&bn.BookID,
			&bn.Label,
			&bn.Status,
			&bn.AssignedTo,
			&bn.DateToBeReturned,
			&bn.CreatedAt,
			&bn.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		copies = append(copies, &bn)
	}
	return copies, rows.Err()
}

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
