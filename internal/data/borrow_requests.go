// internal/data/borrow_requests.go
//
// The borrow-request workflow is the one place in the system where an
// atomicity guarantee is load-bearing: approval must assign a specific copy,
// bump the book's counter, and flip the request status together or not at
// all. Everything here leans on the database's row locks for that; there is
// no application-level locking.
package data

import (
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
)

// MaxBorrowLimit is the maximum number of concurrent items per client,
// counting both copies currently out and pending requests.
const MaxBorrowLimit = 5

// Borrow-request statuses. pending is the only non-terminal state.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

var (
	// ErrBookUnavailable is returned when a request targets a book with no free copies.
	ErrBookUnavailable = errors.New("book has no available copies")

	// ErrDuplicateRequest is returned when the client already has a pending
	// request for the same book.
	ErrDuplicateRequest = errors.New("duplicate pending request")

	// ErrBorrowLimitReached is returned when borrowed copies plus pending
	// requests would exceed MaxBorrowLimit.
	ErrBorrowLimitReached = errors.New("borrowing limit reached")

	// ErrAlreadyProcessed is returned when a transition or cancellation
	// targets a request that is no longer pending.
	ErrAlreadyProcessed = errors.New("borrow request already processed")
)

// BorrowRequest represents a client's request to borrow a book. The joined
// client/book fields are populated only by the read queries that need them
// for listings.
type BorrowRequest struct {
	ID        int64     `json:"id"`
	ClientID  int64     `json:"client_id"`
	BookID    int64     `json:"book_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`

	ClientName  string `json:"client_name,omitempty"`
	ClientEmail string `json:"client_email,omitempty"`
	BookTitle   string `json:"book_title,omitempty"`
	BookAuthor  string `json:"book_author,omitempty"`
}

// BorrowRequestModel wraps a *sql.DB connection and provides the
// borrow-request state machine.
type BorrowRequestModel struct {
	DB *sql.DB
}

// Submit validates the business rules for a new request and creates it in
// the pending state. Rule violations are reported as ErrBookUnavailable,
// ErrDuplicateRequest, or ErrBorrowLimitReached; an unknown book is
// ErrRecordNotFound. The checks run at READ COMMITTED, so two truly
// concurrent submissions could both pass the duplicate read; the partial
// unique index on (client_id, book_id) WHERE pending backstops that race and
// is reported as ErrDuplicateRequest too.
func (m BorrowRequestModel) Submit(clientID, bookID int64) (*BorrowRequest, error) {
	tx, err := m.DB.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Availability: the book must exist and have at least one free copy.
	var available int
	err = tx.QueryRow(`SELECT total_copies - assigned_copies FROM books WHERE id = $1`, bookID).Scan(&available)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	if available <= 0 {
		return nil, ErrBookUnavailable
	}

	// Duplicate: at most one pending request per client+book.
	var duplicate bool
	err = tx.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM borrow_requests
			WHERE client_id = $1 AND book_id = $2 AND status = 'pending'
		)`, clientID, bookID).Scan(&duplicate)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return nil, ErrDuplicateRequest
	}

	// Limit: copies currently out plus pending requests must stay below the cap.
	var inUse int
	err = tx.QueryRow(`
		SELECT
			(SELECT count(*) FROM book_numbers WHERE assigned_to = $1 AND status = 'assigned') +
			(SELECT count(*) FROM borrow_requests WHERE client_id = $1 AND status = 'pending')`,
		clientID).Scan(&inUse)
	if err != nil {
		return nil, err
	}
	if inUse >= MaxBorrowLimit {
		return nil, ErrBorrowLimitReached
	}

	request := &BorrowRequest{ClientID: clientID, BookID: bookID, Status: RequestPending}
	err = tx.QueryRow(`
		INSERT INTO borrow_requests (client_id, book_id, status)
		VALUES ($1, $2, 'pending')
		RETURNING id, created_at`, clientID, bookID).Scan(&request.ID, &request.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateRequest
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return request, nil
}

// Get retrieves one request with its client and book details joined in.
func (m BorrowRequestModel) Get(id int64) (*BorrowRequest, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT br.id, br.client_id, br.book_id, br.status, br.created_at,
		       c.name, c.email, b.title, b.author
		FROM borrow_requests br
		INNER JOIN clients c ON c.id = br.client_id
		INNER JOIN books b ON b.id = br.book_id
		WHERE br.id = $1`

	var request BorrowRequest
	err := m.DB.QueryRow(query, id).Scan(
		&request.ID,
		&request.ClientID,
		&request.BookID,
		&request.Status,
		&request.CreatedAt,
		&request.ClientName,
		&request.ClientEmail,
		&request.BookTitle,
		&request.BookAuthor,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &request, nil
}

// GetAll retrieves the paginated admin listing, newest first, optionally
// filtered by status and by a search over client name/email and book title.
func (m BorrowRequestModel) GetAll(status, search string, filters Filters) ([]*BorrowRequest, Metadata, error) {
	query := `
		SELECT count(*) OVER(), br.id, br.client_id, br.book_id, br.status, br.created_at,
		       c.name, c.email, b.title, b.author
		FROM borrow_requests br
		INNER JOIN clients c ON c.id = br.client_id
		INNER JOIN books b ON b.id = br.book_id
		WHERE ($1 = '' OR br.status = $1)
		AND ($2 = '' OR c.name ILIKE '%' || $2 || '%' OR c.email ILIKE '%' || $2 || '%' OR b.title ILIKE '%' || $2 || '%')
		ORDER BY br.created_at DESC, br.id DESC
		LIMIT $3 OFFSET $4`

	rows, err := m.DB.Query(query, status, search, filters.limit(), filters.offset())
	if err != nil {
		return nil, Metadata{}, err
	}
	defer rows.Close()

	totalRecords := 0
	requests := []*BorrowRequest{}

	for rows.Next() {
		var request BorrowRequest
		err := rows.Scan(
			&totalRecords,
			&request.ID,
			&request.ClientID,
			&request.BookID,
			&request.Status,
			&request.CreatedAt,
			&request.ClientName,
			&request.ClientEmail,
			&request.BookTitle,
			&request.BookAuthor,
		)
		if err != nil {
			return nil, Metadata{}, err
		}
		requests = append(requests, &request)
	}

	if err = rows.Err(); err != nil {
		return nil, Metadata{}, err
	}

	metadata := calculateMetadata(totalRecords, filters.Page, filters.PageSize)
	return requests, metadata, nil
}

// GetAllForClient retrieves one client's requests, newest first, with book
// details for the client-facing listing.
func (m BorrowRequestModel) GetAllForClient(clientID int64) ([]*BorrowRequest, error) {
	query := `
		SELECT br.id, br.client_id, br.book_id, br.status, br.created_at, b.title, b.author
		FROM borrow_requests br
		INNER JOIN books b ON b.id = br.book_id
		WHERE br.client_id = $1
		ORDER BY br.created_at DESC, br.id DESC`

	rows, err := m.DB.Query(query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []*BorrowRequest{}
	for rows.Next() {
		var request BorrowRequest
		err := rows.Scan(
			&request.ID,
			&request.ClientID,
			&request.BookID,
			&request.Status,
			&request.CreatedAt,
			&request.BookTitle,
			&request.BookAuthor,
		)
		if err != nil {
			return nil, err
		}
		requests = append(requests, &request)
	}
	return requests, rows.Err()
}

// PendingBookIDs returns which of the given book IDs the client has a
// pending request for. The catalog page uses it to mark already-requested
// titles.
func (m BorrowRequestModel) PendingBookIDs(clientID int64, bookIDs []int64) ([]int64, error) {
	query := `
		SELECT DISTINCT book_id
		FROM borrow_requests
		WHERE client_id = $1 AND status = 'pending' AND book_id = ANY($2)`

	rows, err := m.DB.Query(query, clientID, pq.Array(bookIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Approve executes the approval transaction: re-check the request is still
// pending, lock the chosen copy and verify it is available and belongs to
// the requested book, assign it to the requesting client with the given due
// date, increment the book's assigned-copy counter, and mark the request
// approved. All four writes commit together. A copy consumed by a concurrent
// approval fails the availability check here and returns ErrCopyUnavailable,
// leaving the request pending and the copy untouched.
func (m BorrowRequestModel) Approve(id, bookNumberID int64, dueDate time.Time) (*BorrowRequest, error) {
	tx, err := m.DB.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Lock the request row first. This also serialises a concurrent client
	// cancellation: whichever transaction wins, the loser sees the new state.
	var request BorrowRequest
	err = tx.QueryRow(`
		SELECT id, client_id, book_id, status, created_at
		FROM borrow_requests
		WHERE id = $1
		FOR UPDATE`, id).Scan(&request.ID, &request.ClientID, &request.BookID, &request.Status, &request.CreatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	if request.Status != RequestPending {
		return nil, ErrAlreadyProcessed
	}

	// Lock the copy and re-validate it inside the transaction. The WHERE
	// clause carries all three conditions, so a copy that was consumed,
	// deleted, or belongs to another book fails identically.
	var copyID int64
	err = tx.QueryRow(`
		SELECT id
		FROM book_numbers
		WHERE id = $1 AND book_id = $2 AND status = 'available'
		FOR UPDATE`, bookNumberID, request.BookID).Scan(&copyID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrCopyUnavailable
		default:
			return nil, err
		}
	}

	_, err = tx.Exec(`
		UPDATE book_numbers
		SET status = 'assigned', assigned_to = $1, date_to_be_returned = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3`, request.ClientID, dueDate, copyID)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(`UPDATE books SET assigned_copies = assigned_copies + 1, updated_at = CURRENT_TIMESTAMP WHERE id = $1`, request.BookID)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(`UPDATE borrow_requests SET status = 'approved' WHERE id = $1`, request.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	request.Status = RequestApproved
	return &request, nil
}

// Reject flips a pending request to rejected with no other side effects.
// Non-pending requests return ErrAlreadyProcessed.
func (m BorrowRequestModel) Reject(id int64) error {
	result, err := m.DB.Exec(`
		UPDATE borrow_requests SET status = 'rejected'
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return m.missingOrProcessed(id)
	}
	return nil
}

// Cancel deletes a pending request. Cancellation of a non-pending request
// returns ErrAlreadyProcessed. Ownership is the caller's concern; the HTTP
// layer checks it before calling here.
func (m BorrowRequestModel) Cancel(id int64) error {
	result, err := m.DB.Exec(`
		DELETE FROM borrow_requests
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return m.missingOrProcessed(id)
	}
	return nil
}

// missingOrProcessed distinguishes "no such request" from "request exists
// but is no longer pending" after a conditional write matched nothing.
func (m BorrowRequestModel) missingOrProcessed(id int64) error {
	var status string
	err := m.DB.QueryRow(`SELECT status FROM borrow_requests WHERE id = $1`, id).Scan(&status)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrRecordNotFound
	case err != nil:
		return err
	default:
		return ErrAlreadyProcessed
	}
}
