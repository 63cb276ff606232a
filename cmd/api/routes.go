// cmd/api/routes.go
package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// routes registers all HTTP endpoints and returns the configured router wrapped
// in the application middleware.
//
// Middleware chain (outermost → innermost):
//
//	recoverPanic → rateLimit → authenticate → router
//
// Routes are split into three groups: public (healthcheck and auth), admin
// (staff console API), and client (the authenticated client area). The two
// principal types are independent; requireAdmin and requireClient enforce
// the split per route.
func (app *applicationDependencies) routes() http.Handler {
	router := httprouter.New()

	// Override the default httprouter error handlers to return JSON responses.
	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)

	// Auth: each principal type has its own register/login/logout.
	router.HandlerFunc(http.MethodPost, "/v1/admin/register", app.registerAdminHandler)
	router.HandlerFunc(http.MethodPost, "/v1/admin/login", app.loginAdminHandler)
	router.HandlerFunc(http.MethodPost, "/v1/admin/logout", app.requireAdmin(app.logoutHandler))
	router.HandlerFunc(http.MethodPost, "/v1/client/register", app.registerClientHandler)
	router.HandlerFunc(http.MethodPost, "/v1/client/login", app.loginClientHandler)
	router.HandlerFunc(http.MethodPost, "/v1/client/logout", app.requireClient(app.logoutHandler))

	// Catalog: books and their physical copies (admin console).
	router.HandlerFunc(http.MethodGet, "/v1/books", app.requireAdmin(app.listBooksHandler))
	router.HandlerFunc(http.MethodPost, "/v1/books", app.requireAdmin(app.createBookHandler))
	router.HandlerFunc(http.MethodGet, "/v1/books/:id", app.requireAdmin(app.showBookHandler))
	router.HandlerFunc(http.MethodPatch, "/v1/books/:id", app.requireAdmin(app.updateBookHandler))
	router.HandlerFunc(http.MethodDelete, "/v1/books/:id", app.requireAdmin(app.deleteBookHandler))
	router.HandlerFunc(http.MethodGet, "/v1/books/:id/available-numbers", app.requireAdmin(app.listAvailableNumbersHandler))

	router.HandlerFunc(http.MethodGet, "/v1/book-numbers", app.requireAdmin(app.listBookNumbersHandler))
	router.HandlerFunc(http.MethodPost, "/v1/book-numbers", app.requireAdmin(app.createBookNumberHandler))
	router.HandlerFunc(http.MethodGet, "/v1/book-numbers/:id", app.requireAdmin(app.showBookNumberHandler))
	router.HandlerFunc(http.MethodPatch, "/v1/book-numbers/:id", app.requireAdmin(app.updateBookNumberHandler))
	router.HandlerFunc(http.MethodDelete, "/v1/book-numbers/:id", app.requireAdmin(app.deleteBookNumberHandler))
	router.HandlerFunc(http.MethodPut, "/v1/book-numbers/:id/assign", app.requireAdmin(app.assignBookNumberHandler))
	router.HandlerFunc(http.MethodPut, "/v1/book-numbers/:id/collect", app.requireAdmin(app.collectBookNumberHandler))

	// Report pages: circulation state recomputed on demand, never scheduled.
	router.HandlerFunc(http.MethodGet, "/v1/reports/assigned", app.requireAdmin(app.reportAssignedHandler))
	router.HandlerFunc(http.MethodGet, "/v1/reports/available", app.requireAdmin(app.reportAvailableHandler))
	router.HandlerFunc(http.MethodGet, "/v1/reports/overdue", app.requireAdmin(app.reportOverdueHandler))
	router.HandlerFunc(http.MethodGet, "/v1/reports/almost-overdue", app.requireAdmin(app.reportAlmostOverdueHandler))

	// Client directory (admin console).
	router.HandlerFunc(http.MethodGet, "/v1/clients", app.requireAdmin(app.listClientsHandler))
	router.HandlerFunc(http.MethodPost, "/v1/clients", app.requireAdmin(app.createClientHandler))
	router.HandlerFunc(http.MethodGet, "/v1/clients/:id", app.requireAdmin(app.showClientHandler))
	router.HandlerFunc(http.MethodPatch, "/v1/clients/:id", app.requireAdmin(app.updateClientHandler))
	router.HandlerFunc(http.MethodDelete, "/v1/clients/:id", app.requireAdmin(app.deleteClientHandler))

	// Borrow-request workflow: clients submit and cancel, admins review.
	router.HandlerFunc(http.MethodGet, "/v1/borrow-requests", app.requireAdmin(app.listBorrowRequestsHandler))
	router.HandlerFunc(http.MethodGet, "/v1/borrow-requests/:id", app.requireAdmin(app.showBorrowRequestHandler))
	router.HandlerFunc(http.MethodPut, "/v1/borrow-requests/:id", app.requireAdmin(app.updateBorrowRequestHandler))
	router.HandlerFunc(http.MethodPost, "/v1/client/borrow-requests", app.requireClient(app.createBorrowRequestHandler))
	router.HandlerFunc(http.MethodGet, "/v1/client/borrow-requests", app.requireClient(app.listOwnBorrowRequestsHandler))
	router.HandlerFunc(http.MethodDelete, "/v1/client/borrow-requests/:id", app.requireClient(app.cancelBorrowRequestHandler))

	// Client area: catalog browsing and the caller's own circulation state.
	router.HandlerFunc(http.MethodGet, "/v1/client/dashboard", app.requireClient(app.clientDashboardHandler))
	router.HandlerFunc(http.MethodGet, "/v1/client/books", app.requireClient(app.clientBooksHandler))
	router.HandlerFunc(http.MethodGet, "/v1/client/library", app.requireClient(app.clientLibraryHandler))

	// Penalty and payment ledgers (admin console).
	router.HandlerFunc(http.MethodGet, "/v1/penalties", app.requireAdmin(app.listPenaltiesHandler))
	router.HandlerFunc(http.MethodPost, "/v1/penalties", app.requireAdmin(app.createPenaltyHandler))
	router.HandlerFunc(http.MethodDelete, "/v1/penalties/:id", app.requireAdmin(app.deletePenaltyHandler))
	router.HandlerFunc(http.MethodPut, "/v1/penalties/refresh", app.requireAdmin(app.refreshPenaltiesHandler))
	router.HandlerFunc(http.MethodPost, "/v1/penalties/:id/relieve", app.requireAdmin(app.relievePenaltyHandler))
	router.HandlerFunc(http.MethodGet, "/v1/payments", app.requireAdmin(app.listPaymentsHandler))
	router.HandlerFunc(http.MethodPost, "/v1/payments", app.requireAdmin(app.createPaymentHandler))

	// Wrap with middleware: recoverPanic is outermost so it catches panics
	// from rateLimit, authenticate, and router alike.
	return app.recoverPanic(app.rateLimit(app.authenticate(router)))
}
