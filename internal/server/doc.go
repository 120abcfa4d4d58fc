// Package server provides the HTTP server of the merchant.
//
// the server is configured through environment variables
// (see internal/config/config.go for details)
//
// Routes:
//   - common infrastructure handlers (health, readiness, version, jwks) from internal/server/handlers
//   - the checkout, QR rendezvous and wallet endpoints from internal/server/paymenthandlers
//   - the back-office receipts and refund endpoints, protected by ADMIN_API_KEY
//
// middleware is in internal/server/middleware
package server
