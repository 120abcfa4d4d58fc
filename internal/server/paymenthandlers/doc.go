// Package paymenthandlers implements the merchant's payment API.
//
// The browser side:
//   - POST /api/checkout starts a checkout in the caller's browser session
//   - GET /api/qr creates a QR session for the checkout and returns the QR payload
//   - POST /api/qr/poll long-polls the QR session (c, p, r or s)
//   - GET /api/qr/{id}/ws pushes the same tokens over a websocket
//   - GET /api/result and POST /api/finalize read the outcome and settle reservations
//
// The wallet side:
//   - GET /wallet/invoke returns the payment request
//   - POST /wallet/authorize runs the payment
//
// The wallet reaches the checkout either through the QR session id (cross-device)
// or through the browser session cookie (same device).
//
// Back-office: GET /api/receipts, GET /api/receipts/{referenceId} and
// POST /api/receipts/{referenceId}/refund.
package paymenthandlers
