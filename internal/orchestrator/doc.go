// Package orchestrator drives the merchant side of a Saturn payment.
//
// A checkout goes through these phases:
//
//  1. Resolve the signed authority documents of the payer's provider and the payee's provider
//     (the acquirer for card methods).
//  2. Select a receiving account the payer's provider can credit.
//  3. Send a signed AuthorizationRequest to the payer's provider. The provider either authorizes
//     the payment or asks the wallet for more information (step-up), in which case the checkout
//     is handed back to the wallet without writing anything.
//  4. Settle according to the payment shape: card payments are sent to the acquirer, direct
//     (account-to-account) payments are complete once authorized, and reservations are stored as
//     a PendingOperation until Finalize supplies the final amount.
//
// Refund is a separate entry point that uses the same trust machinery.
//
// Every call returns an Outcome. Failed outcomes are either soft (shown to the user as an alert,
// the checkout may be retried) or hard (a signature, transport or protocol failure).
package orchestrator
