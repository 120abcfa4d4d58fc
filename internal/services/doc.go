// Package services provides the outbound integrations of the merchant server.
//
// The Transport interface is what the orchestrator and the authority resolver use to reach
// the other parties of a payment. Client implements it over HTTP; tests supply their own.
package services
