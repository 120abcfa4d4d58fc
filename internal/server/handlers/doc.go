// Package handlers serves the merchant's operational endpoints: liveness and readiness
// probes, the build version and the public JWK set providers verify signatures with.
package handlers
