package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

// HandleJWKS godoc
//
//	@Summary		Get the merchant JWK set
//	@Description	Public key(s) the merchant signs AuthorizationRequest, TransactionRequest and RefundRequest with.
//	@Description	Payment providers and acquirers fetch this set to verify merchant signatures.
//	@Tags			Common
//
//	@Success		200	{object}	JWKSResponse	"JWK set"
//	@Failure		500	"key set could not be encoded"
//
//	@Router			/.well-known/jwks.json [get]
func HandleJWKS(jwkSet jwk.Set) http.HandlerFunc {
	// the set is fixed for the life of the process
	body, err := json.Marshal(jwkSet)

	return func(w http.ResponseWriter, r *http.Request) {
		if err != nil || jwkSet == nil {
			http.Error(w, "merchant key set unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/jwk-set+json")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = w.Write(body)
	}
}

// JWKSResponse documents the response body for swag, which cannot describe jwk.Set.
type JWKSResponse struct {
	Keys []map[string]any `json:"keys"`
}
