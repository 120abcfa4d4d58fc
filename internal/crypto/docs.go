// crypto package provides the low level key and signature functions used by the merchant.
//
// these functions do not know about trust roots or protocol messages - see the trust
// and saturn packages for that.
package crypto
