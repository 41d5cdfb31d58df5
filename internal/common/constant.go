// Package common contains shared constants and sentinel errors used across
// authkeeper components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// SessionStrategyJWT is the only supported session strategy: the whole
// session lives in the signed token, nothing is stored server-side.
const SessionStrategyJWT = "jwt"
