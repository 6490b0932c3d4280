// Package auth provides authentication for chat-gateway.
//
// # Tokens
//
// Clients authenticate with JWT tokens signed with HS256 using the
// configured jwt_secret. A token carries the claims:
//
//   - userId: numeric user id ("id" and "sub" are accepted as fallbacks)
//   - role: e.g. "USER" or "ADMIN"
//   - companyId: numeric company id
//
// Verification yields an Identity that is attached to the connection for
// its whole lifetime. Authentication happens exactly once, at handshake
// time; a handshake without a valid token is closed with no event emitted.
//
// # Handshake Extraction
//
// Tokens are supplied either as an Authorization bearer header or as a
// "token" query parameter:
//
//	GET /chat?token=<jwt>
//	Authorization: Bearer <jwt>
//
// # Admin API
//
// RequireRole guards the REST admin surface (presence queries, admin
// pushes); it accepts the same tokens and additionally checks the role
// claim.
package auth
