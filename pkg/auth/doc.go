// Package auth provides identity resolution for the baynext API.
//
// # Overview
//
// This package turns request credentials into a Principal: either a User resolved
// from a signed bearer token or a project-scoped API key. It owns password hashing,
// token signing, API key generation and the precedence rules between credential types.
// Project roles and permission checks live in pkg/rbac.
//
// # Key Components
//
// PasswordHasher: bcrypt with a configurable work factor (12 by default)
//
//	hasher := auth.NewPasswordHasher(auth.DefaultBcryptCost)
//	hash, err := hasher.Hash("s3cret")
//	ok := hasher.Verify("s3cret", hash)
//
// TokenCodec: HS256 tokens with sub, email, name and optional exp claims
//
//	codec, err := auth.NewTokenCodec(secret) // ErrMissingAuthSecret if empty
//	ttl := time.Hour
//	token, err := codec.Encode(auth.Claims{Subject: user.ID}, &ttl)
//	claims, err := codec.Decode(token)
//
// KeyGenerator: API key secrets
//
//	key, value, err := auth.NewKeyGenerator().NewKey(auth.NewKeyRequest{
//		ProjectID: project.ID,
//		Name:      "ingest",
//	})
//	// value: bnx_<base64url(32 random bytes)>, shown once
//	// key.Hash: SHA256(value), stored
//
// # Authentication Flow
//
// Login and token issuance:
//
//	authn, err := auth.NewAuthenticator(auth.Config{Secret: secret}, store, logger)
//	user, err := authn.Login(ctx, email, password)
//	token, err := authn.IssueToken(user) // expires after one hour
//
// Request authentication goes through the Gateway:
//
//	gw := auth.NewGateway(authn, metrics)
//	principal, err := gw.Authenticate(ctx, auth.Credentials{
//		BearerToken: bearer,    // Authorization: Bearer <token>
//		HeaderKey:   headerKey, // x-baynext-api-key
//		QueryKey:    queryKey,  // ?key=
//		ProjectID:   projectID,
//	})
//
// Only the first credential present is evaluated. An invalid bearer token fails the
// request even when a valid API key is also supplied.
//
// # Errors
//
// Failures are typed and checked with errors.Is:
//
//	ErrInvalidCredentials - login email/password mismatch
//	ErrInvalidToken       - malformed, badly signed or expired token
//	ErrUnauthorized       - token did not resolve to an active user
//	ErrInvalidKey         - unknown, inactive or expired API key
//	ErrProjectMismatch    - key belongs to another project (*ProjectMismatchError)
//	ErrMissingCredentials - no credential supplied
//	ErrMissingAuthSecret  - signing secret not configured (startup only)
//
// # Limitations
//
// There is no revocation list. A token stays valid until its exp claim even after a
// password change; deleted and deactivated users are rejected because every token is
// re-resolved against the store.
package auth
