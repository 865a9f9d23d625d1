// Package auth provides operator authentication and authorisation for the HMI.
//
// It implements a 3-tier role model (operator → engineer → admin) with:
//   - Argon2id password hashing; accounts are configured with PHC hashes only
//   - HS256 JWT access tokens carrying the operator's role
//   - Static role-permission mapping (compile-time, no database lookup)
//
// Operators live in the service configuration and are loaded into a
// Directory at startup.
package auth
