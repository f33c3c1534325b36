// Package authd provides credential-based authentication primitives: JWT
// issuance and validation, Bun-backed user repositories, command handlers for
// the account lifecycle, and HTTP helpers to expose them as a JSON API.
//
// Account lifecycle:
//   - Users start out unverified and carry a 6-digit verification code with a
//     24 hour expiry. Redeeming the code flips IsVerified and clears the code
//     fields; AccountStateMachine enforces that re-verifying a verified
//     account is an invalid transition.
//   - Password resets mint an opaque hex token with a 1 hour expiry. A new
//     request supersedes any outstanding token, and redemption checks expiry
//     strictly against the clock.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther, the command
//     handlers, and the state machine to describe registration, login,
//     verification, and password reset events. Sinks run best-effort (errors
//     are logged) so you can forward to a database or queue without blocking
//     authentication.
//
// Claims decoration:
//   - ClaimsDecorator is invoked before JWTs are signed. Decorators may enrich
//     the Metadata extension field while protected claims (sub, iss, aud, exp,
//     uid, verified) remain immutable.
package authd
