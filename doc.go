// Package credentials implements the credential lifecycle for a web client
// population: short-lived access JWTs, long-lived rotating refresh JWTs,
// single-use email verification tokens, and time-limited password reset
// tokens.
//
// Lifecycle manager:
//   - Manager orchestrates registration, email verification, login, refresh
//     rotation, logout, and the password reset flow. Each account holds a
//     single refresh token slot; every successful refresh overwrites it, so a
//     replayed pre-rotation token is rejected without a revocation list.
//   - Mutations that race (concurrent refreshes, duplicate registrations) are
//     resolved by conditional updates and the unique email index rather than
//     locks held across user code.
//
// Token service:
//   - Access and refresh tokens are signed with distinct HMAC secrets so a
//     leaked access key cannot forge refresh tokens. Verification tolerates a
//     bounded clock skew and accepts a previous signing key during rotation
//     grace windows.
//
// Notifications:
//   - Notifier delivers verification and reset links out of band. Delivery is
//     fire-and-forget: token issuance commits regardless of send outcome and
//     failures are logged, never retried synchronously.
package credentials
