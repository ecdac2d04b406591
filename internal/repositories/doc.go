// Package repositories implements SQLite persistence for the session credential record.
//
// Two tables back the two persistence tiers of the credential store:
//   - [SessionValueRepository] : the short-lived key/value tier holding the access token and its expiry
//   - [RefreshCredentialRepository] : refresh credentials with an explicit lifetime
//
// [RefreshTierAdapter] exposes the refresh credential repository through the single-credential
// load/save/remove contract the session store expects.
//
// Refresh credentials support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
