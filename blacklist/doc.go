// Package blacklist tracks revoked access-token IDs for the remainder
// of their validity window. Entries expire on their own via TTL; a
// sorted-set index keyed by expiry supports explicit purging and
// counting from admin paths.
//
// # What this package must NOT do
//
//   - Parse tokens or decide why one was revoked.
//   - Emit audit events or metrics.
package blacklist
