// Package store persists per-feature, per-tenant settings.
//
// It is a namespaced key-value map backed by SQLite:
//   - routing-table registrations (chat relay, recruitment normal/raid)
//   - feed subscriptions (including last-seen item cursors)
//   - report and word-chain channel opt-ins
//
// Writes are durable before Set/Delete return; semantics are last-write-wins.
package store
