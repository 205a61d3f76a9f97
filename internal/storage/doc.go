// Package storage provides the persistence layer used by the monitor.
//
// It currently supports:
//   - Last-known stock state per product (notification correctness)
//   - Suppression timestamps (cooldown between repeat alerts)
//   - A bounded cycle history (most recent 50 cycles)
package storage
