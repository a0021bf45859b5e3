// Package store persists the auto-funding engine's state in SQLite.
//
// The engine itself is storage-agnostic: it works over in-memory rule,
// history, and undo collections and an abstract ledger. This package
// supplies the durable half of that contract:
//
//   - envelope balances and unassigned cash (the budget)
//   - the rule set, stored as JSON documents with indexed ordering columns
//   - an append-only transfer log written by the Ledger
//   - execution history and the undo stack, loaded at startup and saved
//     after each run
//
// Ledger is the production implementation of the engine's transfer
// interface. Each transfer runs in a single transaction: both balances
// are checked and updated and the log row is written atomically, so a
// crash can never leave money debited but not credited.
//
// Monetary amounts are stored as exact decimal strings, never as REAL.
package store
