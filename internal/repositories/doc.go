// Package repositories implements SQLite persistence for synced ledger data.
//
// A sync replaces everything stored for a profile in one transaction, so readers see either the
// previous or the new snapshot.
//
// Key Implementations:
//   - [Store] : profiles, accounts with balances, and transactions with their lines
//   - [AppState] : per-profile sync summaries and data-change notifications
//
// [Store.ExecTx] binds a Store to a single database transaction; every query goes through [DBTX].
package repositories
