// Package models defines the domain entities shared by the ledgerx sync and submission engine.
//
// The package contains three categories of types:
//
// 1. Connection settings
//   - [Profile] : a remote hledger-web server plus credentials and protocol selector
//   - [APIVersion] : the wire protocol selector (automatic, explicit JSON version, legacy HTML)
//
// 2. Ledger data
//   - [Account] : a colon-hierarchical account with per-currency balances
//   - [Transaction] : a dated, described set of [TransactionLine] postings
//
// 3. Sync reporting
//   - [SyncProgress] : the closed set of progress events ([Starting], [Indeterminate], [Running])
//   - [SyncResult] : counts and duration of a completed sync
//   - [SyncInfo] : the summary handed to the application state after a sync
//
// Types in this package are plain values. The engine never mutates a [Profile] it was handed.
package models
