// Package tasks synchronizes ledger data with an hledger-web server and submits new transactions.
//
// # Core Operations
//
//  1. [SyncOrchestrator.Sync] : Full pull of accounts and transactions
//     - Fetches the account list over JSON, detecting the server's protocol version
//     - Fetches transactions with the detected version, reporting per-item progress
//     - Falls back to scraping the HTML journal when no JSON version fits
//     - Replaces the stored state of the profile through [SyncPersistence]
//
//  2. [TransactionSender.Send] : Submit a single transaction
//     - PUTs the JSON encoding for every candidate version, newest first
//     - Falls back to the HTML add form, replaying the CSRF token up to [MaxRetries] times
//
// # Progress Reporting
//
// Sync returns an iter.Seq2 of [models.SyncProgress] events. The stream is cold and single-consumer;
// breaking out of the range loop cancels in-flight requests.
//
// # Errors
//
// Failures leave this package classified by [apperr.Classify]. A failed sync ends with one
// [apperr.SyncException].
//
// # Implementation
//
// [SyncOrchestrator] depends on:
//   - [AccountListFetcher] : [JSONAccountFetcher]
//   - [TransactionListFetcher] : [JSONTransactionFetcher]
//   - [LegacyHTMLParser] : [JournalScraper]
//   - [SyncPersistence] and [AppStateService] : repositories.Store and repositories.AppState
package tasks
