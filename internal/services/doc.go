// Package services implements the HTTP transport used to talk to hledger-web servers.
//
// # Client
//
// [Client] is the narrow interface consumed by the sync and submission engine. [HledgerClient]
// implements it over net/http with basic auth taken from the [models.Profile], an optional
// request rate limit and redirects disabled, so that a 303 from the add form is observable.
//
// Endpoints are resolved against the profile URL with [Endpoint]:
//   - GET  accounts      JSON account list
//   - GET  transactions  JSON transaction list
//   - GET  journal       HTML journal page, used by the legacy parser
//   - PUT  add           JSON transaction (1.32 and later)
//   - POST add           HTML form submission with CSRF token and session cookie
//
// # Wire Codec
//
// hledger-web changed its JSON layout between releases. [DecodeAccounts], [DecodeTransaction]
// and [EncodeTransaction] take the [models.APIVersion] to read or write:
//   - 1.32 and 1.40: balances in aibalance, a single tsourcepos object
//   - 1.50: balances under adata.pdperiods, tsourcepos is a list
//
// Quantities travel as decimalMantissa/decimalPlaces pairs and are decoded without loss.
// Decoding a document with the wrong layout fails with [shared.ErrAPINotSupported], which is
// how version detection probes the server.
//
// # Form Submission
//
// [ExtractToken] reads the hidden _token input from an HTML page. The add form also needs
// the _SESSION cookie issued with that page; both are replayed by the caller on retry.
//
// # Dry Runs
//
// Write methods take a dryRun flag. When set the request is logged and reported as
// successful without touching the network.
package services
