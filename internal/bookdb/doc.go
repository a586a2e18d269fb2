// Package bookdb provides an HTTP client for the bookDB catalog service.
//
// # Overview
//
// bookDB indexes Swedish archives, church books and SCB extract books. It
// answers a fixed set of GET queries with JSON. This package builds those
// queries, attaches credentials, classifies the outcome and decodes the
// payload into typed rows.
//
// # Architecture
//
//   - query.go: command codes and the immutable Query value
//   - credentials.go: URL/username/password and the Basic auth header
//   - client.go: request execution, status classification, typed queries
//   - types.go: row types mirroring the bookDB payloads
//   - errors.go: StatusError, TransportError, MalformedResponseError
//
// # Wire Protocol
//
// Every request is a GET against the single configured base URL:
//
//	<base>?do=<CommandName>&sspv=0.0.1[&key=value]*
//
// Parameters are appended in the order they were supplied and are not
// escaped. When both username and password are set the request carries
// "Authorization: Basic base64(user:pass)".
//
// # Client Usage
//
//	client := bookdb.NewClient(bookdb.Options{
//		Credentials: bookdb.Credentials{URL: url, Username: user, Password: pass},
//	})
//
//	status, err := client.Test(ctx)
//	if err != nil {
//		log.Printf("bookdb: %v", err)
//	}
//
//	archives, err := client.Archives(ctx, countyID)
//
// # Status Classification
//
// Query returns a Result for every expected outcome:
//
//   - missing credentials or an unusable URL: "Incomplete configuration", -1
//   - HTTP 401: "Authentication Required", 401
//   - HTTP 404: "Unknown Page", 404
//   - HTTP 500 and 503: the server's reason phrase and the status code
//   - a payload whose status field is not "OK": that status, -1
//   - anything else on a 2xx response: code 0
//
// Any other HTTP status and any network failure are returned as a
// *TransportError. These are fatal to the operation that issued them.
//
// The typed methods (Repositories, Archive, Book, ...) turn a non-zero
// code into a *StatusError, so a caller never reads rows from a failed
// query. errors.Is(err, ErrNotConfigured) detects the configuration case.
//
// # Payload Validation
//
// Catalog values arrive as JSON strings or numbers. Both are accepted and
// normalized. Keys the importer depends on are checked when the row is
// decoded; a missing key yields a *MalformedResponseError naming it.
//
// # Thread Safety
//
// The Client is safe for concurrent use. Credentials may be changed at any
// time; a query uses the credentials current when it starts.
package bookdb
