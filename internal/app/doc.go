// Package app is the composition root of swesrc.
//
// Run loads the TOML config and the optional .env overrides, opens the
// log file, the bookDB client and the record store, then tests the
// catalog connection. A failed test does not stop startup; the UI opens
// locked on its Error page instead.
//
// The Indexer goroutine keeps a state.Store current. It subscribes to
// record store change notifications and, on each one, rebuilds the RIN
// index and the repository index. Failed rebuilds are retried with an
// exponential backoff capped at 30 seconds, and the previous indexes stay
// visible in the meantime.
//
//	Run()
//	  ├─> LoadConfig()            TOML + env
//	  ├─> Open()                  bookdb.Client, gendb.Store, importer.Importer
//	  ├─> checkCatalog()          connection test
//	  ├─> Indexer.Start()         background rebuilds
//	  └─> ui.Run()                Bubble Tea (blocks)
//
// The CLI commands in cmd/swesrc use Open and LoadConfig directly.
package app
