// Package ui provides the swesrc terminal user interface.
//
// The interface is a Bubble Tea program with five pages:
//
//   - Sources: drill down from book kind to county, archive and book, and
//     add the chosen book as a source
//   - Repositories: the bookDB repository listing, linked entries marked
//     with their record ID
//   - Settings: the four import toggles
//   - bookDB: URL and login, connection test
//   - Log: the tail of the application log with a level filter
//
// When the startup connection test fails the model is locked to an Error
// page and the bookDB page until a test passes.
//
// Catalog calls and imports run as tea.Cmds. Index data is read from a
// state.Store snapshot on every tick; book rows are rebuilt when the
// snapshot generation changes.
//
// # Key Bindings
//
//   - 1-5 or tab: switch page
//   - j/k, g/G: move, top, bottom
//   - enter: open the entry under the cursor
//   - esc: one level back
//   - a: add the selected repository or book
//   - space: toggle a setting
//   - s: save settings or login
//   - t: test the bookDB connection
//   - f, L: follow the log, cycle the level filter
//   - T: cycle theme
//   - e or ctrl+c: exit
package ui
