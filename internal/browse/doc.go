// Package browse turns catalog listings into the menus and book lists shown
// on the Sources and Repositories pages, marking entries that are already
// present in the record store.
package browse
