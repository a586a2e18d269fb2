// Package importer maps bookDB catalog records onto repositories and
// sources in the record store.
//
// A repository is imported from its catalog info rows and carries a RIN
// URL pointing back at the catalog record. Sources are built for church
// books and SCB extract books; each source holds references to the
// archive that keeps the book and, when digitized, to the NAD (SVAR) and
// AD repositories. Every referenced repository must already be imported:
// a missing one aborts with a *MappingError before any write. Each import
// runs in its own store transaction.
package importer
