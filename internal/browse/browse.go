package browse

import (
	"github.com/dis-maja/swesrc/internal/bookdb"
	"github.com/dis-maja/swesrc/internal/importer"
)

// Kind is a family of books that can be browsed.
type Kind int

const (
	KindNone Kind = iota
	KindChurch
	KindSCB
)

func (k Kind) String() string {
	switch k {
	case KindChurch:
		return "Church books"
	case KindSCB:
		return "SCB extracts 1860-1949"
	default:
		return "Choose type"
	}
}

// Kinds lists the selectable book kinds in menu order.
func Kinds() []Kind { return []Kind{KindChurch, KindSCB} }

// NeedsArchive reports whether books of kind k are listed per archive
// rather than per county.
func (k Kind) NeedsArchive() bool { return k == KindChurch }

// Choice is one entry of a county or archive menu.
type Choice struct {
	ID   int
	Name string
}

// CountyChoices turns the county listing into menu entries.
func CountyChoices(counties []bookdb.County) []Choice {
	out := make([]Choice, 0, len(counties))
	for _, c := range counties {
		out = append(out, Choice{ID: c.ID, Name: c.Name})
	}
	return out
}

// ArchiveChoices lists the archives of county cid. An archive that belongs
// to another county is annotated with that county's name.
func ArchiveChoices(cid int, archives []bookdb.Archive, counties []bookdb.County) []Choice {
	names := make(map[int]string, len(counties))
	for _, c := range counties {
		names[c.ID] = c.Name
	}
	out := make([]Choice, 0, len(archives))
	for _, a := range archives {
		name := a.Name
		if a.CountyID != cid {
			name += " (" + names[a.CountyID] + ")"
		}
		out = append(out, Choice{ID: a.ID, Name: name})
	}
	return out
}

// Row is one line of a book list: either a book type header or a book.
type Row struct {
	BookID int
	Label  string
	Header bool
	// GrampsID is the id of the source already imported from the book.
	GrampsID string
	Extra    string
}

// Selectable reports whether the row is a book that can still be imported.
func (r Row) Selectable() bool { return !r.Header && r.GrampsID == "" }

// ChurchBookRows lists the books of an archive, starting a new header
// whenever the general book type changes. Books are labelled with their
// specific type when they have one.
func ChurchBookRows(books []bookdb.Book, types bookdb.BookTypes, rins importer.RinIndex) []Row {
	var out []Row
	current := "0"
	for _, b := range books {
		if b.TypeID != current {
			current = b.TypeID
			out = append(out, Row{Label: types.Name(current), Header: true})
		}
		out = append(out, bookRow(b, types.Name(importer.BookTypeID(b)), rins))
	}
	return out
}

// SCBBookRows lists the SCB extract books of a county under a single
// header named after the first book type.
func SCBBookRows(books []bookdb.Book, types bookdb.BookTypes, rins importer.RinIndex) []Row {
	first, _ := types.First()
	out := []Row{{Label: first.Name, Header: true}}
	for _, b := range books {
		row := bookRow(b, types.Name(b.TypeID), rins)
		row.Extra = b.Extra
		out = append(out, row)
	}
	return out
}

func bookRow(b bookdb.Book, typeName string, rins importer.RinIndex) Row {
	id, _ := rins.Imported(b.ID)
	return Row{
		BookID:   b.ID,
		Label:    importer.BookLabel(typeName, b.Period, b.Signum, true),
		GrampsID: id,
	}
}

// RepositoryRow is one line of the repository list.
type RepositoryRow struct {
	RIN      string
	Name     string
	Ref      string
	GrampsID string
}

// Selectable reports whether the repository can still be imported.
func (r RepositoryRow) Selectable() bool { return r.GrampsID == "" }

// RepositoryRows lists the catalog repositories with the gramps id of the
// linked store record, if any.
func RepositoryRows(index importer.RepositoryIndex) []RepositoryRow {
	entries := index.Entries()
	out := make([]RepositoryRow, 0, len(entries))
	for _, e := range entries {
		out = append(out, RepositoryRow{
			RIN:      e.RIN,
			Name:     e.Name,
			Ref:      e.Ref,
			GrampsID: e.LinkedGrampsID,
		})
	}
	return out
}

// NextSelectable returns the index of the first selectable row at or after
// from moving in direction step (1 or -1), or -1 when there is none.
func NextSelectable(rows []Row, from, step int) int {
	for i := from; i >= 0 && i < len(rows); i += step {
		if rows[i].Selectable() {
			return i
		}
	}
	return -1
}
