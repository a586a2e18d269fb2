package bookdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RepositoryRow is one entry of the repository listing.
type RepositoryRow struct {
	RIN      string `json:"rin" yaml:"rin"`
	Name     string `json:"name" yaml:"name"`
	GrampsID string `json:"gramps_id" yaml:"gramps_id"`
	Type     string `json:"type" yaml:"type"`
	Ref      string `json:"ref" yaml:"ref"` // two-letter reference system tag, e.g. AD or SVAR
}

// Repository info row types.
const (
	InfoName    = "NAME"
	InfoEmail   = "EMAIL"
	InfoWeb     = "WWW"
	InfoPhone   = "PHON"
	InfoAddress = "ADDR"
)

// RepositoryInfo is one tagged row describing a repository.
type RepositoryInfo struct {
	Type string `json:"bdbRItype" yaml:"type"`
	Row  string `json:"bdbRIrow" yaml:"row"`
	Info string `json:"bdbRIinfo" yaml:"info"`
}

// County is a Swedish county.
type County struct {
	ID   int    `json:"bdbCTid" yaml:"id"`
	Name string `json:"bdbCTname" yaml:"name"`
}

// Archive is one entry of the archive listing of a county.
type Archive struct {
	ID       int    `json:"bdbACid" yaml:"id"`
	Name     string `json:"bdbACname" yaml:"name"`
	CountyID int    `json:"bdbCTid" yaml:"county_id"`
}

// ArchiveInfo describes one archive (a parish or the SCB collection).
type ArchiveInfo struct {
	ID           string `json:"bdbACid" yaml:"id"`
	Name         string `json:"bdbACname" yaml:"name"`
	Author       string `json:"bdbACauthor" yaml:"author"`
	Ref          string `json:"bdbACref" yaml:"ref"`
	RepositoryID string `json:"bdbREid" yaml:"repository_id"` // RIN of the holding repository
	BookChecksum string `json:"bdbBKchk" yaml:"book_checksum"`
}

// Book is one entry of a book listing.
type Book struct {
	ID         int    `json:"bdbBKid" yaml:"id"`
	TypeID     string `json:"nadBTid" yaml:"type_id"`
	SpecTypeID string `json:"nadBTidSpec" yaml:"spec_type_id"`
	Period     string `json:"nadBKperiod" yaml:"period"`
	Signum     string `json:"bdbBKsignum" yaml:"signum"`
	Extra      string `json:"nadBKextra" yaml:"extra"`
}

// BookInfo describes one book and its links into NAD and AD.
type BookInfo struct {
	ID          string `json:"bdbBKid" yaml:"id"`
	NADBookID   string `json:"nadBKid" yaml:"nad_book_id"`
	ADBookID    string `json:"adBKid" yaml:"ad_book_id"`
	NADSignum   string `json:"nadSTsignum" yaml:"nad_signum"`
	NADVolume   string `json:"nadBKvol" yaml:"nad_volume"`
	NADChecksum string `json:"nadBKchkBr" yaml:"nad_checksum"`
	ADVolume    string `json:"adBKvol" yaml:"ad_volume"`
	ADChecksum  string `json:"adACchkBK" yaml:"ad_checksum"`
	RealTypeID  string `json:"nadBTidReal" yaml:"real_type_id"`
	Period      string `json:"nadBKperiod" yaml:"period"`
	Signum      string `json:"bdbBKsignum" yaml:"signum"`
}

// HasNAD reports whether the book is linked to a NAD book.
func (b BookInfo) HasNAD() bool { return linked(b.NADBookID) }

// HasAD reports whether the book is linked to an AD volume.
func (b BookInfo) HasAD() bool { return linked(b.ADBookID) }

func linked(id string) bool {
	id = strings.TrimSpace(id)
	return id != "" && id != "0"
}

// Book reference types.
const (
	RefImage     = "bildfil"
	RefMicrofilm = "microfilm"
)

// BookRef is one NAD reference of a book.
type BookRef struct {
	Type string `json:"nadBRtype" yaml:"type"`
	Ref  string `json:"nadBRref" yaml:"ref"`
}

// BookType is one id/name pair of a BookTypes object.
type BookType struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// BookTypes is the id to name mapping returned by the book type queries.
// The server's key order is preserved.
type BookTypes []BookType

// Name returns the name for id, or "" when unknown.
func (t BookTypes) Name(id string) string {
	for _, bt := range t {
		if bt.ID == id {
			return bt.Name
		}
	}
	return ""
}

// First returns the first type in server order.
func (t BookTypes) First() (BookType, bool) {
	if len(t) == 0 {
		return BookType{}, false
	}
	return t[0], true
}

// UnmarshalJSON decodes a JSON object while keeping its key order.
func (t *BookTypes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("book types: expected object, got %v", tok)
	}
	var out BookTypes
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var value any
		if err := dec.Decode(&value); err != nil {
			return err
		}
		name, ok := scalar(value)
		if !ok {
			return fmt.Errorf("book types: value for %q is not a string", key)
		}
		out = append(out, BookType{ID: key, Name: name})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*t = out
	return nil
}

// record is one decoded JSON object of a response.
type record map[string]any

// fieldReader pulls string values out of a record and remembers which
// required keys were missing or not scalar.
type fieldReader struct {
	rec     record
	missing []string
}

func (f *fieldReader) str(key string) string {
	raw, ok := f.rec[key]
	if !ok {
		f.missing = append(f.missing, key)
		return ""
	}
	s, ok := scalar(raw)
	if !ok {
		f.missing = append(f.missing, key)
	}
	return s
}

func (f *fieldReader) opt(key string) string {
	s, _ := scalar(f.rec[key])
	return s
}

func (f *fieldReader) int(key string) int {
	s := f.str(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		f.missing = append(f.missing, key)
	}
	return n
}

func scalar(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	case nil:
		return "", true
	default:
		return "", false
	}
}

func parseRepositoryRow(f *fieldReader) RepositoryRow {
	return RepositoryRow{
		RIN:      f.str("rin"),
		Name:     f.str("name"),
		GrampsID: f.opt("gramps_id"),
		Type:     f.opt("type"),
		Ref:      f.opt("ref"),
	}
}

func parseRepositoryInfo(f *fieldReader) RepositoryInfo {
	return RepositoryInfo{
		Type: f.str("bdbRItype"),
		Row:  f.opt("bdbRIrow"),
		Info: f.str("bdbRIinfo"),
	}
}

func parseCounty(f *fieldReader) County {
	return County{ID: f.int("bdbCTid"), Name: f.str("bdbCTname")}
}

func parseArchive(f *fieldReader) Archive {
	return Archive{
		ID:       f.int("bdbACid"),
		Name:     f.str("bdbACname"),
		CountyID: f.int("bdbCTid"),
	}
}

func parseArchiveInfo(f *fieldReader) ArchiveInfo {
	return ArchiveInfo{
		ID:           f.opt("bdbACid"),
		Name:         f.str("bdbACname"),
		Author:       f.str("bdbACauthor"),
		Ref:          f.str("bdbACref"),
		RepositoryID: f.str("bdbREid"),
		BookChecksum: f.opt("bdbBKchk"),
	}
}

func parseBook(f *fieldReader) Book {
	return Book{
		ID:         f.int("bdbBKid"),
		TypeID:     f.str("nadBTid"),
		SpecTypeID: f.opt("nadBTidSpec"),
		Period:     f.opt("nadBKperiod"),
		Signum:     f.opt("bdbBKsignum"),
		Extra:      f.opt("nadBKextra"),
	}
}

func parseBookInfo(f *fieldReader) BookInfo {
	return BookInfo{
		ID:          f.opt("bdbBKid"),
		NADBookID:   f.str("nadBKid"),
		ADBookID:    f.str("adBKid"),
		NADSignum:   f.opt("nadSTsignum"),
		NADVolume:   f.opt("nadBKvol"),
		NADChecksum: f.opt("nadBKchkBr"),
		ADVolume:    f.opt("adBKvol"),
		ADChecksum:  f.opt("adACchkBK"),
		RealTypeID:  f.opt("nadBTidReal"),
		Period:      f.opt("nadBKperiod"),
		Signum:      f.opt("bdbBKsignum"),
	}
}

func parseBookRef(f *fieldReader) BookRef {
	return BookRef{Type: f.str("nadBRtype"), Ref: f.str("nadBRref")}
}

func decodeJSON(body []byte, dest any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(dest)
}

func queryRows[T any](ctx context.Context, c *Client, q Query, parse func(*fieldReader) T) ([]T, error) {
	body, err := c.fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	var recs []record
	if err := decodeJSON(body, &recs); err != nil {
		return nil, &MalformedResponseError{Command: q.Command(), Err: err}
	}
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		f := fieldReader{rec: rec}
		row := parse(&f)
		if len(f.missing) > 0 {
			return nil, &MalformedResponseError{Command: q.Command(), Missing: f.missing}
		}
		out = append(out, row)
	}
	return out, nil
}

func queryRow[T any](ctx context.Context, c *Client, q Query, parse func(*fieldReader) T) (T, error) {
	var zero T
	body, err := c.fetch(ctx, q)
	if err != nil {
		return zero, err
	}
	var rec record
	if err := decodeJSON(body, &rec); err != nil {
		return zero, &MalformedResponseError{Command: q.Command(), Err: err}
	}
	f := fieldReader{rec: rec}
	row := parse(&f)
	if len(f.missing) > 0 {
		return zero, &MalformedResponseError{Command: q.Command(), Missing: f.missing}
	}
	return row, nil
}

func queryBookTypes(ctx context.Context, c *Client, q Query) (BookTypes, error) {
	body, err := c.fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	var types BookTypes
	if err := json.Unmarshal(body, &types); err != nil {
		return nil, &MalformedResponseError{Command: q.Command(), Err: err}
	}
	return types, nil
}
