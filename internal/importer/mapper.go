package importer

import (
	"fmt"
	"strings"

	"github.com/dis-maja/swesrc/internal/bookdb"
	"github.com/dis-maja/swesrc/internal/gendb"
)

// Country names used in titles and addresses.
const (
	countryLocal         = "Sverige"
	countryInternational = "Sweden"
	countryTitleUpper    = "SWEDEN"
)

// AttrBookID is the source attribute type holding the catalog book id.
const AttrBookID = "BDBRIN"

// rinPrefix starts the description of the URL that links a repository to
// its catalog record.
const rinPrefix = "RIN "

// TitlePrefix returns the county prefix of a source title, optionally
// preceded by the country.
func TitlePrefix(county string, includeCountry, localized bool) string {
	var b strings.Builder
	if includeCountry {
		if localized {
			b.WriteString(countryLocal + ", ")
		} else {
			b.WriteString(countryTitleUpper + ", ")
		}
	}
	b.WriteString(county + ", ")
	return b.String()
}

// StripCountryCode turns "+46 (0)8-123456" into the domestic "08-123456":
// everything up to the opening parenthesis is dropped together with the
// first closing parenthesis after it. Numbers without "(" are unchanged.
func StripCountryCode(phone string) string {
	open := strings.Index(phone, "(")
	if open < 0 {
		return phone
	}
	rest := phone[open+1:]
	end := strings.Index(rest, ")")
	if end < 0 {
		return rest
	}
	return rest[:end] + rest[end+1:]
}

// StripCountryPrefix drops a country prefix such as "SE-" from a postal code.
func StripCountryPrefix(postal string) string {
	if i := strings.Index(postal, "-"); i >= 0 {
		return postal[i+1:]
	}
	return postal
}

// AddressRow is one ADDR row of a repository: its row key and text.
type AddressRow struct {
	Key   string
	Value string
}

// DecomposeAddress assigns ADDR rows to address fields by position.
//
// Rows are keyed; a repeated key keeps its first position and takes the
// last value. The row keyed "1" (the repository name line) is dropped. The
// last remaining row is the postal line; the rows before it fill street
// and then locality, further rows are ignored.
//
// The postal line is split at its second space: "123 45 Stockholm" gives
// postal code "123 45" and city "Stockholm". With a single space the split
// is at that space, with none the whole line is the city. Unless
// international is set the postal code loses any country prefix.
func DecomposeAddress(rows []AddressRow, international bool) gendb.Address {
	var keys []string
	values := make(map[string]string, len(rows))
	for _, r := range rows {
		if _, seen := values[r.Key]; !seen {
			keys = append(keys, r.Key)
		}
		values[r.Key] = r.Value
	}

	var ordered []string
	for _, k := range keys {
		if k == "1" {
			continue
		}
		ordered = append(ordered, values[k])
	}

	var addr gendb.Address
	if len(ordered) == 0 {
		return addr
	}
	postalLine := ordered[len(ordered)-1]
	for i, v := range ordered[:len(ordered)-1] {
		switch i {
		case 0:
			addr.Street = v
		case 1:
			addr.Locality = v
		}
	}

	postal, city := splitPostalLine(postalLine)
	addr.City = city
	if international {
		addr.PostalCode = postal
	} else {
		addr.PostalCode = StripCountryPrefix(postal)
	}
	return addr
}

func splitPostalLine(line string) (postal, city string) {
	first := strings.Index(line, " ")
	if first < 0 {
		return "", line
	}
	second := strings.Index(line[first+1:], " ")
	if second < 0 {
		return line[:first], line[first+1:]
	}
	pos := first + 1 + second
	return line[:pos], line[pos+1:]
}

// BookTypeID returns the type used to label a church book: the specific
// type when one is set, otherwise the general type.
func BookTypeID(b bookdb.Book) string {
	spec := strings.TrimSpace(b.SpecTypeID)
	if spec != "" && spec != "0" {
		return spec
	}
	return b.TypeID
}

// BookLabel renders "<type> <period> (<signum>)". Without signum the
// parenthesized part is left out.
func BookLabel(typeName, period, signum string, withSignum bool) string {
	label := strings.TrimSpace(typeName + " " + period)
	if withSignum {
		label = strings.TrimSpace(label + " (" + signum + ")")
	}
	return label
}

// RINURL builds the URL that marks a repository as imported from the
// catalog record rin.
func RINURL(bookdbURL, rin string) gendb.URL {
	return gendb.URL{Path: bookdbURL, Description: rinPrefix + rin, Type: gendb.URLUnknown}
}

// LinkedRIN returns the catalog RIN stored in u when u is a RIN URL for
// the catalog at bookdbURL.
func LinkedRIN(u gendb.URL, bookdbURL string) (string, bool) {
	if u.Type != gendb.URLUnknown || u.Path != bookdbURL {
		return "", false
	}
	if !strings.HasPrefix(u.Description, rinPrefix) {
		return "", false
	}
	return strings.TrimSpace(u.Description[len(rinPrefix):]), true
}

func primaryCallNumber(archive bookdb.ArchiveInfo, book bookdb.BookInfo) string {
	return fmt.Sprintf("%s/%s/%s (%s)", archive.Ref, book.NADSignum, book.NADVolume, archive.BookChecksum)
}

func imageCallNumber(imageID, checksum string) string {
	return fmt.Sprintf("Bildid %s, https://sok.riksarkivet.se/bildid?Bildid=%s (%s)", imageID, imageID, checksum)
}

func microfilmCallNumber(ref string) string {
	return "Microfilm " + strings.TrimSpace(ref)
}

func adCallNumber(volume, checksum string) string {
	return fmt.Sprintf("AID %s, https://www.arkivdigital.se/aid/info/%s (%s)", volume, volume, checksum)
}

// nadRepoRefs maps book reference rows to repository references held by
// the NAD repository. Image rows without a space in the reference and rows
// of other types are skipped.
func nadRepoRefs(refs []bookdb.BookRef, handle, checksum string) []gendb.RepoRef {
	var out []gendb.RepoRef
	for _, r := range refs {
		switch r.Type {
		case bookdb.RefImage:
			i := strings.Index(r.Ref, " ")
			if i < 0 {
				continue
			}
			id := strings.TrimSpace(r.Ref[i+1:])
			out = append(out, gendb.RepoRef{
				RepositoryHandle: handle,
				CallNumber:       imageCallNumber(id, checksum),
				Media:            gendb.MediaElectronic,
			})
		case bookdb.RefMicrofilm:
			out = append(out, gendb.RepoRef{
				RepositoryHandle: handle,
				CallNumber:       microfilmCallNumber(r.Ref),
				Media:            gendb.MediaFiche,
			})
		}
	}
	return out
}
