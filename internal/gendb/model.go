package gendb

import (
	"strconv"
	"time"
)

// RepositoryType classifies a repository. Values follow the genealogy
// record model's numeric codes.
type RepositoryType int

const (
	RepoUnknown RepositoryType = iota - 1
	RepoCustom
	RepoLibrary
	RepoCemetery
	RepoChurch
	RepoArchive
	RepoAlbum
	RepoWebsite
	RepoBookstore
	RepoCollection
	RepoSafe
)

var repositoryTypeNames = map[RepositoryType]string{
	RepoUnknown:    "Unknown",
	RepoCustom:     "Custom",
	RepoLibrary:    "Library",
	RepoCemetery:   "Cemetery",
	RepoChurch:     "Church",
	RepoArchive:    "Archive",
	RepoAlbum:      "Album",
	RepoWebsite:    "Web site",
	RepoBookstore:  "Bookstore",
	RepoCollection: "Collection",
	RepoSafe:       "Safe",
}

func (t RepositoryType) String() string {
	if name, ok := repositoryTypeNames[t]; ok {
		return name
	}
	return "RepositoryType(" + strconv.Itoa(int(t)) + ")"
}

// URLType classifies a repository link.
type URLType int

const (
	URLUnknown URLType = iota - 1
	URLCustom
	URLEmail
	URLWebHome
	URLWebSearch
	URLWebFTP
)

var urlTypeNames = map[URLType]string{
	URLUnknown:   "Unknown",
	URLCustom:    "Custom",
	URLEmail:     "E-mail",
	URLWebHome:   "Web Home",
	URLWebSearch: "Web Search",
	URLWebFTP:    "FTP",
}

func (t URLType) String() string {
	if name, ok := urlTypeNames[t]; ok {
		return name
	}
	return "URLType(" + strconv.Itoa(int(t)) + ")"
}

// SourceMediaType is the medium of a source held by a repository.
type SourceMediaType int

const (
	MediaUnknown SourceMediaType = iota - 1
	MediaCustom
	MediaAudio
	MediaBook
	MediaCard
	MediaElectronic
	MediaFiche
	MediaFilm
	MediaMagazine
	MediaManuscript
	MediaMap
	MediaNewspaper
	MediaPhoto
	MediaTombstone
	MediaVideo
)

var mediaTypeNames = map[SourceMediaType]string{
	MediaUnknown:    "Unknown",
	MediaCustom:     "Custom",
	MediaAudio:      "Audio",
	MediaBook:       "Book",
	MediaCard:       "Card",
	MediaElectronic: "Electronic",
	MediaFiche:      "Fiche",
	MediaFilm:       "Film",
	MediaMagazine:   "Magazine",
	MediaManuscript: "Manuscript",
	MediaMap:        "Map",
	MediaNewspaper:  "Newspaper",
	MediaPhoto:      "Photo",
	MediaTombstone:  "Tombstone",
	MediaVideo:      "Video",
}

func (t SourceMediaType) String() string {
	if name, ok := mediaTypeNames[t]; ok {
		return name
	}
	return "SourceMediaType(" + strconv.Itoa(int(t)) + ")"
}

// Address is a postal address of a repository.
type Address struct {
	Street     string `yaml:"street,omitempty"`
	Locality   string `yaml:"locality,omitempty"`
	City       string `yaml:"city,omitempty"`
	County     string `yaml:"county,omitempty"`
	State      string `yaml:"state,omitempty"`
	Country    string `yaml:"country,omitempty"`
	PostalCode string `yaml:"postal_code,omitempty"`
	Phone      string `yaml:"phone,omitempty"`
}

// URL is a link attached to a repository.
type URL struct {
	Path        string  `yaml:"path"`
	Description string  `yaml:"description,omitempty"`
	Type        URLType `yaml:"type"`
}

// Repository is a place holding sources: an archive, a library, a web site.
type Repository struct {
	Handle    string         `yaml:"handle,omitempty"`
	GrampsID  string         `yaml:"gramps_id,omitempty"`
	Name      string         `yaml:"name"`
	Type      RepositoryType `yaml:"type"`
	Addresses []Address      `yaml:"addresses,omitempty"`
	URLs      []URL          `yaml:"urls,omitempty"`
	Changed   time.Time      `yaml:"-"`
}

// SrcAttribute is a typed key/value pair on a source.
type SrcAttribute struct {
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
}

// RepoRef links a source to a repository with a call number.
type RepoRef struct {
	RepositoryHandle string          `yaml:"repository"`
	CallNumber       string          `yaml:"call_number"`
	Media            SourceMediaType `yaml:"media"`
}

// Source is a document or book used as genealogical evidence.
type Source struct {
	Handle     string         `yaml:"handle,omitempty"`
	GrampsID   string         `yaml:"gramps_id,omitempty"`
	Title      string         `yaml:"title"`
	Author     string         `yaml:"author"`
	Abbrev     string         `yaml:"abbrev"`
	Attributes []SrcAttribute `yaml:"attributes,omitempty"`
	RepoRefs   []RepoRef      `yaml:"repo_refs,omitempty"`
	Changed    time.Time      `yaml:"-"`
}

// Attribute returns the value of the first attribute of the given type.
func (s Source) Attribute(typ string) (string, bool) {
	for _, a := range s.Attributes {
		if a.Type == typ {
			return a.Value, true
		}
	}
	return "", false
}

// MarshalYAML renders the type by name in draft previews.
func (t RepositoryType) MarshalYAML() (any, error) { return t.String(), nil }

// MarshalYAML renders the type by name in draft previews.
func (t URLType) MarshalYAML() (any, error) { return t.String(), nil }

// MarshalYAML renders the type by name in draft previews.
func (t SourceMediaType) MarshalYAML() (any, error) { return t.String(), nil }
