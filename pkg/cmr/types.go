package cmr

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ConceptType identifies the kind of CMR concept.
type ConceptType string

// Supported concept types.
const (
	Collection ConceptType = "collection"
	Granule    ConceptType = "granule"
)

// Plural returns the pluralized form used in search and ingest paths.
func (t ConceptType) Plural() string {
	return string(t) + "s"
}

// ParseConceptType accepts the singular or plural form, case-insensitively.
func ParseConceptType(s string) (ConceptType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "collection", "collections":
		return Collection, nil
	case "granule", "granules":
		return Granule, nil
	default:
		return "", fmt.Errorf("%w: unknown concept type %q", ErrInvalidConcept, s)
	}
}

// Format is the metadata encoding a request is made in. It is chosen once per
// request and decides the search suffix, content types and error-body decoding.
type Format string

// Supported formats.
const (
	FormatEcho10  Format = "echo10-xml"
	FormatUMMJSON Format = "umm-json"
)

// ParseFormat maps user-facing format names onto a Format. The empty string
// selects ECHO10.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "echo10", "echo10-xml", "xml", "json":
		return FormatEcho10, nil
	case "umm", "umm-json", "umm_json", "ummg", "umm-g":
		return FormatUMMJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", ErrInvalidConcept, s)
	}
}

// searchSuffix is the extension appended to search URLs. ECHO10 concepts are
// searched through the JSON feed.
func (f Format) searchSuffix() string {
	if f == FormatUMMJSON {
		return ".umm_json"
	}
	return ".json"
}

// itemsPath is the gjson path holding the result list for the format.
func (f Format) itemsPath() string {
	if f == FormatUMMJSON {
		return "items"
	}
	return "feed.entry"
}

// accept is the response media type requested for validate and ingest calls.
func (f Format) accept() string {
	if f == FormatUMMJSON {
		return "application/json"
	}
	return "application/xml"
}

// Item is one search result entry exactly as CMR returned it.
type Item = json.RawMessage

// Concept is a metadata document to validate, ingest or delete. It is not
// retained by the client after a call returns.
type Concept struct {
	Type     ConceptType
	Format   Format
	Metadata []byte

	// IdentifierPath is a dotted path to the concept's natural identifier
	// inside Metadata. Empty selects the default for Type and Format.
	IdentifierPath string
}

// SearchQuery describes one logical search.
type SearchQuery struct {
	ConceptType ConceptType
	Params      Params
	Format      Format

	// PageSize is the number of items requested per page. Zero selects the
	// client default.
	PageSize int

	// PageNumber is 1-based. The queue manages it; direct FetchPage callers
	// set it themselves.
	PageNumber int

	// RecordLimit bounds the total items a queue hands out. Zero or less
	// means no cap.
	RecordLimit int
}

func (q SearchQuery) validate() error {
	switch q.ConceptType {
	case Collection, Granule:
	default:
		return fmt.Errorf("%w: unknown concept type %q", ErrInvalidConcept, q.ConceptType)
	}
	switch q.Format {
	case FormatEcho10, FormatUMMJSON:
	default:
		return fmt.Errorf("%w: unknown format %q", ErrInvalidConcept, q.Format)
	}
	if q.PageSize < 0 || q.PageSize > maxPageSize {
		return fmt.Errorf("page size must be between 1 and %d (got %d)", maxPageSize, q.PageSize)
	}
	if q.PageNumber < 1 {
		return fmt.Errorf("page number must be at least 1 (got %d)", q.PageNumber)
	}
	return nil
}

// SearchPage is a single page of search results.
type SearchPage struct {
	Items      []Item
	TotalHits  int
	PageNumber int
}

// Response is a decoded CMR response. XML bodies are decoded with attributes
// merged into their element and without wrapping single children in a list.
type Response struct {
	StatusCode int
	Body       map[string]any
}

// IngestResult is CMR's answer to a successful ingest.
type IngestResult struct {
	ConceptID  string
	RevisionID string
	Identifier string
	Response   Response
}

// DeleteOutcome distinguishes a real delete from an idempotent no-op.
type DeleteOutcome int

// Delete outcomes.
const (
	Deleted DeleteOutcome = iota + 1
	AlreadyDeleted
)

func (o DeleteOutcome) String() string {
	switch o {
	case Deleted:
		return "deleted"
	case AlreadyDeleted:
		return "already_deleted"
	default:
		return "unknown"
	}
}

// DeleteResult is CMR's answer to a delete.
type DeleteResult struct {
	Outcome    DeleteOutcome
	ConceptID  string
	RevisionID string
	Response   Response
}
