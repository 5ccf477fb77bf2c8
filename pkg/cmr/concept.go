package cmr

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/tidwall/gjson"
)

const (
	echo10ContentType = "application/echo10+xml"
	ummContentType    = "application/vnd.nasa.cmr.umm+json"

	// DefaultUMMVersion is sent when the metadata does not declare
	// MetadataSpecification.Version.
	DefaultUMMVersion = "1.4"
)

// DefaultIdentifierPath returns the path to a concept's natural identifier
// for the given type and format.
func DefaultIdentifierPath(t ConceptType, f Format) string {
	switch {
	case f == FormatUMMJSON && t == Granule:
		return "GranuleUR"
	case f == FormatUMMJSON:
		return "EntryTitle"
	case t == Granule:
		return "Granule.GranuleUR"
	default:
		return "Collection.DataSetId"
	}
}

// Identifier extracts the concept's natural identifier from its metadata.
func (c Concept) Identifier() (string, error) {
	path := c.IdentifierPath
	if path == "" {
		path = DefaultIdentifierPath(c.Type, c.Format)
	}

	if c.Format == FormatUMMJSON {
		if !gjson.ValidBytes(c.Metadata) {
			return "", fmt.Errorf("%w: metadata is not valid JSON", ErrInvalidConcept)
		}
		r := gjson.GetBytes(c.Metadata, path)
		if id := strings.TrimSpace(r.String()); r.Exists() && id != "" {
			return id, nil
		}
		return "", fmt.Errorf("%w: no identifier at %s", ErrInvalidConcept, path)
	}

	m, err := decodeXML(c.Metadata)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidConcept, err)
	}
	v, ok := lookupPath(m, path)
	if !ok {
		return "", fmt.Errorf("%w: no identifier at %s", ErrInvalidConcept, path)
	}
	id, ok := stringValue(v)
	if id = strings.TrimSpace(id); !ok || id == "" {
		return "", fmt.Errorf("%w: no identifier at %s", ErrInvalidConcept, path)
	}
	return id, nil
}

// ContentType is the media type the concept is sent to CMR with.
func (c Concept) ContentType() (string, error) {
	switch c.Format {
	case FormatEcho10:
		return echo10ContentType, nil
	case FormatUMMJSON:
		version, err := ummVersion(c.Metadata)
		if err != nil {
			return "", err
		}
		return ummContentType + ";version=" + version, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", ErrInvalidConcept, c.Format)
	}
}

// ummVersion reads MetadataSpecification.Version, falling back to
// DefaultUMMVersion. The declared string is kept as written.
func ummVersion(metadata []byte) (string, error) {
	r := gjson.GetBytes(metadata, "MetadataSpecification.Version")
	raw := strings.TrimSpace(r.String())
	if !r.Exists() || raw == "" {
		return DefaultUMMVersion, nil
	}

	v, err := semver.NewVersion(raw)
	if err != nil {
		return "", fmt.Errorf("%w: invalid UMM version %q: %w", ErrInvalidConcept, raw, err)
	}
	return v.Original(), nil
}
