package did

import (
	"regexp"
)

// DID syntax according to W3C DID specification:
// did = "did:" method-name ":" method-specific-id
// method-name = 1*method-char
// method-char = %x61-7A / DIGIT ; a-z / 0-9
// method-specific-id = *( *idchar ":" ) 1*idchar
// idchar = ALPHA / DIGIT / "." / "-" / "_" / pct-encoded

// didRegex matches the DID syntax
var didRegex = regexp.MustCompile(`^did:([a-z0-9]+):((?:[a-zA-Z0-9._%-]*:)*[a-zA-Z0-9._%-]+)(?:/([^?#]*))?(?:\?([^#]*))?(?:#(.*))?$`)

// methodNameRegex validates method names
var methodNameRegex = regexp.MustCompile(`^[a-z0-9]+$`)

// ParseDID parses a DID string into a DID struct.
func ParseDID(didString string) (*DID, error) {
	if didString == "" {
		return nil, NewDIDError(ErrorInvalidDID, "DID string is empty")
	}

	matches := didRegex.FindStringSubmatch(didString)
	if matches == nil {
		return nil, NewDIDError(ErrorInvalidDID, "invalid DID syntax: "+didString)
	}

	method := matches[1]
	identifier := matches[2]
	path := matches[3]
	query := matches[4]
	fragment := matches[5]

	if !methodNameRegex.MatchString(method) {
		return nil, NewDIDError(ErrorInvalidDID, "invalid method name: "+method)
	}

	if identifier == "" {
		return nil, NewDIDError(ErrorInvalidDID, "method-specific identifier is empty")
	}

	return &DID{
		Method:     method,
		Identifier: identifier,
		Path:       path,
		Query:      query,
		Fragment:   fragment,
	}, nil
}

// IsValidDID reports whether didString parses as a syntactically valid DID.
// Used by internal/alloc to recognize DID-shaped caller-supplied credential
// IDs alongside URLs and UUIDs.
func IsValidDID(didString string) bool {
	_, err := ParseDID(didString)
	return err == nil
}
