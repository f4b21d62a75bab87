// Package testcase models a single testcases/<uuid>.json document: its
// metadata and its ordered evidence log. It plays the same role for a test
// case that the manifest package plays for the package as a whole.
package testcase

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hpkns/evidenceangel/internal/jsonextra"
)

// Passed is the tri-state result of a test case: it either passed, failed,
// or has no recorded verdict yet.
type Passed int

const (
	PassedUnset Passed = iota
	PassedTrue
	PassedFalse
)

// Metadata carries a test case's title, execution time, result, and any
// values for the package's declared custom fields.
type Metadata struct {
	Title             string
	ExecutionDatetime time.Time
	Passed            Passed
	// Custom maps a declared custom field ID to its value for this test
	// case. Not every declared field needs an entry.
	Custom map[string]string
	// Extras holds members of the "metadata" object that this schema
	// version doesn't recognize, so a load/save cycle doesn't drop fields
	// a newer version wrote.
	Extras jsonextra.Bag
}

// Kind identifies what form a piece of Evidence's payload takes.
type Kind string

const (
	KindText     Kind = "Text"
	KindRichText Kind = "RichText"
	KindImage    Kind = "Image"
	KindFile     Kind = "File"
	KindHttp     Kind = "Http"
)

// Evidence is one entry in a test case's evidence log: a kind, a payload,
// an optional caption, and (for File evidence only) an original filename.
type Evidence struct {
	Kind             Kind
	Value            Data
	Caption          string // empty means absent
	OriginalFilename string // must be empty unless Kind == KindFile
	// Extras holds members of this entry's JSON object that this schema
	// version doesn't recognize.
	Extras jsonextra.Bag
}

// Case is the in-memory model of a single test case document.
type Case struct {
	ID       uuid.UUID
	Metadata Metadata
	Evidence []Evidence
}

// httpSeparator is the byte inserted between the request and response
// halves of Http evidence's decoded payload.
const httpSeparator = 0x1E

// EncodeHttp joins a request and response into the payload format Http
// evidence decodes to: the two halves concatenated around a single 0x1E
// separator. Either half may be empty, but the separator is still written
// whenever both halves are non-empty.
func EncodeHttp(request, response []byte) []byte {
	if len(request) == 0 && len(response) == 0 {
		return nil
	}
	out := make([]byte, 0, len(request)+1+len(response))
	out = append(out, request...)
	out = append(out, httpSeparator)
	out = append(out, response...)
	return out
}

// DecodeHttp splits an Http evidence payload back into its request and
// response halves. The separator must appear exactly once.
func DecodeHttp(payload []byte) (request, response []byte, err error) {
	count := 0
	idx := -1
	for i, b := range payload {
		if b == httpSeparator {
			count++
			if idx == -1 {
				idx = i
			}
		}
	}
	if count != 1 {
		return nil, nil, fmt.Errorf("testcase: http evidence payload must contain exactly one 0x1E separator, found %d", count)
	}
	return payload[:idx], payload[idx+1:], nil
}
