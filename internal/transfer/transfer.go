// Package transfer moves scheduling states in and out of the application
// as versioned JSON documents.
package transfer

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/mod/semver"

	"github.com/abhisek/vocab/internal/spacedrep"
)

// FormatVersion is the version written into every export. Imports accept
// any document with the same major version.
const FormatVersion = "v1.0.0"

var (
	ErrSchema    = errors.New("document does not match export schema")
	ErrVersion   = errors.New("unsupported format version")
	ErrDuplicate = errors.New("duplicate item id")
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "schema://vocab-export.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// Document is the export envelope.
type Document struct {
	FormatVersion string             `json:"format_version"`
	ExportedAt    time.Time          `json:"exported_at"`
	Records       []spacedrep.Record `json:"records"`
}

// Export writes states as an indented JSON document. Records are ordered
// by item ID so identical inputs produce identical output.
func Export(w io.Writer, states map[spacedrep.ItemID]spacedrep.State, now time.Time) error {
	doc := Document{
		FormatVersion: FormatVersion,
		ExportedAt:    now.UTC(),
		Records:       spacedrep.Records(states),
	}
	if doc.Records == nil {
		doc.Records = []spacedrep.Record{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// Import reads a document written by Export. The document is checked
// against the export schema and format version, and every record against
// the state invariants with minEase as the ease floor. Nothing is returned
// unless every record is valid.
func Import(r io.Reader, minEase float64) (map[spacedrep.ItemID]spacedrep.State, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import: %w", err)
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %w", ErrSchema, err)
	}

	schema, err := exportSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(parsed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchema, err)
	}

	var doc Document
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchema, err)
	}

	if err := checkVersion(doc.FormatVersion); err != nil {
		return nil, err
	}

	states := make(map[spacedrep.ItemID]spacedrep.State, len(doc.Records))
	for i, rec := range doc.Records {
		id, st, err := spacedrep.FromRecord(rec, minEase)
		if err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", i, rec.ItemID, err)
		}
		if _, ok := states[id]; ok {
			return nil, fmt.Errorf("record %d: %w: %s", i, ErrDuplicate, id)
		}
		states[id] = st
	}
	return states, nil
}

// checkVersion accepts versions sharing FormatVersion's major version.
func checkVersion(v string) error {
	if !semver.IsValid(v) {
		return fmt.Errorf("%w: %q is not a semantic version", ErrVersion, v)
	}
	if semver.Major(v) != semver.Major(FormatVersion) {
		return fmt.Errorf("%w: %s, want %s.x.x", ErrVersion, v, semver.Major(FormatVersion))
	}
	return nil
}

// exportSchema compiles the embedded schema on first use.
func exportSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("parse export schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		c.AssertFormat()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}
