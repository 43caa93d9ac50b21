package clinic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Encode validates doc and renders it as indented JSON.
func Encode(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("encode document: nil document")
	}
	normalize(doc)
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// Decode parses a stored document. Unknown fields, trailing data and failed
// validation are all reported as ErrStoreCorrupt.
func Decode(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	doc := NewDocument()
	if err := dec.Decode(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after document", ErrStoreCorrupt)
	}
	normalize(doc)
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
	}
	return doc, nil
}

func normalize(doc *Document) {
	if doc.Appointments == nil {
		doc.Appointments = []Appointment{}
	}
	if doc.Referrals == nil {
		doc.Referrals = []Referral{}
	}
}
