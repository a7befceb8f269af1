package serialize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// ToJSON marshals doc into the stable wire format: two-space indented,
// absent optional fields omitted, HTML escaping disabled so operator names
// like "<" and ">=" appear verbatim.
func ToJSON(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("error encoding DAE document: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteJSON encodes doc onto w in the same format as ToJSON.
func WriteJSON(w io.Writer, doc *Document) error {
	data, err := ToJSON(doc)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// FromJSON decodes a document previously produced by ToJSON. Together with
// ToJSON it satisfies the round-trip property: decode(encode(doc)) is
// structurally equal to doc.
func FromJSON(data []byte) (*Document, error) {
	doc := &Document{}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(doc); err != nil {
		return nil, fmt.Errorf("error decoding DAE document: %w", err)
	}
	return doc, nil
}
