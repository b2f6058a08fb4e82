package values

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// DataURL is a self-contained encoded image embedded directly as text
// (data:<mime>;base64,<payload>). It is the only external representation
// of an uploaded company logo.
type DataURL struct {
	uri string
}

// NewDataURL validates and wraps an existing data URI string.
func NewDataURL(uri string) (DataURL, error) {
	if !strings.HasPrefix(uri, "data:") {
		return DataURL{}, fmt.Errorf("data URL must start with data: scheme")
	}

	comma := strings.Index(uri, ",")
	if comma < 0 {
		return DataURL{}, fmt.Errorf("data URL missing payload separator")
	}

	meta := uri[len("data:"):comma]
	if !strings.HasSuffix(meta, ";base64") {
		return DataURL{}, fmt.Errorf("data URL must be base64 encoded")
	}

	if _, err := base64.StdEncoding.DecodeString(uri[comma+1:]); err != nil {
		return DataURL{}, fmt.Errorf("invalid base64 payload: %w", err)
	}

	return DataURL{uri: uri}, nil
}

// NewDataURLFromBytes encodes raw content into a data URL.
func NewDataURLFromBytes(mimeType string, content []byte) (DataURL, error) {
	if mimeType == "" {
		return DataURL{}, fmt.Errorf("mime type cannot be empty")
	}

	encoded := base64.StdEncoding.EncodeToString(content)
	return DataURL{uri: fmt.Sprintf("data:%s;base64,%s", mimeType, encoded)}, nil
}

// String returns the full data URI.
func (d DataURL) String() string {
	return d.uri
}

// MIMEType returns the declared media type (e.g. "image/png").
func (d DataURL) MIMEType() string {
	meta := d.uri[len("data:"):strings.Index(d.uri, ",")]
	return strings.TrimSuffix(meta, ";base64")
}

// Bytes decodes the embedded payload.
func (d DataURL) Bytes() ([]byte, error) {
	comma := strings.Index(d.uri, ",")
	return base64.StdEncoding.DecodeString(d.uri[comma+1:])
}

// MarshalJSON renders the data URL as a plain JSON string.
func (d DataURL) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.uri)
}

// UnmarshalJSON parses a JSON string into a validated data URL.
func (d *DataURL) UnmarshalJSON(data []byte) error {
	var uri string
	if err := json.Unmarshal(data, &uri); err != nil {
		return err
	}

	parsed, err := NewDataURL(uri)
	if err != nil {
		return err
	}

	*d = parsed
	return nil
}
