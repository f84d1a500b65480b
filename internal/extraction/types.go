// Package extraction defines the data contract consumed from the upstream
// document extraction engine. The segmentation pipeline never decodes binary
// formats itself; it receives already-extracted results as plain structured
// data through these types.
package extraction

import "encoding/json"

// Result is one document's extraction output: full text plus optional
// pre-segmented chunks, document metadata, tables, images and language
// hints. A result with Success=false is surfaced as-is and must not be
// partially processed downstream.
type Result struct {
	Content           string           `json:"content"`
	MimeType          string           `json:"mime_type,omitempty"`
	Metadata          DocumentMetadata `json:"metadata"`
	Chunks            []string         `json:"chunks,omitempty"`
	Tables            []Table          `json:"tables,omitempty"`
	Images            []Image          `json:"images,omitempty"`
	DetectedLanguages []string         `json:"detected_languages,omitempty"`
	Success           bool             `json:"success"`
	Error             string           `json:"error,omitempty"`
}

// Table is a detected table in the source document.
type Table struct {
	Cells      [][]string `json:"cells"`
	Markdown   string     `json:"markdown,omitempty"`
	PageNumber int        `json:"page_number"`
}

// Image is an extracted image reference.
type Image struct {
	Format     string `json:"format"`
	ImageIndex int    `json:"image_index"`
	PageNumber *int   `json:"page_number,omitempty"`
	Width      *int   `json:"width,omitempty"`
	Height     *int   `json:"height,omitempty"`
}

// DocumentMetadata carries the fixed first-class metadata fields plus an
// open map of additional fields. Nil pointer fields mean the extractor did
// not report the value, which is distinct from an empty value.
type DocumentMetadata struct {
	Title      *string `json:"-"`
	Author     *string `json:"-"`
	CreatedAt  *string `json:"-"`
	ModifiedAt *string `json:"-"`
	Language   *string `json:"-"`
	PageCount  *int    `json:"-"`
	Format     *string `json:"-"`

	Additional map[string]any `json:"-"`
}

var metadataCoreKeys = map[string]struct{}{
	"title":       {},
	"author":      {},
	"created_at":  {},
	"modified_at": {},
	"language":    {},
	"page_count":  {},
	"format":      {},
}

// UnmarshalJSON decodes the flattened metadata object, splitting recognized
// fields from additional custom fields.
func (m *DocumentMetadata) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	decodeString := func(key string) *string {
		value, exists := raw[key]
		if !exists {
			return nil
		}
		var out string
		if err := json.Unmarshal(value, &out); err != nil {
			return nil
		}
		return &out
	}

	m.Title = decodeString("title")
	m.Author = decodeString("author")
	m.CreatedAt = decodeString("created_at")
	m.ModifiedAt = decodeString("modified_at")
	m.Language = decodeString("language")
	m.Format = decodeString("format")

	if value, ok := raw["page_count"]; ok {
		var count int
		if err := json.Unmarshal(value, &count); err == nil {
			m.PageCount = &count
		}
	}

	m.Additional = make(map[string]any)
	for key, value := range raw {
		if _, ok := metadataCoreKeys[key]; ok {
			continue
		}
		var decoded any
		if err := json.Unmarshal(value, &decoded); err != nil {
			continue
		}
		m.Additional[key] = decoded
	}
	if len(m.Additional) == 0 {
		m.Additional = nil
	}
	return nil
}

// MarshalJSON reserializes the metadata back into the flattened object so
// round-tripping preserves the upstream payload.
func (m DocumentMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any)

	if m.Title != nil {
		out["title"] = *m.Title
	}
	if m.Author != nil {
		out["author"] = *m.Author
	}
	if m.CreatedAt != nil {
		out["created_at"] = *m.CreatedAt
	}
	if m.ModifiedAt != nil {
		out["modified_at"] = *m.ModifiedAt
	}
	if m.Language != nil {
		out["language"] = *m.Language
	}
	if m.PageCount != nil {
		out["page_count"] = *m.PageCount
	}
	if m.Format != nil {
		out["format"] = *m.Format
	}
	for key, value := range m.Additional {
		if _, core := metadataCoreKeys[key]; core {
			continue
		}
		out[key] = value
	}
	return json.Marshal(out)
}
