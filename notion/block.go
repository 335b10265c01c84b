package notion

import "encoding/json"

// Block is one node of a page body. Children are not part of the API
// response; callers that walk the tree fill them in.
type Block struct {
	Object      string       `json:"object"`
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	HasChildren bool         `json:"has_children"`
	Content     BlockContent `json:"-"`
	Children    []Block      `json:"-"`
}

// BlockContent is the union of the payload shapes of the block types the
// site renders. The API nests it under a key named after the block type.
type BlockContent struct {
	RichText   []RichText `json:"rich_text"`
	Caption    []RichText `json:"caption"`
	Language   string     `json:"language"`
	Checked    bool       `json:"checked"`
	URL        string     `json:"url"`
	Type       string     `json:"type"`
	External   *FileURL   `json:"external"`
	File       *FileURL   `json:"file"`
	Icon       *Icon      `json:"icon"`
	Expression string     `json:"expression"`
	Title      string     `json:"title"`
	Name       string     `json:"name"`

	// table and table_row
	Cells           [][]RichText `json:"cells"`
	HasColumnHeader bool         `json:"has_column_header"`
}

// Link returns the location of a media block (image, video, file, pdf),
// falling back to the plain url of embed-like blocks.
func (c BlockContent) Link() string {
	switch {
	case c.Type == "external" && c.External != nil:
		return c.External.URL
	case c.Type == "file" && c.File != nil:
		return c.File.URL
	}
	return c.URL
}

func (b *Block) UnmarshalJSON(data []byte) error {
	type header struct {
		Object      string `json:"object"`
		ID          string `json:"id"`
		Type        string `json:"type"`
		HasChildren bool   `json:"has_children"`
	}
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}
	b.Object, b.ID, b.Type, b.HasChildren = h.Object, h.ID, h.Type, h.HasChildren

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	payload, ok := raw[h.Type]
	if !ok || len(payload) == 0 || string(payload) == "null" {
		return nil
	}
	// Unknown payload shapes are not an error; the block just renders empty.
	_ = json.Unmarshal(payload, &b.Content)
	return nil
}
