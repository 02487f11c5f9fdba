package notion

import "encoding/json"

// BlockTypeParagraph is the only block type this client writes.
const BlockTypeParagraph = "paragraph"

// Page is the subset of a Notion page object the sync reads. Properties are
// left raw because their shape depends on the parent database schema.
type Page struct {
	Object     string                     `json:"object"`
	ID         string                     `json:"id"`
	URL        string                     `json:"url,omitempty"`
	Archived   bool                       `json:"archived,omitempty"`
	Properties map[string]json.RawMessage `json:"properties,omitempty"`
}

// Text carries literal content inside a rich text entry.
type Text struct {
	Content string `json:"content"`
}

// RichText is one run of inline text.
type RichText struct {
	Type      string `json:"type"`
	Text      *Text  `json:"text,omitempty"`
	PlainText string `json:"plain_text,omitempty"`
}

// Paragraph is the body of a paragraph block.
type Paragraph struct {
	Text []RichText `json:"text"`
}

// Block is a child block as sent to the append endpoint.
type Block struct {
	Object    string     `json:"object"`
	Type      string     `json:"type"`
	Paragraph *Paragraph `json:"paragraph,omitempty"`
}

// NewParagraph returns a paragraph block holding content verbatim.
func NewParagraph(content string) Block {
	return Block{
		Object: "block",
		Type:   BlockTypeParagraph,
		Paragraph: &Paragraph{
			Text: []RichText{{
				Type: "text",
				Text: &Text{Content: content},
			}},
		},
	}
}

// AppendResult lists the blocks Notion reports after an append.
type AppendResult struct {
	Object  string         `json:"object"`
	Results []BlockSummary `json:"results"`
}

// BlockSummary identifies a block returned by the API.
type BlockSummary struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type appendRequest struct {
	Children []Block `json:"children"`
}
