package models

// Result is one fetched page reduced to plain text.
type Result struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	Status   int    `json:"status"`
	RenderMS int    `json:"render_ms"`
}
