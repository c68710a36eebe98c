package api

type TokenizeRequest struct {
	Lang  string   `json:"lang,omitempty"`
	Lines []string `json:"lines"`
}

type TokenizeResponse struct {
	ID     string     `json:"id"`
	Object string     `json:"object"`
	Lang   string     `json:"lang"`
	Tokens [][]string `json:"tokens"`
}

// SplitRequest carries either explicit paragraphs or raw text. Raw text is
// cut into paragraphs at blank lines. More defaults to true.
type SplitRequest struct {
	Lang       string     `json:"lang,omitempty"`
	More       *bool      `json:"more,omitempty"`
	EvenMore   bool       `json:"even_more,omitempty"`
	Paragraphs [][]string `json:"paragraphs,omitempty"`
	Text       string     `json:"text,omitempty"`
}

type SplitResponse struct {
	ID         string     `json:"id"`
	Object     string     `json:"object"`
	Lang       string     `json:"lang"`
	Paragraphs [][]string `json:"paragraphs"`
}

type NormalizeRequest struct {
	Lang  string   `json:"lang,omitempty"`
	Lines []string `json:"lines"`
}

type NormalizeResponse struct {
	ID     string   `json:"id"`
	Object string   `json:"object"`
	Lang   string   `json:"lang"`
	Lines  []string `json:"lines"`
}

type HealthResponse struct {
	Status  string   `json:"status"`
	Handles []string `json:"handles"`
}
