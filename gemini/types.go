package gemini

import "strings"

// Part is a single text fragment of a content block.
type Part struct {
	Text string `json:"text"`
}

// Content is an ordered list of parts. Role is only set on responses.
type Content struct {
	Parts []Part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

// Candidate is one generated answer.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

// GenerateContentResponse is the generateContent payload relayed to callers.
type GenerateContentResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// Text concatenates the parts of the first candidate.
func (r *GenerateContentResponse) Text() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// contentRequest is the body shared by countTokens and generateContent.
type contentRequest struct {
	Contents []Content `json:"contents"`
}

func newContentRequest(prompt string) contentRequest {
	return contentRequest{
		Contents: []Content{{Parts: []Part{{Text: prompt}}}},
	}
}

type countTokensResponse struct {
	TotalTokens *int `json:"totalTokens"`
}

// errorEnvelope is the structured error body returned on non-2xx answers.
type errorEnvelope struct {
	Error *struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}
