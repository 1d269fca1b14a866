package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/askpdf/askpdf/internal/docmodel"
)

// Answer is the assistant's reply to a document question. References point
// at the words the answer cites, ready to hand to the viewer.
type Answer struct {
	Text       string                     `json:"text"`
	References []docmodel.ReferenceRequest `json:"references"`
}

// Ask sends a question about the document and waits for the full answer.
func (c *Client) Ask(ctx context.Context, docID, question string) (*Answer, error) {
	body, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return nil, fmt.Errorf("encode question: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/documents/"+url.PathEscape(docID)+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, apiError(resp)
	}
	var answer Answer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	return &answer, nil
}
