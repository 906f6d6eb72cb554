// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package gemini provides a client for interacting with a generative text API.
package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"herald/internal/request"
)

// APIEndpoint is the base URL for the generative text API.
const APIEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// Client holds configuration for interacting with the generative text API.
type Client struct {
	// APIKey is the API key used for authentication.
	APIKey string
	// Model specifies the name of the model to use for generation.
	Model string
	// Endpoint is an optional base URL override. Defaults to [APIEndpoint].
	Endpoint string
	// HTTPClient is an optional HTTP client to use for requests. Defaults to
	// request.DefaultClient.
	HTTPClient *http.Client
	// Scrubber is an optional strings.Replacer that scrubs unwanted data from
	// error messages.
	Scrubber *strings.Replacer
}

// GenerateContentParams defines the structure for the request body sent to the
// GenerateContent API.
type GenerateContentParams struct {
	// Contents is a list of Content objects representing the input text for
	// generation.
	Contents []*Content `json:"contents"`
	// SystemInstruction is an optional Content object specifying system
	// instructions for generation.
	SystemInstruction *Content `json:"systemInstruction,omitempty"`
}

// Content represents a piece of text content with a list of Part objects.
type Content struct {
	// Parts is a list of Part objects representing the textual elements within
	// the content.
	Parts []*Part `json:"parts"`
}

// Part represents a textual element within a Content object.
type Part struct {
	// Text is the content of the textual element.
	Text string `json:"text"`
}

// GenerateContentResponse defines the structure of the response received from
// the GenerateContent API.
type GenerateContentResponse struct {
	// Candidates is a list of Candidate objects representing the generated text
	// alternatives.
	Candidates []*Candidate `json:"candidates"`
}

// Candidate represents a generated text candidate with a corresponding Content
// object.
type Candidate struct {
	// Content is the generated text content for this candidate.
	Content *Content `json:"content"`
}

// GenerateContent sends a request to the generative text API to generate
// creative text content.
func (c *Client) GenerateContent(ctx context.Context, params GenerateContentParams) (GenerateContentResponse, error) {
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = APIEndpoint
	}
	return request.Make[GenerateContentResponse](ctx, request.Params{
		Method: http.MethodPost,
		URL:    endpoint + "/models/" + c.Model + ":generateContent",
		Headers: map[string]string{
			"x-goog-api-key": c.APIKey,
		},
		Body:       params,
		HTTPClient: c.HTTPClient,
		Scrubber:   c.Scrubber,
	})
}

// GenerateText is a convenience wrapper around [Client.GenerateContent] that
// sends a single text prompt with an optional system instruction and returns
// the first candidate's text.
func (c *Client) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	params := GenerateContentParams{
		Contents: []*Content{{Parts: []*Part{{Text: prompt}}}},
	}
	if system != "" {
		params.SystemInstruction = &Content{Parts: []*Part{{Text: system}}}
	}
	resp, err := c.GenerateContent(ctx, params)
	if err != nil {
		return "", err
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, part := range cand.Content.Parts {
			sb.WriteString(part.Text)
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			return text, nil
		}
	}
	return "", errors.New("gemini: empty response")
}
