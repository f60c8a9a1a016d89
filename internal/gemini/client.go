// Package gemini wraps the genai SDK for the campus catalog: structured JSON
// generation for schema-friendly calls, and search-grounded free-text
// generation with citation capture for the rest.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/tutorkit/campus-gateway/pkg/retry"
	"google.golang.org/genai"
)

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string
}

type Client struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("GEMINI_MODEL is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Client{
		client: client,
		model:  strings.TrimSpace(cfg.Model),
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// GenerateJSON requests schema-constrained JSON output and decodes it into
// out. This is the preferred path for every call that does not need grounding
// tools; the API rejects requests combining a response schema with tools.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema, out any) error {
	resp, err := c.client.Models.GenerateContent(
		ctx,
		c.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			CandidateCount:   1,
			ResponseMIMEType: "application/json",
			ResponseSchema:   schema,
		},
	)
	if err != nil {
		return classifyErr(err)
	}
	return decodeStructured(resp.Text(), out)
}

// GenerateGrounded runs a free-text generation with Google Search grounding.
// It returns the raw text plus the grounding-citation URLs. Citations keep
// their chunk positions (empty string where a chunk carries no usable URL) so
// callers can align them with delimiter-split segments by index.
func (c *Client) GenerateGrounded(ctx context.Context, prompt string) (string, []string, error) {
	resp, err := c.client.Models.GenerateContent(
		ctx,
		c.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
			},
			CandidateCount: 1,
		},
	)
	if err != nil {
		return "", nil, classifyErr(err)
	}
	return resp.Text(), extractCitations(resp), nil
}

// decodeStructured unmarshals model JSON, repairing it once when the raw text
// is not valid JSON (models occasionally emit fences or trailing commas even
// in schema mode).
func decodeStructured(text string, out any) error {
	text = strings.TrimSpace(text)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(text)
		if repairErr != nil {
			return fmt.Errorf("gemini: parse structured json: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), out); err != nil {
			return fmt.Errorf("gemini: parse structured json after repair: %w", err)
		}
	}
	return nil
}

// classifyErr wraps quota exhaustion so the retry layer backs off. Everything
// else propagates unchanged and is never retried.
func classifyErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Status == "RESOURCE_EXHAUSTED" {
			return &retry.RateLimitedError{Err: err}
		}
		return err
	}
	return err
}

func extractCitations(resp *genai.GenerateContentResponse) []string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil
	}
	c := resp.Candidates[0]
	if c.GroundingMetadata == nil {
		return nil
	}

	out := make([]string, 0, len(c.GroundingMetadata.GroundingChunks))
	for _, chunk := range c.GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			out = append(out, "")
			continue
		}
		out = append(out, strings.TrimSpace(chunk.Web.URI))
	}
	return out
}
