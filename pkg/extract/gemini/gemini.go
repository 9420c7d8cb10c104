// Package gemini implements pkg/extract's Extractor on Google's Gemini
// generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tomp11/sb-stamp-manager/pkg/extract"
)

const (
	// DefaultModel is the default Gemini model used for extraction.
	DefaultModel = "gemini-3-pro-preview"

	// DefaultBaseURL is the default Gemini API URL.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
)

// prompt instructs the model to read a passport page. The input may be a
// single stamp detail page or a grid of many stamps.
const prompt = `You are an OCR engine for Starbucks Japan "My Store Passport".
The input can be a SINGLE stamp detail page OR a GRID/LIST of multiple stamps.

EXTRACTION FIELDS:
1. storeName: EXACT name (e.g., "目黒店").
2. prefecture: e.g., "東京都"
3. lastVisitDate: "YYYY/MM/DD" or null if not visible.
4. visitCount: Integer or null if not visible.
5. address: Full Japanese address.
6. coordinates: Numeric latitude/longitude.

Return JSON with a "stamps" array.`

// Extractor wraps the Gemini generateContent API.
type Extractor struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

// Config holds configuration for the Gemini extractor.
type Config struct {
	// APIKey authenticates against the Gemini API. Required.
	APIKey string

	// BaseURL overrides the Gemini API URL. Defaults to DefaultBaseURL.
	BaseURL string

	// Model is the model to use. Defaults to DefaultModel.
	Model string
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMimeType string          `json:"responseMimeType"`
	ResponseSchema   json.RawMessage `json:"responseSchema"`
}

// responseSchema constrains the model to the stamps payload so the reply
// parses without a repair pass.
var responseSchema = json.RawMessage(`{
	"type": "OBJECT",
	"properties": {
		"stamps": {
			"type": "ARRAY",
			"items": {
				"type": "OBJECT",
				"properties": {
					"storeName": {"type": "STRING"},
					"prefecture": {"type": "STRING"},
					"lastVisitDate": {"type": "STRING"},
					"visitCount": {"type": "NUMBER"},
					"address": {"type": "STRING"},
					"latitude": {"type": "NUMBER"},
					"longitude": {"type": "NUMBER"}
				},
				"required": ["storeName", "prefecture", "address"]
			}
		}
	},
	"required": ["stamps"]
}`)

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type stampsPayload struct {
	Stamps []extract.Candidate `json:"stamps"`
}

// NewExtractor creates an extractor backed by the Gemini API.
func NewExtractor(cfg Config) (*Extractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is required", extract.ErrExtraction)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Extractor{
		baseURL: baseURL,
		model:   model,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Extract sends the image to Gemini and decodes the stamps it reports.
func (e *Extractor) Extract(ctx context.Context, image []byte, mimeType string) ([]extract.Candidate, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	reqBody := generateRequest{
		Contents: []content{{
			Parts: []part{
				{InlineData: &inlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
				{Text: prompt},
			},
		}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   responseSchema,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", extract.ErrExtraction, err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", e.baseURL, e.model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", extract.ErrExtraction, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", extract.ErrExtraction, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: gemini returned status %d: %s", extract.ErrExtraction, resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", extract.ErrExtraction, err)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty response from model", extract.ErrExtraction)
	}

	text := genResp.Candidates[0].Content.Parts[0].Text
	var payload stampsPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("%w: parsing model output: %v", extract.ErrExtraction, err)
	}

	return payload.Stamps, nil
}

// Close releases resources held by the extractor.
func (e *Extractor) Close() error {
	return nil
}
