// Package llm talks to a local Ollama-style language model.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voicepipe/internal/config"
	"voicepipe/internal/jsonpath"
	"voicepipe/internal/logging"
)

// ErrService covers an unreachable model server, a non-200 reply or a reply
// that cannot be parsed.
var ErrService = errors.New("language model service error")

const cleanupPrompt = `You are a helpful assistant that cleans up text and suggests filenames.

Given this raw text:
%q

1. Re-punctuate the text correctly.
2. Suggest a filename based on its content.
3. Return both as JSON with fields: 'punctuated_text' and 'suggested_filename'.
`

// CleanupPrompt returns the fixed re-punctuation/filename prompt for text.
func CleanupPrompt(text string) string {
	return fmt.Sprintf(cleanupPrompt, text)
}

// Client calls POST {url} with {model, prompt, stream:false}.
type Client struct {
	url     string
	model   string
	timeout time.Duration
	http    *http.Client
	log     *logging.Logger
}

// New builds a client from cfg. A nil httpClient gets a plain http.Client.
func New(cfg config.Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		url:     cfg.LLMURL,
		model:   cfg.LLMModel,
		timeout: cfg.LLMTimeoutDuration(),
		http:    httpClient,
		log:     logging.New(logging.CategoryLLM, cfg.LLMDebug),
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Generate sends prompt and returns the model's raw response text together
// with the round-trip time.
func (c *Client) Generate(ctx context.Context, prompt string) (string, time.Duration, error) {
	body, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt})
	if err != nil {
		return "", 0, err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrService, err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debugf("POST %s model=%s prompt=%d bytes", c.url, c.model, len(prompt))
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", time.Since(start), fmt.Errorf("%w: %v", ErrService, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	if err != nil {
		return "", elapsed, fmt.Errorf("%w: reading reply: %v", ErrService, err)
	}
	c.log.Debugf("reply in %v: %d bytes", elapsed, len(raw))
	if resp.StatusCode != http.StatusOK {
		return "", elapsed, fmt.Errorf("%w: status %d: %s", ErrService, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return "", elapsed, fmt.Errorf("%w: invalid reply: %v", ErrService, err)
	}
	if gr.Error != "" {
		return "", elapsed, fmt.Errorf("%w: %s", ErrService, gr.Error)
	}
	return gr.Response, elapsed, nil
}

// Cleaned is the parsed cleanup reply.
type Cleaned struct {
	PunctuatedText    string        `json:"punctuated_text"`
	SuggestedFilename string        `json:"suggested_filename"`
	Elapsed           time.Duration `json:"-"`
}

// Cleanup asks the model to re-punctuate text and suggest a filename.
func (c *Client) Cleanup(ctx context.Context, text string) (Cleaned, error) {
	reply, elapsed, err := c.Generate(ctx, CleanupPrompt(text))
	if err != nil {
		return Cleaned{}, err
	}
	out, err := ParseCleanup(reply)
	out.Elapsed = elapsed
	return out, err
}

// ParseCleanup extracts {punctuated_text, suggested_filename} from a model
// reply that may wrap the object in code fences or prose.
func ParseCleanup(reply string) (Cleaned, error) {
	obj, ok := jsonpath.ExtractObject(reply)
	if !ok {
		return Cleaned{}, fmt.Errorf("%w: no JSON object in reply", ErrService)
	}
	var out Cleaned
	if err := json.Unmarshal(obj, &out); err != nil {
		return Cleaned{}, fmt.Errorf("%w: %v", ErrService, err)
	}
	out.PunctuatedText = strings.TrimSpace(out.PunctuatedText)
	out.SuggestedFilename = strings.TrimSpace(out.SuggestedFilename)
	if out.PunctuatedText == "" {
		return Cleaned{}, fmt.Errorf("%w: reply has no punctuated_text", ErrService)
	}
	return out, nil
}
