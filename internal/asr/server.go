package asr

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"
	"unicode/utf8"

	"voicepipe/internal/config"
	"voicepipe/internal/jsonpath"
	"voicepipe/internal/logging"
)

// RetryExhaustedError is returned when every upload attempt failed.
type RetryExhaustedError struct {
	Attempts int
	MaxRetry int
	Last     string
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("transcription server failed after %d/%d attempts: %s", e.Attempts, e.MaxRetry, e.Last)
}

// Server uploads audio to a whisper.cpp or OpenAI-style transcription server.
type Server struct {
	endpoint  string
	token     string
	textPath  string
	timeout   time.Duration
	maxRetry  int
	baseDelay time.Duration
	params    Params
	client    *http.Client
	log       *logging.Logger
}

// NewServer creates the server engine. A nil client gets a plain http.Client.
func NewServer(cfg config.Config, p Params, client *http.Client, log *logging.Logger) *Server {
	if client == nil {
		client = &http.Client{}
	}
	maxRetry := cfg.MaxRetry
	if maxRetry < 1 {
		maxRetry = 1
	}
	return &Server{
		endpoint:  cfg.APIEndpoint,
		token:     cfg.Token,
		textPath:  cfg.TextPath,
		timeout:   cfg.RequestTimeoutDuration(),
		maxRetry:  maxRetry,
		baseDelay: time.Duration(cfg.RetryBaseDelay * float64(time.Second)),
		params:    p,
		client:    client,
		log:       log,
	}
}

func (s *Server) Name() string { return config.EngineServer }

func (s *Server) Close() error { return nil }

// Transcribe uploads path and returns the extracted text as one segment.
func (s *Server) Transcribe(ctx context.Context, path string) ([]string, error) {
	if s.endpoint == "" {
		return nil, fmt.Errorf("API endpoint is empty")
	}
	delay := s.baseDelay
	var last []byte
	for attempt := 1; ; attempt++ {
		ok, res := s.upload(ctx, path)
		if ok {
			return []string{jsonpath.ExtractText(res, s.textPath)}, nil
		}
		last = res
		s.log.Debugf("attempt %d failed: %s", attempt, formatResponse(res))
		if attempt >= s.maxRetry || ctx.Err() != nil {
			return nil, &RetryExhaustedError{Attempts: attempt, MaxRetry: s.maxRetry, Last: formatResponse(last)}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func (s *Server) upload(ctx context.Context, path string) (bool, []byte) {
	s.log.Debugf("uploading %s -> %s", path, s.endpoint)
	body, contentType, err := s.form(path)
	if err != nil {
		return false, []byte(err.Error())
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, body)
	if err != nil {
		return false, []byte(fmt.Sprintf("new request error: %v", err))
	}
	req.Header.Set("Content-Type", contentType)
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	req.Header.Set("User-Agent", "voicepipe/1.0")

	start := time.Now()
	resp, err := s.client.Do(req)
	s.log.Debugf("request duration: %v", time.Since(start))
	if err != nil {
		return false, []byte(fmt.Sprintf("request error: %v", err))
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	return resp.StatusCode == http.StatusOK, respBody
}

func (s *Server) form(path string) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open file error: %v", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("create form file error: %v", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy file error: %v", err)
	}

	fields := [][2]string{
		{"model", s.params.ModelSize},
		{"language", s.params.Language},
		{"beam_size", strconv.Itoa(s.params.BeamSize)},
		{"best_of", strconv.Itoa(s.params.BestOf)},
		{"temperature", "0"},
		{"response_format", "json"},
	}
	for _, kv := range fields {
		if kv[1] == "" || (kv[1] == "0" && kv[0] != "temperature") {
			continue
		}
		_ = w.WriteField(kv[0], kv[1])
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}

func formatResponse(b []byte) string {
	if len(b) == 0 {
		return "<empty>"
	}
	const maxText = 1000
	const maxBin = 256

	if utf8.Valid(b) {
		if len(b) > maxText {
			return fmt.Sprintf("%s... (truncated, total %d bytes)", b[:maxText], len(b))
		}
		return string(b)
	}
	if len(b) > maxBin {
		return fmt.Sprintf("<binary %d bytes, prefix hex: %s...>", len(b), hex.EncodeToString(b[:maxBin]))
	}
	return fmt.Sprintf("<binary %d bytes, hex: %s>", len(b), hex.EncodeToString(b))
}
