package asr

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"

	"voicepipe/internal/audio"
	"voicepipe/internal/config"
	"voicepipe/internal/logging"
)

const voskChunk = 8000 // bytes, 0.25 s of 16 kHz mono PCM

// Vosk streams audio to a Vosk websocket server.
type Vosk struct {
	url    string
	dialer *websocket.Dialer
	log    *logging.Logger
}

type voskResult struct {
	Text    string `json:"text"`
	Partial string `json:"partial"`
}

// NewVosk creates the engine. Nothing is dialed until Transcribe.
func NewVosk(url string, log *logging.Logger) *Vosk {
	return &Vosk{url: url, dialer: websocket.DefaultDialer, log: log}
}

func (v *Vosk) Name() string { return config.EngineVosk }

func (v *Vosk) Close() error { return nil }

// Transcribe sends path as 16 kHz mono PCM and collects the final results.
func (v *Vosk) Transcribe(ctx context.Context, path string) ([]string, error) {
	pcm, err := audio.LoadPCM16(ctx, path)
	if err != nil {
		return nil, err
	}

	conn, _, err := v.dialer.DialContext(ctx, v.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Vosk server: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.WriteJSON(map[string]any{"config": map[string]any{"sample_rate": 16000}}); err != nil {
		return nil, fmt.Errorf("failed to configure Vosk: %w", err)
	}

	var segments []string
	collect := func() (bool, error) {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return false, err
		}
		var r voskResult
		if err := json.Unmarshal(msg, &r); err != nil {
			v.log.Debugf("failed to parse Vosk result: %v", err)
			return false, nil
		}
		if text := strings.TrimSpace(r.Text); text != "" {
			segments = append(segments, text)
			return true, nil
		}
		return false, nil
	}

	for off := 0; off < len(pcm); off += voskChunk {
		end := off + voskChunk
		if end > len(pcm) {
			end = len(pcm)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, pcm[off:end]); err != nil {
			return nil, fmt.Errorf("failed to send audio to Vosk: %w", err)
		}
		if _, err := collect(); err != nil {
			return nil, fmt.Errorf("reading Vosk result: %w", err)
		}
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"eof": 1}`)); err != nil {
		return nil, fmt.Errorf("failed to send EOF to Vosk: %w", err)
	}
	// The reply to eof is the last final result, possibly empty.
	if _, err := collect(); err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		return nil, fmt.Errorf("reading Vosk result: %w", err)
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return segments, nil
}
