package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"voicepipe/internal/asr"
	"voicepipe/internal/audio/ffmpeg"
	"voicepipe/internal/config"
)

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := deps.Out
			cfg := deps.Config
			ok := true

			for _, bin := range []string{"ffmpeg", "ffprobe"} {
				if ffmpeg.Available(bin) {
					f.SetupCheck(bin, true, "installed")
				} else {
					f.SetupCheck(bin, false, "not found; needed for non-WAV input")
					ok = false
				}
			}

			switch cfg.Engine {
			case config.EngineWhisperCPP:
				path := asr.ModelPath(cfg.ModelsDir, asr.ParamsFromConfig(cfg))
				if _, err := os.Stat(path); err != nil {
					f.SetupCheck("Whisper model", false, fmt.Sprintf("%s not found", path))
					ok = false
				} else {
					f.SetupCheck("Whisper model", true, path)
				}
			case config.EngineServer:
				ok = checkReachable(cmd.Context(), f.SetupCheck, "Transcription server", cfg.APIEndpoint) && ok
			case config.EngineVosk:
				ok = checkReachable(cmd.Context(), f.SetupCheck, "Vosk server", cfg.VoskURL) && ok
			}

			ok = checkReachable(cmd.Context(), f.SetupCheck, "Language model", cfg.LLMURL) && ok

			if err := config.InitRecordingsDir(&cfg); err != nil {
				f.SetupCheck("Recordings directory", false, err.Error())
				ok = false
			} else {
				f.SetupCheck("Recordings directory", true, cfg.RecordingsDir)
			}

			if path := config.FilePath(); path != "" {
				f.SetupCheck("Config file", true, path)
			} else {
				f.SetupCheck("Config file", true, "none, using defaults (run init-config)")
			}

			if ok {
				f.Success("All prerequisites met. Ready to record!")
			} else {
				f.Warning("Some prerequisites are missing.")
			}
			return nil
		},
	}
}

// checkReachable reports whether anything answers at rawURL's host. Any HTTP
// status counts as reachable.
func checkReachable(ctx context.Context, report func(string, bool, string), name, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		report(name, false, fmt.Sprintf("invalid URL %q", rawURL))
		return false
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.Scheme+"://"+u.Host+"/", nil)
	if err != nil {
		report(name, false, err.Error())
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		detail := "unreachable"
		if errors.Is(err, context.DeadlineExceeded) {
			detail = "timed out"
		}
		report(name, false, fmt.Sprintf("%s at %s", detail, rawURL))
		return false
	}
	resp.Body.Close()
	report(name, true, rawURL)
	return true
}
