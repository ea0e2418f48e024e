// Package app wires the recorder, listener, transcriber and dispatcher into
// the record, quick and file modes.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"voicepipe/internal/asr"
	"voicepipe/internal/audio/ffmpeg"
	"voicepipe/internal/config"
	"voicepipe/internal/desktop"
	"voicepipe/internal/dispatch"
	"voicepipe/internal/hotkey"
	"voicepipe/internal/llm"
	"voicepipe/internal/logging"
	"voicepipe/internal/notify"
	"voicepipe/internal/output"
	"voicepipe/internal/record"
	"voicepipe/internal/session"
	"voicepipe/internal/transcribe"
)

// Recorder captures audio into path until ctx is cancelled.
type Recorder interface {
	Record(ctx context.Context, path string) (record.Result, error)
}

// Listener waits for a stop or menu key.
type Listener interface {
	Run(ctx context.Context, t hotkey.Target)
}

// Deps are the collaborators of an App. Tests replace them with fakes.
type Deps struct {
	Out         *output.Formatter
	Notifier    *notify.Notifier
	Desktop     dispatch.Desktop
	Cleaner     dispatch.Cleaner
	Open        transcribe.OpenFunc
	Recorder    Recorder
	NewListener func(mode hotkey.Mode) Listener
	Stdin       io.Reader
	Now         func() time.Time
	// OnRecordingStopped runs once capture has ended, before transcription.
	OnRecordingStopped func()
}

// App runs one pipeline invocation.
type App struct {
	cfg        config.Config
	deps       Deps
	dispatcher *dispatch.Dispatcher
	log        *logging.Logger
}

// New builds the production dependencies for cfg.
func New(cfg config.Config, out *output.Formatter) *App {
	ffmpeg.SetDebug(cfg.FFmpegDebug)
	httpClient := asr.NewHTTPClient(cfg)
	params := asr.ParamsFromConfig(cfg)
	deps := Deps{
		Out:      out,
		Notifier: notify.New(cfg.Notification, cfg.RecordDebug),
		Desktop:  desktop.New(cfg.InputTemplate, cfg.HotkeyDebug),
		Cleaner:  llm.New(cfg, httpClient),
		Open: func() (asr.Engine, error) {
			return asr.New(cfg, params, httpClient)
		},
		Recorder: record.New(record.Options{
			SampleRate: cfg.SamplingRate,
			Channels:   cfg.Channels,
			Meter:      meterWriter(cfg, out),
			OnStart:    startCue(cfg),
			Debug:      cfg.RecordDebug,
		}),
		NewListener: func(mode hotkey.Mode) Listener {
			return hotkey.NewListener(mode, nil, cfg.HotkeyDebug)
		},
		Stdin: os.Stdin,
	}
	return NewWithDeps(cfg, deps)
}

// NewWithDeps builds an App from explicit dependencies.
func NewWithDeps(cfg config.Config, deps Deps) *App {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Out == nil {
		deps.Out = output.NewFormatter(os.Stdout)
	}
	return &App{
		cfg:  cfg,
		deps: deps,
		dispatcher: dispatch.New(deps.Desktop, deps.Cleaner, dispatch.Options{
			ChatURL:       cfg.ChatURL,
			ChatWindow:    cfg.ChatWindow,
			LocateTimeout: cfg.LocateTimeoutDuration(),
			NewTabWait:    cfg.NewTabWaitDuration(),
			QuickPrefix:   cfg.QuickPrefix,
			TargetWindow:  cfg.TargetWindow,
		}, deps.Out, cfg.HotkeyDebug),
		log: logging.New(logging.CategoryMain, cfg.RecordDebug),
	}
}

func meterWriter(cfg config.Config, out *output.Formatter) io.Writer {
	if !cfg.LevelMeter || out == nil {
		return nil
	}
	return out.Writer()
}

func startCue(cfg config.Config) func() {
	if !cfg.StartCue {
		return nil
	}
	return func() {
		if err := notify.Cue(); err != nil {
			logging.New(logging.CategoryRecord, cfg.RecordDebug).Debugf("start cue failed: %v", err)
		}
	}
}

// RunRecordMode records a new session and handles it. In quick mode Escape
// stops the recording and the text is pasted at the cursor; otherwise the
// menu keys choose the action.
func (a *App) RunRecordMode(ctx context.Context, quick bool) error {
	if err := config.InitRecordingsDir(&a.cfg); err != nil {
		return err
	}
	s, err := session.New(ctx, a.cfg.RecordingsDir, a.cfg.FolderTemplate, a.deps.Now())
	if err != nil {
		return err
	}
	defer s.Close()

	mode := hotkey.ModeDefault
	if quick {
		mode = hotkey.ModeQuick
	}
	res, err := a.capture(s, mode)
	if a.deps.OnRecordingStopped != nil {
		a.deps.OnRecordingStopped()
	}
	if err != nil {
		a.deps.Notifier.Notify("Recording failed")
		return err
	}
	s.SetDuration(res.Duration)
	a.deps.Out.RecordingStopped(res.Duration)
	s.Log().Event("record_stop", map[string]string{
		"duration_ms": strconv.FormatInt(res.Duration.Milliseconds(), 10),
		"frames":      strconv.Itoa(res.Frames),
	})
	action := s.Action()

	// The session context is already cancelled; the rest of the run only
	// honours the caller's cancellation.
	work := context.WithoutCancel(ctx)
	text, err := a.transcribe(work, s, res.Duration)
	if err != nil {
		return err
	}
	if quick {
		if err := a.dispatcher.Quick(work, s, text); err != nil {
			a.deps.Out.Error(err.Error())
		}
		return nil
	}
	return a.dispatch(work, s, action, text)
}

// capture runs the recorder and the key listener side by side. Whichever ends
// first stops the other, and both are joined before returning.
func (a *App) capture(s *session.Session, mode hotkey.Mode) (record.Result, error) {
	s.Log().Event("record_start", map[string]string{
		"rate":     strconv.Itoa(a.cfg.SamplingRate),
		"channels": strconv.Itoa(a.cfg.Channels),
	})
	a.deps.Out.RecordingStarted(mode == hotkey.ModeQuick)

	var (
		wg     sync.WaitGroup
		res    record.Result
		recErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer s.Stop()
		res, recErr = a.deps.Recorder.Record(s.Context(), s.AudioPath())
	}()
	go func() {
		defer wg.Done()
		a.deps.NewListener(mode).Run(s.Context(), s)
	}()
	wg.Wait()

	if recErr != nil {
		if errors.Is(recErr, record.ErrDeviceUnavailable) {
			return res, recErr
		}
		return res, fmt.Errorf("recording failed: %w", recErr)
	}
	return res, nil
}

// RunFileMode transcribes an existing file and then asks for an action.
func (a *App) RunFileMode(ctx context.Context, path string) error {
	if err := transcribe.Validate(path); err != nil {
		return err
	}
	s, err := session.FromFile(ctx, path, a.deps.Now())
	if err != nil {
		return err
	}
	defer s.Close()
	s.Stop()

	text, err := a.transcribe(ctx, s, 0)
	if err != nil {
		return err
	}
	return a.dispatch(ctx, s, session.ActionNone, text)
}

func (a *App) dispatch(ctx context.Context, s *session.Session, action session.Action, text string) error {
	if !action.Valid() {
		action = a.dispatcher.Prompt(a.deps.Stdin)
	}
	return a.dispatcher.Dispatch(ctx, s, action, text)
}

// transcribe runs the engine, then copies the text to the clipboard, writes
// the transcript and prints the stats.
func (a *App) transcribe(ctx context.Context, s *session.Session, known time.Duration) (string, error) {
	a.deps.Out.Transcribing()
	t, err := transcribe.Load(a.deps.Open)
	if err != nil {
		a.deps.Notifier.Notify("Transcription failed")
		return "", fmt.Errorf("loading engine: %w", err)
	}
	defer t.Close()

	res, err := t.Transcribe(ctx, s.AudioPath(), known)
	if err != nil {
		a.deps.Notifier.Notify("Transcription failed")
		var re *asr.RetryExhaustedError
		if errors.As(err, &re) {
			a.log.Debugf("%d upload attempts failed", re.Attempts)
		}
		return "", err
	}

	if res.Text == "" {
		a.deps.Out.Warning("No speech recognized.")
	} else if err := a.deps.Desktop.Copy(res.Text); err != nil {
		a.deps.Out.Warning(fmt.Sprintf("clipboard: %v", err))
	} else {
		a.deps.Out.Copied()
	}
	if err := s.WriteTranscript(res.Text); err != nil {
		a.deps.Out.Error(err.Error())
	}
	a.deps.Out.Transcript(res.Text)
	a.deps.Out.Stats(res.Stats, len(res.Text), s.TranscriptPath())
	a.deps.Notifier.Notify("Transcription complete")
	return res.Text, nil
}


// SetOnRecordingStopped replaces the hook run once capture has ended.
func (a *App) SetOnRecordingStopped(f func()) {
	a.deps.OnRecordingStopped = f
}
