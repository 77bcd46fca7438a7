// Package tts turns plain text into playable audio artifacts using the
// Google Translate speech endpoint.
package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/hajimehoshi/go-mp3"
	"github.com/hegedustibor/htgo-tts/voices"
)

const (
	endpoint     = "https://translate.google.com/translate_tts"
	chunkRunes   = 200
	fetchTimeout = 15 * time.Second

	// go-mp3 always decodes to 16-bit stereo.
	bytesPerSample = 4
)

type VoiceOption struct {
	Code  string
	Label string
}

// Audio is a synthesized artifact on local storage. It is owned by
// exactly one playback attempt and must be cleaned up afterwards.
type Audio struct {
	Path     string
	Duration time.Duration
}

// Cleanup removes the artifact. Safe to call if the file is already gone.
func (a *Audio) Cleanup() error {
	if a == nil || a.Path == "" {
		return nil
	}
	if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SynthesisError wraps any provider, probe or storage failure so the
// queue can recognize and isolate it.
type SynthesisError struct {
	Stage string
	Err   error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis %s: %v", e.Stage, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

type Service struct {
	voice    VoiceOption
	voices   []VoiceOption
	httpCli  *http.Client
	endpoint string
	tmpDir   string
	logger   *log.Logger
}

func NewService(language string, logger *log.Logger) (*Service, error) {
	s := &Service{
		voices: []VoiceOption{
			{Code: voices.English, Label: "English US"},
			{Code: voices.EnglishUK, Label: "English UK"},
			{Code: voices.Spanish, Label: "Spanish"},
			{Code: voices.Portuguese, Label: "Portuguese"},
			{Code: voices.French, Label: "French"},
			{Code: voices.German, Label: "German"},
			{Code: voices.Japanese, Label: "Japanese"},
		},
		httpCli: &http.Client{
			Timeout: fetchTimeout,
		},
		endpoint: endpoint,
		tmpDir:   os.TempDir(),
		logger:   logger,
	}

	voice, ok := s.findVoice(language)
	if !ok {
		return nil, fmt.Errorf("tts: unsupported language %q", language)
	}
	s.voice = voice
	return s, nil
}

func (s *Service) ListVoices() []VoiceOption {
	return append([]VoiceOption(nil), s.voices...)
}

func (s *Service) Voice() VoiceOption {
	return s.voice
}

func (s *Service) findVoice(code string) (VoiceOption, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return s.voices[0], true
	}
	for _, option := range s.voices {
		if strings.ToLower(option.Code) == code {
			return option, true
		}
	}
	// allow region fallback (es-es -> es)
	if idx := strings.Index(code, "-"); idx > 0 {
		return s.findVoice(code[:idx])
	}
	return VoiceOption{}, false
}

// Synthesize fetches compressed audio for text, probes the container and
// persists it to a uniquely named temporary file. The returned Audio must
// be cleaned up by the caller whether playback succeeds or not.
func (s *Service) Synthesize(ctx context.Context, text string) (*Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &SynthesisError{Stage: "request", Err: fmt.Errorf("empty text")}
	}

	data, err := s.fetchAll(ctx, text)
	if err != nil {
		return nil, &SynthesisError{Stage: "fetch", Err: err}
	}

	duration, err := probe(data)
	if err != nil {
		// Unsupported container, no fallback decode path.
		return nil, &SynthesisError{Stage: "probe", Err: err}
	}

	path := filepath.Join(s.tmpDir, "voxbot-"+uuid.NewString()+".mp3")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		_ = os.Remove(path)
		return nil, &SynthesisError{Stage: "write", Err: err}
	}

	s.logger.Debug("synthesized speech",
		"voice", s.voice.Code, "runes", len([]rune(text)),
		"bytes", len(data), "duration", duration)

	return &Audio{Path: path, Duration: duration}, nil
}

func (s *Service) fetchAll(ctx context.Context, text string) ([]byte, error) {
	runes := []rune(text)
	buf := bytes.NewBuffer(nil)

	for start := 0; start < len(runes); start += chunkRunes {
		end := start + chunkRunes
		if end > len(runes) {
			end = len(runes)
		}
		audio, err := s.fetchChunk(ctx, string(runes[start:end]))
		if err != nil {
			return nil, err
		}
		buf.Write(audio)
	}

	return buf.Bytes(), nil
}

func (s *Service) fetchChunk(ctx context.Context, text string) ([]byte, error) {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("q", text)
	params.Set("tl", s.voice.Code)
	params.Set("total", "1")
	params.Set("idx", "0")
	params.Set("textlen", fmt.Sprintf("%d", len([]rune(text))))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.httpCli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tts provider status %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

// probe verifies the fetched bytes decode as MP3 and estimates playback
// duration from the decoded PCM length.
func probe(data []byte) (time.Duration, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("mp3 probe: %w", err)
	}
	if decoder.SampleRate() <= 0 {
		return 0, fmt.Errorf("mp3 probe: invalid sample rate")
	}
	samples := decoder.Length() / bytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(decoder.SampleRate()), nil
}
