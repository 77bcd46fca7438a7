package voice

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
)

// ffmpegTranscoder shells out to ffmpeg to turn any audio container into
// the raw PCM stream the Opus encoder expects.
type ffmpegTranscoder struct{}

func (ffmpegTranscoder) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", path,
		"-f", "s16le",
		"-ar", fmt.Sprint(sampleRate),
		"-ac", fmt.Sprint(channels),
		"-loglevel", "quiet",
		"pipe:1",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start: %w", err)
	}

	return &procStream{
		Reader: bufio.NewReaderSize(stdout, maxBytes*8),
		stdout: stdout,
		cmd:    cmd,
	}, nil
}

// procStream reads a subprocess's stdout and reaps it on Close. Close
// returns the process exit error so a failed transcode is not mistaken
// for a clean end of stream.
type procStream struct {
	io.Reader
	stdout io.Closer
	cmd    *exec.Cmd
}

func (p *procStream) Close() error {
	_ = p.stdout.Close()
	if err := p.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}
