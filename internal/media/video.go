package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Transcoder re-encodes a video into a web friendly MP4
type Transcoder interface {
	Transcode(ctx context.Context, src io.Reader, name string) ([]byte, error)
}

// FFmpeg runs the ffmpeg binary on a private temporary directory per call
type FFmpeg struct {
	Path  string
	Width int
	// TempDir is the parent of per-call work directories; empty means os.TempDir
	TempDir string
}

func (f FFmpeg) Transcode(ctx context.Context, src io.Reader, name string) ([]byte, error) {
	work, err := os.MkdirTemp(f.TempDir, "planx-video-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(work)

	in := filepath.Join(work, "input"+filepath.Ext(SanitizeName(name)))
	out := filepath.Join(work, "output.mp4")

	inFile, err := os.Create(in)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(inFile, src); err != nil {
		inFile.Close()
		return nil, fmt.Errorf("failed to buffer upload: %w", err)
	}
	if err := inFile.Close(); err != nil {
		return nil, err
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.path(), f.args(in, out)...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, tail(stderr.Bytes(), 512))
	}

	return os.ReadFile(out)
}

func (f FFmpeg) path() string {
	if f.Path == "" {
		return "ffmpeg"
	}
	return f.Path
}

func (f FFmpeg) args(in, out string) []string {
	width := f.Width
	if width <= 0 {
		width = 640
	}
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", in,
		"-vf", "scale=" + strconv.Itoa(width) + ":-2",
		"-c:v", "libx264", "-preset", "veryfast", "-crf", "28",
		"-c:a", "aac",
		"-movflags", "+faststart",
		out,
	}
}

func tail(b []byte, n int) []byte {
	if len(b) > n {
		return b[len(b)-n:]
	}
	return b
}
