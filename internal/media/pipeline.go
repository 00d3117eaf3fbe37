// Package media turns a text message into the raw PCM buffer the call
// transport plays: external TTS synthesis into a compressed audio file,
// then an ffmpeg transcode to mono 16-bit 48kHz s16le.
package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Raw PCM byte rate: 48000 samples/s * 2 bytes * 1 channel
const rawBytesPerSecond = 96000

// Pipeline runs the external synthesis and transcoding commands
type Pipeline struct {
	ttsCommand string
	ffmpegPath string
	baseDir    string
	logger     *slog.Logger
}

// NewPipeline creates a pipeline creating scoped work dirs under baseDir
func NewPipeline(ttsCommand, ffmpegPath, baseDir string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		ttsCommand: ttsCommand,
		ffmpegPath: ffmpegPath,
		baseDir:    baseDir,
		logger:     logger,
	}
}

// WorkDir is a scoped temporary directory holding one call's audio files
type WorkDir struct {
	path   string
	logger *slog.Logger
}

// NewWorkDir creates a fresh scoped temp directory
func (p *Pipeline) NewWorkDir() (*WorkDir, error) {
	if err := os.MkdirAll(p.baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating work base dir: %w", err)
	}
	path, err := os.MkdirTemp(p.baseDir, "call-")
	if err != nil {
		return nil, fmt.Errorf("creating work dir: %w", err)
	}
	return &WorkDir{path: path, logger: p.logger}, nil
}

// Path returns the directory path
func (w *WorkDir) Path() string { return w.path }

// InputAudio is the synthesized compressed audio file
func (w *WorkDir) InputAudio() string { return filepath.Join(w.path, "input.mp3") }

// InputRaw is the transcoded raw PCM file played to the peer
func (w *WorkDir) InputRaw() string { return filepath.Join(w.path, "input.raw") }

// OutputRaw is where incoming call audio is captured
func (w *WorkDir) OutputRaw() string { return filepath.Join(w.path, "output.raw") }

// Remove deletes the directory and everything in it. Removal errors are
// logged and ignored.
func (w *WorkDir) Remove() {
	if w == nil {
		return
	}
	if err := os.RemoveAll(w.path); err != nil {
		w.logger.Warn("could not remove work dir", "path", w.path, "error", err)
	}
}

// Prepare synthesizes the message and transcodes it, returning the raw PCM
// path. Both steps are blocking subprocess invocations.
func (p *Pipeline) Prepare(ctx context.Context, w *WorkDir, text, language string) (string, error) {
	if err := p.Synthesize(ctx, text, language, w.InputAudio()); err != nil {
		return "", err
	}
	if err := p.Transcode(ctx, w.InputAudio(), w.InputRaw()); err != nil {
		return "", err
	}

	if info, err := os.Stat(w.InputRaw()); err == nil {
		p.logger.Info("audio prepared",
			"bytes", info.Size(),
			"duration", EstimateDuration(info.Size()).Round(10*time.Millisecond))
	}
	return w.InputRaw(), nil
}

// Synthesize runs the external TTS command
func (p *Pipeline) Synthesize(ctx context.Context, text, language, outPath string) error {
	args := synthesisArgs(text, language, outPath)
	cmd := exec.CommandContext(ctx, p.ttsCommand, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("tts synthesis failed: %w (%s)", err, firstLine(stderr.Bytes()))
	}
	return nil
}

// Transcode converts the synthesized audio to raw mono 16-bit 48kHz PCM
func (p *Pipeline) Transcode(ctx context.Context, inPath, outPath string) error {
	args := transcodeArgs(inPath, outPath)
	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("transcoding failed: %w (%s)", err, firstLine(stderr.Bytes()))
	}
	return nil
}

// EstimateDuration estimates playback time of a raw PCM buffer from its size
func EstimateDuration(sizeBytes int64) time.Duration {
	return time.Duration(float64(sizeBytes) / rawBytesPerSecond * float64(time.Second))
}

func synthesisArgs(text, language, outPath string) []string {
	return []string{"-l", language, "-o", outPath, text}
}

func transcodeArgs(inPath, outPath string) []string {
	return []string{
		"-y",
		"-i", inPath,
		"-f", "s16le",
		"-ac", "1",
		"-ar", "48000",
		"-acodec", "pcm_s16le",
		outPath,
	}
}

func firstLine(b []byte) string {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
