package engine

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/pkg/errors"

	"github.com/mediagrab/mediagrab/internal/config"
	"github.com/mediagrab/mediagrab/internal/downloads"
	"github.com/mediagrab/mediagrab/internal/models"
	"github.com/mediagrab/mediagrab/pkg/logger"
)

// FFmpegTranscoder converts fetched media into the requested container by
// shelling out to ffmpeg. It never removes its input file.
type FFmpegTranscoder struct {
	binPath string
	logger  logger.Logger
}

func NewFFmpegTranscoder(cfg *config.EngineConfig, logger logger.Logger) *FFmpegTranscoder {
	return &FFmpegTranscoder{
		binPath: cfg.FFmpegPath,
		logger:  logger,
	}
}

func (t *FFmpegTranscoder) Transcode(ctx context.Context, inputPath, outputPath string, format models.MediaFormat, quality models.Quality) error {
	args, err := transcodeArgs(inputPath, outputPath, format, quality)
	if err != nil {
		return err
	}

	t.logger.Infof("transcoding %s -> %s", inputPath, outputPath)
	cmd := exec.CommandContext(ctx, t.binPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Errorf("ffmpeg failed: %v, stderr: %s", err, tail(stderr.String(), 512))
	}
	return nil
}

// transcodeArgs builds the ffmpeg invocation for the requested container.
// Audio outputs re-encode at a bitrate set by the quality tier; video
// outputs let ffmpeg pick codecs for the target container.
func transcodeArgs(inputPath, outputPath string, format models.MediaFormat, quality models.Quality) ([]string, error) {
	switch format {
	case models.FormatMP3:
		return []string{"-i", inputPath, "-vn", "-b:a", audioBitrate(quality), "-y", outputPath}, nil
	case models.FormatM4A:
		return []string{"-i", inputPath, "-vn", "-c:a", "aac", "-b:a", audioBitrate(quality), "-y", outputPath}, nil
	case models.FormatMP4, models.FormatWebM:
		return []string{"-i", inputPath, "-y", outputPath}, nil
	}
	return nil, &downloads.ConfigurationError{Detail: "unsupported output format " + string(format)}
}

func audioBitrate(quality models.Quality) string {
	if quality == models.QualityHigh {
		return "192k"
	}
	return "128k"
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
