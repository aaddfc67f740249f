package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/mediagrab/mediagrab/internal/config"
	"github.com/mediagrab/mediagrab/internal/downloads"
	"github.com/mediagrab/mediagrab/pkg/logger"
)

const (
	outputTemplate = "%(title)s.%(ext)s"

	// progressTemplate makes yt-dlp emit machine-readable progress lines on
	// stdout; the filename goes last so it may contain separators.
	progressTemplate = "download:PROGRESS|%(progress.downloaded_bytes)s|%(progress.total_bytes)s|%(progress.total_bytes_estimate)s|%(info.filename)s"
	progressPrefix   = "PROGRESS|"
)

var (
	destinationRe  = regexp.MustCompile(`^\[download\] Destination: (.+)$`)
	mergerRe       = regexp.MustCompile(`^\[Merger\] Merging formats into "(.+)"$`)
	extractAudioRe = regexp.MustCompile(`^\[ExtractAudio\] Destination: (.+)$`)

	// failures that no amount of retrying will fix
	fatalPatterns = []string{
		"Unsupported URL",
		"is not a valid URL",
		"Video unavailable",
		"Private video",
		"This video is not available",
		"Incomplete YouTube ID",
	}
)

// YtdlpExtractor shells out to yt-dlp for probing and fetching.
type YtdlpExtractor struct {
	binPath string
	logger  logger.Logger
}

func NewYtdlpExtractor(cfg *config.EngineConfig, logger logger.Logger) *YtdlpExtractor {
	return &YtdlpExtractor{
		binPath: cfg.YtdlpPath,
		logger:  logger,
	}
}

type probePayload struct {
	Type    string `json:"_type"`
	Title   string `json:"title"`
	Entries []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"entries"`
}

// Probe inspects a URL without downloading anything. Playlists are resolved
// flat, so probing stays cheap even for long lists.
func (e *YtdlpExtractor) Probe(ctx context.Context, url string) (*downloads.ProbeResult, error) {
	cmd := exec.CommandContext(ctx, e.binPath, "--flat-playlist", "-J", "--no-warnings", url)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "probe failed: %s", firstLine(stderr.String()))
	}

	var payload probePayload
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		return nil, errors.Wrap(err, "probe: malformed metadata")
	}

	result := &downloads.ProbeResult{
		IsPlaylist: payload.Type == "playlist",
		Title:      payload.Title,
	}
	for _, entry := range payload.Entries {
		title := entry.Title
		if title == "" {
			title = "Unknown"
		}
		result.Entries = append(result.Entries, downloads.ProbeEntry{
			Title: title,
			URL:   entry.URL,
		})
	}
	return result, nil
}

// Fetch runs a single yt-dlp invocation, streaming progress into onProgress.
// Failures are classified transient unless the engine output names a
// permanent condition.
func (e *YtdlpExtractor) Fetch(ctx context.Context, url, query, outputDir string, onProgress downloads.ProgressFunc) (*downloads.FetchResult, error) {
	args := []string{
		"-f", query,
		"-o", filepath.Join(outputDir, outputTemplate),
		"--newline",
		"--no-playlist",
		"--no-warnings",
		"--progress-template", progressTemplate,
		url,
	}
	cmd := exec.CommandContext(ctx, e.binPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "stdout pipe")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "starting %s", e.binPath)
	}

	var lastFile string
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, progressPrefix):
			downloaded, total, file := parseProgressLine(line)
			if file != "" {
				lastFile = file
			}
			if onProgress != nil {
				onProgress(downloaded, total, file)
			}
		default:
			if m := destinationRe.FindStringSubmatch(line); m != nil {
				lastFile = m[1]
			} else if m := mergerRe.FindStringSubmatch(line); m != nil {
				lastFile = m[1]
			} else if m := extractAudioRe.FindStringSubmatch(line); m != nil {
				lastFile = m[1]
			}
		}
	}
	if err := scanner.Err(); err != nil {
		// keep consuming stdout or Wait can stall on a full pipe
		e.logger.Warnf("fetch: reading engine output: %v", err)
		_, _ = io.Copy(io.Discard, stdout)
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, e.classify(err, stderr.String())
	}
	if lastFile == "" {
		return nil, downloads.Transient(errors.New("fetch produced no output file"))
	}
	return &downloads.FetchResult{
		Path: lastFile,
		Ext:  strings.TrimPrefix(filepath.Ext(lastFile), "."),
	}, nil
}

func (e *YtdlpExtractor) classify(err error, stderr string) error {
	detail := firstLine(stderr)
	if detail == "" {
		detail = err.Error()
	}
	for _, pattern := range fatalPatterns {
		if strings.Contains(stderr, pattern) {
			return errors.Errorf("fetch failed: %s", detail)
		}
	}
	return downloads.Transient(errors.Errorf("fetch failed: %s", detail))
}

// parseProgressLine decodes a PROGRESS| template line. yt-dlp prints "NA"
// for unknown byte counts.
func parseProgressLine(line string) (downloaded, total int64, filename string) {
	parts := strings.SplitN(line, "|", 5)
	if len(parts) != 5 {
		return 0, 0, ""
	}
	downloaded = parseBytes(parts[1])
	total = parseBytes(parts[2])
	if total == 0 {
		total = parseBytes(parts[3])
	}
	return downloaded, total, strings.TrimSpace(parts[4])
}

func parseBytes(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "NA" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
