package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/roster-scan/constants"
	"github.com/joseph-ayodele/roster-scan/internal/common"
)

// Supported HEIC converter tools.
const (
	ConverterHeifConvert = "heif-convert"
	ConverterMagick      = "magick"
	ConverterSips        = "sips"
)

// HEICConverter turns HEIC/HEIF uploads into PNG for backends that cannot read them.
// Other image types pass through untouched.
type HEICConverter struct {
	tool     string
	path     string
	cacheDir string
	runner   Runner
	logger   *slog.Logger
}

// NewHEICConverter resolves tool on PATH and returns a converter. An empty tool, or "auto"
// with nothing installed, yields nil, which callers treat as "send HEIC as-is".
func NewHEICConverter(tool, cacheDir string, runner Runner, logger *slog.Logger) (*HEICConverter, error) {
	logger = common.LoggerOr(logger)
	if runner == nil {
		runner = ExecRunner{}
	}

	var path string
	switch tool {
	case "":
		return nil, nil
	case ConverterAuto:
		tool, path = DetectConverter(runner)
		if tool == "" {
			logger.Warn("ingest.heic.no_converter", "tried", converterPreference)
			return nil, nil
		}
	case ConverterHeifConvert, ConverterMagick, ConverterSips:
		p, err := runner.LookPath(tool)
		if err != nil {
			return nil, common.NewAppError(constants.ErrConfig, fmt.Sprintf("HEIC converter %q not found on PATH", tool), err)
		}
		path = p
	default:
		return nil, common.NewAppError(constants.ErrConfig,
			fmt.Sprintf("unsupported HEIC converter %q: use one of auto | heif-convert | magick | sips", tool), common.ErrInvalidInput)
	}
	logger.Debug("ingest.heic.converter", "tool", tool, "path", path)
	return &HEICConverter{tool: tool, path: path, cacheDir: cacheDir, runner: runner, logger: logger}, nil
}

// Tool names the converter in use.
func (c *HEICConverter) Tool() string { return c.tool }

// Prepare converts HEIC/HEIF data to PNG and returns the new bytes and MIME type.
func (c *HEICConverter) Prepare(ctx context.Context, data []byte, mimeType string) ([]byte, string, error) {
	if !constants.IsHEIC(mimeType) {
		return data, mimeType, nil
	}

	sum := sha256.Sum256(data)
	hashHex := hex.EncodeToString(sum[:])
	if c.cacheDir != "" {
		if png, err := os.ReadFile(filepath.Join(c.cacheDir, hashHex+".png")); err == nil && len(png) > 0 {
			c.logger.Debug("ingest.heic.cache_hit", "hash", hashHex[:12])
			return png, "image/png", nil
		}
	}

	tmpDir, err := os.MkdirTemp("", "roster-heic-*")
	if err != nil {
		return nil, "", fmt.Errorf("heic temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	in := filepath.Join(tmpDir, "page.heic")
	out := filepath.Join(tmpDir, "page.png")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, "", fmt.Errorf("heic write input: %w", err)
	}

	start := time.Now()
	if errb, err := c.runner.Run(ctx, c.path, converterArgs(c.tool, in, out)...); err != nil {
		tail := stderrTail(errb, 512)
		c.logger.Error("ingest.heic.failed", "tool", c.tool, "duration_ms", time.Since(start).Milliseconds(), "error", err, "stderr", tail)
		return nil, "", common.NewAppError(constants.ErrInvalidInput,
			fmt.Sprintf("%s could not convert the image: %s", c.tool, tail), err)
	}

	png, err := os.ReadFile(out)
	if err != nil || len(png) == 0 {
		return nil, "", common.NewAppError(constants.ErrInvalidInput, "HEIC conversion produced no output", err)
	}

	if c.cacheDir != "" {
		if err := c.persist(hashHex, png); err != nil {
			c.logger.Warn("ingest.heic.cache_write_failed", "error", err)
		}
	}
	c.logger.Info("ingest.heic.converted",
		"tool", c.tool,
		"duration_ms", time.Since(start).Milliseconds(),
		"in_bytes", len(data),
		"out_bytes", len(png))
	return png, "image/png", nil
}

func (c *HEICConverter) persist(hashHex string, png []byte) error {
	if err := os.MkdirAll(c.cacheDir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(c.cacheDir, hashHex+".png")
	tmp, err := os.CreateTemp(c.cacheDir, hashHex+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(png); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
