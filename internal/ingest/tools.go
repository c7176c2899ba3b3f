package ingest

import (
	"bytes"
	"context"
	"os/exec"
)

// ConverterAuto picks the first converter found on PATH.
const ConverterAuto = "auto"

// converterPreference is the order ConverterAuto tries tools in. heif-convert handles
// multi-image iPhone containers best, sips only exists on macOS.
var converterPreference = []string{ConverterHeifConvert, ConverterMagick, ConverterSips}

// Runner executes converter tools. Tests substitute a fake.
type Runner interface {
	LookPath(name string) (string, error)
	Run(ctx context.Context, path string, args ...string) (stderr []byte, err error)
}

// ExecRunner runs converter tools on the host.
type ExecRunner struct{}

func (ExecRunner) LookPath(name string) (string, error) { return exec.LookPath(name) }

func (ExecRunner) Run(ctx context.Context, path string, args ...string) ([]byte, error) {
	var errb bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stderr = &errb
	err := cmd.Run()
	return errb.Bytes(), err
}

// DetectConverter returns the first installed converter and its path, or empty strings
// when none is available.
func DetectConverter(r Runner) (tool, path string) {
	for _, t := range converterPreference {
		if p, err := r.LookPath(t); err == nil {
			return t, p
		}
	}
	return "", ""
}

// converterArgs builds the command line that turns in (HEIC) into out (PNG). magick is
// pointed at the first frame so burst and live-photo containers yield one page.
func converterArgs(tool, in, out string) []string {
	switch tool {
	case ConverterSips:
		return []string{"-s", "format", "png", in, "--out", out}
	case ConverterMagick:
		return []string{in + "[0]", out}
	default:
		return []string{in, out}
	}
}

// stderrTail keeps the last n bytes of tool output, where the actual error usually is.
func stderrTail(b []byte, n int) string {
	b = bytes.TrimSpace(b)
	if len(b) <= n {
		return string(b)
	}
	return "..." + string(b[len(b)-n:])
}
