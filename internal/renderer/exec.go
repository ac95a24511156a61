package renderer

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"inkwell/internal/pkg/errors"
)

// DefaultBin is where the converter binary usually lives in the service
// containers.
const DefaultBin = "/usr/bin/wkhtmltopdf"

// DefaultArgs mirror the flags the converter is run with in production.
var DefaultArgs = []string{
	"--enable-local-file-access",
	"--image-quality", "100",
	"--dpi", "150",
	"--margin-top", "10mm",
	"--margin-bottom", "10mm",
	"--margin-left", "10mm",
	"--margin-right", "10mm",
}

// Exec invokes a converter binary as a subprocess. The binary is expected
// to take the input HTML path and output PDF path as its last two
// arguments and to signal failure with a non-zero exit status.
type Exec struct {
	bin  string
	args []string
}

// NewExec builds an exec renderer. Empty bin selects DefaultBin; nil args
// select DefaultArgs.
func NewExec(bin string, args []string) *Exec {
	if bin == "" {
		bin = DefaultBin
	}
	if args == nil {
		args = DefaultArgs
	}
	return &Exec{bin: bin, args: args}
}

func (e *Exec) Render(ctx context.Context, payload []byte) (string, error) {
	td, err := os.MkdirTemp("", "inkwell-render-")
	if err != nil {
		return "", errors.Wrap(err, "renderer.exec", "temp dir failed")
	}
	defer os.RemoveAll(td)

	htmlPath := filepath.Join(td, "input.html")
	pdfTmp := filepath.Join(td, "output.pdf")

	if err := os.WriteFile(htmlPath, payload, 0o644); err != nil {
		return "", errors.Wrap(err, "renderer.exec", "input write failed")
	}

	argv := append(append([]string{}, e.args...), htmlPath, pdfTmp)
	cmd := exec.CommandContext(ctx, e.bin, argv...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return "", errors.RenderFailed("renderer timed out").
			WithField("stderr", clip(stderr.String()))
	}
	if runErr != nil {
		return "", errors.Newf(errors.CodeRenderFailed, "renderer exited: %v", runErr).
			WithField("stderr", clip(stderr.String())).
			WithField("stdout", clip(stdout.String()))
	}

	if _, err := os.Stat(pdfTmp); err != nil {
		return "", errors.RenderFailed("renderer completed but produced no output artifact").
			WithField("stderr", clip(stderr.String()))
	}

	// Move the artifact out of the temp dir so the deferred cleanup does
	// not take it along.
	outF, err := os.CreateTemp("", "inkwell-*.pdf")
	if err != nil {
		return "", errors.Wrap(err, "renderer.exec", "output temp failed")
	}
	outPath := outF.Name()
	outF.Close()

	if err := os.Rename(pdfTmp, outPath); err != nil {
		// Rename can fail across filesystems; fall back to a copy.
		data, rerr := os.ReadFile(pdfTmp)
		if rerr != nil {
			os.Remove(outPath)
			return "", errors.Wrap(err, "renderer.exec", "artifact move failed")
		}
		if werr := os.WriteFile(outPath, data, 0o644); werr != nil {
			os.Remove(outPath)
			return "", errors.Wrap(werr, "renderer.exec", "artifact copy failed")
		}
	}

	return outPath, nil
}

// Diagnostic flattens a render failure into the bounded text stored on the
// job record, folding in captured output when present.
func Diagnostic(err error) string {
	if err == nil {
		return ""
	}
	parts := []string{err.Error()}
	var coded *errors.Error
	if errors.As(err, &coded) {
		if s, ok := coded.Fields["stderr"].(string); ok && s != "" {
			parts = append(parts, "stderr: "+s)
		}
	}
	return strings.Join(parts, "; ")
}
