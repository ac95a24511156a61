// Package renderer adapts external HTML-to-PDF converters behind one
// contract. The exec adapter shells out to wkhtmltopdf; the HTTP adapter
// posts to a remote converter service. Both are bounded by the caller's
// context deadline.
package renderer

import "context"

// Renderer converts an HTML payload into a PDF artifact on the local
// filesystem and returns its path. The caller owns the returned file and
// removes it after use. Failure is signaled by error only; a renderer that
// exits cleanly without producing the artifact is also a failure.
type Renderer interface {
	Render(ctx context.Context, payload []byte) (artifactPath string, err error)
}

// diagLimit bounds captured renderer output attached to failure
// diagnostics.
const diagLimit = 1000

func clip(s string) string {
	if len(s) > diagLimit {
		return s[:diagLimit]
	}
	return s
}
