package renderer

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"

	"inkwell/internal/pkg/errors"
)

// HTTPClient renders through a remote converter service that accepts raw
// HTML on POST /generate and answers with the PDF bytes.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		// No client-level timeout: the caller's context bounds the call.
		client: &http.Client{},
	}
}

func (c *HTTPClient) Render(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "renderer.http", "request build failed")
	}
	req.Header.Set("Content-Type", "text/html; charset=utf-8")

	res, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.RenderFailed("renderer timed out")
		}
		return "", errors.WrapWithCode(err, errors.CodeRenderFailed, "renderer.http", "converter unreachable")
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, diagLimit))
		return "", errors.Newf(errors.CodeRenderFailed, "converter http %d", res.StatusCode).
			WithField("stderr", clip(string(body)))
	}

	outF, err := os.CreateTemp("", "inkwell-*.pdf")
	if err != nil {
		return "", errors.Wrap(err, "renderer.http", "output temp failed")
	}

	if _, err := io.Copy(outF, res.Body); err != nil {
		outF.Close()
		os.Remove(outF.Name())
		return "", errors.Wrap(err, "renderer.http", "artifact read failed")
	}
	if err := outF.Close(); err != nil {
		os.Remove(outF.Name())
		return "", errors.Wrap(err, "renderer.http", "artifact close failed")
	}

	return outF.Name(), nil
}
