package host

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/superdoc-dev/docbridge/internal/config"
	"github.com/superdoc-dev/docbridge/internal/errors"
)

// ResolveImageSource turns an image source into an embedded data URI before
// the command reaches the engine. Accepted inputs:
//
//   - data URI: passed through untouched
//   - local file path: resolved relative to the document's directory; must
//     stay inside that directory or a configured allowlist entry
//   - http/https URL: fetched, following at most one redirect
//
// Resolution failure short-circuits with RESOURCE_RESOLUTION_FAILED; the
// engine never sees an unresolved source.
func ResolveImageSource(ctx context.Context, src, docDir string, cfg *config.Config) (string, error) {
	if src == "" {
		return "", errors.NewValidation("image src is required")
	}
	if strings.HasPrefix(src, "data:") {
		return src, nil
	}
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return fetchImage(ctx, src, cfg.MaxImageBytes)
	}
	return readLocalImage(src, docDir, cfg)
}

func readLocalImage(src, docDir string, cfg *config.Config) (string, error) {
	path := src
	if !filepath.IsAbs(path) {
		path = filepath.Join(docDir, path)
	}
	path = filepath.Clean(path)

	if !pathAllowed(path, docDir, cfg.AllowedImagePaths) {
		return "", errors.NewResourceResolution(src, fmt.Errorf("path outside allowed directories"))
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", errors.NewResourceResolution(src, err)
	}
	if cfg.MaxImageBytes > 0 && info.Size() > cfg.MaxImageBytes {
		return "", errors.NewResourceResolution(src, fmt.Errorf("image exceeds %d bytes", cfg.MaxImageBytes))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.NewResourceResolution(src, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" || !strings.HasPrefix(contentType, "image/") {
		contentType = "image/png"
	}
	return toDataURI(contentType, data), nil
}

func pathAllowed(path, docDir string, allowlist []string) bool {
	dirs := append([]string{docDir}, allowlist...)
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		rel, err := filepath.Rel(filepath.Clean(dir), path)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func fetchImage(ctx context.Context, url string, maxBytes int64) (string, error) {
	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > 1 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.NewResourceResolution(url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", errors.NewResourceResolution(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.NewResourceResolution(url, fmt.Errorf("status %s", resp.Status))
	}

	reader := io.Reader(resp.Body)
	if maxBytes > 0 {
		reader = io.LimitReader(resp.Body, maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", errors.NewResourceResolution(url, err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", errors.NewResourceResolution(url, fmt.Errorf("image exceeds %d bytes", maxBytes))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	return toDataURI(contentType, data), nil
}

func toDataURI(contentType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
}
