// Package download fetches model files over HTTP for the CLI. The returned
// filename carries the extension hint the container loader needs, negotiated
// from Content-Disposition, the URL path, and Content-Type.
package download

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"
)

// Model hosts routinely refuse the default Go client string.
const userAgent = "Mozilla/5.0 (compatible; print-studio/1.0)"

// maxFetchBytes caps a single download. Print models beyond this are not
// real uploads.
const maxFetchBytes = 512 << 20

// IsURL reports whether the argument names a remote model rather than a
// local path.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Fetch downloads url into memory and derives a filename for it. The name
// comes from Content-Disposition, then the URL path; its extension, when
// missing, from Content-Type and then the URL. A name without a recognized
// extension is returned as is and left for the container loader to reject.
func Fetch(url string) (data []byte, filename string, err error) {
	client := &http.Client{Timeout: 120 * time.Second}
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("download: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download: HTTP %d fetching %s", resp.StatusCode, url)
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("download: %w", err)
	}
	if len(data) > maxFetchBytes {
		return nil, "", fmt.Errorf("download: %s exceeds the %d byte cap", url, maxFetchBytes)
	}

	name := filenameFromContentDisposition(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = filenameFromURL(url)
	}
	if name == "" {
		name = "model"
	}
	name = sanitizeFilename(name)
	if !hasModelExtension(name) {
		ext := extensionFromContentType(resp.Header.Get("Content-Type"))
		if ext == "" {
			ext = extensionFromURL(url)
		}
		if ext != "" {
			name += ext
		}
	}
	return data, name, nil
}

func hasModelExtension(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".stl", ".3mf", ".zip":
		return true
	}
	return false
}

func filenameFromContentDisposition(cd string) string {
	cd = strings.TrimSpace(cd)
	// filename="..."; or filename*=UTF-8''...
	if i := strings.Index(cd, "filename*=UTF-8''"); i >= 0 {
		s := cd[i+len("filename*=UTF-8''"):]
		if j := strings.IndexAny(s, ";\r\n"); j >= 0 {
			s = s[:j]
		}
		return strings.Trim(s, "\"")
	}
	if i := strings.Index(cd, "filename="); i >= 0 {
		s := cd[i+len("filename="):]
		s = strings.Trim(s, "\" ")
		if j := strings.IndexAny(s, ";\r\n"); j >= 0 {
			s = s[:j]
		}
		return s
	}
	return ""
}

func extensionFromContentType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if idx := strings.Index(ct, ";"); idx >= 0 {
		ct = ct[:idx]
	}
	switch {
	case strings.Contains(ct, "3mf"), strings.Contains(ct, "3dmanufacturing"):
		return ".3mf"
	case strings.Contains(ct, "stl"), strings.Contains(ct, "sla"):
		return ".stl"
	case strings.Contains(ct, "zip"):
		return ".zip"
	}
	return ""
}

func extensionFromURL(url string) string {
	p := url
	if idx := strings.Index(p, "?"); idx >= 0 {
		p = p[:idx]
	}
	ext := strings.ToLower(path.Ext(p))
	if ext == ".stl" || ext == ".3mf" || ext == ".zip" {
		return ext
	}
	return ""
}

func filenameFromURL(url string) string {
	p := url
	if idx := strings.Index(p, "?"); idx >= 0 {
		p = p[:idx]
	}
	base := path.Base(p)
	if base == "." || base == "/" || strings.Contains(base, ":") {
		return ""
	}
	return base
}

var safeNameRe = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

func sanitizeFilename(name string) string {
	if name == "" {
		return "model"
	}
	name = safeNameRe.ReplaceAllString(name, "_")
	if len(name) > 96 {
		name = name[:96]
	}
	return name
}
