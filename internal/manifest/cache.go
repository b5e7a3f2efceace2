package manifest

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Cache is a local store of fetched module sources under
// $XDG_CACHE_HOME/basm/mod/<path>/<version> (with every "/" in the
// module path replaced by "_"), grounded on the teacher's
// packages.ModuleCache.
type Cache struct {
	BaseDir string
}

// NewCache returns a Cache rooted at baseDir.
func NewCache(baseDir string) *Cache {
	return &Cache{BaseDir: baseDir}
}

// Dir returns the local directory a requirement resolves to, fetching
// it first if it isn't already cached.
func (c *Cache) Dir(req Requirement) (string, error) {
	dest := filepath.Join(c.BaseDir, strings.ReplaceAll(req.Path, "/", "_"), req.Version)
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		return dest, nil
	}

	url, err := archiveURL(req)
	if err != nil {
		return "", err
	}
	if err := downloadAndExtract(url, dest); err != nil {
		return "", fmt.Errorf("fetch %s@%s: %w", req.Path, req.Version, err)
	}
	return dest, nil
}

func archiveURL(req Requirement) (string, error) {
	if !strings.HasPrefix(req.Path, "github.com/") {
		return "", fmt.Errorf("unsupported module path %q: only github.com/ paths can be fetched", req.Path)
	}
	parts := strings.SplitN(strings.TrimPrefix(req.Path, "github.com/"), "/", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("malformed github module path %q", req.Path)
	}
	user, repo := parts[0], parts[1]
	return fmt.Sprintf("https://github.com/%s/%s/archive/refs/tags/%s.zip", user, repo, req.Version), nil
}

func downloadAndExtract(url, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		// GitHub serves tagged source archives as .tar.gz too; a
		// release asset published only in that form 404s the .zip URL
		// we guessed first, so fall back before giving up.
		return downloadAndExtractTarGz(strings.TrimSuffix(url, ".zip")+".tar.gz", dest)
	}

	tmp := filepath.Join(dest, "download.tmp")
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return err
	}
	out.Close()
	defer os.Remove(tmp)

	return extractZip(tmp, dest)
}

func downloadAndExtractTarGz(url, dest string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: HTTP %d", url, resp.StatusCode)
	}

	tmp := filepath.Join(dest, "download.tmp")
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return err
	}
	out.Close()
	defer os.Remove(tmp)

	return extractTarGz(tmp, dest)
}

func extractZip(src, dest string) error {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer reader.Close()

	for _, file := range reader.File {
		path := filepath.Join(dest, file.Name)
		if !strings.HasPrefix(path, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes destination", file.Name)
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(path, file.Mode()); err != nil {
				return err
			}
			continue
		}
		if err := extractZipFile(file, path); err != nil {
			return err
		}
	}
	return nil
}

func extractZipFile(file *zip.File, path string) error {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, file.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}

// extractTarGz backs the .tar.gz fallback in downloadAndExtractTarGz,
// for GitHub tags whose .zip archive URL 404s.
func extractTarGz(src, dest string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		path := filepath.Join(dest, header.Name)
		if !strings.HasPrefix(path, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes destination", header.Name)
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(path, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			out, err := os.Create(path)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
		}
	}
}
