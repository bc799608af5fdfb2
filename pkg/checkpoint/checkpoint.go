// Package checkpoint turns a checkpoint locator (local path or URL) into a
// local path the sampler can load, downloading and unpacking remote
// checkpoints into a cache directory on first use.
package checkpoint

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var DebugLog func(string, ...interface{})

type Resolver struct {
	cacheDir string
	client   *http.Client
	force    bool
}

func NewResolver(cacheDir string, client *http.Client) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &Resolver{
		cacheDir: cacheDir,
		client:   client,
	}
}

// ForceDownload makes Resolve fetch remote checkpoints even when cached.
func (r *Resolver) ForceDownload(force bool) {
	r.force = force
}

func (r *Resolver) Resolve(ctx context.Context, locator string) (string, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return "", errors.New("empty checkpoint locator")
	}

	u, err := url.Parse(locator)
	if err == nil {
		switch u.Scheme {
		case "http", "https":
			return r.fetch(ctx, u)
		case "file":
			locator = u.Path
		}
	}

	if _, err := os.Stat(locator); err != nil {
		return "", fmt.Errorf("checkpoint not found at %s: %w", locator, err)
	}
	return locator, nil
}

func (r *Resolver) fetch(ctx context.Context, u *url.URL) (string, error) {
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return "", fmt.Errorf("cannot derive a file name from %s", u)
	}

	if err := os.MkdirAll(r.cacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	dest := filepath.Join(r.cacheDir, name)
	isTar := strings.HasSuffix(name, ".tar")
	target := dest
	if isTar {
		target = strings.TrimSuffix(dest, ".tar")
	}

	if !r.force && fileExists(target) {
		if DebugLog != nil {
			DebugLog("using cached checkpoint %s", target)
		}
		return target, nil
	}

	fmt.Printf("[INF] Downloading checkpoint %s...\n", name)
	if err := r.downloadFile(ctx, u.String(), dest); err != nil {
		return "", fmt.Errorf("failed to download %s: %w", name, err)
	}

	if isTar {
		if err := unpack(dest, target); err != nil {
			return "", fmt.Errorf("failed to unpack %s: %w", name, err)
		}
		if err := os.Remove(dest); err != nil && DebugLog != nil {
			DebugLog("could not remove archive %s: %v", dest, err)
		}
	}

	fmt.Printf("[INF] Checkpoint cached at %s\n", target)
	return target, nil
}

func (r *Resolver) downloadFile(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	partial := dest + ".part"
	out, err := os.Create(partial)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(partial)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(partial)
		return err
	}
	return os.Rename(partial, dest)
}

// unpack extracts archive next to target and moves it into place only once
// every entry was written, so target never holds a partial checkpoint.
func unpack(archive, target string) error {
	partial := target + ".part"
	if err := os.RemoveAll(partial); err != nil {
		return err
	}
	if err := extractTar(archive, partial); err != nil {
		os.RemoveAll(partial)
		os.Remove(archive)
		return err
	}
	if err := os.RemoveAll(target); err != nil {
		os.RemoveAll(partial)
		return fmt.Errorf("failed to clear %s: %w", target, err)
	}
	if err := os.Rename(partial, target); err != nil {
		os.RemoveAll(partial)
		return err
	}
	return nil
}

func extractTar(archive, dir string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		dest := filepath.Join(dir, filepath.FromSlash(hdr.Name))
		if dest != dir && !strings.HasPrefix(dest, dir+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes %s", hdr.Name, dir)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(tr, dest); err != nil {
				return err
			}
		default:
			if DebugLog != nil {
				DebugLog("skipping archive entry %s (type %c)", hdr.Name, hdr.Typeflag)
			}
		}
	}
}

func writeEntry(r io.Reader, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
