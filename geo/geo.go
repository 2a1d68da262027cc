// Package geo loads GEO series from a local cache, a local or gs:// path, or
// the NCBI GEO FTP mirror over HTTPS.
package geo

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/carbocation/geneexpr"
	"github.com/carbocation/geneexpr/soft"
	"github.com/carbocation/pfx"
)

const DefaultBaseURL = "https://ftp.ncbi.nlm.nih.gov"

type Loader struct {
	CacheDir   string
	BaseURL    string
	HTTPClient *http.Client
}

// NewLoader returns a Loader that caches downloads in cacheDir and gives up on
// a download after timeout. A zero timeout means no limit.
func NewLoader(cacheDir string, timeout time.Duration) *Loader {
	return &Loader{
		CacheDir:   cacheDir,
		BaseURL:    DefaultBaseURL,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// CachePath is where the family file for seriesID is expected on disk.
func (l *Loader) CachePath(seriesID string) string {
	return filepath.Join(l.CacheDir, seriesID+"_family.soft.gz")
}

// Load reads the series from the cache, downloading it first if absent.
func (l *Loader) Load(ctx context.Context, seriesID string) (*soft.Family, error) {
	if err := validSeriesID(seriesID); err != nil {
		return nil, err
	}

	cacheDir, err := geneexpr.ExpandHome(l.CacheDir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(cacheDir, filepath.Base(l.CachePath(seriesID)))
	if _, err := os.Stat(path); err == nil {
		log.Println("Loading from", path)
		return LoadFile(ctx, path, nil)
	} else if !os.IsNotExist(err) {
		return nil, pfx.Err(err)
	}

	log.Println("Downloading", seriesID)
	if err := l.download(ctx, seriesID, path); err != nil {
		return nil, err
	}

	return LoadFile(ctx, path, nil)
}

func (l *Loader) download(ctx context.Context, seriesID, dest string) error {
	url, err := SeriesURL(l.BaseURL, seriesID)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return pfx.Err(err)
	}

	client := l.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return pfx.Err(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", url, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return pfx.Err(err)
	}

	// Write beside the destination so a failed download never leaves a
	// truncated file at the cache path
	tmp, err := ioutil.TempFile(filepath.Dir(dest), filepath.Base(dest)+".*.partial")
	if err != nil {
		return pfx.Err(err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return pfx.Err(fmt.Errorf("%s: %w", url, err))
	}
	if err := tmp.Close(); err != nil {
		return pfx.Err(err)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return pfx.Err(err)
	}

	log.Printf("Saved %d bytes to %s\n", n, dest)

	return nil
}

// LoadFile parses a SOFT family file from a local or gs:// path. Compressed
// files are detected by content, not by extension.
func LoadFile(ctx context.Context, path string, client *storage.Client) (*soft.Family, error) {
	rc, err := geneexpr.OpenDecompressed(ctx, path, client)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	fam, err := soft.Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return fam, nil
}

// SeriesURL builds the NCBI download URL for a series family file. GEO groups
// series into directories named by replacing the final three digits with
// "nnn", e.g., GSE1234 lives under GSE1nnn and GSE12 under GSEnnn.
func SeriesURL(baseURL, seriesID string) (string, error) {
	if err := validSeriesID(seriesID); err != nil {
		return "", err
	}

	digits := strings.TrimPrefix(seriesID, "GSE")
	stub := "GSEnnn"
	if len(digits) > 3 {
		stub = "GSE" + digits[:len(digits)-3] + "nnn"
	}

	return fmt.Sprintf("%s/geo/series/%s/%s/soft/%s_family.soft.gz", strings.TrimSuffix(baseURL, "/"), stub, seriesID, seriesID), nil
}

func validSeriesID(seriesID string) error {
	digits := strings.TrimPrefix(seriesID, "GSE")
	if digits == seriesID || digits == "" {
		return fmt.Errorf("%q is not a GEO series accession (expected GSE followed by digits)", seriesID)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return fmt.Errorf("%q is not a GEO series accession (expected GSE followed by digits)", seriesID)
		}
	}

	return nil
}
