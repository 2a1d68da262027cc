package pathway

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/carbocation/pfx"
)

const DefaultKEGGURL = "https://rest.kegg.jp"

// KEGG fetches pathway memberships from the KEGG REST API.
type KEGG struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewKEGG(timeout time.Duration) *KEGG {
	return &KEGG{
		BaseURL:    DefaultKEGGURL,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Fetch joins the pathway list of organism (e.g., "hsa") with its gene links.
// Pathway ids lose their "path:" prefix and genes their "<organism>:" prefix,
// which for human leaves the Entrez id. With trimOrganism, the trailing
// " - Homo sapiens (human)" is cut from pathway names. Records follow the
// order of the link listing.
func (k *KEGG) Fetch(ctx context.Context, organism string, trimOrganism bool) ([]Record, error) {
	if organism == "" {
		return nil, fmt.Errorf("no KEGG organism code given")
	}

	names := make(map[string]string)
	err := k.get(ctx, "list/pathway/"+organism, func(left, right string) {
		name := right
		if trimOrganism {
			if i := strings.LastIndex(name, " - "); i >= 0 {
				name = name[:i]
			}
		}
		names[strings.TrimPrefix(left, "path:")] = name
	})
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0)
	err = k.get(ctx, "link/pathway/"+organism, func(left, right string) {
		gene := strings.TrimPrefix(left, organism+":")
		id := strings.TrimPrefix(right, "path:")
		if gene == "" || id == "" {
			return
		}
		name, ok := names[id]
		if !ok {
			name = id
		}
		out = append(out, Record{Database: DatabaseKEGG, PathwayID: id, PathwayName: name, Entrez: gene})
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// get streams a two-column, tab-delimited KEGG listing into fn.
func (k *KEGG) get(ctx context.Context, operation string, fn func(left, right string)) error {
	client := k.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	base := k.BaseURL
	if base == "" {
		base = DefaultKEGGURL
	}
	url := strings.TrimSuffix(base, "/") + "/" + operation

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return pfx.Err(err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return pfx.Err(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: HTTP status %s", url, resp.Status)
	}

	return readKEGGListing(resp.Body, url, fn)
}

func readKEGGListing(r io.Reader, source string, fn func(left, right string)) error {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if text == "" {
			continue
		}

		parts := strings.SplitN(text, "\t", 2)
		if len(parts) != 2 {
			return fmt.Errorf("%s line %d: expected 2 tab-separated fields, got %q", source, line, text)
		}
		fn(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
	}

	return scanner.Err()
}
