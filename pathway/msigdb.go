package pathway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/BenLubar/memoize"
	"github.com/carbocation/pfx"
	"golang.org/x/net/html"
)

// DefaultMSigDBURL is the MSigDB gene set page; the set is chosen by the
// geneSetName query parameter.
const DefaultMSigDBURL = "https://www.gsea-msigdb.org/gsea/msigdb/geneset_page.jsp"

// NewMSigDBDescriber returns a Describer that looks up the "Brief
// description" of a gene set on its MSigDB page. Each id is fetched at most
// once; failures are remembered too.
func NewMSigDBDescriber(ctx context.Context, client *http.Client, pageURL string) Describer {
	if client == nil {
		client = http.DefaultClient
	}
	if pageURL == "" {
		pageURL = DefaultMSigDBURL
	}

	lookup := func(id string) (string, error) {
		return describeMSigDB(ctx, client, pageURL, id)
	}

	memoized := memoize.Memoize(lookup).(func(string) (string, error))

	return Describer(memoized)
}

func describeMSigDB(ctx context.Context, client *http.Client, pageURL, id string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", pfx.Err(err)
	}
	q := u.Query()
	q.Set("geneSetName", id)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", pfx.Err(err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", pfx.Err(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: HTTP status %s", u, resp.Status)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", pfx.Err(err)
	}

	desc, found := briefDescription(doc)
	if !found {
		return "", fmt.Errorf("%s: no brief description on the page", id)
	}

	return desc, nil
}

// briefDescription returns the text of the first <td> that follows, in
// document order, a text node reading "Brief description".
func briefDescription(doc *html.Node) (string, bool) {
	seenLabel := false
	var cell *html.Node

	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		switch {
		case n.Type == html.TextNode && strings.TrimSpace(n.Data) == "Brief description":
			seenLabel = true
		case seenLabel && n.Type == html.ElementNode && n.Data == "td":
			cell = n
			return true
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}

	if !walk(doc) {
		return "", false
	}

	return strings.Join(strings.Fields(nodeText(cell)), " "), true
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}

	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}

	return b.String()
}
