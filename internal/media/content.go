package media

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ImageURLs returns the src of every <img> tag in a post body, in order.
func ImageURLs(content string) []string {
	urls, _ := splitImages(content)
	return urls
}

// FirstImageURL returns the first image in content, or "" when there is none.
func FirstImageURL(content string) string {
	if urls := ImageURLs(content); len(urls) > 0 {
		return urls[0]
	}
	return ""
}

// StripImages removes <img> tags and trims surrounding space. The rest of
// the markup is kept as written.
func StripImages(content string) string {
	_, text := splitImages(content)
	return strings.TrimSpace(text)
}

func splitImages(content string) ([]string, string) {
	if !strings.Contains(strings.ToLower(content), "<img") {
		return nil, content
	}

	var urls []string
	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(content))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				// Malformed markup: keep what is left untouched.
				sb.Write(z.Raw())
			}
			break
		}

		if tt == html.StartTagToken || tt == html.SelfClosingTagToken {
			name, hasAttr := z.TagName()
			if string(name) == "img" {
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = z.TagAttr()
					if string(key) == "src" && len(val) > 0 {
						urls = append(urls, string(val))
					}
				}
				continue
			}
		}
		sb.Write(z.Raw())
	}
	return urls, sb.String()
}
