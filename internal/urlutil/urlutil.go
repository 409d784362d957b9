package urlutil

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildURL joins a base URL with additional path segments. Each segment is
// path-escaped before joining, so a segment may safely contain slashes.
func BuildURL(base string, paths ...string) (*url.URL, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("URL is missing scheme: %q", base)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("URL is missing host: %q", base)
	}
	var pathBuilder strings.Builder
	var rawPathBuilder strings.Builder
	if u.Path != "" {
		pathBuilder.WriteString(strings.TrimSuffix(u.Path, "/"))
		rawPathBuilder.WriteString(strings.TrimSuffix(u.EscapedPath(), "/"))
	}
	for _, segment := range paths {
		pathBuilder.WriteByte('/')
		rawPathBuilder.WriteByte('/')
		pathBuilder.WriteString(segment)
		rawPathBuilder.WriteString(url.PathEscape(segment))
	}
	u.Path = pathBuilder.String()
	u.RawPath = rawPathBuilder.String()
	return u, nil
}
