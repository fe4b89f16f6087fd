package registry

import (
	"net/url"
	"strings"
)

// nextLink extracts the rel="next" target of an RFC 5988 Link header, resolved against
// the URL of the current page. It returns an empty string when there is no next page.
func nextLink(current, header string) string {
	for _, part := range strings.Split(header, ",") {
		target, params, found := strings.Cut(strings.TrimSpace(part), ";")
		if !found || !strings.Contains(strings.ReplaceAll(params, " ", ""), `rel="next"`) {
			continue
		}

		target = strings.Trim(strings.TrimSpace(target), "<>")

		base, err := url.Parse(current)
		if err != nil {
			return ""
		}

		ref, err := url.Parse(target)
		if err != nil {
			return ""
		}

		return base.ResolveReference(ref).String()
	}

	return ""
}
