package github

import "strings"

// ParseLinkHeader parses an RFC 8288 style Link header into a map from
// relation name to URL. Entries without a URL or a rel parameter are skipped.
//
//	<https://api.github.com/x?page=2>; rel="next", <https://api.github.com/x?page=5>; rel="last"
func ParseLinkHeader(header string) map[string]string {
	links := make(map[string]string)
	for _, part := range strings.Split(header, ",") {
		var sections []string
		for _, s := range strings.Split(part, ";") {
			if s = strings.TrimSpace(s); s != "" {
				sections = append(sections, s)
			}
		}
		if len(sections) < 2 {
			continue
		}

		target := sections[0]
		if strings.HasPrefix(target, "<") && strings.HasSuffix(target, ">") {
			target = target[1 : len(target)-1]
		}

		for _, param := range sections[1:] {
			if !strings.HasPrefix(param, "rel=") {
				continue
			}
			rel := strings.Trim(strings.TrimPrefix(param, "rel="), `"`)
			if rel != "" {
				links[rel] = target
			}
			break
		}
	}
	return links
}
