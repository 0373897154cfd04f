// Package video rewrites stored lesson video references into playable targets.
package video

import (
	"regexp"

	"github.com/noah-isme/learnify-api/internal/models"
)

// Resolution is the playable target of a video reference.
type Resolution struct {
	Target     string `json:"target"`
	IsEmbedded bool   `json:"is_embedded"`
}

type provider struct {
	name    string
	pattern *regexp.Regexp
	embed   string
}

// Providers are tried in order; the first match wins.
var providers = []provider{
	{
		name:    "youtube",
		pattern: regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([^&\s]+)`),
		embed:   "https://www.youtube.com/embed/",
	},
	{
		name:    "vimeo",
		pattern: regexp.MustCompile(`vimeo\.com/(\d+)`),
		embed:   "https://player.vimeo.com/video/",
	},
}

// Resolve maps url to a playable target. Only link kinds are rewritten; an
// unrecognised link falls back to the original url played as direct media.
func Resolve(url string, kind models.VideoKind) Resolution {
	target := url
	if kind == models.VideoKindLink {
		for _, p := range providers {
			if m := p.pattern.FindStringSubmatch(url); m != nil {
				target = p.embed + m[1]
				break
			}
		}
	}
	return Resolution{Target: target, IsEmbedded: target != url}
}
