package session

import "github.com/noah-isme/learnify-api/internal/content"

// Profile tunes presentation of a session. The core rules are identical for
// every profile.
type Profile struct {
	Name string `json:"name"`
	// PreviewChars is the raw body length above which "view more" is offered.
	PreviewChars int `json:"preview_chars"`
	// ShowCompletionMarkers adds per-lesson completion flags to the lesson list.
	ShowCompletionMarkers bool `json:"show_completion_markers"`
}

var (
	// DetailProfile is the full course page.
	DetailProfile = Profile{Name: "detail", PreviewChars: content.DefaultPreviewChars, ShowCompletionMarkers: true}
	// CompactProfile is the condensed course page without list markers.
	CompactProfile = Profile{Name: "compact", PreviewChars: content.DefaultPreviewChars}
)

// ProfileByName resolves a profile name, falling back to DetailProfile.
func ProfileByName(name string) Profile {
	if name == CompactProfile.Name {
		return CompactProfile
	}
	return DetailProfile
}

// WithPreviewChars returns p with a different preview threshold.
func (p Profile) WithPreviewChars(n int) Profile {
	if n > 0 {
		p.PreviewChars = n
	}
	return p
}
