package types

import "time"

// MaxImages is the hard ceiling on images attached to one content record.
const MaxImages = 10

// Status is the lifecycle state of a content record.
type Status string

const (
	StatusGenerating Status = "generating"
	StatusReady      Status = "ready"
	StatusUploaded   Status = "uploaded"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusUploaded || s == StatusFailed
}

// CanTransition reports whether s -> to is a legal lifecycle move.
// A ready record may stay ready when a publish attempt does not fully succeed.
func (s Status) CanTransition(to Status) bool {
	if s.Terminal() || !to.Valid() {
		return false
	}
	switch s {
	case StatusGenerating:
		return to == StatusReady || to == StatusFailed
	case StatusReady:
		return to == StatusUploaded || to == StatusReady
	default:
		return false
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusGenerating, StatusReady, StatusUploaded, StatusFailed:
		return true
	}
	return false
}

// SourcesOf lists every status that may legally move to to.
func SourcesOf(to Status) []Status {
	var out []Status
	for _, s := range []Status{StatusGenerating, StatusReady, StatusUploaded, StatusFailed} {
		if s.CanTransition(to) {
			out = append(out, s)
		}
	}
	return out
}

// Image is one visual attached to a video, with the provider that supplied it.
type Image struct {
	URL            string `json:"url"`
	AltText        string `json:"altText"`
	SourceProvider string `json:"sourceProvider"`
}

// PublishResult is the outcome of publishing to a single platform
type PublishResult struct {
	Success   bool   `json:"success"`
	Reference string `json:"reference,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Story is the output of the generation stage
type Story struct {
	Title     string   `json:"title"`
	Niche     string   `json:"niche"`
	FullStory string   `json:"fullStory"`
	Keywords  []string `json:"keywords"`
	Tags      []string `json:"tags"`
}

// ContentRecord tracks one pipeline run from placeholder to published video.
type ContentRecord struct {
	ID             string                   `json:"id"`
	Title          string                   `json:"title"`
	Niche          string                   `json:"niche"`
	Excerpt        string                   `json:"excerpt"`
	FullStory      string                   `json:"fullStory"`
	AudioURL       string                   `json:"audioUrl,omitempty"`
	VideoURL       string                   `json:"videoUrl,omitempty"`
	Images         []Image                  `json:"images"`
	Tags           []string                 `json:"tags"`
	Status         Status                   `json:"status"`
	Progress       int                      `json:"progress"`
	Error          string                   `json:"error,omitempty"`
	ErrorCode      string                   `json:"errorCode,omitempty"`
	Providers      map[string]string        `json:"providers,omitempty"`
	PublishResults map[string]PublishResult `json:"publishResults,omitempty"`
	CreatedAt      time.Time                `json:"createdAt"`
	UpdatedAt      time.Time                `json:"updatedAt"`
}

// SetProgress moves progress forward, clamped to 0..100. It never goes back.
func (r *ContentRecord) SetProgress(p int) {
	if p > 100 {
		p = 100
	}
	if p > r.Progress {
		r.Progress = p
	}
}

// SetProvider records which provider satisfied a capability.
func (r *ContentRecord) SetProvider(capability, provider string) {
	if r.Providers == nil {
		r.Providers = make(map[string]string)
	}
	r.Providers[capability] = provider
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (r *ContentRecord) Clone() *ContentRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.Images != nil {
		c.Images = append([]Image(nil), r.Images...)
	}
	if r.Tags != nil {
		c.Tags = append([]string(nil), r.Tags...)
	}
	if r.Providers != nil {
		c.Providers = make(map[string]string, len(r.Providers))
		for k, v := range r.Providers {
			c.Providers[k] = v
		}
	}
	if r.PublishResults != nil {
		c.PublishResults = make(map[string]PublishResult, len(r.PublishResults))
		for k, v := range r.PublishResults {
			c.PublishResults[k] = v
		}
	}
	return &c
}
