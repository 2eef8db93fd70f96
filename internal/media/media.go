// Package media decides which submitted media types are accepted and
// inspects audio payloads for logging.
package media

import (
	"fmt"
	"mime"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/embano1/whisper-blockifier/internal/types"
)

// Policy kinds.
const (
	PolicyAllowList = "allowlist"
	PolicyFamilies  = "families"
)

// Policy decides whether a declared media type is accepted.
type Policy interface {
	Accepts(mimeType string) bool
	// Accepted describes the accepted types for error messages.
	Accepted() []string
}

// AllowList accepts exactly the listed types.
type AllowList struct {
	types []string
}

// NewAllowList creates an AllowList. Entries are normalized.
func NewAllowList(allowed []string) *AllowList {
	l := &AllowList{}
	for _, t := range allowed {
		if n := Normalize(t); n != "" && !slices.Contains(l.types, n) {
			l.types = append(l.types, n)
		}
	}
	return l
}

// Accepts implements Policy.
func (l *AllowList) Accepts(mimeType string) bool {
	return slices.Contains(l.types, Normalize(mimeType))
}

// Accepted implements Policy.
func (l *AllowList) Accepted() []string {
	return slices.Clone(l.types)
}

// Families accepts any audio/* or video/* type.
type Families struct{}

// Accepts implements Policy.
func (Families) Accepts(mimeType string) bool {
	n := Normalize(mimeType)
	return strings.HasPrefix(n, "audio/") || strings.HasPrefix(n, "video/")
}

// Accepted implements Policy.
func (Families) Accepted() []string {
	return []string{"audio/*", "video/*"}
}

// NewPolicy returns the Policy for kind.
func NewPolicy(kind string, allowed []string) (Policy, error) {
	switch kind {
	case PolicyAllowList, "":
		l := NewAllowList(allowed)
		if len(l.types) == 0 {
			return nil, fmt.Errorf("allowlist policy needs at least one media type")
		}
		return l, nil
	case PolicyFamilies:
		return Families{}, nil
	default:
		return nil, fmt.Errorf("unknown media policy %q", kind)
	}
}

// Normalize lowercases a media type and strips its parameters.
func Normalize(mimeType string) string {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mt
	}
	return strings.ToLower(mimeType)
}

// Resolve returns the media type of m: the declared type when present,
// otherwise the type sniffed from its bytes.
func Resolve(m types.Media) string {
	if n := Normalize(m.MimeType); n != "" {
		return n
	}
	if len(m.Data) == 0 {
		return ""
	}
	return Normalize(mimetype.Detect(m.Data).String())
}
