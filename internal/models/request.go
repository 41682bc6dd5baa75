package models

import "strings"

// RequestKind distinguishes the two intake flows.
type RequestKind string

const (
	KindVisit      RequestKind = "visit"
	KindInternship RequestKind = "internship"
)

// ParseRequestKind validates raw as a request kind.
func ParseRequestKind(raw string) (RequestKind, bool) {
	k := RequestKind(strings.ToLower(strings.TrimSpace(raw)))
	switch k {
	case KindVisit, KindInternship:
		return k, true
	}
	return "", false
}
