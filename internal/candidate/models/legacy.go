package models

import (
	"fmt"
	"strings"
)

// Registration is the normalised input for registering a candidate.
type Registration struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	PhotoRef string `json:"photo_ref"`
}

var (
	legacyNameKeys  = []string{"fullName", "full_name", "name"}
	legacyEmailKeys = []string{"email", "user_email"}
	legacyPhotoKeys = []string{"photo", "photoUrl", "photo_url", "photo_ref"}
)

// FromLegacy is the single place where the duplicated field names found in
// older candidate records are folded into one Registration. The first
// non-empty key in each list wins.
func FromLegacy(record map[string]any) Registration {
	return Registration{
		FullName: firstString(record, legacyNameKeys),
		Email:    firstString(record, legacyEmailKeys),
		PhotoRef: firstString(record, legacyPhotoKeys),
	}
}

func firstString(record map[string]any, keys []string) string {
	for _, k := range keys {
		v, ok := record[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case fmt.Stringer:
			s = t.String()
		default:
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
