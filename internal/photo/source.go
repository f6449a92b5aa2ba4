// Package photo loads candidate photos referenced by a candidate's PhotoRef.
//
// A ref is either an http(s) URL or gridfs:<objectid>. Fetch failures are
// ordinary errors; the license download path degrades to a placeholder
// image instead of failing.
package photo

import (
	"context"
	"fmt"
	"strings"

	"licensing/pkg/platform/sentinel"
)

// Source fetches raw photo bytes for a reference.
type Source interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

const gridFSPrefix = "gridfs:"

// Router dispatches a ref to the source that understands its scheme. A nil
// source means refs of that kind are not served in this deployment.
type Router struct {
	HTTP   Source
	GridFS Source
}

func (r Router) Fetch(ctx context.Context, ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	lower := strings.ToLower(ref)
	var src Source
	switch {
	case ref == "":
		return nil, fmt.Errorf("empty photo ref: %w", sentinel.ErrNotFound)
	case strings.HasPrefix(lower, gridFSPrefix):
		src = r.GridFS
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		src = r.HTTP
	default:
		return nil, fmt.Errorf("unsupported photo ref %q: %w", ref, sentinel.ErrNotFound)
	}
	if src == nil {
		return nil, fmt.Errorf("no photo source configured for %q: %w", ref, sentinel.ErrUnavailable)
	}
	return src.Fetch(ctx, ref)
}
