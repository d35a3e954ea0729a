package streaming

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"streamgate/pkg/optimize"
)

// Rewrite returns the playlist body with every segment URI replaced by
// a relative, tokenized URL. Tag and comment lines pass through
// untouched. issue is invoked once, on the first URI line; the same
// token authorizes every segment of this render.
func Rewrite(body string, issue func() (string, error)) (string, error) {
	var token string

	lines := strings.Split(body, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if token == "" {
			issued, err := issue()
			if err != nil {
				return "", fmt.Errorf("issue segment token: %w", err)
			}
			token = issued
		}

		lines[i] = "segments/" + trimmed + "?token=" + url.QueryEscape(token)
	}

	return strings.Join(lines, "\n"), nil
}

var segmentBufPool = optimize.NewBytePool(64 * 1024)

// CopySegment streams a segment body using a pooled buffer.
func CopySegment(dst io.Writer, src io.Reader) (int64, error) {
	buf := segmentBufPool.Get()
	defer segmentBufPool.Put(buf)
	return io.CopyBuffer(dst, src, buf)
}
