package youtube

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURL is returned when no video ID can be found in a URL.
var ErrInvalidURL = errors.New("could not extract a YouTube video ID from URL")

// VideoID extracts the video ID from youtu.be/<id>, youtube.com/watch?v=<id>,
// /embed/<id> and /shorts/<id> URLs.
func VideoID(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidURL, raw, err)
	}
	host := strings.ToLower(u.Host)

	if strings.Contains(host, "youtu.be") {
		if id, _, _ := strings.Cut(strings.TrimLeft(u.Path, "/"), "/"); id != "" {
			return id, nil
		}
	}

	if strings.Contains(host, "youtube.com") {
		if id := u.Query().Get("v"); id != "" {
			return id, nil
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		for i, p := range parts {
			if (p == "embed" || p == "shorts") && i+1 < len(parts) && parts[i+1] != "" {
				return parts[i+1], nil
			}
		}
	}

	return "", fmt.Errorf("%w %q", ErrInvalidURL, raw)
}
