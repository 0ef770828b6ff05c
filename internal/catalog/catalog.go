// Package catalog reads the channel-catalog boundary: the set of channel
// identifiers actually present in the playable playlist, used to scope the
// merger's output. The playlist itself is produced elsewhere.
package catalog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

var tvgIDAttr = regexp.MustCompile(`tvg-id="([^"]*)"`)

// AllowedIDs extracts the tvg-id set from an M3U playlist file.
func AllowedIDs(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open playlist: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return ParseAllowedIDs(f)
}

// ParseAllowedIDs scans #EXTINF lines for tvg-id attributes.
func ParseAllowedIDs(r io.Reader) (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "#EXTINF") {
			continue
		}
		if match := tvgIDAttr.FindStringSubmatch(line); len(match) == 2 && match[1] != "" {
			ids[match[1]] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan playlist: %w", err)
	}
	return ids, nil
}
