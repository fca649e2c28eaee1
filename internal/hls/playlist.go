/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package hls implements a minimal HLS client for live video stations:
// media playlist parsing and a pull session that keeps up with a live
// edge. Master playlists are followed to their first variant.
package hls

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// IsManifestURL reports whether the URL path names an HLS manifest.
func IsManifestURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".m3u8")
}

// Segment is one media segment with its URI resolved against the
// playlist URL.
type Segment struct {
	URI      string
	Sequence int64
	Duration time.Duration
}

// Playlist is a parsed media or master playlist.
type Playlist struct {
	// Variants is non-empty for master playlists and holds resolved
	// variant playlist URIs in declaration order.
	Variants []string

	Segments       []Segment
	MediaSequence  int64
	TargetDuration time.Duration

	// PartTarget is the low-latency partial segment target from
	// EXT-X-PART-INF, zero when the stream does not advertise it.
	PartTarget time.Duration

	// Ended is set for VOD playlists carrying EXT-X-ENDLIST.
	Ended bool
}

// IsMaster reports whether the playlist only references variants.
func (p *Playlist) IsMaster() bool {
	return len(p.Variants) > 0 && len(p.Segments) == 0
}

// Parse reads an M3U8 playlist, resolving segment and variant URIs
// against base.
func Parse(base *url.URL, r io.Reader) (*Playlist, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, fmt.Errorf("parsing playlist: empty input")
	}
	if !strings.HasPrefix(strings.TrimSpace(scanner.Text()), "#EXTM3U") {
		return nil, fmt.Errorf("parsing playlist: missing #EXTM3U header")
	}

	pl := &Playlist{}
	var (
		segDuration time.Duration
		variantNext bool
		seq         int64
	)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "#EXT-X-MEDIA-SEQUENCE:"):
			v, err := strconv.ParseInt(strings.TrimPrefix(line, "#EXT-X-MEDIA-SEQUENCE:"), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parsing media sequence: %w", err)
			}
			pl.MediaSequence = v
			seq = v

		case strings.HasPrefix(line, "#EXT-X-TARGETDURATION:"):
			v, err := strconv.ParseFloat(strings.TrimPrefix(line, "#EXT-X-TARGETDURATION:"), 64)
			if err != nil {
				return nil, fmt.Errorf("parsing target duration: %w", err)
			}
			pl.TargetDuration = time.Duration(v * float64(time.Second))

		case strings.HasPrefix(line, "#EXT-X-PART-INF:"):
			pl.PartTarget = parsePartTarget(strings.TrimPrefix(line, "#EXT-X-PART-INF:"))

		case strings.HasPrefix(line, "#EXTINF:"):
			spec := strings.TrimPrefix(line, "#EXTINF:")
			if i := strings.IndexByte(spec, ','); i >= 0 {
				spec = spec[:i]
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(spec), 64)
			if err != nil {
				return nil, fmt.Errorf("parsing segment duration: %w", err)
			}
			segDuration = time.Duration(v * float64(time.Second))

		case line == "#EXT-X-ENDLIST":
			pl.Ended = true

		case strings.HasPrefix(line, "#EXT-X-STREAM-INF:"):
			variantNext = true

		case strings.HasPrefix(line, "#"):
			// Unhandled tag.

		case variantNext:
			pl.Variants = append(pl.Variants, resolve(base, line))
			variantNext = false

		default:
			pl.Segments = append(pl.Segments, Segment{
				URI:      resolve(base, line),
				Sequence: seq,
				Duration: segDuration,
			})
			seq++
			segDuration = 0
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading playlist: %w", err)
	}
	return pl, nil
}

func parsePartTarget(attrs string) time.Duration {
	for _, attr := range strings.Split(attrs, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(attr), "=")
		if !ok || k != "PART-TARGET" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return time.Duration(f * float64(time.Second))
	}
	return 0
}

func resolve(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
