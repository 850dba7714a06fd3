package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrEmptyPlaylist is returned when playback is requested with no tracks.
var ErrEmptyPlaylist = errors.New("media: playlist is empty")

// DefaultExtensions are the file types picked up by ScanDir.
var DefaultExtensions = []string{".mp3", ".wma"}

// Playlist is an ordered, immutable list of tracks.
type Playlist struct {
	tracks []Track
}

// NewPlaylist creates a playlist from the given tracks.
func NewPlaylist(tracks ...Track) *Playlist {
	return &Playlist{tracks: append([]Track(nil), tracks...)}
}

// ScanDir builds a playlist from the files in dir whose extension is in exts
// (case-insensitive), sorted by name. A missing directory is an error.
func ScanDir(dir string, exts []string) (*Playlist, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("media: scan %s: %w", dir, err)
	}

	var tracks []Track
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, want := range exts {
			if ext == strings.ToLower(want) {
				tracks = append(tracks, Track(e.Name()))
				break
			}
		}
	}
	sort.Slice(tracks, func(i, j int) bool { return tracks[i] < tracks[j] })
	return &Playlist{tracks: tracks}, nil
}

// Len returns the number of tracks.
func (p *Playlist) Len() int {
	if p == nil {
		return 0
	}
	return len(p.tracks)
}

// Tracks returns a copy of the track list.
func (p *Playlist) Tracks() []Track {
	if p == nil {
		return nil
	}
	return append([]Track(nil), p.tracks...)
}

// At returns the track at index i.
func (p *Playlist) At(i int) (Track, error) {
	if p.Len() == 0 {
		return "", ErrEmptyPlaylist
	}
	if i < 0 || i >= len(p.tracks) {
		return "", fmt.Errorf("media: track index %d out of range [0,%d)", i, len(p.tracks))
	}
	return p.tracks[i], nil
}

// Next returns the index after i, wrapping to 0 past the end.
func (p *Playlist) Next(i int) int {
	n := p.Len()
	if n == 0 {
		return 0
	}
	return (i + 1) % n
}

// Previous returns the index before i, wrapping to the last track.
func (p *Playlist) Previous(i int) int {
	n := p.Len()
	if n == 0 {
		return 0
	}
	return (i - 1 + n) % n
}
