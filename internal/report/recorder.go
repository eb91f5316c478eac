package report

import (
	"strings"
	"sync"

	"github.com/elliotchance/orderedmap/v2"
)

// Kind identifies what produced a recorded Entry.
type Kind int

const (
	KindMessage Kind = iota
	KindBanner
	KindRule
	KindKeyValue
	KindBlank
)

// Entry is one recorded report element.
type Entry struct {
	Kind  Kind
	Level Level
	Text  string
}

// Recorder is a Sink that keeps everything in memory. Tests use it to
// assert on report output without parsing terminal text.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

var _ Sink = (*Recorder)(nil)

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

// Banner implements Sink.
func (r *Recorder) Banner(title string) { r.add(Entry{Kind: KindBanner, Text: title}) }

// Rule implements Sink.
func (r *Recorder) Rule() { r.add(Entry{Kind: KindRule}) }

// Emit implements Sink.
func (r *Recorder) Emit(level Level, msg string) {
	r.add(Entry{Kind: KindMessage, Level: level, Text: msg})
}

// KeyValues implements Sink. Each pair is recorded as "key: value".
func (r *Recorder) KeyValues(title string, kv *orderedmap.OrderedMap[string, string]) {
	if title != "" {
		r.add(Entry{Kind: KindMessage, Level: LevelInfo, Text: title})
	}
	for el := kv.Front(); el != nil; el = el.Next() {
		r.add(Entry{Kind: KindKeyValue, Text: el.Key + ": " + el.Value})
	}
}

// Blank implements Sink.
func (r *Recorder) Blank() { r.add(Entry{Kind: KindBlank}) }

// Entries returns a copy of everything recorded.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Messages returns the text of messages emitted at level.
func (r *Recorder) Messages(level Level) []string {
	var out []string
	for _, e := range r.Entries() {
		if e.Kind == KindMessage && e.Level == level {
			out = append(out, e.Text)
		}
	}
	return out
}

// Banners returns the banner titles in order.
func (r *Recorder) Banners() []string {
	var out []string
	for _, e := range r.Entries() {
		if e.Kind == KindBanner {
			out = append(out, e.Text)
		}
	}
	return out
}

// Contains reports whether any recorded text contains substr.
func (r *Recorder) Contains(substr string) bool {
	for _, e := range r.Entries() {
		if strings.Contains(e.Text, substr) {
			return true
		}
	}
	return false
}
