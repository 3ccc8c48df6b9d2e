package session

import (
	"sort"
	"strings"
	"time"

	"github.com/johnquangdev/minutemaestro/internal/domain/entities"
)

// TranscriptAssembler keeps the live transcript ordered by sequence index.
// Callers serialize access; the controller holds its mutex around every call.
type TranscriptAssembler struct {
	entries map[int]*entities.TranscriptEntry
	order   []int
}

// NewTranscriptAssembler creates an empty assembler
func NewTranscriptAssembler() *TranscriptAssembler {
	return &TranscriptAssembler{entries: make(map[int]*entities.TranscriptEntry)}
}

// Apply folds one fragment into the transcript. It returns the resulting entry
// and whether the transcript changed. Fragments for a finalized index, blank
// fragments and negative indices are ignored.
func (a *TranscriptAssembler) Apply(f entities.Fragment, at time.Time) (entities.TranscriptEntry, bool) {
	text := strings.TrimSpace(f.Text)
	if f.SequenceIndex < 0 || text == "" {
		return entities.TranscriptEntry{}, false
	}

	if existing, ok := a.entries[f.SequenceIndex]; ok {
		if existing.IsFinal {
			return *existing, false
		}
		if existing.Text == text && existing.IsFinal == f.IsFinal {
			return *existing, false
		}
		existing.Text = text
		existing.IsFinal = f.IsFinal
		if f.Speaker != "" {
			existing.Speaker = f.Speaker
		}
		return *existing, true
	}

	entry := &entities.TranscriptEntry{
		SequenceIndex: f.SequenceIndex,
		Speaker:       f.Speaker,
		Text:          text,
		IsFinal:       f.IsFinal,
		Timestamp:     at,
	}
	a.entries[f.SequenceIndex] = entry

	pos := sort.SearchInts(a.order, f.SequenceIndex)
	a.order = append(a.order, 0)
	copy(a.order[pos+1:], a.order[pos:])
	a.order[pos] = f.SequenceIndex

	return *entry, true
}

// Snapshot returns the finalized entries in index order
func (a *TranscriptAssembler) Snapshot() []entities.TranscriptEntry {
	out := make([]entities.TranscriptEntry, 0, len(a.order))
	for _, idx := range a.order {
		if e := a.entries[idx]; e.IsFinal {
			out = append(out, *e)
		}
	}
	return out
}

// Entries returns every entry, provisional ones included, in index order
func (a *TranscriptAssembler) Entries() []entities.TranscriptEntry {
	out := make([]entities.TranscriptEntry, 0, len(a.order))
	for _, idx := range a.order {
		out = append(out, *a.entries[idx])
	}
	return out
}

// Len returns the number of entries
func (a *TranscriptAssembler) Len() int {
	return len(a.order)
}

// NextIndex returns one past the highest index seen, or 0 when empty
func (a *TranscriptAssembler) NextIndex() int {
	if len(a.order) == 0 {
		return 0
	}
	return a.order[len(a.order)-1] + 1
}

// Reset clears all entries
func (a *TranscriptAssembler) Reset() {
	a.entries = make(map[int]*entities.TranscriptEntry)
	a.order = nil
}
