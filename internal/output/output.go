package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/johnquangdev/minutemaestro/internal/domain/entities"
)

type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) Connecting() {
	fmt.Fprintf(f.w, "🔌 Connecting to the transcription backend...\n")
}

func (f *Formatter) RecordingStarted(sessionID string) {
	fmt.Fprintf(f.w, "🎙️  Recording (session %s). Type p to pause, r to resume, q to stop.\n", sessionID)
}

func (f *Formatter) Paused() {
	fmt.Fprintf(f.w, "⏸️  Paused\n")
}

func (f *Formatter) Resumed() {
	fmt.Fprintf(f.w, "▶️  Recording\n")
}

func (f *Formatter) RecordingStopped(duration time.Duration, entries int) {
	fmt.Fprintf(f.w, "⏹️  Recording stopped (%s, %d lines)\n", formatDuration(duration), entries)
}

func (f *Formatter) TranscriptLine(start time.Time, e entities.TranscriptEntry) {
	speaker := e.Speaker
	if speaker == "" {
		speaker = "Speaker"
	}
	fmt.Fprintf(f.w, "  [%s %s] %s\n", formatOffset(e.Timestamp.Sub(start)), speaker, e.Text)
}

func (f *Formatter) Summarizing() {
	fmt.Fprintf(f.w, "🤖 Generating minutes...\n")
}

func (f *Formatter) MinutesSaved(path string) {
	fmt.Fprintf(f.w, "✅ Minutes saved: %s\n", path)
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠️  %s\n", msg)
}

func (f *Formatter) SetupCheck(name string, ok bool, detail string) {
	if ok {
		fmt.Fprintf(f.w, "  ✅ %s: %s\n", name, detail)
	} else {
		fmt.Fprintf(f.w, "  ❌ %s: %s\n", name, detail)
	}
}

// Minutes writes the minutes as markdown
func (f *Formatter) Minutes(m *entities.MeetingMinutes) {
	fmt.Fprint(f.w, MinutesMarkdown(m))
}

// MinutesMarkdown renders minutes as a markdown document
func MinutesMarkdown(m *entities.MeetingMinutes) string {
	var sb strings.Builder
	sb.WriteString("# Meeting Minutes\n\n")
	if !m.GeneratedAt.IsZero() {
		fmt.Fprintf(&sb, "_Generated %s_\n\n", m.GeneratedAt.Format("2006-01-02 15:04"))
	}

	sb.WriteString("## Summary\n\n")
	sb.WriteString(strings.TrimSpace(m.Summary))
	sb.WriteString("\n\n## Key Decisions\n\n")
	if len(m.Decisions) == 0 {
		sb.WriteString("_None_\n")
	}
	for _, d := range m.Decisions {
		fmt.Fprintf(&sb, "- %s\n", d)
	}

	sb.WriteString("\n## Action Items\n\n")
	if len(m.ActionItems) == 0 {
		sb.WriteString("_None_\n")
	}
	for _, item := range m.ActionItems {
		if item.Owner != "" {
			fmt.Fprintf(&sb, "- [ ] **%s**: %s\n", item.Owner, item.Task)
		} else {
			fmt.Fprintf(&sb, "- [ ] %s\n", item.Task)
		}
	}
	return sb.String()
}

func formatOffset(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
