package history

import (
	"sync"
	"time"

	"github.com/soyeahso/campusbot/internal/domain"
)

// Entry is one row of the history panel.
type Entry struct {
	ID        string    `json:"id"`
	Summary   string    `json:"summary"`
	DateLabel string    `json:"dateLabel"`
	Timestamp time.Time `json:"timestamp"`
	Current   bool      `json:"current"`
	Messages  int       `json:"messages"`
}

// Viewport is the scrollable list the panel renders into.
type Viewport interface {
	ScrollOffset() int
	SetScrollOffset(offset int)
}

// Sessions is the session owner the panel drives.
type Sessions interface {
	Collection() domain.Collection
	CurrentID() string
	SelectSession(id string) bool
	DeleteSession(id string) error
	NewSession()
}

// Panel lists sessions newest first and forwards selection, deletion and
// creation to the session owner. Each mutation keeps the list's scroll
// position: the offset is captured before the change and restored on the
// next Render.
type Panel struct {
	sessions Sessions

	mu       sync.Mutex
	viewport Viewport
	open     bool
	restore  []int
}

// NewPanel creates a closed panel over sessions.
func NewPanel(sessions Sessions) *Panel {
	return &Panel{sessions: sessions}
}

// Attach sets the viewport whose scroll offset is preserved.
func (p *Panel) Attach(v Viewport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.viewport = v
}

// Entries returns the panel rows sorted by timestamp descending.
func (p *Panel) Entries(now time.Time) []Entry {
	current := p.sessions.CurrentID()
	sorted := p.sessions.Collection().Sorted()

	entries := make([]Entry, 0, len(sorted))
	for _, s := range sorted {
		entries = append(entries, Entry{
			ID:        s.ID,
			Summary:   Summary(s),
			DateLabel: DateLabel(s.Timestamp, now),
			Timestamp: s.Timestamp,
			Current:   s.ID == current,
			Messages:  len(s.Messages),
		})
	}
	return entries
}

// IsOpen reports whether the overlay presentation is shown.
func (p *Panel) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// Open shows the overlay.
func (p *Panel) Open() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = true
}

// Close hides the overlay.
func (p *Panel) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = false
}

// Select makes id the current session and closes the overlay.
func (p *Panel) Select(id string) bool {
	p.Capture()
	ok := p.sessions.SelectSession(id)
	p.Close()
	return ok
}

// Delete removes a session immediately.
func (p *Panel) Delete(id string) error {
	p.Capture()
	return p.sessions.DeleteSession(id)
}

// New starts a fresh current session.
func (p *Panel) New() {
	p.Capture()
	p.sessions.NewSession()
}

// Render applies scroll restores queued by earlier mutations. Front-ends
// call it after redrawing the list.
func (p *Panel) Render() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.viewport == nil || len(p.restore) == 0 {
		p.restore = nil
		return
	}
	p.viewport.SetScrollOffset(p.restore[0])
	p.restore = nil
}

// Capture queues the current scroll offset for the next Render. The
// owner calls it before a change that reorders the list on its own.
func (p *Panel) Capture() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.viewport == nil {
		return
	}
	p.restore = append(p.restore, p.viewport.ScrollOffset())
}
