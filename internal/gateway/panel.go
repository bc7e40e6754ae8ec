package gateway

import "sync"

// scrollParams carries the history list offset a page reports alongside
// panel and session requests.
type scrollParams struct {
	ScrollOffset *int `json:"scrollOffset,omitempty"`
}

// pageViewport is the history list as rendered by connected pages. It
// remembers the last offset a page reported and pushes restores back as
// panel.restore events.
type pageViewport struct {
	mu      sync.Mutex
	offset  int
	restore func(offset int)
}

func newPageViewport(restore func(offset int)) *pageViewport {
	return &pageViewport{restore: restore}
}

func (v *pageViewport) ScrollOffset() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.offset
}

func (v *pageViewport) SetScrollOffset(offset int) {
	v.mu.Lock()
	v.offset = offset
	v.mu.Unlock()
	v.restore(offset)
}

// report records an offset sent by a page. Nil leaves the last one.
func (v *pageViewport) report(offset *int) {
	if offset == nil {
		return
	}
	v.mu.Lock()
	v.offset = max(*offset, 0)
	v.mu.Unlock()
}
