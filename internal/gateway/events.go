package gateway

import (
	"time"

	"github.com/soyeahso/campusbot/internal/chat"
)

// forwardWidgetEvent pushes a widget change to every connected page.
func (s *Server) forwardWidgetEvent(ev chat.Event) {
	switch ev.Type {
	case chat.EventMessage:
		s.broadcast(EventChatMessage, map[string]any{
			"sessionId": ev.SessionID,
			"message":   ev.Message,
		})
	case chat.EventState:
		s.broadcast(EventChatState, ev.State)
	case chat.EventSession:
		s.broadcast(EventChatSession, s.widget.Current())
		s.widget.Panel().Render()
	case chat.EventSessions:
		s.broadcast(EventSessionsChanged, map[string]any{
			"sessions":  s.widget.Panel().Entries(time.Now()),
			"currentId": s.widget.CurrentID(),
		})
		// Pages redraw the list on the events above; queued restores follow.
		s.widget.Panel().Render()
	}
}

func (s *Server) broadcast(event string, payload any) {
	s.clients.Broadcast(event, payload, s.eventSeq.Add(1))
}
