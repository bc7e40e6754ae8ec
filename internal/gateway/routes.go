package gateway

import (
	"net/http"
	"strings"
	"time"

	"github.com/soyeahso/campusbot/internal/config"
	"github.com/soyeahso/campusbot/internal/metrics"
	"github.com/soyeahso/campusbot/internal/speech"
)

// safeConfigPrefixes lists config path prefixes that can be read and
// written via RPC. All other paths are denied by default (allowlist).
var safeConfigPrefixes = []string{
	"gateway.port",
	"gateway.mode",
	"gateway.bind",
	"gateway.customBindHost",
	"gateway.browser",
	"generation.model",
	"generation.maxTokens",
	"generation.temperature",
	"logging",
	"speech",
}

func isAllowedConfigPath(key string) bool {
	for _, prefix := range safeConfigPrefixes {
		if key == prefix || strings.HasPrefix(key, prefix+".") {
			return true
		}
	}
	return false
}

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.Handle("GET /metrics", metrics.Handler())

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}

// registerRPCHandlers sets up all JSON-RPC method handlers.
func (s *Server) registerRPCHandlers() {
	s.Handle("health", s.rpcHealth)
	s.Handle("config.get", s.rpcConfigGet)
	s.Handle("config.set", s.rpcConfigSet)

	if s.widget != nil {
		s.Handle("chat.state", s.rpcChatState)
		s.Handle("chat.send", s.rpcChatSend)
		s.Handle("chat.draft", s.rpcChatDraft)
		s.Handle("session.list", s.rpcSessionList)
		s.Handle("session.new", s.rpcSessionNew)
		s.Handle("session.select", s.rpcSessionSelect)
		s.Handle("session.delete", s.rpcSessionDelete)
		s.Handle("panel.open", s.rpcPanelOpen)
		s.Handle("panel.close", s.rpcPanelClose)
		s.Handle("panel.scroll", s.rpcPanelScroll)
		s.Handle("voice.toggle", s.rpcVoiceToggle)
		s.Handle("speech.start", s.rpcSpeechStart)
		s.Handle("speech.stop", s.rpcSpeechStop)
	}

	if s.widget != nil && s.speech != nil {
		s.Handle("speech.capabilities", s.rpcSpeechCapabilities)
		s.Handle("speech.result", s.rpcSpeechResult)
		s.Handle("speech.error", s.rpcSpeechError)
		s.Handle("speech.end", s.rpcSpeechEnd)
		s.Handle("speech.permission", s.rpcSpeechPermission)
	}
}

// Built-in RPC handlers

func (s *Server) rpcHealth(rc *RequestContext) {
	resp := HealthResponse{
		Status:  "ok",
		Version: s.version,
		Clients: s.clients.Count(),
	}
	if s.widget != nil {
		resp.Sessions = s.widget.Collection().Len()
	}
	if !s.startedAt.IsZero() {
		resp.UptimeMs = time.Since(s.startedAt).Milliseconds()
	}
	rc.Respond(resp)
}

type configGetParams struct {
	Key string `json:"key"`
}

func (s *Server) rpcConfigGet(rc *RequestContext) {
	var p configGetParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if p.Key == "" {
		rc.RespondError("invalid_params", "key is required")
		return
	}
	if !isAllowedConfigPath(p.Key) {
		rc.RespondError("forbidden", "access denied for config path: "+p.Key)
		return
	}

	path, err := config.ParseConfigPath(p.Key)
	if err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}

	s.mu.RLock()
	val, ok := config.GetValueAtPath(s.configRaw, path)
	s.mu.RUnlock()

	if !ok {
		rc.RespondError("not_found", "key not found: "+p.Key)
		return
	}
	rc.Respond(map[string]any{"key": p.Key, "value": val})
}

type configSetParams struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

func (s *Server) rpcConfigSet(rc *RequestContext) {
	var p configSetParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if p.Key == "" {
		rc.RespondError("invalid_params", "key is required")
		return
	}
	if !isAllowedConfigPath(p.Key) {
		rc.RespondError("forbidden", "cannot modify config path: "+p.Key)
		return
	}

	path, err := config.ParseConfigPath(p.Key)
	if err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := config.CloneRaw(s.configRaw)
	config.SetValueAtPath(next, path, p.Value)
	if err := config.CheckRaw(next); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if s.configPath != "" {
		if err := config.SaveRaw(s.configPath, next); err != nil {
			s.log.Error().Err(err).Str("key", p.Key).Msg("failed to save config")
			rc.RespondError("storage_error", "saving config: "+err.Error())
			return
		}
	}
	s.configRaw = next

	// The running gateway keeps the config it started with.
	rc.Respond(map[string]any{"key": p.Key, "value": p.Value, "restartRequired": true})
}

// Chat

// ChatSnapshot is the full widget view a page renders on connect.
type ChatSnapshot struct {
	State    any `json:"state"`
	Session  any `json:"session"`
	Sessions any `json:"sessions"`
}

func (s *Server) snapshot() ChatSnapshot {
	return ChatSnapshot{
		State:    s.widget.State(),
		Session:  s.widget.Current(),
		Sessions: s.widget.Panel().Entries(time.Now()),
	}
}

func (s *Server) rpcChatState(rc *RequestContext) {
	rc.Respond(s.snapshot())
}

type textParams struct {
	Text string `json:"text"`
}

func (s *Server) rpcChatSend(rc *RequestContext) {
	var p textParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}

	accepted := strings.TrimSpace(p.Text) != ""
	rc.Respond(map[string]any{"accepted": accepted})
	s.sendAsync(p.Text)
}

// sendAsync runs a send off the read loop; its progress reaches pages as
// chat.message and chat.state events.
func (s *Server) sendAsync(text string) {
	ctx := s.baseContext()
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.widget.Send(ctx, text)
	}()
}

func (s *Server) rpcChatDraft(rc *RequestContext) {
	var p textParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	s.widget.SetDraft(p.Text)
	rc.Respond(map[string]any{"ok": true})
}

// Sessions

type sessionIDParams struct {
	ID string `json:"id"`
	scrollParams
}

func (s *Server) rpcSessionList(rc *RequestContext) {
	rc.Respond(map[string]any{
		"sessions":  s.widget.Panel().Entries(time.Now()),
		"currentId": s.widget.CurrentID(),
	})
}

func (s *Server) rpcSessionNew(rc *RequestContext) {
	var p scrollParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	s.viewport.report(p.ScrollOffset)
	s.widget.Panel().New()
	rc.Respond(map[string]any{"sessionId": s.widget.CurrentID()})
}

func (s *Server) rpcSessionSelect(rc *RequestContext) {
	var p sessionIDParams
	if err := rc.Params(&p); err != nil || p.ID == "" {
		rc.RespondError("invalid_params", "id is required")
		return
	}
	s.viewport.report(p.ScrollOffset)
	if !s.widget.Panel().Select(p.ID) {
		rc.RespondError("not_found", "session not found: "+p.ID)
		return
	}
	rc.Respond(s.widget.Current())
}

func (s *Server) rpcSessionDelete(rc *RequestContext) {
	var p sessionIDParams
	if err := rc.Params(&p); err != nil || p.ID == "" {
		rc.RespondError("invalid_params", "id is required")
		return
	}
	s.viewport.report(p.ScrollOffset)
	if err := s.widget.Panel().Delete(p.ID); err != nil {
		rc.RespondError("storage_error", err.Error())
		return
	}
	rc.Respond(map[string]any{"deleted": p.ID, "currentId": s.widget.CurrentID()})
}

func (s *Server) rpcPanelOpen(rc *RequestContext) {
	s.reportScroll(rc)
	s.widget.OpenHistory()
	rc.Respond(map[string]any{"open": true})
}

func (s *Server) rpcPanelClose(rc *RequestContext) {
	s.reportScroll(rc)
	s.widget.CloseHistory()
	rc.Respond(map[string]any{"open": false})
}

// rpcPanelScroll records the history list offset while a page scrolls.
func (s *Server) rpcPanelScroll(rc *RequestContext) {
	var p scrollParams
	if err := rc.Params(&p); err != nil || p.ScrollOffset == nil {
		rc.RespondError("invalid_params", "scrollOffset is required")
		return
	}
	s.viewport.report(p.ScrollOffset)
	rc.Respond(map[string]any{"scrollOffset": s.viewport.ScrollOffset()})
}

// reportScroll takes an optional scrollOffset from a request that carries
// no other params.
func (s *Server) reportScroll(rc *RequestContext) {
	var p scrollParams
	if rc.Params(&p) == nil {
		s.viewport.report(p.ScrollOffset)
	}
}

// Speech

func (s *Server) rpcVoiceToggle(rc *RequestContext) {
	rc.Respond(map[string]any{"enabled": s.widget.ToggleVoice()})
}

func (s *Server) rpcSpeechStart(rc *RequestContext) {
	if !s.widget.Input().Available() {
		rc.RespondError("unavailable", speech.MsgUnavailable)
		return
	}
	rc.Respond(map[string]any{"accepted": true})

	// Start may wait on the page's permission answer, which arrives on
	// this connection's read loop.
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := s.widget.StartListening(s.baseContext()); err != nil {
			s.log.Warn().Err(err).Msg("speech start failed")
		}
	}()
}

func (s *Server) rpcSpeechStop(rc *RequestContext) {
	s.widget.StopListening()
	rc.Respond(map[string]any{"ok": true})
}

func (s *Server) rpcSpeechCapabilities(rc *RequestContext) {
	var p PageSpeech
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if p.Recognition || p.Synthesis {
		s.speech.Attach(rc.Client.ConnID, p)
	} else {
		s.speech.Detach(rc.Client.ConnID)
	}
	if !s.widget.Input().Available() {
		s.widget.Input().AnnounceIfUnavailable()
	}

	st := s.widget.State()
	rc.Respond(st)
	s.broadcast(EventChatState, st)
}

// requireOwner rejects speech callbacks from pages that do not lend the engine.
func (s *Server) requireOwner(rc *RequestContext) bool {
	if !s.speech.IsOwner(rc.Client.ConnID) {
		rc.RespondError("forbidden", "connection does not own the speech engine")
		return false
	}
	return true
}

type speechResultParams struct {
	Transcript string `json:"transcript"`
}

func (s *Server) rpcSpeechResult(rc *RequestContext) {
	if !s.requireOwner(rc) {
		return
	}
	var p speechResultParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	rc.Respond(map[string]any{"ok": true})

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.speech.Result(p.Transcript)
	}()
}

type speechErrorParams struct {
	Error string `json:"error"`
}

func (s *Server) rpcSpeechError(rc *RequestContext) {
	if !s.requireOwner(rc) {
		return
	}
	var p speechErrorParams
	if err := rc.Params(&p); err != nil || p.Error == "" {
		rc.RespondError("invalid_params", "error is required")
		return
	}
	s.speech.Error(speech.ErrorKind(p.Error))
	rc.Respond(map[string]any{"ok": true})
}

func (s *Server) rpcSpeechEnd(rc *RequestContext) {
	if !s.requireOwner(rc) {
		return
	}
	s.speech.End()
	rc.Respond(map[string]any{"ok": true})
}

type speechPermissionParams struct {
	Granted bool `json:"granted"`
}

func (s *Server) rpcSpeechPermission(rc *RequestContext) {
	if !s.requireOwner(rc) {
		return
	}
	var p speechPermissionParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	s.speech.Permission(p.Granted)
	rc.Respond(map[string]any{"ok": true})
}
