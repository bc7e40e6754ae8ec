package gateway

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/soyeahso/campusbot/internal/chat"
	"github.com/soyeahso/campusbot/internal/config"
	"github.com/soyeahso/campusbot/internal/llm"
	"github.com/soyeahso/campusbot/internal/logging"
	"github.com/soyeahso/campusbot/internal/speech"
	"github.com/soyeahso/campusbot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- isAllowedConfigPath tests ---

func TestIsAllowedConfigPath(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		// Allowed paths
		{"gateway.port", true},
		{"gateway.mode", true},
		{"gateway.bind", true},
		{"gateway.customBindHost", true},
		{"gateway.browser", true},
		{"gateway.browser.allowedOrigins", true},
		{"generation.model", true},
		{"generation.maxTokens", true},
		{"generation.temperature", true},
		{"logging", true},
		{"logging.level", true},
		{"speech", true},
		{"speech.output.enabled", true},
		// Blocked paths (not in allowlist)
		{"gateway.auth", false},
		{"gateway.auth.mode", false},
		{"gateway.auth.token", false},
		{"gateway.auth.password", false},
		{"gateway.tls", false},
		{"gateway.tls.certPath", false},
		{"gateway.portal", false},
		{"generation", false},
		{"generation.apiKey", false},
		{"generation.endpoint", false},
		{"generation.instructionPrefix", false},
		{"storage", false},
		{"storage.path", false},
		{"hooks.messageAppended", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, isAllowedConfigPath(tt.path))
		})
	}
}

// --- config RPC guards ---

func TestConfigRPCForbiddenPaths(t *testing.T) {
	conn := authenticatedConn(t)

	resp, _ := call(t, conn, "f-1", "config.get", configGetParams{Key: "generation.apiKey"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "forbidden", resp.Error.Code)

	resp, _ = call(t, conn, "f-2", "config.set", configSetParams{Key: "gateway.auth.token", Value: "x"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "forbidden", resp.Error.Code)
}

func TestConfigRPCMissingKey(t *testing.T) {
	conn := authenticatedConn(t)

	resp, _ := call(t, conn, "m-1", "config.get", configGetParams{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "invalid_params", resp.Error.Code)

	resp, _ = call(t, conn, "m-2", "config.get", configGetParams{Key: "logging.level"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "not_found", resp.Error.Code)
}

func TestConfigRPCSetNested(t *testing.T) {
	conn := authenticatedConn(t)

	resp, _ := call(t, conn, "n-1", "config.set", configSetParams{Key: "speech.output.enabled", Value: true})
	require.True(t, *resp.OK)

	resp, _ = call(t, conn, "n-2", "config.get", configGetParams{Key: "speech"})
	require.True(t, *resp.OK)
	result := decode[map[string]any](t, resp.Payload)
	assert.Equal(t, map[string]any{"output": map[string]any{"enabled": true}}, result["value"])
}

func TestConfigRPCSetRejectsInvalidValue(t *testing.T) {
	conn := authenticatedConn(t)

	resp, _ := call(t, conn, "v-1", "config.set", configSetParams{Key: "gateway.port", Value: 70000})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "invalid_params", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "gateway.port")

	resp, _ = call(t, conn, "v-2", "config.get", configGetParams{Key: "gateway.port"})
	require.True(t, *resp.OK)
	assert.Equal(t, float64(18790), decode[map[string]any](t, resp.Payload)["value"])
}

func TestConfigRPCSetPersists(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	rig := newTestRig(t, WithConfigPath(file))
	conn := dial(t, rig.ts)

	resp, _ := call(t, conn, "p-1", "config.set", configSetParams{Key: "generation.model", Value: "gpt-4o"})
	require.True(t, *resp.OK)
	assert.Equal(t, true, decode[map[string]any](t, resp.Payload)["restartRequired"])

	cfg, err := config.Load(file)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.Generation.Model)
	assert.Equal(t, 18790, cfg.Gateway.Port)
}

// --- chat RPC guards ---

func TestSessionSelectRequiresID(t *testing.T) {
	conn := authenticatedConn(t)

	resp, _ := call(t, conn, "i-1", "session.select", sessionIDParams{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "invalid_params", resp.Error.Code)
}

func TestSpeechErrorRequiresKind(t *testing.T) {
	r := newTestRig(t)
	conn := dial(t, r.ts)

	resp, _ := call(t, conn, "k-1", "speech.capabilities", PageSpeech{Recognition: true})
	require.True(t, *resp.OK)

	resp, _ = call(t, conn, "k-2", "speech.error", speechErrorParams{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "invalid_params", resp.Error.Code)
}

func TestSendAsyncLeavesTimeoutToTransport(t *testing.T) {
	log := logging.New(nil, "silent")
	hasDeadline := true
	reg := llm.NewRegistry(log)
	reg.Register("mock", &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			_, hasDeadline = ctx.Deadline()
			return &llm.CompletionResponse{Content: "Room 101"}, nil
		},
	})
	reg.SetFallback("mock")

	sessions := store.NewSessionStore(store.NewKVPort(store.NewMemoryKV(), config.DefaultStorageKey), log)
	widget := chat.NewWidget(sessions, reg, speech.Capabilities{}, nil, chat.Options{}, log)
	srv := New(config.Defaults(), log, WithWidget(widget))

	srv.sendAsync("Where is the registrar")
	srv.Wait()

	assert.False(t, hasDeadline)
	assert.Len(t, widget.Current().Messages, 2)
}
