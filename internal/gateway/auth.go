package gateway

import (
	"crypto/subtle"
	"os"

	"github.com/google/uuid"
	"github.com/soyeahso/campusbot/internal/config"
)

// AuthResult is the outcome of a page's connect credentials.
type AuthResult struct {
	OK     bool   `json:"ok"`
	Method string `json:"method,omitempty"` // "token" | "password"
	Reason string `json:"reason,omitempty"`
}

// ResolvedAuth is the credential a page must present to drive the widget.
type ResolvedAuth struct {
	Mode     string
	Token    string
	Password string
	// Generated is set when no token was configured and one was minted
	// for this run. The serve command prints it for the page.
	Generated bool
}

// ResolveAuth picks credentials from config, then CAMPUSBOT_GATEWAY_TOKEN
// and CAMPUSBOT_GATEWAY_PASSWORD. Token mode without any token gets a
// random one so a fresh install can still be reached.
func ResolveAuth(cfg config.GatewayAuth) ResolvedAuth {
	auth := ResolvedAuth{
		Mode:     cfg.Mode,
		Token:    firstNonEmpty(cfg.Token, os.Getenv("CAMPUSBOT_GATEWAY_TOKEN")),
		Password: firstNonEmpty(cfg.Password, os.Getenv("CAMPUSBOT_GATEWAY_PASSWORD")),
	}
	if auth.Mode == "" {
		auth.Mode = "token"
		if auth.Password != "" {
			auth.Mode = "password"
		}
	}
	if auth.Mode == "token" && auth.Token == "" {
		auth.Token = uuid.NewString()
		auth.Generated = true
	}
	return auth
}

// Authorize checks the credentials a page sent with connect.
func Authorize(server ResolvedAuth, page *ConnectAuth) AuthResult {
	if page == nil {
		return AuthResult{Reason: "no credentials provided"}
	}

	var want, got string
	switch server.Mode {
	case "token":
		want, got = server.Token, page.Token
	case "password":
		want, got = server.Password, page.Password
	default:
		return AuthResult{Reason: "unknown auth mode: " + server.Mode}
	}

	switch {
	case want == "":
		return AuthResult{Reason: "server " + server.Mode + " not configured"}
	case got == "":
		return AuthResult{Reason: server.Mode + " required"}
	case !safeEqual(got, want):
		return AuthResult{Reason: server.Mode + "_mismatch"}
	}
	return AuthResult{OK: true, Method: server.Mode}
}

// safeEqual compares in constant time, including when lengths differ.
func safeEqual(a, b string) bool {
	lenMatch := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	cmp := subtle.ConstantTimeCompare([]byte(a), []byte(b))
	return subtle.ConstantTimeSelect(lenMatch, cmp, 0) == 1
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
