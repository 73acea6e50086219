package auth

import (
	"strings"
	"testing"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

func testConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID: "client",
		Scopes:   []string{"scope"},
		Endpoint: google.Endpoint,
	}
}

func TestFlowAuthURLCarriesPKCE(t *testing.T) {
	flow, err := newFlow(testConfig(), nil, "http://127.0.0.1:9999/callback")
	if err != nil {
		t.Fatalf("newFlow failed: %v", err)
	}
	url := flow.AuthURL()

	for _, param := range []string{"code_challenge=", "code_challenge_method=S256", "state=", "access_type=offline"} {
		if !strings.Contains(url, param) {
			t.Errorf("auth URL missing %q: %s", param, url)
		}
	}
}

func TestFlowStateAndVerifierAreUnique(t *testing.T) {
	a, err := newFlow(testConfig(), nil, "http://127.0.0.1:9999/callback")
	if err != nil {
		t.Fatalf("newFlow failed: %v", err)
	}
	b, err := newFlow(testConfig(), nil, "http://127.0.0.1:9999/callback")
	if err != nil {
		t.Fatalf("newFlow failed: %v", err)
	}
	if a.state == b.state {
		t.Error("two flows share a state value")
	}
	if a.codeVerifier == b.codeVerifier {
		t.Error("two flows share a code verifier")
	}
}

func TestCodeChallengeS256(t *testing.T) {
	// RFC 7636 appendix B reference vector.
	got := codeChallengeS256("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk")
	want := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
	if got != want {
		t.Errorf("challenge = %q, want %q", got, want)
	}
}
