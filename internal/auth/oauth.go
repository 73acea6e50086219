package auth

import (
	"bufio"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Flow is one interactive OAuth authorization attempt: a loopback
// callback server plus PKCE state. One-shot; build a new Flow per
// attempt.
type Flow struct {
	config       *oauth2.Config
	listener     net.Listener
	state        string
	codeVerifier string
	codeChan     chan string
	errChan      chan error
}

func newFlow(config *oauth2.Config, listener net.Listener, redirectURL string) (*Flow, error) {
	if config == nil {
		return nil, fmt.Errorf("OAuth config not set")
	}
	state, err := randomToken(base64.URLEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	verifier, err := randomToken(base64.RawURLEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}

	cfg := *config
	cfg.RedirectURL = redirectURL
	return &Flow{
		config:       &cfg,
		listener:     listener,
		state:        state,
		codeVerifier: verifier,
		codeChan:     make(chan string, 1),
		errChan:      make(chan error, 1),
	}, nil
}

func newLoopbackFlow(config *oauth2.Config) (*Flow, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start local server: %w", err)
	}
	addr := listener.Addr().(*net.TCPAddr)
	return newFlow(config, listener, fmt.Sprintf("http://127.0.0.1:%d/callback", addr.Port))
}

func newManualFlow(config *oauth2.Config) (*Flow, error) {
	return newFlow(config, nil, fmt.Sprintf("http://127.0.0.1:%d/callback", pickManualPort()))
}

func pickManualPort() int {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err == nil {
		addr := listener.Addr().(*net.TCPAddr)
		_ = listener.Close()
		return addr.Port
	}
	return 8765
}

// AuthURL returns the consent URL to open in a browser.
func (f *Flow) AuthURL() string {
	return f.config.AuthCodeURL(
		f.state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("code_challenge", codeChallengeS256(f.codeVerifier)),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

func (f *Flow) startCallbackServer(ctx context.Context) {
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", f.handleCallback)

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(f.listener); err != http.ErrServerClosed {
			f.errChan <- err
		}
	}()
	go func() {
		<-ctx.Done()
		server.Close()
	}()
}

func (f *Flow) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("state") != f.state {
		f.errChan <- fmt.Errorf("invalid state parameter")
		http.Error(w, "Invalid state", http.StatusBadRequest)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		f.errChan <- fmt.Errorf("auth error: %s", r.URL.Query().Get("error"))
		http.Error(w, "No code received", http.StatusBadRequest)
		return
	}
	f.codeChan <- code
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, `<html><body><h1>Authentication successful!</h1><p>You can close this window.</p></body></html>`)
}

func (f *Flow) waitForCode(timeout time.Duration) (string, error) {
	select {
	case code := <-f.codeChan:
		return code, nil
	case err := <-f.errChan:
		return "", err
	case <-time.After(timeout):
		return "", fmt.Errorf("authentication timed out")
	}
}

// exchange trades the authorization code for a token.
func (f *Flow) exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := f.config.Exchange(
		ctx,
		code,
		oauth2.SetAuthURLParam("code_verifier", f.codeVerifier),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	return token, nil
}

// Close releases the callback listener.
func (f *Flow) Close() {
	if f.listener != nil {
		f.listener.Close()
	}
}

// AuthOptions controls interactive authentication behavior.
type AuthOptions struct {
	NoBrowser bool
}

// Authenticate runs the interactive OAuth flow and persists the
// resulting token. Falls back to a manual copy-paste flow on headless
// hosts or when no browser can be opened.
func (m *Manager) Authenticate(ctx context.Context, openBrowser func(string) error, opts AuthOptions) error {
	if m.config == nil {
		return fmt.Errorf("OAuth config not set")
	}

	if opts.NoBrowser || isHeadlessEnv() {
		return m.authenticateManually(ctx)
	}

	flow, err := newLoopbackFlow(m.config)
	if err != nil {
		return m.authenticateManually(ctx)
	}
	defer flow.Close()

	authURL := flow.AuthURL()
	fmt.Printf("Opening browser for authentication...\n")
	fmt.Printf("If the browser doesn't open, visit: %s\n", authURL)

	flow.startCallbackServer(ctx)

	if err := openBrowser(authURL); err != nil {
		fmt.Printf("Failed to open browser: %v\n", err)
		fmt.Printf("Switching to manual authentication.\n")
		return m.authenticateManually(ctx)
	}

	code, err := flow.waitForCode(5 * time.Minute)
	if err != nil {
		return err
	}
	token, err := flow.exchange(ctx, code)
	if err != nil {
		return err
	}
	if err := m.store.Save(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (m *Manager) authenticateManually(ctx context.Context) error {
	flow, err := newManualFlow(m.config)
	if err != nil {
		return err
	}
	fmt.Printf("Manual authentication required.\n")
	fmt.Printf("Open this URL in a browser and approve access:\n%s\n", flow.AuthURL())
	fmt.Printf("After approval, you will be redirected to a localhost URL.\n")
	fmt.Printf("Copy the `code` parameter from the address bar and paste it here.\n")
	fmt.Print("Authorization code: ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return err
	}
	token, err := flow.exchange(ctx, strings.TrimSpace(line))
	if err != nil {
		return err
	}
	if err := m.store.Save(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func randomToken(enc *base64.Encoding) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return enc.EncodeToString(b), nil
}

func codeChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func isHeadlessEnv() bool {
	if os.Getenv("VAULTDRIVE_NO_BROWSER") != "" {
		return true
	}
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return true
	}
	if runtime.GOOS != "windows" && runtime.GOOS != "darwin" &&
		os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		return true
	}
	if os.Getenv("SSH_CONNECTION") != "" || os.Getenv("SSH_TTY") != "" {
		return true
	}
	return false
}
