package gmail

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// redirectTimeout bounds how long the CLI flow waits for the browser
// redirect before asking for a pasted code.
const redirectTimeout = 120 * time.Second

// NewService initializes a read-only Gmail service using:
// - Client credentials at <configDir>/client_secret.json
// - Token cache at <configDir>/token.json
// Authorization prompts go to stderr.
func NewService(ctx context.Context, configDir string) (*gmailv1.Service, error) {
	return NewServiceInteractive(ctx, configDir, nil, nil)
}

// NewServiceInteractive is NewService for a UI that owns the terminal. The
// auth URL is sent on uiEvents as a string and a pasted code or redirect URL
// is read from userResponses.
func NewServiceInteractive(ctx context.Context, configDir string, uiEvents chan<- interface{}, userResponses <-chan string) (*gmailv1.Service, error) {
	cfg, err := loadOAuthConfig(configDir)
	if err != nil {
		return nil, err
	}

	tokFile := filepath.Join(configDir, "token.json")
	if tok, err := readToken(tokFile); err == nil {
		if svc, err := newVerifiedService(ctx, cfg, tok); err == nil {
			return svc, nil
		}
		// Token is invalid or revoked; drop it and re-authorize.
		os.Remove(tokFile)
	}

	var tok *oauth2.Token
	if uiEvents != nil && userResponses != nil {
		tok, err = authorizeInteractive(ctx, cfg, uiEvents, userResponses)
	} else {
		tok, err = authorizeCLI(ctx, cfg, os.Stdin, os.Stderr)
	}
	if err != nil {
		return nil, err
	}
	if err := saveToken(tokFile, tok); err != nil {
		return nil, err
	}

	svc, err := gmailv1.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return svc, nil
}

func loadOAuthConfig(configDir string) (*oauth2.Config, error) {
	credPath := filepath.Join(configDir, "client_secret.json")
	b, err := os.ReadFile(credPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials at %s: %w", credPath, err)
	}
	cfg, err := google.ConfigFromJSON(b, gmailv1.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth config: %w", err)
	}
	return cfg, nil
}

// newVerifiedService checks a cached token with a lightweight profile call.
func newVerifiedService(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token) (*gmailv1.Service, error) {
	svc, err := gmailv1.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, tok)))
	if err != nil {
		return nil, err
	}
	if _, err := svc.Users.GetProfile("me").Context(ctx).Do(); err != nil {
		return nil, err
	}
	return svc, nil
}

func readToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		f.Close()
		return fmt.Errorf("write token: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return os.Rename(tmp, path)
}

// loopback captures the OAuth redirect on a random localhost port.
type loopback struct {
	srv      *http.Server
	codes    chan string
	redirect string
}

func startLoopback() (*loopback, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen on loopback: %w", err)
	}
	lb := &loopback{
		codes:    make(chan string, 1),
		redirect: fmt.Sprintf("http://127.0.0.1:%d/", ln.Addr().(*net.TCPAddr).Port),
	}
	mux := http.NewServeMux()
	lb.srv = &http.Server{ReadHeaderTimeout: 5 * time.Second, Handler: mux}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "Missing 'code' parameter", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "Authentication complete. You can close this window.")
		select {
		case lb.codes <- code:
		default:
		}
		go lb.close()
	})
	go func() { _ = lb.srv.Serve(ln) }()
	return lb, nil
}

func (lb *loopback) close() { _ = lb.srv.Shutdown(context.Background()) }

// codeFromInput accepts either a bare authorization code or the full
// redirect URL the browser landed on.
func codeFromInput(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("empty authorization code")
	}
	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		return input, nil
	}
	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("parse redirect URL: %w", err)
	}
	code := u.Query().Get("code")
	if code == "" {
		return "", errors.New("no 'code' parameter found in pasted URL")
	}
	return code, nil
}

func exchange(ctx context.Context, cfg *oauth2.Config, code string) (*oauth2.Token, error) {
	tok, err := cfg.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	return tok, nil
}

func authURL(cfg *oauth2.Config) string {
	return cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// authorizeInteractive waits for either the loopback redirect or a code
// pasted into the UI.
func authorizeInteractive(ctx context.Context, base *oauth2.Config, uiEvents chan<- interface{}, userResponses <-chan string) (*oauth2.Token, error) {
	lb, err := startLoopback()
	if err != nil {
		return nil, err
	}
	defer lb.close()

	cfg := *base
	cfg.RedirectURL = lb.redirect
	uiEvents <- authURL(&cfg)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case code := <-lb.codes:
		return exchange(ctx, &cfg, code)
	case input := <-userResponses:
		code, err := codeFromInput(input)
		if err != nil {
			return nil, err
		}
		return exchange(ctx, &cfg, code)
	}
}

// authorizeCLI opens the browser and waits for the loopback redirect,
// falling back to a code pasted on in.
func authorizeCLI(ctx context.Context, base *oauth2.Config, in io.Reader, out io.Writer) (*oauth2.Token, error) {
	if lb, err := startLoopback(); err == nil {
		cfg := *base
		cfg.RedirectURL = lb.redirect
		u := authURL(&cfg)
		fmt.Fprintln(out, "A browser window will open. If it does not, copy this URL:")
		fmt.Fprintln(out, u)
		_ = OpenBrowser(u)
		fmt.Fprintf(out, "Waiting for redirect on %s ...\n", lb.redirect)

		select {
		case <-ctx.Done():
			lb.close()
			return nil, ctx.Err()
		case code := <-lb.codes:
			lb.close()
			fmt.Fprintln(out, "Exchanging code for token...")
			return exchange(ctx, &cfg, code)
		case <-time.After(redirectTimeout):
			lb.close()
			fmt.Fprintln(out, "Timeout waiting for redirect; falling back to manual paste.")
		}
	}

	fmt.Fprintln(out, "Open this URL in your browser to authorize pledgetally:")
	fmt.Fprintln(out, authURL(base))
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Paste the AUTH CODE itself or the FULL redirect URL here, then press Enter.")
	fmt.Fprint(out, "> ")

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 1024), 1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read auth code: %w", err)
		}
		return nil, errors.New("empty authorization code")
	}
	code, err := codeFromInput(sc.Text())
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(out, "Exchanging code for token...")
	return exchange(ctx, base, code)
}
