package msgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

// ErrNotLoggedIn is returned when no Graph token has been saved yet.
var ErrNotLoggedIn = errors.New("not signed in to Microsoft Graph (run: mlog outlook login)")

var requiredScopes = []string{
	"https://graph.microsoft.com/Calendars.ReadWrite",
	"offline_access",
}

const (
	keyringService = "mlog"
	keyringUser    = "msgraph-token"
)

func msEndpoint(tenantID, path string) string {
	return "https://login.microsoftonline.com/" + tenantID + "/oauth2/v2.0/" + path
}

// oauth2Config returns the oauth2.Config for Microsoft Graph using the
// provided tenant and client IDs.
func oauth2Config(tenantID, clientID string) *oauth2.Config {
	return &oauth2.Config{
		ClientID: clientID,
		Scopes:   requiredScopes,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: msEndpoint(tenantID, "devicecode"),
			TokenURL:      msEndpoint(tenantID, "token"),
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

// TokenStore persists the Graph token in the OS keyring, falling back to a
// 0600 file when no keyring is available.
type TokenStore struct {
	fallbackPath string
}

// NewTokenStore returns a store whose fallback file lives under dataDir.
func NewTokenStore(dataDir string) *TokenStore {
	return &TokenStore{fallbackPath: filepath.Join(dataDir, "auth", "msgraph_tokens.json")}
}

// Load returns the saved token, or nil when there is none.
func (s *TokenStore) Load() (*oauth2.Token, error) {
	secret, err := keyring.Get(keyringService, keyringUser)
	if err == nil {
		var tok oauth2.Token
		if err := json.Unmarshal([]byte(secret), &tok); err != nil {
			return nil, fmt.Errorf("corrupt token in keyring (run: mlog outlook logout): %w", err)
		}
		return &tok, nil
	}

	data, err := os.ReadFile(s.fallbackPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("corrupt token file (delete %s to re-authenticate): %w", s.fallbackPath, err)
	}
	return &tok, nil
}

// Save persists tok.
func (s *TokenStore) Save(tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshalling token: %w", err)
	}
	if err := keyring.Set(keyringService, keyringUser, string(data)); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.fallbackPath), 0o700); err != nil {
		return fmt.Errorf("creating auth directory: %w", err)
	}
	tmpPath := s.fallbackPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := os.Rename(tmpPath, s.fallbackPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving token file: %w", err)
	}
	return nil
}

// Clear removes the token from the keyring and the fallback file.
func (s *TokenStore) Clear() error {
	// Without a keyring the token can only be in the file.
	_ = keyring.Delete(keyringService, keyringUser)
	if err := os.Remove(s.fallbackPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}

// savingTokenSource wraps a TokenSource and persists refreshed tokens.
type savingTokenSource struct {
	ts    oauth2.TokenSource
	store *TokenStore
	last  string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.ts.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		// Best-effort save; ignore errors.
		_ = s.store.Save(tok)
	}
	return tok, nil
}

// TokenSource returns a token source built on the saved token that persists
// refreshed tokens. It never starts an interactive login.
func TokenSource(ctx context.Context, tenantID, clientID string, store *TokenStore) (oauth2.TokenSource, error) {
	tok, err := store.Load()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, ErrNotLoggedIn
	}
	cfg := oauth2Config(tenantID, clientID)
	return &savingTokenSource{ts: cfg.TokenSource(ctx, tok), store: store, last: tok.AccessToken}, nil
}

// Login runs the device code flow, printing the sign-in instructions to out,
// and saves the resulting token.
func Login(ctx context.Context, tenantID, clientID string, store *TokenStore, out io.Writer) (*oauth2.Token, error) {
	cfg := oauth2Config(tenantID, clientID)

	resp, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("device auth request failed: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "To sign in, use a web browser to open the page:")
	fmt.Fprintf(out, "  %s\n", resp.VerificationURI)
	fmt.Fprintf(out, "Enter the code: %s\n", resp.UserCode)
	fmt.Fprintln(out)

	tok, err := cfg.DeviceAccessToken(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("device authentication failed: %w", err)
	}
	if err := store.Save(tok); err != nil {
		return tok, fmt.Errorf("saving token: %w", err)
	}
	return tok, nil
}
