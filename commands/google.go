package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/eduaccess/gdrive-access-sync/config"
)

// authorize returns an HTTP client for the Google APIs. A service account key
// is used directly (impersonating the configured subject, if any). An OAuth
// client secret requires a token previously saved by the 'authorise' command.
func authorize(ctx context.Context, cfg *config.Config, scopes ...string) (*http.Client, error) {
	b, err := os.ReadFile(cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to read credentials file (%v)", config.ErrConfig, err)
	}

	if isServiceAccount(b) {
		jwt, err := google.JWTConfigFromJSON(b, scopes...)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid service account credentials (%v)", config.ErrConfig, err)
		}

		jwt.Subject = cfg.Subject

		return jwt.Client(ctx), nil
	}

	oauth, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid OAuth client credentials (%v)", config.ErrConfig, err)
	}

	token, err := tokenFromFile(cfg.TokenPath)
	if err != nil {
		return nil, fmt.Errorf("%w: missing or invalid OAuth token - run '%v authorise' (%v)", config.ErrConfig, APP, err)
	}

	return oauth.Client(ctx, token), nil
}

func isServiceAccount(credentials []byte) bool {
	var v struct {
		Type string `json:"type"`
	}

	if err := json.NewDecoder(bytes.NewReader(credentials)).Decode(&v); err != nil {
		return false
	}

	return v.Type == "service_account"
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	token := oauth2.Token{}
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, err
	}

	return &token, nil
}

func saveToken(file string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(file, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to save OAuth token (%w)", err)
	}

	defer f.Close()

	return json.NewEncoder(f).Encode(token)
}
