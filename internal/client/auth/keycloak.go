package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/prodcat/internal/common"
)

// Keycloak talks to the OpenID Connect endpoints of one Keycloak realm using
// the direct access grant.
type Keycloak struct {
	baseURL  string
	realm    string
	clientID string
	http     *http.Client
}

func NewKeycloak(baseURL, realm, clientID string, httpClient *http.Client) *Keycloak {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Keycloak{
		baseURL:  strings.TrimRight(baseURL, "/"),
		realm:    realm,
		clientID: clientID,
		http:     httpClient,
	}
}

func (k *Keycloak) Realm() string {
	return k.realm
}

// ForRealm returns a provider for another realm on the same server.
func (k *Keycloak) ForRealm(realm string) *Keycloak {
	c := *k
	c.realm = realm
	return &c
}

func (k *Keycloak) endpoint(name string) string {
	return k.baseURL + "/realms/" + url.PathEscape(k.realm) + "/protocol/openid-connect/" + name
}

func (k *Keycloak) Login(ctx context.Context, username string, password []byte) (*TokenSet, error) {
	form := url.Values{
		"grant_type": {"password"},
		"client_id":  {k.clientID},
		"username":   {username},
		"password":   {string(password)},
		"scope":      {"openid"},
	}
	return k.token(ctx, form)
}

func (k *Keycloak) Refresh(ctx context.Context, refreshToken string) (*TokenSet, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {k.clientID},
		"refresh_token": {refreshToken},
	}
	return k.token(ctx, form)
}

func (k *Keycloak) Logout(ctx context.Context, refreshToken string) error {
	form := url.Values{
		"client_id":     {k.clientID},
		"refresh_token": {refreshToken},
	}
	resp, err := k.post(ctx, k.endpoint("logout"), form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return providerError(resp)
	}
	return nil
}

func (k *Keycloak) token(ctx context.Context, form url.Values) (*TokenSet, error) {
	resp, err := k.post(ctx, k.endpoint("token"), form)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, providerError(resp)
	}

	var ts TokenSet
	if err := json.NewDecoder(resp.Body).Decode(&ts); err != nil {
		return nil, fmt.Errorf("%w: decode token response: %w", common.ErrAuthFailure, err)
	}
	if ts.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", common.ErrAuthFailure)
	}
	return &ts, nil
}

func (k *Keycloak) post(ctx context.Context, endpoint string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrAuthFailure, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := k.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: identity provider unreachable: %w", common.ErrAuthFailure, err)
	}
	return resp, nil
}

type oidcError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

func providerError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var e oidcError
	if json.Unmarshal(raw, &e) == nil && (e.Description != "" || e.Error != "") {
		msg := e.Description
		if msg == "" {
			msg = e.Error
		}
		return fmt.Errorf("%w: %s", common.ErrAuthFailure, msg)
	}
	return fmt.Errorf("%w: identity provider returned %d %s", common.ErrAuthFailure, resp.StatusCode, http.StatusText(resp.StatusCode))
}
