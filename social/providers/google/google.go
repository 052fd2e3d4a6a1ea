package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-auth-boilerplate/social"
)

// ProviderName is the name google profiles and routes are registered under
const ProviderName = "google"

const (
	defaultAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL    = "https://oauth2.googleapis.com/token"
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

// Config holds the OAuth client registered in the Google Cloud console.
// The endpoint URLs default to Google's and are overridden in tests.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	AuthURL     string
	TokenURL    string
	UserInfoURL string

	HTTPClient *http.Client
}

// DefaultScopes is what the login asks for: the profile and the email.
func DefaultScopes() []string {
	return []string{"profile", "email"}
}

// Provider signs users in with Google through the authorization code flow.
type Provider struct {
	config     Config
	httpClient *http.Client
}

var _ social.SocialProvider = (*Provider)(nil)

func New(cfg Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	cfg.AuthURL = orDefault(cfg.AuthURL, defaultAuthURL)
	cfg.TokenURL = orDefault(cfg.TokenURL, defaultTokenURL)
	cfg.UserInfoURL = orDefault(cfg.UserInfoURL, defaultUserInfoURL)

	p := &Provider{config: cfg, httpClient: cfg.HTTPClient}
	if p.httpClient == nil {
		p.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return p
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func (p *Provider) Name() string { return ProviderName }

// AuthCodeURL builds the consent screen URL. Google expects space
// separated scopes.
func (p *Provider) AuthCodeURL(state string, opts ...social.AuthCodeOption) string {
	cfg := social.ApplyAuthCodeOptions(p.config.Scopes, opts...)

	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", p.config.ClientID)
	q.Set("redirect_uri", p.config.CallbackURL)
	q.Set("scope", strings.Join(cfg.Scopes, " "))
	q.Set("state", state)

	if cfg.CodeChallenge != "" {
		q.Set("code_challenge", cfg.CodeChallenge)
		q.Set("code_challenge_method", orDefault(cfg.CodeChallengeMethod, "S256"))
	}

	return p.config.AuthURL + "?" + q.Encode()
}

// Exchange trades the authorization code for an access token. The PKCE
// verifier is sent when the caller provides one.
func (p *Provider) Exchange(ctx context.Context, code string, opts ...social.ExchangeOption) (*social.Token, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"redirect_uri":  {p.config.CallbackURL},
	}
	if verifier := social.ApplyExchangeOptions(opts...).CodeVerifier; verifier != "" {
		form.Set("code_verifier", verifier)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out tokenResponse
	if err := p.call(req, opExchange, &out); err != nil {
		return nil, err
	}

	switch {
	case out.Error != "":
		return nil, failure(opExchange, http.StatusOK, out.Error, out.ErrorDesc, nil, nil)
	case out.AccessToken == "":
		return nil, failure(opExchange, http.StatusOK, "missing_access_token", "token response has no access_token", nil, nil)
	}

	token := &social.Token{
		AccessToken: out.AccessToken,
		TokenType:   out.TokenType,
		Raw:         map[string]any{"scope": out.Scope},
	}
	if out.ExpiresIn > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	}

	return token, nil
}

// UserInfo reads the OpenID Connect userinfo document for token.
func (p *Provider) UserInfo(ctx context.Context, token *social.Token) (*social.SocialProfile, error) {
	if token == nil || token.AccessToken == "" {
		return nil, failure(opUserInfo, 0, "missing_access_token", "no access token to query userinfo with", nil, nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	var info userInfo
	if err := p.call(req, opUserInfo, &info); err != nil {
		return nil, err
	}
	if info.Sub == "" {
		return nil, failure(opUserInfo, http.StatusOK, "missing_subject", "userinfo has no sub claim", nil, nil)
	}

	return info.profile(), nil
}

const (
	opExchange = "exchange"
	opUserInfo = "user_info"

	maxResponseBytes = 1 << 20
)

// call sends req and decodes a 200 JSON body into out. Any other status
// becomes a ProviderError built from the response body.
func (p *Provider) call(req *http.Request, op string, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return failure(op, 0, "transport", "", err, nil)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return failure(op, resp.StatusCode, "transport", "", err, nil)
	}

	if resp.StatusCode != http.StatusOK {
		code, description, raw := parseError(body)
		return failure(op, resp.StatusCode, code, description, nil, raw)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return failure(op, resp.StatusCode, "invalid_response", "response is not valid JSON", err, nil)
	}
	return nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

// apiError is the error envelope of Google APIs, the token endpoint uses
// the plain OAuth shape of tokenResponse instead.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func parseError(body []byte) (code, description string, raw map[string]any) {
	var oauth tokenResponse
	if json.Unmarshal(body, &oauth) == nil && (oauth.Error != "" || oauth.ErrorDesc != "") {
		return oauth.Error, oauth.ErrorDesc, nil
	}

	var api apiError
	if json.Unmarshal(body, &api) == nil && (api.Error.Message != "" || api.Error.Status != "") {
		code = api.Error.Status
		if code == "" {
			code = strconv.Itoa(api.Error.Code)
		}
		return code, api.Error.Message, map[string]any{
			"status":  api.Error.Status,
			"message": api.Error.Message,
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		return "", text, nil
	}
	return "", "empty error response", nil
}

func failure(op string, status int, code, description string, err error, raw map[string]any) *social.ProviderError {
	return &social.ProviderError{
		Provider:    ProviderName,
		Operation:   op,
		Status:      status,
		Code:        code,
		Description: description,
		Err:         err,
		Raw:         raw,
	}
}
