package facebook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-auth-boilerplate/social"
)

const (
	graphVersion       = "v19.0"
	defaultAuthURL     = "https://www.facebook.com/" + graphVersion + "/dialog/oauth"
	defaultTokenURL    = "https://graph.facebook.com/" + graphVersion + "/oauth/access_token"
	defaultUserInfoURL = "https://graph.facebook.com/" + graphVersion + "/me"
	profileFields      = "id,name,email,first_name,last_name"
)

// Config holds Facebook OAuth configuration.
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

// DefaultScopes returns the default Facebook permissions.
func DefaultScopes() []string {
	return []string{"email", "public_profile"}
}

// Provider implements social.SocialProvider for Facebook Login.
type Provider struct {
	config     Config
	httpClient *http.Client
}

var _ social.SocialProvider = (*Provider)(nil)

// ProviderName is the name facebook profiles and routes are registered under
const ProviderName = "facebook"

func New(cfg Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	for _, endpoint := range []struct {
		target   *string
		fallback string
	}{
		{&cfg.AuthURL, defaultAuthURL},
		{&cfg.TokenURL, defaultTokenURL},
		{&cfg.UserInfoURL, defaultUserInfoURL},
	} {
		if *endpoint.target == "" {
			*endpoint.target = endpoint.fallback
		}
	}

	p := &Provider{config: cfg, httpClient: cfg.HTTPClient}
	if p.httpClient == nil {
		p.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return p
}

func (p *Provider) Name() string { return ProviderName }

// AuthCodeURL builds the login dialog URL. Facebook takes a comma
// separated scope list.
func (p *Provider) AuthCodeURL(state string, opts ...social.AuthCodeOption) string {
	cfg := social.ApplyAuthCodeOptions(p.config.Scopes, opts...)

	q := url.Values{}
	q.Set("client_id", p.config.ClientID)
	q.Set("redirect_uri", p.config.CallbackURL)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(cfg.Scopes, ","))
	q.Set("state", state)

	if cfg.CodeChallenge != "" {
		method := cfg.CodeChallengeMethod
		if method == "" {
			method = "S256"
		}
		q.Set("code_challenge", cfg.CodeChallenge)
		q.Set("code_challenge_method", method)
	}

	return p.config.AuthURL + "?" + q.Encode()
}

// Exchange trades the code for an access token. The Graph API token
// endpoint takes its parameters in the query string.
func (p *Provider) Exchange(ctx context.Context, code string, opts ...social.ExchangeOption) (*social.Token, error) {
	q := url.Values{}
	q.Set("client_id", p.config.ClientID)
	q.Set("client_secret", p.config.ClientSecret)
	q.Set("redirect_uri", p.config.CallbackURL)
	q.Set("code", code)
	if verifier := social.ApplyExchangeOptions(opts...).CodeVerifier; verifier != "" {
		q.Set("code_verifier", verifier)
	}

	var out tokenResponse
	if err := p.get(ctx, p.config.TokenURL, q, opExchange, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, failure(opExchange, http.StatusOK, "missing_access_token", "token response has no access_token", nil, nil)
	}

	token := &social.Token{AccessToken: out.AccessToken, TokenType: out.TokenType}
	if out.ExpiresIn > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	}
	return token, nil
}

// UserInfo reads /me. Requests carry appsecret_proof when the client
// secret is configured.
func (p *Provider) UserInfo(ctx context.Context, token *social.Token) (*social.SocialProfile, error) {
	if token == nil || token.AccessToken == "" {
		return nil, failure(opUserInfo, 0, "missing_access_token", "no access token to query /me with", nil, nil)
	}

	q := url.Values{}
	q.Set("fields", profileFields)
	q.Set("access_token", token.AccessToken)
	if p.config.ClientSecret != "" {
		q.Set("appsecret_proof", AppSecretProof(token.AccessToken, p.config.ClientSecret))
	}

	var info userInfo
	if err := p.get(ctx, p.config.UserInfoURL, q, opUserInfo, &info); err != nil {
		return nil, err
	}
	if info.ID == "" {
		return nil, failure(opUserInfo, http.StatusOK, "missing_id", "profile has no id", nil, nil)
	}

	return mapProfile(&info), nil
}

// AppSecretProof is the hex HMAC-SHA256 of the access token keyed by the
// app secret.
func AppSecretProof(accessToken, appSecret string) string {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write([]byte(accessToken))
	return hex.EncodeToString(mac.Sum(nil))
}

const (
	opExchange = "exchange"
	opUserInfo = "user_info"
)

func (p *Provider) get(ctx context.Context, endpoint string, q url.Values, op string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return failure(op, 0, "transport", "", err, nil)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return failure(op, resp.StatusCode, "transport", "", err, nil)
	}
	if resp.StatusCode != http.StatusOK {
		return graphError(op, resp.StatusCode, body)
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
}

// graphErrorBody is the Graph API error envelope.
type graphErrorBody struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

func graphError(op string, status int, body []byte) *social.ProviderError {
	var graph graphErrorBody
	if json.Unmarshal(body, &graph) == nil && graph.Error.Message != "" {
		e := graph.Error
		return failure(op, status, e.Type, e.Message, nil, map[string]any{
			"type":       e.Type,
			"code":       e.Code,
			"fbtrace_id": e.FBTraceID,
		})
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		text = "facebook request failed"
	}
	return failure(op, status, "", text, nil, nil)
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
