package google

import "github.com/goliatone/go-auth-boilerplate/social"

// userInfo is the OpenID Connect userinfo document.
type userInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	Locale        string `json:"locale,omitempty"`
}

func (u userInfo) profile() *social.SocialProfile {
	raw := map[string]any{"sub": u.Sub, "email_verified": u.EmailVerified}
	if u.Locale != "" {
		raw["locale"] = u.Locale
	}

	return &social.SocialProfile{
		Provider:       ProviderName,
		ProviderUserID: u.Sub,
		Email:          u.Email,
		EmailVerified:  u.EmailVerified,
		Name:           u.Name,
		FirstName:      u.GivenName,
		LastName:       u.FamilyName,
		AvatarURL:      u.Picture,
		Raw:            raw,
	}
}
