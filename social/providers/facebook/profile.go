package facebook

import "github.com/goliatone/go-auth-boilerplate/social"

type userInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// mapProfile keeps Email empty when the user did not grant the email
// permission. Facebook only returns confirmed addresses.
func mapProfile(info *userInfo) *social.SocialProfile {
	if info == nil {
		return nil
	}

	return &social.SocialProfile{
		ProviderUserID: info.ID,
		Provider:       ProviderName,
		Email:          info.Email,
		EmailVerified:  info.Email != "",
		Name:           info.Name,
		FirstName:      info.FirstName,
		LastName:       info.LastName,
		Raw: map[string]any{
			"id":    info.ID,
			"name":  info.Name,
			"email": info.Email,
		},
	}
}
