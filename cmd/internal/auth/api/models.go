package authapi

import "hubgate/cmd/internal/auth/session"

// identityResponse is the fixed six-key identity payload of /api/me.
// Absent fields serialize as null, not as empty strings.
type identityResponse struct {
	Username    *string `json:"username"`
	Name        *string `json:"name"`
	DisplayName *string `json:"display_name"`
	Initials    *string `json:"initials"`
	AvatarURL   *string `json:"avatar_url"`
	Color       *string `json:"color"`
}

type meResponse struct {
	Identity    identityResponse    `json:"identity"`
	Permissions map[string][]string `json:"permissions"`
}

func toIdentityResponse(u session.User) identityResponse {
	return identityResponse{
		Username:    optional(u.Username),
		Name:        optional(u.Name),
		DisplayName: optional(u.DisplayName),
		Initials:    optional(u.Initials),
		AvatarURL:   optional(u.AvatarURL),
		Color:       optional(u.Color),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
