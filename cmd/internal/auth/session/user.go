package session

import (
	"strings"
	"unicode"
)

// User is a validated identity plus session-scoped state, cached by token.
//
// Token is the cache key and is immutable once the record exists. Identity
// fields come from the hub at creation time; the remaining fields are owned
// by this server and may change over the session's lifetime via Update.
type User struct {
	Token string

	Username    string
	Name        string
	DisplayName string
	Initials    string
	AvatarURL   string
	Color       string

	// Anonymous is always false for hub-resolved users; it exists so the
	// record shape matches deployments that allow guest access.
	Anonymous bool

	// Workspace and Settings are opaque serialized blobs owned by the
	// frontend. They are stored verbatim and never inspected here.
	Workspace string
	Settings  string

	Permissions map[string][]string
}

// NewUser builds a record for a freshly validated token.
//
// name is the identity name reported by the hub; an empty name falls back
// to "anonymous", matching what the hub reports for tokens without an
// owning user.
func NewUser(token, name string) User {
	username := name
	if username == "" {
		username = "anonymous"
	}
	displayName := username

	initials := Initials(displayName)
	if initials == "" {
		initials = upperFirst(username)
	}

	return User{
		Token:       token,
		Username:    username,
		Name:        username,
		DisplayName: displayName,
		Initials:    initials,
		Anonymous:   false,
		Workspace:   "{}",
		Settings:    "{}",
		Permissions: map[string][]string{},
	}
}

// Initials derives display initials: the uppercased first letter of each
// whitespace-separated word, concatenated. "Alice Wonder" -> "AW".
// A name with no words yields "".
func Initials(displayName string) string {
	var b strings.Builder
	for _, word := range strings.Fields(displayName) {
		b.WriteString(upperFirst(word))
	}
	return b.String()
}

func upperFirst(s string) string {
	for _, r := range s {
		return string(unicode.ToUpper(r))
	}
	return ""
}

// Update is the allow-listed set of mutable user fields. Nil pointers leave
// the corresponding field untouched. Token and Username are deliberately
// not updatable: the token is the cache key and the username is owned by
// the hub.
type Update struct {
	DisplayName *string             `json:"display_name"`
	Initials    *string             `json:"initials"`
	AvatarURL   *string             `json:"avatar_url"`
	Color       *string             `json:"color"`
	Workspace   *string             `json:"workspace"`
	Settings    *string             `json:"settings"`
	Permissions map[string][]string `json:"permissions"`
}

func (u *User) apply(upd Update) {
	if upd.DisplayName != nil {
		u.DisplayName = *upd.DisplayName
	}
	if upd.Initials != nil {
		u.Initials = *upd.Initials
	}
	if upd.AvatarURL != nil {
		u.AvatarURL = *upd.AvatarURL
	}
	if upd.Color != nil {
		u.Color = *upd.Color
	}
	if upd.Workspace != nil {
		u.Workspace = *upd.Workspace
	}
	if upd.Settings != nil {
		u.Settings = *upd.Settings
	}
	if upd.Permissions != nil {
		u.Permissions = upd.Permissions
	}
}

// CheckPermissions intersects a requested permissions map with the
// permissions the user actually holds. Resources appear in the result even
// when no requested action is allowed, so callers can distinguish "asked
// and denied" from "never asked".
func (u User) CheckPermissions(requested map[string][]string) map[string][]string {
	checked := map[string][]string{}
	for resource, actions := range requested {
		held := u.Permissions[resource]
		allowed := []string{}
		for _, action := range actions {
			for _, h := range held {
				if action == h {
					allowed = append(allowed, action)
					break
				}
			}
		}
		checked[resource] = allowed
	}
	return checked
}
