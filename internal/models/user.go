package models

import "strings"

// PlaceholderName is shown for authors whose profile could not be loaded.
const PlaceholderName = "Usuario"

// User is a profile snapshot as stored in the users collection and embedded in posts and comments.
type User struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	FullName       string `json:"fullName"`
	Avatar         string `json:"avatar,omitempty"`
	Email          string `json:"email,omitempty"`
	Bio            string `json:"bio,omitempty"`
	FollowersCount int    `json:"followersCount"`
	FollowingCount int    `json:"followingCount"`
	PostsCount     int    `json:"postsCount"`
}

// PlaceholderUser returns the fallback snapshot used when a user document is missing or unreadable.
func PlaceholderUser(id string) *User {
	return &User{ID: id, Username: PlaceholderName, FullName: PlaceholderName}
}

// NewUser builds a user with counters at zero; the username defaults to the email's local part.
func NewUser(id, email, fullName string) *User {
	username, _, _ := strings.Cut(email, "@")
	return &User{ID: id, Email: email, Username: username, FullName: fullName}
}

// DisplayName prefers the full name and falls back to the username.
func (u *User) DisplayName() string {
	if u == nil {
		return PlaceholderName
	}
	if u.FullName != "" {
		return u.FullName
	}
	if u.Username != "" {
		return u.Username
	}
	return PlaceholderName
}

// Clone returns a copy of u, or nil.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
