package models

// Document collections
const (
	UsersCollection = "users"
	PostsCollection = "posts"
)

// Validation limits
const (
	MaxPostLength    = 500
	MaxCommentLength = 500
	MaxBioLength     = 160
	MinUsernameLen   = 3
	MinFullNameLen   = 2
	MaxImageSize     = 5 * 1024 * 1024
)

// Validator is implemented by inputs that can be checked before any I/O happens.
type Validator interface {
	Validate() error // Validate returns an error wrapping [shared.ErrValidation] when the value is rejected
}
