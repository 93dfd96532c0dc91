package models

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/desertthunder/soundpost/internal/shared"
)

// CreatePostData is the input for a new post.
type CreatePostData struct {
	Content    string      `json:"content"`
	ImageURL   string      `json:"imageUrl,omitempty"`
	MusicTrack *MusicTrack `json:"musicTrack,omitempty"`
}

// Validate requires text, an image or a track, and caps text length.
func (d CreatePostData) Validate() error {
	content := strings.TrimSpace(d.Content)
	if content == "" && d.ImageURL == "" && d.MusicTrack == nil {
		return fmt.Errorf("%w: a post needs text, an image or a track", shared.ErrValidation)
	}
	if n := utf8.RuneCountInString(content); n > MaxPostLength {
		return fmt.Errorf("%w: post is %d characters, the limit is %d", shared.ErrValidation, n, MaxPostLength)
	}
	return nil
}

// CreateCommentData is the input for a new comment.
type CreateCommentData struct {
	Content string `json:"content"`
}

// Validate rejects blank comments and comments over the length limit.
func (d CreateCommentData) Validate() error {
	content := strings.TrimSpace(d.Content)
	if content == "" {
		return fmt.Errorf("%w: comment is empty", shared.ErrValidation)
	}
	if n := utf8.RuneCountInString(content); n > MaxCommentLength {
		return fmt.Errorf("%w: comment is %d characters, the limit is %d", shared.ErrValidation, n, MaxCommentLength)
	}
	return nil
}

// ProfileUpdate carries optional profile changes; nil fields are left untouched.
type ProfileUpdate struct {
	Username *string `json:"username,omitempty"`
	FullName *string `json:"fullName,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

// Validate checks the minimum name lengths and the bio limit.
func (u ProfileUpdate) Validate() error {
	if u.Username != nil {
		if n := utf8.RuneCountInString(strings.TrimSpace(*u.Username)); n < MinUsernameLen {
			return fmt.Errorf("%w: username needs at least %d characters", shared.ErrValidation, MinUsernameLen)
		}
	}
	if u.FullName != nil {
		if n := utf8.RuneCountInString(strings.TrimSpace(*u.FullName)); n < MinFullNameLen {
			return fmt.Errorf("%w: full name needs at least %d characters", shared.ErrValidation, MinFullNameLen)
		}
	}
	if u.Bio != nil {
		if n := utf8.RuneCountInString(*u.Bio); n > MaxBioLength {
			return fmt.Errorf("%w: bio is %d characters, the limit is %d", shared.ErrValidation, n, MaxBioLength)
		}
	}
	return nil
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.Username == nil && u.FullName == nil && u.Bio == nil && u.Avatar == nil
}

// Apply writes the set fields onto user.
func (u ProfileUpdate) Apply(user *User) {
	if u.Username != nil {
		user.Username = strings.TrimSpace(*u.Username)
	}
	if u.FullName != nil {
		user.FullName = strings.TrimSpace(*u.FullName)
	}
	if u.Bio != nil {
		user.Bio = *u.Bio
	}
	if u.Avatar != nil {
		user.Avatar = *u.Avatar
	}
}

// ImageFile is an image selected for upload.
type ImageFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Validate accepts image/* content up to [MaxImageSize].
func (f ImageFile) Validate() error {
	if !strings.HasPrefix(strings.ToLower(f.ContentType), "image/") {
		return fmt.Errorf("%w: %q is not an image", shared.ErrValidation, f.ContentType)
	}
	if len(f.Data) == 0 {
		return fmt.Errorf("%w: image is empty", shared.ErrValidation)
	}
	if len(f.Data) > MaxImageSize {
		return fmt.Errorf("%w: image is %d bytes, the limit is %d", shared.ErrValidation, len(f.Data), MaxImageSize)
	}
	return nil
}
