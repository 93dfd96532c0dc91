package models

import "slices"

// Post is a feed entry.
//
// LikesCount equals len(LikedBy) and CommentsCount equals len(Comments) whenever the
// post was written through the persistence client. IsLiked is computed for the viewing user
// and never stored.
type Post struct {
	ID            string      `json:"id"`
	UserID        string      `json:"userId"`
	User          *User       `json:"user,omitempty"`
	Content       string      `json:"content"`
	ImageURL      string      `json:"imageUrl,omitempty"`
	MusicTrack    *MusicTrack `json:"musicTrack,omitempty"`
	LikesCount    int         `json:"likesCount"`
	CommentsCount int         `json:"commentsCount"`
	LikedBy       []string    `json:"likedBy"`
	Comments      []Comment   `json:"comments"`
	IsLiked       bool        `json:"isLiked,omitempty"`
	CreatedAt     string      `json:"createdAt"`
	UpdatedAt     string      `json:"updatedAt"`
}

// HasLiked reports whether userID is in the post's like set.
func (p *Post) HasLiked(userID string) bool {
	return slices.Contains(p.LikedBy, userID)
}

// Normalize dedupes LikedBy and recomputes both counters from their collections.
func (p *Post) Normalize() {
	seen := make(map[string]bool, len(p.LikedBy))
	liked := make([]string, 0, len(p.LikedBy))
	for _, id := range p.LikedBy {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		liked = append(liked, id)
	}
	p.LikedBy = liked

	if p.Comments == nil {
		p.Comments = []Comment{}
	}
	p.LikesCount = len(p.LikedBy)
	p.CommentsCount = len(p.Comments)
}

// Clone returns a deep copy of p.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	c := *p
	c.User = p.User.Clone()
	c.MusicTrack = p.MusicTrack.Clone()
	c.LikedBy = slices.Clone(p.LikedBy)
	if p.Comments != nil {
		c.Comments = make([]Comment, len(p.Comments))
		for i, cm := range p.Comments {
			c.Comments[i] = cm.Clone()
		}
	}
	return &c
}

// MarkUserLikes sets IsLiked on each post for userID. An empty userID clears the flag.
func MarkUserLikes(posts []Post, userID string) {
	for i := range posts {
		posts[i].IsLiked = userID != "" && posts[i].HasLiked(userID)
	}
}
