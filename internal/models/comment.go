package models

// Comment is embedded in a post's comments array. User is the author snapshot taken at write time.
type Comment struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	User      *User  `json:"user,omitempty"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

// Clone returns a deep copy of c.
func (c Comment) Clone() Comment {
	c.User = c.User.Clone()
	return c
}
