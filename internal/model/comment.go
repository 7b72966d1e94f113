package model

import "time"

type Comment struct {
	ID        string     `json:"id"`
	BookID    string     `json:"bookId"`
	ParentID  *string    `json:"parentId,omitempty"`
	UserID    string     `json:"userId"`
	UserName  string     `json:"userName"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"createdAt"`
	EditedAt  *time.Time `json:"editedAt,omitempty"`
	Likes     []string   `json:"likes"`
	Dislikes  []string   `json:"dislikes"`
}

// IsRoot reports whether the comment was posted without a parent.
func (c Comment) IsRoot() bool {
	return c.ParentID == nil || *c.ParentID == ""
}

// Edit returns a copy of c with the text replaced and EditedAt set to at.
func (c Comment) Edit(text string, at time.Time) Comment {
	out := c.Clone()
	out.Text = text
	out.EditedAt = &at
	return out
}

// Clone returns a deep copy of c that shares no pointers or slices with it.
func (c Comment) Clone() Comment {
	out := c
	if c.ParentID != nil {
		pid := *c.ParentID
		out.ParentID = &pid
	}
	if c.EditedAt != nil {
		at := *c.EditedAt
		out.EditedAt = &at
	}
	out.Likes = append([]string(nil), c.Likes...)
	out.Dislikes = append([]string(nil), c.Dislikes...)
	return out
}
