package model

import "time"

// Rating is immutable once created: one per (UserID, RecipeID).
type Rating struct {
	ID        string    `json:"id"`
	Value     int       `json:"value"`
	UserID    string    `json:"user_id"`
	RecipeID  string    `json:"recipe_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Bookmark struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	RecipeID  string    `json:"recipe_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BookmarkView carries the bookmarked recipe's title for list screens.
type BookmarkView struct {
	Bookmark
	RecipeTitle string `json:"recipe_title"`
}

type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	UserID    string    `json:"user_id"`
	RecipeID  string    `json:"recipe_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommentView embeds the author so clients can render a thread without a
// second lookup per comment.
type CommentView struct {
	Comment
	User UserSummary `json:"user"`
}
