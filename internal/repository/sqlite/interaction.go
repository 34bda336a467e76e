package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/recipe-room/internal/apperror"
	"github.com/sakif/recipe-room/internal/model"
)

// ===== Ratings =====

// CreateRating inserts a rating. A second rating by the same user for the
// same recipe violates UNIQUE(user_id, recipe_id) and returns ErrConflict.
func (db *DB) CreateRating(ctx context.Context, r *model.Rating) error {
	r.ID = xid.New().String()
	r.CreatedAt = time.Now().UTC()

	_, err := db.q.ExecContext(ctx,
		`INSERT INTO ratings (id, value, user_id, recipe_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Value, r.UserID, r.RecipeID, r.CreatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return apperror.Conflict("you have already rated this recipe")
		case isForeignKeyViolation(err):
			return db.missingParent(ctx, recipeParent(r.RecipeID), userParent(r.UserID))
		}
		return fmt.Errorf("sqlite: creating rating: %w", err)
	}
	return nil
}

func (db *DB) RatingStats(ctx context.Context, recipeID string) (*float64, int, error) {
	var (
		avg   sql.NullFloat64
		count int
	)
	err := db.q.QueryRowContext(ctx,
		`SELECT AVG(value), COUNT(*) FROM ratings WHERE recipe_id = ?`, recipeID,
	).Scan(&avg, &count)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: rating stats for %s: %w", recipeID, err)
	}
	if !avg.Valid {
		return nil, 0, nil
	}
	return &avg.Float64, count, nil
}

// GetUserRating returns nil (not an error) when the user has not rated.
func (db *DB) GetUserRating(ctx context.Context, recipeID, userID string) (*int, error) {
	var v int
	err := db.q.QueryRowContext(ctx,
		`SELECT value FROM ratings WHERE recipe_id = ? AND user_id = ?`, recipeID, userID,
	).Scan(&v)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: user rating for %s: %w", recipeID, err)
	}
	return &v, nil
}

// ===== Bookmarks =====

func (db *DB) CreateBookmark(ctx context.Context, b *model.Bookmark) error {
	b.ID = xid.New().String()
	b.CreatedAt = time.Now().UTC()

	_, err := db.q.ExecContext(ctx,
		`INSERT INTO bookmarks (id, user_id, recipe_id, created_at) VALUES (?, ?, ?, ?)`,
		b.ID, b.UserID, b.RecipeID, b.CreatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return apperror.Conflict("recipe already bookmarked")
		case isForeignKeyViolation(err):
			return db.missingParent(ctx, recipeParent(b.RecipeID), userParent(b.UserID))
		}
		return fmt.Errorf("sqlite: creating bookmark: %w", err)
	}
	return nil
}

func (db *DB) GetBookmark(ctx context.Context, id string) (*model.Bookmark, error) {
	var b model.Bookmark
	err := db.q.QueryRowContext(ctx,
		`SELECT id, user_id, recipe_id, created_at FROM bookmarks WHERE id = ?`, id,
	).Scan(&b.ID, &b.UserID, &b.RecipeID, &b.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("bookmark", id)
		}
		return nil, fmt.Errorf("sqlite: getting bookmark %s: %w", id, err)
	}
	return &b, nil
}

func (db *DB) GetBookmarkByRecipe(ctx context.Context, userID, recipeID string) (*model.Bookmark, error) {
	var b model.Bookmark
	err := db.q.QueryRowContext(ctx,
		`SELECT id, user_id, recipe_id, created_at FROM bookmarks
		 WHERE user_id = ? AND recipe_id = ?`, userID, recipeID,
	).Scan(&b.ID, &b.UserID, &b.RecipeID, &b.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("bookmark", recipeID)
		}
		return nil, fmt.Errorf("sqlite: getting bookmark for recipe %s: %w", recipeID, err)
	}
	return &b, nil
}

func (db *DB) DeleteBookmark(ctx context.Context, id string) error {
	res, err := db.q.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting bookmark %s: %w", id, err)
	}
	return expectOneRow(res, "bookmark", id)
}

func (db *DB) ListBookmarks(ctx context.Context, userID string) ([]model.BookmarkView, error) {
	rows, err := db.q.QueryContext(ctx,
		`SELECT b.id, b.user_id, b.recipe_id, b.created_at, r.title
		 FROM bookmarks b
		 JOIN recipes r ON r.id = b.recipe_id
		 WHERE b.user_id = ?
		 ORDER BY b.created_at DESC, b.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing bookmarks: %w", err)
	}
	defer rows.Close()

	out := make([]model.BookmarkView, 0)
	for rows.Next() {
		var v model.BookmarkView
		if err := rows.Scan(&v.ID, &v.UserID, &v.RecipeID, &v.CreatedAt, &v.RecipeTitle); err != nil {
			return nil, fmt.Errorf("sqlite: scanning bookmark: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating bookmarks: %w", err)
	}
	return out, nil
}

// ===== Comments =====

func (db *DB) CreateComment(ctx context.Context, c *model.Comment) error {
	now := time.Now().UTC()
	c.ID = xid.New().String()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := db.q.ExecContext(ctx,
		`INSERT INTO comments (id, text, user_id, recipe_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Text, c.UserID, c.RecipeID, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return db.missingParent(ctx, recipeParent(c.RecipeID), userParent(c.UserID))
		}
		return fmt.Errorf("sqlite: creating comment: %w", err)
	}
	return nil
}

func (db *DB) GetComment(ctx context.Context, id string) (*model.Comment, error) {
	var c model.Comment
	err := db.q.QueryRowContext(ctx,
		`SELECT id, text, user_id, recipe_id, created_at, updated_at FROM comments WHERE id = ?`, id,
	).Scan(&c.ID, &c.Text, &c.UserID, &c.RecipeID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("comment", id)
		}
		return nil, fmt.Errorf("sqlite: getting comment %s: %w", id, err)
	}
	return &c, nil
}

func (db *DB) UpdateComment(ctx context.Context, c *model.Comment) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := db.q.ExecContext(ctx,
		`UPDATE comments SET text = ?, updated_at = ? WHERE id = ?`,
		c.Text, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating comment %s: %w", c.ID, err)
	}
	return expectOneRow(res, "comment", c.ID)
}

func (db *DB) DeleteComment(ctx context.Context, id string) error {
	res, err := db.q.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %s: %w", id, err)
	}
	return expectOneRow(res, "comment", id)
}

// ListComments returns a recipe's comments oldest first, with authors.
func (db *DB) ListComments(ctx context.Context, recipeID string) ([]model.CommentView, error) {
	rows, err := db.q.QueryContext(ctx,
		`SELECT c.id, c.text, c.user_id, c.recipe_id, c.created_at, c.updated_at, u.username
		 FROM comments c
		 JOIN users u ON u.id = c.user_id
		 WHERE c.recipe_id = ?
		 ORDER BY c.created_at ASC, c.id ASC`,
		recipeID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments: %w", err)
	}
	defer rows.Close()

	out := make([]model.CommentView, 0)
	for rows.Next() {
		var v model.CommentView
		if err := rows.Scan(&v.ID, &v.Text, &v.UserID, &v.RecipeID, &v.CreatedAt, &v.UpdatedAt, &v.User.Username); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment: %w", err)
		}
		v.User.ID = v.UserID
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return out, nil
}
