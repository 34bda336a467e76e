package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/recipe-room/internal/apperror"
	"github.com/sakif/recipe-room/internal/model"
)

const recipeColumns = `recipes.id, recipes.title, recipes.description, recipes.ingredients,
	recipes.instructions, recipes.country, recipes.image_url, recipes.serving_size,
	recipes.user_id, recipes.group_id, recipes.created_at, recipes.updated_at`

const (
	defaultRecipeLimit = 20
	maxRecipeLimit     = 100
)

// CreateRecipe inserts a recipe. A group_id or user_id that does not exist
// is reported as NotFound through the foreign keys.
func (db *DB) CreateRecipe(ctx context.Context, r *model.Recipe) error {
	now := time.Now().UTC()
	r.ID = xid.New().String()
	r.CreatedAt = now
	r.UpdatedAt = now

	_, err := db.q.ExecContext(ctx,
		`INSERT INTO recipes (id, title, description, ingredients, instructions,
			country, image_url, serving_size, user_id, group_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Title, r.Description, r.Ingredients, r.Instructions,
		r.Country, r.ImageURL, r.ServingSize, r.UserID, r.GroupID, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return db.recipeParentMissing(ctx, r)
		}
		return fmt.Errorf("sqlite: creating recipe: %w", err)
	}
	return nil
}

func (db *DB) GetRecipe(ctx context.Context, id string) (*model.Recipe, error) {
	r, err := scanRecipe(db.q.QueryRowContext(ctx,
		`SELECT `+recipeColumns+` FROM recipes WHERE recipes.id = ?`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("recipe", id)
		}
		return nil, fmt.Errorf("sqlite: getting recipe %s: %w", id, err)
	}
	return r, nil
}

// ListRecipes returns recipes newest first, narrowed by filter.
//
// MinRating compares against the live average of the recipe's ratings;
// recipes without ratings never pass a MinRating filter.
func (db *DB) ListRecipes(ctx context.Context, f model.RecipeFilter) ([]model.Recipe, error) {
	var (
		where []string
		args  []any
	)
	if f.Country != "" {
		where = append(where, `recipes.country = ?`)
		args = append(args, f.Country)
	}
	if f.ServingSize != nil {
		where = append(where, `recipes.serving_size = ?`)
		args = append(args, *f.ServingSize)
	}
	if f.MinRating != nil {
		where = append(where,
			`(SELECT AVG(ratings.value) FROM ratings WHERE ratings.recipe_id = recipes.id) >= ?`)
		args = append(args, *f.MinRating)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + recipeColumns + ` FROM recipes`)
	if len(where) > 0 {
		sb.WriteString(` WHERE ` + strings.Join(where, ` AND `))
	}
	sb.WriteString(` ORDER BY recipes.created_at DESC, recipes.id DESC LIMIT ? OFFSET ?`)

	limit, offset := clampPage(f.Limit, f.Offset)
	args = append(args, limit, offset)

	return db.queryRecipes(ctx, sb.String(), args...)
}

// SearchRecipes does a case-insensitive substring match over title,
// description and ingredients. Results are newest first; ranking is the
// caller's concern.
func (db *DB) SearchRecipes(ctx context.Context, query string, limit int) ([]model.Recipe, error) {
	pattern := "%" + escapeLike(query) + "%"
	if limit <= 0 {
		limit = maxRecipeLimit
	}
	return db.queryRecipes(ctx,
		`SELECT `+recipeColumns+` FROM recipes
		 WHERE recipes.title LIKE ? ESCAPE '\'
		    OR recipes.description LIKE ? ESCAPE '\'
		    OR recipes.ingredients LIKE ? ESCAPE '\'
		 ORDER BY recipes.created_at DESC, recipes.id DESC
		 LIMIT ?`,
		pattern, pattern, pattern, limit,
	)
}

func (db *DB) ListRecipesByGroup(ctx context.Context, groupID string) ([]model.Recipe, error) {
	return db.queryRecipes(ctx,
		`SELECT `+recipeColumns+` FROM recipes
		 WHERE recipes.group_id = ?
		 ORDER BY recipes.created_at DESC, recipes.id DESC`,
		groupID,
	)
}

// UpdateRecipe writes every mutable column and refreshes updated_at.
// user_id and created_at are never touched.
func (db *DB) UpdateRecipe(ctx context.Context, r *model.Recipe) error {
	r.UpdatedAt = time.Now().UTC()

	res, err := db.q.ExecContext(ctx,
		`UPDATE recipes SET title = ?, description = ?, ingredients = ?, instructions = ?,
			country = ?, image_url = ?, serving_size = ?, group_id = ?, updated_at = ?
		 WHERE id = ?`,
		r.Title, r.Description, r.Ingredients, r.Instructions,
		r.Country, r.ImageURL, r.ServingSize, r.GroupID, r.UpdatedAt,
		r.ID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return db.recipeParentMissing(ctx, r)
		}
		return fmt.Errorf("sqlite: updating recipe %s: %w", r.ID, err)
	}
	return expectOneRow(res, "recipe", r.ID)
}

// DeleteRecipe removes the recipe; ratings, bookmarks and comments go with
// it through ON DELETE CASCADE.
func (db *DB) DeleteRecipe(ctx context.Context, id string) error {
	res, err := db.q.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting recipe %s: %w", id, err)
	}
	return expectOneRow(res, "recipe", id)
}

func (db *DB) queryRecipes(ctx context.Context, query string, args ...any) ([]model.Recipe, error) {
	rows, err := db.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing recipes: %w", err)
	}
	defer rows.Close()

	recipes := make([]model.Recipe, 0)
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning recipe: %w", err)
		}
		recipes = append(recipes, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating recipes: %w", err)
	}
	return recipes, nil
}

func scanRecipe(row rowScanner) (*model.Recipe, error) {
	var r model.Recipe
	if err := row.Scan(
		&r.ID,
		&r.Title,
		&r.Description,
		&r.Ingredients,
		&r.Instructions,
		&r.Country,
		&r.ImageURL,
		&r.ServingSize,
		&r.UserID,
		&r.GroupID,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &r, nil
}

// recipeParentMissing reports which referenced row vanished, the group
// (deleted between the membership check and the write) or the author.
func (db *DB) recipeParentMissing(ctx context.Context, r *model.Recipe) error {
	if r.GroupID != nil {
		return db.missingParent(ctx, groupParent(*r.GroupID), userParent(r.UserID))
	}
	return db.missingParent(ctx, userParent(r.UserID))
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultRecipeLimit
	}
	if limit > maxRecipeLimit {
		limit = maxRecipeLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
