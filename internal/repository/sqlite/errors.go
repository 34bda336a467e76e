package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/recipe-room/internal/apperror"
)

// errorCode extracts the extended SQLite result code, or 0 if err did not
// come from the driver.
func errorCode(err error) int {
	var se *moderncsqlite.Error
	if errors.As(err, &se) {
		return se.Code()
	}
	return 0
}

func isUniqueViolation(err error) bool {
	switch errorCode(err) {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// isForeignKeyViolation reports an insert or update that referenced a row
// which does not exist (or was deleted concurrently).
func isForeignKeyViolation(err error) bool {
	return errorCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// expectOneRow turns "no rows affected" into a NotFound for resource/id.
func expectOneRow(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: reading rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

// parent is one foreign key of a row being written. table is always a
// constant from this package, never user input.
type parent struct {
	resource string
	table    string
	id       string
}

func userParent(id string) parent   { return parent{"user", "users", id} }
func groupParent(id string) parent  { return parent{"group", "user_groups", id} }
func recipeParent(id string) parent { return parent{"recipe", "recipes", id} }

// missingParent runs after a foreign key failure and names the referenced
// row that is actually absent, checking parents in order. If every parent
// exists by now (deleted and recreated concurrently, in theory) the last
// one is reported.
func (db *DB) missingParent(ctx context.Context, parents ...parent) error {
	for _, p := range parents {
		var one int
		err := db.q.QueryRowContext(ctx, `SELECT 1 FROM `+p.table+` WHERE id = ?`, p.id).Scan(&one)
		if isNoRows(err) {
			return apperror.NotFound(p.resource, p.id)
		}
		if err != nil {
			return fmt.Errorf("sqlite: checking %s %s: %w", p.resource, p.id, err)
		}
	}
	last := parents[len(parents)-1]
	return apperror.NotFound(last.resource, last.id)
}
