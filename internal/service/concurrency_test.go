package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/recipe-room/internal/apperror"
)

// =========================================================================
// CONCURRENT DUPLICATES
// =========================================================================
//
// The UNIQUE constraints decide these races, not a check-then-insert in
// the service: exactly one call wins and every other one is a Conflict.

const racers = 20

type raceResult struct {
	ok       int
	conflict int
	other    []error
}

// race runs fn from n goroutines released at the same moment.
func race(n int, fn func() error) raceResult {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		res raceResult
	)
	start := make(chan struct{})
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := fn()
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				res.ok++
			case apperror.Is(err, apperror.ErrConflict):
				res.conflict++
			default:
				res.other = append(res.other, err)
			}
		}()
	}
	close(start)
	wg.Wait()
	return res
}

func assertOneWinner(t *testing.T, res raceResult) {
	t.Helper()
	assert.Empty(t, res.other)
	assert.Equal(t, 1, res.ok)
	assert.Equal(t, racers-1, res.conflict)
}

func TestRateRecipe_ConcurrentDuplicates(t *testing.T) {
	f := newRecipeFixture(t)
	r := f.create(t, recipeInput("Paella"))

	res := race(racers, func() error {
		_, err := f.ratings.RateRecipe(f.ctx, f.other.ID, r.ID, RateInput{Value: 5})
		return err
	})
	assertOneWinner(t, res)

	_, count, err := f.db.RatingStats(f.ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestJoinGroup_ConcurrentDuplicates(t *testing.T) {
	f := newGroupFixture(t)
	before := f.memberCount(t)

	res := race(racers, func() error {
		_, err := f.groups.JoinGroup(f.ctx, f.member.ID, f.group.ID)
		return err
	})
	assertOneWinner(t, res)

	assert.Equal(t, before+1, f.memberCount(t))
}

func TestBookmarkRecipe_ConcurrentDuplicates(t *testing.T) {
	f := newRecipeFixture(t)
	r := f.create(t, recipeInput("Paella"))
	bookmarks := NewBookmarkService(f.db, discardLogger())

	res := race(racers, func() error {
		_, err := bookmarks.BookmarkRecipe(context.Background(), f.other.ID, r.ID)
		return err
	})
	assertOneWinner(t, res)

	list, err := bookmarks.ListBookmarks(f.ctx, f.other.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
