package entitystore_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/entitystore"
	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/kv"
	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newPosts(t *testing.T, store kv.Store) *entitystore.Collection[domain.Post, *domain.Post] {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	return entitystore.New[domain.Post](store, entitystore.Config{Key: "posts", Now: clock.Now})
}

func TestAddThenGetByID(t *testing.T) {
	ctx := context.Background()
	posts := newPosts(t, kv.NewMemoryStore())

	added, err := posts.Add(ctx, domain.Post{Title: "T", Content: "C"})
	require.NoError(t, err)

	assert.NotEmpty(t, added.ID)
	assert.Equal(t, added.CreatedAt, added.UpdatedAt)
	assert.Zero(t, added.ViewCount)
	assert.Zero(t, added.CommentCount)
	assert.Zero(t, added.LikeCount)
	assert.False(t, added.Liked)

	got, err := posts.GetByID(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, *added, *got)
}

func TestAddGeneratesUniqueIDsInBursts(t *testing.T) {
	ctx := context.Background()
	posts := newPosts(t, kv.NewMemoryStore())

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		p, err := posts.Add(ctx, domain.Post{Title: fmt.Sprint(i), Content: "C"})
		require.NoError(t, err)
		require.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
	}
	assert.Len(t, posts.GetAll(ctx), 50)
}

func TestUpdateMergesAndRestamps(t *testing.T) {
	ctx := context.Background()
	posts := newPosts(t, kv.NewMemoryStore())
	added, err := posts.Add(ctx, domain.Post{Title: "T", Content: "C", AuthorID: "u1"})
	require.NoError(t, err)

	updated, err := posts.Update(ctx, added.ID, entitystore.Patch{
		"title": "New",
		"id":    "hijack", // ignoré
	})
	require.NoError(t, err)

	assert.Equal(t, added.ID, updated.ID)
	assert.Equal(t, "New", updated.Title)
	assert.Equal(t, "C", updated.Content)
	assert.Equal(t, "u1", updated.AuthorID)
	assert.Equal(t, added.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))
}

func TestUpdateMissingLeavesBlobUntouched(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	posts := newPosts(t, store)
	_, err := posts.Add(ctx, domain.Post{Title: "T", Content: "C"})
	require.NoError(t, err)

	before, err := store.Get(ctx, "posts")
	require.NoError(t, err)

	_, err = posts.Update(ctx, "nope", entitystore.Patch{"title": "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	after, err := store.Get(ctx, "posts")
	require.NoError(t, err)
	assert.Equal(t, before.Value, after.Value)
	assert.Equal(t, before.Revision, after.Revision)
}

func TestUpdateClampsCountersBelowZero(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	posts := newPosts(t, store)
	added, err := posts.Add(ctx, domain.Post{Title: "T", Content: "C", ViewCount: 3})
	require.NoError(t, err)

	updated, err := posts.Update(ctx, added.ID, entitystore.Patch{"viewCount": -1, "commentCount": -3})
	require.NoError(t, err)
	assert.Zero(t, updated.ViewCount)
	assert.Zero(t, updated.CommentCount)

	stored, err := posts.GetByID(ctx, added.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.ViewCount)
	assert.Zero(t, stored.CommentCount)
}

func TestUpdateRejectsLikeFields(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	posts := newPosts(t, store)
	added, err := posts.Add(ctx, domain.Post{Title: "T", Content: "C"})
	require.NoError(t, err)

	before, err := store.Get(ctx, "posts")
	require.NoError(t, err)

	for _, patch := range []entitystore.Patch{
		{"liked": true},
		{"likeCount": -4},
		{"title": "ok", "likeCount": 10},
	} {
		_, err := posts.Update(ctx, added.ID, patch)
		assert.ErrorIs(t, err, entitystore.ErrReadOnlyField)
	}

	after, err := store.Get(ctx, "posts")
	require.NoError(t, err)
	assert.Equal(t, before.Revision, after.Revision)

	// La seule voie reste la bascule, qui garde liked et likeCount ensemble
	liked, err := posts.ToggleLike(ctx, added.ID)
	require.NoError(t, err)
	assert.True(t, liked.Liked)
	assert.Equal(t, 1, liked.LikeCount)
}

func TestUpdateRunsGuardsBeforeMerging(t *testing.T) {
	ctx := context.Background()
	posts := newPosts(t, kv.NewMemoryStore())
	added, err := posts.Add(ctx, domain.Post{Title: "T", Content: "C", AuthorID: "u1"})
	require.NoError(t, err)

	denied := errors.New("not yours")
	_, err = posts.Update(ctx, added.ID, entitystore.Patch{"title": "x"}, func(items []domain.Post) error {
		return denied
	})
	assert.ErrorIs(t, err, denied)

	stored, err := posts.GetByID(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, "T", stored.Title)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	posts := newPosts(t, kv.NewMemoryStore())
	a, err := posts.Add(ctx, domain.Post{Title: "A", Content: "C"})
	require.NoError(t, err)
	_, err = posts.Add(ctx, domain.Post{Title: "B", Content: "C"})
	require.NoError(t, err)

	require.NoError(t, posts.Delete(ctx, a.ID))
	_, err = posts.GetByID(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, posts.Delete(ctx, a.ID), domain.ErrNotFound)
	assert.Len(t, posts.GetAll(ctx), 1)
}

func TestToggleLikeTwiceRestoresState(t *testing.T) {
	ctx := context.Background()
	posts := newPosts(t, kv.NewMemoryStore())
	p, err := posts.Add(ctx, domain.Post{Title: "T", Content: "C", LikeCount: 7})
	require.NoError(t, err)

	once, err := posts.ToggleLike(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, once.Liked)
	assert.Equal(t, 8, once.LikeCount)

	twice, err := posts.ToggleLike(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Liked, twice.Liked)
	assert.Equal(t, p.LikeCount, twice.LikeCount)
}

func TestToggleLikeRequiresLikeable(t *testing.T) {
	ctx := context.Background()
	comments := entitystore.New[domain.Comment](kv.NewMemoryStore(), entitystore.Config{Key: "comments"})
	c, err := comments.Add(ctx, domain.Comment{PostID: "p", Content: "hi"})
	require.NoError(t, err)

	_, err = comments.ToggleLike(ctx, c.ID)
	assert.ErrorIs(t, err, entitystore.ErrNotLikeable)
}

func TestCorruptedBlobReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	_, err := store.Put(ctx, "posts", []byte(`{not json`))
	require.NoError(t, err)

	posts := newPosts(t, store)
	assert.Empty(t, posts.GetAll(ctx))

	_, err = posts.GetByID(ctx, "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Une écriture repart d'une collection vide
	_, err = posts.Add(ctx, domain.Post{Title: "T", Content: "C"})
	require.NoError(t, err)
	assert.Len(t, posts.GetAll(ctx), 1)
}

func TestGuardRejectsWithoutWriting(t *testing.T) {
	ctx := context.Background()
	posts := newPosts(t, kv.NewMemoryStore())
	_, err := posts.Add(ctx, domain.Post{Title: "T", Content: "C"})
	require.NoError(t, err)

	errTaken := errors.New("title taken")
	unique := func(items []domain.Post) error {
		for _, p := range items {
			if p.Title == "T" {
				return errTaken
			}
		}
		return nil
	}

	_, err = posts.Add(ctx, domain.Post{Title: "T", Content: "again"}, unique)
	assert.ErrorIs(t, err, errTaken)
	assert.Len(t, posts.GetAll(ctx), 1)
}

// racingStore insère une écriture concurrente juste avant les N premiers CAS.
type racingStore struct {
	kv.Store
	races int
	race  func(ctx context.Context)
}

func (r *racingStore) CompareAndSwap(ctx context.Context, key string, value []byte, expected uint64) (uint64, error) {
	if r.races > 0 {
		r.races--
		r.race(ctx)
	}
	return r.Store.CompareAndSwap(ctx, key, value, expected)
}

func TestConcurrentWriterIsNotLost(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemoryStore()
	other := newPosts(t, mem)

	racing := &racingStore{Store: mem, races: 1}
	racing.race = func(ctx context.Context) {
		_, err := other.Add(ctx, domain.Post{Title: "from other tab", Content: "C"})
		require.NoError(t, err)
	}
	posts := newPosts(t, racing)

	_, err := posts.Add(ctx, domain.Post{Title: "mine", Content: "C"})
	require.NoError(t, err)

	titles := []string{}
	for _, p := range posts.GetAll(ctx) {
		titles = append(titles, p.Title)
	}
	assert.ElementsMatch(t, []string{"from other tab", "mine"}, titles)
}

func TestConflictRetriesAreBounded(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemoryStore()
	other := newPosts(t, mem)

	racing := &racingStore{Store: mem, races: 100}
	racing.race = func(ctx context.Context) {
		_, _ = other.Add(ctx, domain.Post{Title: "noise", Content: "C"})
	}
	posts := entitystore.New[domain.Post](racing, entitystore.Config{Key: "posts", MaxConflictRetries: 2})

	_, err := posts.Add(ctx, domain.Post{Title: "mine", Content: "C"})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 97, racing.races)
}

func TestFindFilters(t *testing.T) {
	ctx := context.Background()
	comments := entitystore.New[domain.Comment](kv.NewMemoryStore(), entitystore.Config{Key: "comments"})
	for _, postID := range []string{"p1", "p2", "p1"} {
		_, err := comments.Add(ctx, domain.Comment{PostID: postID, Content: "x"})
		require.NoError(t, err)
	}

	got := comments.Find(ctx, func(c *domain.Comment) bool { return c.PostID == "p1" })
	assert.Len(t, got, 2)
}
