package local_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/kv"
	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/local"
	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/security"
	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/session"
	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
	"github.com/jupiterclapton/cenackle-board/internal/core/ports"
)

type env struct {
	data    *kv.MemoryStore
	session *session.Store
	backend *local.Backend
}

func newEnv(t *testing.T) *env {
	t.Helper()
	tokens, err := security.NewJWTProvider([]byte("local-test-secret-key"), "boardctl")
	require.NoError(t, err)

	// Horloge strictement croissante : l'ordre "latest" est déterministe
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	e := &env{data: kv.NewMemoryStore(), session: session.NewStore(kv.NewMemoryStore())}
	e.backend = local.New(local.Deps{
		Store:   e.data,
		Session: e.session,
		Hasher:  security.NewArgon2Hasher(security.FastParams),
		Tokens:  tokens,
		Now:     clock,
	})
	return e
}

func (e *env) signupAndLogin(t *testing.T, email, nickname string) *domain.Session {
	t.Helper()
	ctx := context.Background()
	reg := e.backend.Auth().Signup(ctx, ports.SignupCmd{Email: email, Password: "Passw0rd!", Nickname: nickname})
	require.True(t, reg.Success, reg.Message)
	return e.login(t, email)
}

func (e *env) login(t *testing.T, email string) *domain.Session {
	t.Helper()
	res := e.backend.Auth().Login(context.Background(), ports.LoginCmd{Email: email, Password: "Passw0rd!"})
	require.True(t, res.Success, res.Message)
	return res.Data
}

func (e *env) count(t *testing.T, key string) int {
	t.Helper()
	entry, err := e.data.Get(context.Background(), key)
	require.NoError(t, err)
	var items []json.RawMessage
	require.NoError(t, json.Unmarshal(entry.Value, &items))
	return len(items)
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first := e.backend.Auth().Signup(ctx, ports.SignupCmd{Email: "rick@c137.com", Password: "Passw0rd!", Nickname: "rick"})
	require.True(t, first.Success, first.Message)
	assert.Empty(t, first.Data.PasswordHash)

	dup := e.backend.Auth().Signup(ctx, ports.SignupCmd{Email: " RICK@c137.com", Password: "Passw0rd!", Nickname: "other"})
	assert.False(t, dup.Success)
	assert.Equal(t, domain.ErrEmailAlreadyExists.Error(), dup.Message)
	assert.Equal(t, 1, e.count(t, local.KeyUsers))

	raw, err := e.data.Get(ctx, local.KeyUsers)
	require.NoError(t, err)
	assert.NotContains(t, string(raw.Value), "Passw0rd!", "only the hash is stored")
}

func TestLoginUpgradesLegacyPasswordHash(t *testing.T) {
	ctx := context.Background()
	tokens, err := security.NewJWTProvider([]byte("local-test-secret-key"), "boardctl")
	require.NoError(t, err)
	data := kv.NewMemoryStore()
	backendWith := func(algo string) *local.Backend {
		h, err := security.NewHasher(algo, security.FastParams, 4)
		require.NoError(t, err)
		return local.New(local.Deps{
			Store:   data,
			Session: session.NewStore(kv.NewMemoryStore()),
			Hasher:  h,
			Tokens:  tokens,
		})
	}
	storedHash := func() string {
		entry, err := data.Get(ctx, local.KeyUsers)
		require.NoError(t, err)
		var users []struct {
			Password string `json:"password"`
		}
		require.NoError(t, json.Unmarshal(entry.Value, &users))
		require.Len(t, users, 1)
		return users[0].Password
	}

	// Compte créé du temps de bcrypt
	legacy := backendWith("bcrypt")
	reg := legacy.Auth().Signup(ctx, ports.SignupCmd{Email: "bird@person.com", Password: "Passw0rd!", Nickname: "bird"})
	require.True(t, reg.Success, reg.Message)
	assert.True(t, strings.HasPrefix(storedHash(), "$2a$"))

	current := backendWith("argon2id")
	for range 2 {
		res := current.Auth().Login(ctx, ports.LoginCmd{Email: "bird@person.com", Password: "Passw0rd!"})
		require.True(t, res.Success, res.Message)
		assert.True(t, strings.HasPrefix(storedHash(), "$argon2id$"))
	}

	// Un mauvais mot de passe ne réécrit rien
	before := storedHash()
	res := current.Auth().Login(ctx, ports.LoginCmd{Email: "bird@person.com", Password: "nope"})
	assert.False(t, res.Success)
	assert.Equal(t, before, storedHash())
}

func TestWrongPasswordKeepsExistingSession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sess := e.signupAndLogin(t, "rick@c137.com", "rick")

	stored, err := e.session.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sess.Token, stored.Token)
	require.NotNil(t, stored.User)
	assert.Equal(t, "rick", stored.User.Nickname)
	assert.Empty(t, stored.User.PasswordHash)

	bad := e.backend.Auth().Login(ctx, ports.LoginCmd{Email: "rick@c137.com", Password: "Wr0ng!pass"})
	assert.False(t, bad.Success)
	assert.Equal(t, domain.ErrInvalidCredentials.Error(), bad.Message)

	after, err := e.session.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, stored, after)
}

func TestForgedTokenIsRejected(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.session.Save(ctx, domain.Session{Token: "not-a-jwt", UserID: "u1"}))

	res := e.backend.Posts().Create(ctx, ports.WritePostCmd{Title: "t", Content: "c"})
	assert.False(t, res.Success)
	assert.Equal(t, "login required", res.Message)
	_, err := e.data.Get(ctx, local.KeyPosts)
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)
}

func TestPostLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.signupAndLogin(t, "rick@c137.com", "rick")
	posts := e.backend.Posts()

	created := posts.Create(ctx, ports.WritePostCmd{Title: "Portal fluid", Content: "green"})
	require.True(t, created.Success, created.Message)
	id := created.Data.ID
	assert.Equal(t, "rick", created.Data.AuthorName)
	assert.Zero(t, created.Data.LikeCount)

	// Like et Unlike idempotents
	for range 2 {
		liked := posts.Like(ctx, id)
		require.True(t, liked.Success, liked.Message)
		assert.True(t, liked.Data.Liked)
		assert.Equal(t, 1, liked.Data.LikeCount)
	}
	unliked := posts.Unlike(ctx, id)
	require.True(t, unliked.Success)
	assert.Equal(t, 0, unliked.Data.LikeCount)

	require.NoError(t, posts.IncrementView(ctx, id))
	got := posts.Get(ctx, id)
	require.True(t, got.Success)
	assert.Equal(t, 1, got.Data.ViewCount)

	title := "Portal gun"
	edited := posts.Update(ctx, ports.EditPostCmd{PostID: id, Title: &title})
	require.True(t, edited.Success, edited.Message)
	assert.Equal(t, "Portal gun", edited.Data.Title)
	assert.Equal(t, "green", edited.Data.Content)
	assert.True(t, edited.Data.UpdatedAt.After(edited.Data.CreatedAt))

	// Un autre utilisateur ne peut ni modifier ni supprimer
	e.signupAndLogin(t, "morty@c137.com", "morty")
	denied := posts.Update(ctx, ports.EditPostCmd{PostID: id, Title: &title})
	assert.False(t, denied.Success)
	assert.Equal(t, domain.ErrForbidden.Error(), denied.Message)
	assert.False(t, posts.Delete(ctx, id).Success)

	e.login(t, "rick@c137.com")
	require.True(t, posts.Delete(ctx, id).Success)
	missing := posts.Get(ctx, id)
	assert.False(t, missing.Success)
	assert.Equal(t, domain.ErrNotFound.Error(), missing.Message)
}

func TestListSortsAndPages(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.signupAndLogin(t, "rick@c137.com", "rick")
	posts := e.backend.Posts()

	var ids []string
	for _, title := range []string{"one", "two", "three"} {
		res := posts.Create(ctx, ports.WritePostCmd{Title: title, Content: "x"})
		require.True(t, res.Success)
		ids = append(ids, res.Data.ID)
	}
	require.True(t, posts.Like(ctx, ids[0]).Success)

	latest := posts.List(ctx, ports.ListPostsQuery{Page: 1, Limit: 2})
	require.True(t, latest.Success)
	require.Len(t, latest.Data.Posts, 2)
	assert.Equal(t, "three", latest.Data.Posts[0].Title)
	assert.Equal(t, domain.Pagination{Page: 1, Limit: 2, Total: 3, TotalPages: 2, HasNext: true}, latest.Data.Pagination)

	last := posts.List(ctx, ports.ListPostsQuery{Page: 2, Limit: 2})
	require.Len(t, last.Data.Posts, 1)
	assert.False(t, last.Data.Pagination.HasNext)

	popular := posts.List(ctx, ports.ListPostsQuery{Sort: domain.SortPopular})
	require.True(t, popular.Success)
	assert.Equal(t, "one", popular.Data.Posts[0].Title)

	assert.False(t, posts.List(ctx, ports.ListPostsQuery{Sort: "random"}).Success)
}

func TestCommentsTrackPostCount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.signupAndLogin(t, "rick@c137.com", "rick")
	post := e.backend.Posts().Create(ctx, ports.WritePostCmd{Title: "t", Content: "c"})
	require.True(t, post.Success)
	postID := post.Data.ID
	comments := e.backend.Comments()

	first := comments.Create(ctx, postID, "first")
	require.True(t, first.Success, first.Message)
	second := comments.Create(ctx, postID, "second")
	require.True(t, second.Success)

	list := comments.List(ctx, postID)
	require.True(t, list.Success)
	require.Len(t, list.Data, 2)
	assert.Equal(t, "first", list.Data[0].Content)
	assert.Equal(t, 2, e.backend.Posts().Get(ctx, postID).Data.CommentCount)

	edited := comments.Update(ctx, postID, first.Data.ID, "edited")
	require.True(t, edited.Success)
	assert.Equal(t, "edited", edited.Data.Content)

	require.True(t, comments.Delete(ctx, postID, second.Data.ID).Success)
	assert.Equal(t, 1, e.backend.Posts().Get(ctx, postID).Data.CommentCount)
	assert.False(t, comments.Delete(ctx, postID, second.Data.ID).Success, "already deleted")

	assert.False(t, comments.Create(ctx, "missing", "x").Success)
}

func TestProfile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.signupAndLogin(t, "summer@c137.com", "summer")
	e.signupAndLogin(t, "rick@c137.com", "rick")
	profile := e.backend.Profile()

	me := profile.Get(ctx, "")
	require.True(t, me.Success, me.Message)
	assert.Equal(t, domain.DefaultProfileImage, me.Data.ProfileImage)

	assert.True(t, profile.CheckNickname(ctx, "rick").Data, "own nickname is available")
	taken := profile.CheckNickname(ctx, "summer")
	assert.False(t, taken.Success)
	assert.Equal(t, domain.ErrNicknameTaken.Error(), taken.Message)

	nick, img := "pickle", "data:image/png;base64,AAAA"
	updated := profile.Update(ctx, ports.UpdateProfileCmd{Nickname: &nick, ProfileImageURL: &img})
	require.True(t, updated.Success, updated.Message)

	sess, err := e.session.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pickle", sess.Username)
	require.NotNil(t, sess.User)
	assert.Equal(t, img, sess.User.ProfileImage)

	require.True(t, profile.ChangePassword(ctx, ports.ChangePasswordCmd{NewPassword: "N3w!pass"}).Success)
	relog := e.backend.Auth().Login(ctx, ports.LoginCmd{Email: "rick@c137.com", Password: "N3w!pass"})
	require.True(t, relog.Success, relog.Message)

	require.True(t, profile.DeleteAccount(ctx).Success)
	gone, err := e.session.Load(ctx)
	require.NoError(t, err)
	assert.False(t, gone.LoggedIn())
	assert.Equal(t, 1, e.count(t, local.KeyUsers))
}
