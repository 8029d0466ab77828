package remote_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/gateway"
	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/kv"
	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/remote"
	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/security"
	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/session"
	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
	"github.com/jupiterclapton/cenackle-board/internal/core/ports"
)

type fixture struct {
	srv     *httptest.Server
	mux     *http.ServeMux
	session *session.Store
	client  *gateway.Client
	calls   *int32
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{mux: http.NewServeMux(), calls: new(int32)}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(f.calls, 1)
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.srv.Close)
	f.session = session.NewStore(kv.NewMemoryStore())
	f.client = gateway.NewClient(f.srv.URL, f.session)
	return f
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	require.NoError(t, f.session.Save(context.Background(), domain.Session{Token: "tok", UserID: "42", Username: "rick"}))
}

func reply(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestLoginFillsSessionFromTokenClaims(t *testing.T) {
	f := setup(t)
	jwtp, err := security.NewJWTProvider([]byte("0123456789abcdef"), "api")
	require.NoError(t, err)
	token, err := jwtp.Generate(&domain.User{Meta: domain.Meta{ID: "42"}, Nickname: "rick"})
	require.NoError(t, err)

	f.mux.HandleFunc("POST /users/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "a@b.com", body["email"], "email is normalized before sending")
		reply(w, 200, map[string]any{"message": "login_success", "data": map[string]any{"token": token}})
	})

	env := remote.NewAuthAPI(f.client, f.session, nil).Login(context.Background(), ports.LoginCmd{Email: " A@B.com ", Password: "x"})
	require.True(t, env.Success, env.Message)

	sess, err := f.session.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, sess.Token)
	assert.Equal(t, "42", sess.UserID)
	assert.Equal(t, "rick", sess.Username)
}

func TestFailedLoginKeepsPreviousSession(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.mux.HandleFunc("POST /users/login", func(w http.ResponseWriter, r *http.Request) {
		reply(w, 401, map[string]any{"message": "wrong password"})
	})

	env := remote.NewAuthAPI(f.client, f.session, nil).Login(context.Background(), ports.LoginCmd{Email: "a@b.com", Password: "bad"})
	assert.False(t, env.Success)
	assert.Equal(t, "wrong password", env.Message)

	sess, err := f.session.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", sess.Token)
}

func TestSignupSendsMultipart(t *testing.T) {
	f := setup(t)
	f.mux.HandleFunc("POST /users/signup", func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "new@b.com", r.FormValue("email"))
		assert.Equal(t, "morty", r.FormValue("nickname"))
		_, hdr, err := r.FormFile("image")
		if assert.NoError(t, err) {
			assert.Equal(t, "me.png", hdr.Filename)
		}
		reply(w, 201, map[string]any{"message": "register_success", "data": map[string]any{"user_id": 7}})
	})

	env := remote.NewAuthAPI(f.client, f.session, nil).Signup(context.Background(), ports.SignupCmd{
		Email: "new@b.com", Password: "Passw0rd!", Nickname: "morty",
		ProfileImage: &domain.Image{Name: "me.png", ContentType: "image/png", Data: []byte("\x89PNG")},
	})
	require.True(t, env.Success, env.Message)
	assert.Equal(t, "7", env.Data.ID, "numeric ids are read as strings")
	assert.Equal(t, "morty", env.Data.Nickname)
}

func TestListPostsReadsPagination(t *testing.T) {
	f := setup(t)
	f.mux.HandleFunc("GET /posts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "popular", r.URL.Query().Get("sort"))
		reply(w, 200, map[string]any{
			"message": "posts_retrieved",
			"data": []map[string]any{
				{"id": 11, "title": "hello", "nickname": "rick", "like_count": 3, "view_count": 9},
			},
			"pagination": map[string]any{"currentPage": 2, "totalPages": 3, "totalCount": 25},
		})
	})

	env := remote.NewPostsAPI(f.client).List(context.Background(), ports.ListPostsQuery{Page: 2, Limit: 10, Sort: domain.SortPopular})
	require.True(t, env.Success, env.Message)
	require.Len(t, env.Data.Posts, 1)
	p := env.Data.Posts[0]
	assert.Equal(t, "11", p.ID)
	assert.Equal(t, "rick", p.AuthorName)
	assert.Equal(t, 3, p.LikeCount)
	assert.Equal(t, domain.Pagination{Page: 2, Limit: 10, Total: 25, TotalPages: 3, HasNext: true}, env.Data.Pagination)
}

func TestLikeConflictReadsServerState(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.mux.HandleFunc("POST /posts/7/like", func(w http.ResponseWriter, r *http.Request) {
		reply(w, 409, map[string]any{"message": "already liked"})
	})
	f.mux.HandleFunc("GET /posts/7", func(w http.ResponseWriter, r *http.Request) {
		reply(w, 200, map[string]any{"message": "post_retrieved", "data": map[string]any{"id": 7, "like_count": 4, "liked": true}})
	})

	env := remote.NewPostsAPI(f.client).Like(context.Background(), "7")
	require.True(t, env.Success, env.Message)
	assert.True(t, env.Data.Liked)
	assert.Equal(t, 4, env.Data.LikeCount)
}

func TestUnlikeUsesDelete(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.mux.HandleFunc("DELETE /posts/7/like", func(w http.ResponseWriter, r *http.Request) {
		reply(w, 200, map[string]any{"message": "like_removed", "data": map[string]any{"like_count": 2}})
	})

	env := remote.NewPostsAPI(f.client).Unlike(context.Background(), "7")
	require.True(t, env.Success, env.Message)
	assert.Equal(t, "7", env.Data.ID)
	assert.False(t, env.Data.Liked)
	assert.Equal(t, 2, env.Data.LikeCount)
}

func TestWrongTagIsAFailure(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.mux.HandleFunc("POST /posts", func(w http.ResponseWriter, r *http.Request) {
		reply(w, 201, map[string]any{"message": "something_else"})
	})

	env := remote.NewPostsAPI(f.client).Create(context.Background(), ports.WritePostCmd{Title: "t", Content: "c"})
	assert.False(t, env.Success)
	assert.Equal(t, gateway.ErrUnexpectedFormat.Error(), env.Message)
}

func TestCommentsNeedSession(t *testing.T) {
	f := setup(t)
	f.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
	})

	env := remote.NewCommentsAPI(f.client).List(context.Background(), "7")
	assert.False(t, env.Success)
	assert.Equal(t, "login required", env.Message)
	assert.Zero(t, atomic.LoadInt32(f.calls))
}

func TestCommentUpdateFillsMissingFields(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.mux.HandleFunc("PUT /posts/7/comments/3", func(w http.ResponseWriter, r *http.Request) {
		reply(w, 200, map[string]any{"message": "comment_updated"})
	})

	env := remote.NewCommentsAPI(f.client).Update(context.Background(), "7", "3", "edited")
	require.True(t, env.Success, env.Message)
	assert.Equal(t, "3", env.Data.ID)
	assert.Equal(t, "7", env.Data.PostID)
	assert.Equal(t, "edited", env.Data.Content)
}

func TestProfileImageBytesBecomeDataURL(t *testing.T) {
	f := setup(t)
	f.login(t)
	png := []int{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	f.mux.HandleFunc("GET /users/42", func(w http.ResponseWriter, r *http.Request) {
		reply(w, 200, map[string]any{"message": "user_found", "data": map[string]any{
			"username":      "rick",
			"profile_image": map[string]any{"type": "Buffer", "data": png},
		}})
	})

	env := remote.NewProfileAPI(f.client, f.session, nil).Get(context.Background(), "")
	require.True(t, env.Success, env.Message)
	assert.Equal(t, "42", env.Data.ID)
	assert.Equal(t, "rick", env.Data.Nickname)
	assert.True(t, strings.HasPrefix(env.Data.ProfileImage, "data:image/png;base64,"), env.Data.ProfileImage)
}

func TestProfileUpdateRefreshesSession(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.mux.HandleFunc("PUT /users/42", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "summer", body["nickname"])
		assert.Equal(t, "/img/s.png", body["profile_image"], "field names are translated for the wire")
		reply(w, 200, map[string]any{"message": "user_updated"})
	})

	nick, img := "summer", "/img/s.png"
	env := remote.NewProfileAPI(f.client, f.session, nil).Update(context.Background(), ports.UpdateProfileCmd{Nickname: &nick, ProfileImageURL: &img})
	require.True(t, env.Success, env.Message)

	sess, err := f.session.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "summer", sess.Username)
}

func TestDeleteAccountClearsSession(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.mux.HandleFunc("DELETE /users", func(w http.ResponseWriter, r *http.Request) {
		reply(w, 200, map[string]any{"message": "user_deleted"})
	})

	env := remote.NewProfileAPI(f.client, f.session, nil).DeleteAccount(context.Background())
	require.True(t, env.Success, env.Message)

	sess, err := f.session.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, sess.LoggedIn())
}

func TestCheckNickname(t *testing.T) {
	f := setup(t)
	f.mux.HandleFunc("GET /users/check-nickname", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("nickname") == "taken" {
			reply(w, 409, map[string]any{"message": "this nickname is already in use"})
			return
		}
		reply(w, 200, map[string]any{"message": "nickname_available", "data": true})
	})

	api := remote.NewProfileAPI(f.client, f.session, nil)
	ok := api.CheckNickname(context.Background(), "free")
	assert.True(t, ok.Success)
	assert.True(t, ok.Data)

	taken := api.CheckNickname(context.Background(), "taken")
	assert.False(t, taken.Success)
	assert.Equal(t, "this nickname is already in use", taken.Message)
}

func TestUploadImageAndViews(t *testing.T) {
	f := setup(t)
	f.login(t)
	var viewed int32
	f.mux.HandleFunc("POST /api/upload/image", func(w http.ResponseWriter, r *http.Request) {
		reply(w, 200, map[string]any{"image_url": "/uploads/a.png"})
	})
	f.mux.HandleFunc("PATCH /posts/7/views", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&viewed, 1)
		w.WriteHeader(http.StatusNoContent)
	})

	url, err := remote.NewImageUploader(f.client).Upload(context.Background(), &domain.Image{Name: "a.png", Data: []byte("\x89PNG")})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/a.png", url)

	require.NoError(t, remote.NewPostsAPI(f.client).IncrementView(context.Background(), "7"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&viewed))
}
