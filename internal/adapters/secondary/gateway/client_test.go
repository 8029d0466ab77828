package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/gateway"
	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
)

type fakeSession struct {
	sess domain.Session
	err  error
}

func (f fakeSession) Load(context.Context) (domain.Session, error) { return f.sess, f.err }

func loggedIn() fakeSession { return fakeSession{sess: domain.Session{Token: "tok-123"}} }

// newServer compte les appels reçus.
func newServer(t *testing.T, h http.HandlerFunc) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestRequestWithoutTokenNeverHitsNetwork(t *testing.T) {
	srv, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"message": "ok"})
	})
	c := gateway.NewClient(srv.URL, fakeSession{})

	_, err := c.Request(context.Background(), "/posts", gateway.RequestOptions{}, true)
	assert.ErrorIs(t, err, gateway.ErrLoginRequired)

	env := gateway.AuthRequest(context.Background(), c, func(ctx context.Context) (domain.Envelope[string], error) {
		t.Fatal("call must not run without a session")
		return domain.Envelope[string]{}, nil
	}, "default")
	assert.False(t, env.Success)
	assert.Equal(t, "login required", env.Message)

	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestRequestAttachesHeaders(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "/posts", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "T", body["title"])

		writeJSON(w, 201, map[string]any{"message": "post_created", "data": map[string]any{"id": 1}})
	})
	c := gateway.NewClient(srv.URL+"/", loggedIn())

	resp, err := c.Request(context.Background(), "/posts", gateway.RequestOptions{
		Method: http.MethodPost,
		Query:  map[string][]string{"page": {"2"}},
		JSON:   map[string]string{"title": "T"},
	}, true)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.Status)
	assert.Equal(t, "post_created", resp.Message)
	assert.JSONEq(t, `{"id":1}`, string(resp.Data))
}

func TestMultipartOmitsJSONContentType(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Content-Type"), "multipart/form-data; boundary=")
		assert.Empty(t, r.Header.Get("Authorization"), "no session, no bearer")

		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "a@b.com", r.FormValue("email"))
		f, hdr, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "me.png", hdr.Filename)
		assert.Equal(t, []byte("\x89PNG"), data)

		writeJSON(w, 201, map[string]any{"message": "register_success"})
	})
	c := gateway.NewClient(srv.URL, fakeSession{})

	_, err := c.Request(context.Background(), "/users/signup", gateway.RequestOptions{
		Method: http.MethodPost,
		Form: &gateway.Multipart{
			Fields: []gateway.FormField{{Name: "email", Value: "a@b.com"}},
			Files:  []gateway.FormFile{{Field: "image", Filename: "me.png", ContentType: "image/png", Data: []byte("\x89PNG")}},
		},
	}, false)
	require.NoError(t, err)
}

func TestNon2xxCarriesStatusAndBody(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 400, map[string]any{"message": "title too long"})
	})
	c := gateway.NewClient(srv.URL, loggedIn())

	_, err := c.Request(context.Background(), "/posts", gateway.RequestOptions{Method: http.MethodPost}, true)
	var ge *gateway.Error
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, 400, ge.Status)
	assert.Equal(t, "title too long", ge.ServerMessage)
	assert.Contains(t, string(ge.Body), "title too long")
}

func TestStatusMessages(t *testing.T) {
	assert.Equal(t, "bad request, please check your input", gateway.StatusMessage(400))
	assert.Equal(t, "authentication failed, please log in again", gateway.StatusMessage(401))
	assert.Equal(t, "server error, please try again later", gateway.StatusMessage(500))
	assert.Equal(t, "an unknown error occurred", gateway.StatusMessage(418))

	// Sans message serveur, l'erreur affiche le message du statut
	err := &gateway.Error{Status: 401}
	assert.Equal(t, "authentication failed, please log in again", err.UserMessage())
}

func TestNetworkErrorIsNormalized(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := gateway.NewClient(url, loggedIn())
	_, err := c.Request(context.Background(), "/posts", gateway.RequestOptions{}, false)
	assert.ErrorIs(t, err, gateway.ErrNetwork)
	assert.Equal(t, "network error, please check your connection", gateway.ErrorMessage(err, "default"))
}

func TestFormatResponse(t *testing.T) {
	resp := &gateway.Response{Message: "comments_retrieved", Data: json.RawMessage(`[1,2]`)}

	env, err := gateway.FormatResponse(resp, "comments_retrieved", "loaded")
	require.NoError(t, err)
	assert.True(t, env.Success)
	assert.Equal(t, "loaded", env.Message)

	typed, err := gateway.Decode[[]int](env)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, typed.Data)

	_, err = gateway.FormatResponse(resp, "comment_created", "created")
	assert.ErrorIs(t, err, gateway.ErrUnexpectedFormat)
}

func TestAuthRequestMessages(t *testing.T) {
	var mu sync.Mutex
	status, msg := 500, ""
	reply := func(s int, m string) {
		mu.Lock()
		defer mu.Unlock()
		status, msg = s, m
	}
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		body := map[string]any{}
		if msg != "" {
			body["message"] = msg
		}
		writeJSON(w, status, body)
	})
	c := gateway.NewClient(srv.URL, loggedIn())

	call := func(ctx context.Context) (domain.Envelope[json.RawMessage], error) {
		resp, err := c.Request(ctx, "/users/1", gateway.RequestOptions{}, true)
		if err != nil {
			return domain.Envelope[json.RawMessage]{}, err
		}
		return gateway.FormatResponse(resp, "user_found", "found")
	}

	// Message du serveur en priorité
	reply(500, "user is banned")
	env := gateway.AuthRequest(context.Background(), c, call, "could not load profile")
	assert.False(t, env.Success)
	assert.Equal(t, "user is banned", env.Message)

	// Sinon le défaut de l'appelant
	reply(500, "")
	env = gateway.AuthRequest(context.Background(), c, call, "could not load profile")
	assert.Equal(t, "could not load profile", env.Message)

	// 200 avec un mauvais tag : échec, jamais un succès silencieux
	reply(200, "something_else")
	env = gateway.AuthRequest(context.Background(), c, call, "could not load profile")
	assert.False(t, env.Success)
	assert.Equal(t, gateway.ErrUnexpectedFormat.Error(), env.Message)

	reply(200, "user_found")
	env = gateway.AuthRequest(context.Background(), c, call, "could not load profile")
	assert.True(t, env.Success)
	assert.Equal(t, "found", env.Message)
}
