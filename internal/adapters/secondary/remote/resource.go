// Package remote implémente les ports backend au-dessus de l'API REST, via le gateway.
// Chaque ressource est une configuration (préfixe, tags, messages, noms de champs),
// pas une classe recopiée.
package remote

import (
	"context"
	"net/url"

	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/gateway"
	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
)

// Operation décrit une action d'API : tag attendu et messages affichés.
type Operation struct {
	Tag     string // discriminateur "message" attendu dans la réponse
	Success string
	Failure string // message par défaut si le serveur n'en donne pas
}

type Resource struct {
	Prefix string
	Ops    map[string]Operation
	// Fields traduit les noms de champs UI -> fil (ex: profileImage -> profile_image).
	Fields map[string]string
}

func (r Resource) Op(name string) Operation {
	return r.Ops[name]
}

func (r Resource) Path(parts ...string) string {
	p := r.Prefix
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// Body renomme les clés vers le format du fil et retire les valeurs nil.
func (r Resource) Body(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if v == nil {
			continue
		}
		if wire, ok := r.Fields[k]; ok {
			k = wire
		}
		out[k] = v
	}
	return out
}

var (
	AuthResource = Resource{
		Prefix: "/users",
		Ops: map[string]Operation{
			"login":  {Tag: "login_success", Success: "logged in", Failure: "login failed"},
			"signup": {Tag: "register_success", Success: "your account has been created", Failure: "signup failed"},
		},
		Fields: map[string]string{"profileImage": "image"},
	}

	PostsResource = Resource{
		Prefix: "/posts",
		Ops: map[string]Operation{
			"list":   {Tag: "posts_retrieved", Success: "posts loaded", Failure: "could not load the posts"},
			"get":    {Tag: "post_retrieved", Success: "post loaded", Failure: "could not load the post"},
			"create": {Tag: "post_created", Success: "your post has been published", Failure: "could not publish the post"},
			"update": {Tag: "post_updated", Success: "your post has been updated", Failure: "could not update the post"},
			"delete": {Tag: "post_deleted", Success: "the post has been deleted", Failure: "could not delete the post"},
			"like":   {Tag: "like_added", Success: "liked", Failure: "could not like the post"},
			"unlike": {Tag: "like_removed", Success: "like removed", Failure: "could not remove the like"},
		},
		Fields: map[string]string{"imageUrl": "image_url"},
	}

	CommentsResource = Resource{
		Prefix: "/posts",
		Ops: map[string]Operation{
			"list":   {Tag: "comments_retrieved", Success: "comments loaded", Failure: "could not load the comments"},
			"create": {Tag: "comment_created", Success: "your comment has been posted", Failure: "could not post the comment"},
			"update": {Tag: "comment_updated", Success: "your comment has been updated", Failure: "could not update the comment"},
			"delete": {Tag: "comment_deleted", Success: "the comment has been deleted", Failure: "could not delete the comment"},
		},
	}

	ProfileResource = Resource{
		Prefix: "/users",
		Ops: map[string]Operation{
			"get":      {Tag: "user_found", Success: "profile loaded", Failure: "could not load the profile"},
			"nickname": {Tag: "nickname_available", Success: "this nickname is available", Failure: "could not check the nickname"},
			"update":   {Tag: "user_updated", Success: "your profile has been updated", Failure: "could not update the profile"},
			"password": {Tag: "password_updated", Success: "your password has been changed", Failure: "could not change the password"},
			"delete":   {Tag: "user_deleted", Success: "your account has been deleted", Failure: "could not delete the account"},
		},
		Fields: map[string]string{
			"profileImage": "profile_image",
			"newPassword":  "new_password",
		},
	}
)

// call décrit une requête unique vers l'API.
type call struct {
	op       Operation
	endpoint string
	opts     gateway.RequestOptions
	auth     bool
}

// invoke enchaîne Request -> FormatResponse -> Decode -> convert, et normalise en Envelope.
func invoke[D, T any](ctx context.Context, c *gateway.Client, spec call, convert func(*gateway.Response, D) (T, error)) domain.Envelope[T] {
	fn := func(ctx context.Context) (domain.Envelope[T], error) {
		resp, err := c.Request(ctx, spec.endpoint, spec.opts, spec.auth)
		if err != nil {
			return domain.Envelope[T]{}, err
		}
		return decodeAs(resp, spec.op, convert)
	}
	if spec.auth {
		return gateway.AuthRequest(ctx, c, fn, spec.op.Failure)
	}
	return gateway.PublicRequest(ctx, c, fn, spec.op.Failure)
}

func decodeAs[D, T any](resp *gateway.Response, op Operation, convert func(*gateway.Response, D) (T, error)) (domain.Envelope[T], error) {
	raw, err := gateway.FormatResponse(resp, op.Tag, op.Success)
	if err != nil {
		return domain.Envelope[T]{}, err
	}
	typed, err := gateway.Decode[D](raw)
	if err != nil {
		return domain.Envelope[T]{}, err
	}
	out, err := convert(resp, typed.Data)
	if err != nil {
		return domain.Envelope[T]{}, err
	}
	return domain.OK(typed.Message, out), nil
}

// data ignore la réponse brute et applique fn à la donnée décodée.
func data[D, T any](fn func(D) T) func(*gateway.Response, D) (T, error) {
	return func(_ *gateway.Response, d D) (T, error) { return fn(d), nil }
}

func none(*gateway.Response, struct{}) (struct{}, error) { return struct{}{}, nil }
