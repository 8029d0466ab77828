// Package gateway centralise les appels HTTP sortants : URL de base, en-têtes par défaut,
// token Bearer, encodage JSON/multipart et normalisation des réponses.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
	"github.com/jupiterclapton/cenackle-board/internal/platform/telemetry"
)

const maxResponseBytes = 10 << 20

// SessionReader fournit le token courant. Injecté : aucun état global.
type SessionReader interface {
	Load(ctx context.Context) (domain.Session, error)
}

type Client struct {
	baseURL string
	http    *http.Client
	session SessionReader
	log     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func NewClient(baseURL string, session SessionReader, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport), // Auto-tracing des requêtes sortantes
		},
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- REQUÊTE ---

type RequestOptions struct {
	Method string // GET par défaut
	Query  url.Values
	JSON   any        // encodé en JSON si non nil
	Form   *Multipart // prioritaire sur JSON
	Header http.Header
}

type Multipart struct {
	Fields []FormField
	Files  []FormFile
}

type FormField struct {
	Name, Value string
}

type FormFile struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// Response est l'enveloppe de fil {message: <tag>, data: <payload>}.
type Response struct {
	Status  int
	Message string
	Data    json.RawMessage
	// Fields contient toutes les clés de premier niveau (pagination, image_url...).
	Fields map[string]json.RawMessage
}

// Request compose baseURL+endpoint et envoie la requête.
// requiresAuth sans token : ErrLoginRequired, sans aucun appel réseau.
func (c *Client) Request(ctx context.Context, endpoint string, opts RequestOptions, requiresAuth bool) (*Response, error) {
	// 1. Session (le token est attaché dès qu'il existe, même pour une route publique)
	sess, err := c.loadSession(ctx)
	if err != nil {
		return nil, err
	}
	if requiresAuth && !sess.LoggedIn() {
		return nil, ErrLoginRequired
	}

	// 2. Corps + en-têtes
	body, contentType, err := encodeBody(opts)
	if err != nil {
		return nil, err
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(endpoint, opts.Query), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", contentType)
	if sess.Token != "" {
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}
	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	// 3. Envoi
	start := time.Now()
	resp, err := c.http.Do(req)
	telemetry.GatewayLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		telemetry.GatewayRequests.WithLabelValues(method, "network_error").Inc()
		c.log.Warn("request failed before any response", "method", method, "endpoint", endpoint, "error", err)
		return nil, errors.Join(ErrNetwork, err)
	}
	defer resp.Body.Close()
	telemetry.GatewayRequests.WithLabelValues(method, statusClass(resp.StatusCode)).Inc()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Join(ErrNetwork, err)
	}

	// 4. Normalisation
	parsed, parseErr := parseResponse(resp.StatusCode, raw)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Debug("request rejected", "method", method, "endpoint", endpoint, "status", resp.StatusCode)
		return nil, &Error{Status: resp.StatusCode, Body: raw, ServerMessage: parsed.Message}
	}
	if parseErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedFormat, parseErr)
	}
	return parsed, nil
}

// --- ENVELOPPES ---

// FormatResponse vérifie le tag discriminant : un 2xx avec un autre tag est une erreur.
func FormatResponse(resp *Response, expectedTag, successMessage string) (domain.Envelope[json.RawMessage], error) {
	if resp == nil || resp.Message != expectedTag {
		got := ""
		if resp != nil {
			got = resp.Message
		}
		return domain.Envelope[json.RawMessage]{}, fmt.Errorf("%w: expected %q, got %q", ErrUnexpectedFormat, expectedTag, got)
	}
	return domain.OK(successMessage, resp.Data), nil
}

// Decode convertit la donnée brute d'une enveloppe en type concret.
func Decode[T any](env domain.Envelope[json.RawMessage]) (domain.Envelope[T], error) {
	var out T
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &out); err != nil {
			return domain.Envelope[T]{}, fmt.Errorf("%w: %v", ErrUnexpectedFormat, err)
		}
	}
	return domain.OK(env.Message, out), nil
}

// AuthRequest vérifie la session avant d'exécuter call et transforme toute erreur
// en {success:false, message}.
func AuthRequest[T any](ctx context.Context, c *Client, call func(context.Context) (domain.Envelope[T], error), defaultMessage string) domain.Envelope[T] {
	sess, err := c.loadSession(ctx)
	if err != nil {
		return domain.Fail[T](defaultMessage)
	}
	if !sess.LoggedIn() {
		return domain.Fail[T](ErrLoginRequired.Error())
	}
	return PublicRequest(ctx, c, call, defaultMessage)
}

// PublicRequest : même normalisation que AuthRequest, sans pré-contrôle de session (signup, login, liste).
func PublicRequest[T any](ctx context.Context, c *Client, call func(context.Context) (domain.Envelope[T], error), defaultMessage string) domain.Envelope[T] {
	env, err := call(ctx)
	if err != nil {
		c.log.Debug("api call failed", "error", err)
		return domain.Fail[T](ErrorMessage(err, defaultMessage))
	}
	return env
}

// --- Helpers ---

func (c *Client) loadSession(ctx context.Context) (domain.Session, error) {
	if c.session == nil {
		return domain.Session{}, nil
	}
	sess, err := c.session.Load(ctx)
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

func (c *Client) url(endpoint string, query url.Values) string {
	u := c.baseURL + endpoint
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		u += sep + query.Encode()
	}
	return u
}

// encodeBody choisit l'encodage. En multipart, le Content-Type JSON par défaut est
// remplacé par celui du writer, qui porte la boundary.
func encodeBody(opts RequestOptions) (io.Reader, string, error) {
	if opts.Form != nil {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for _, f := range opts.Form.Fields {
			if err := w.WriteField(f.Name, f.Value); err != nil {
				return nil, "", fmt.Errorf("write form field: %w", err)
			}
		}
		for _, f := range opts.Form.Files {
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Filename))
			ct := f.ContentType
			if ct == "" {
				ct = http.DetectContentType(f.Data)
			}
			h.Set("Content-Type", ct)
			part, err := w.CreatePart(h)
			if err != nil {
				return nil, "", fmt.Errorf("create form file: %w", err)
			}
			if _, err := part.Write(f.Data); err != nil {
				return nil, "", fmt.Errorf("write form file: %w", err)
			}
		}
		if err := w.Close(); err != nil {
			return nil, "", fmt.Errorf("close form: %w", err)
		}
		return &buf, w.FormDataContentType(), nil
	}

	if opts.JSON != nil {
		data, err := json.Marshal(opts.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("encode body: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
	return nil, "application/json", nil
}

func parseResponse(status int, raw []byte) (*Response, error) {
	resp := &Response{Status: status, Fields: map[string]json.RawMessage{}}
	if len(bytes.TrimSpace(raw)) == 0 {
		return resp, nil
	}
	if err := json.Unmarshal(raw, &resp.Fields); err != nil {
		return resp, err
	}
	if m, ok := resp.Fields["message"]; ok {
		_ = json.Unmarshal(m, &resp.Message)
	}
	resp.Data = resp.Fields["data"]
	return resp, nil
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
