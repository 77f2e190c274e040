package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tgienger/planx/internal/auth"
	"github.com/tgienger/planx/internal/config"
	"github.com/tgienger/planx/internal/db"
	"github.com/tgienger/planx/internal/mail"
	"github.com/tgienger/planx/internal/media"
	"github.com/tgienger/planx/internal/storage"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) to(addr string) []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []mail.Message
	for _, msg := range m.sent {
		if msg.To == addr {
			out = append(out, msg)
		}
	}
	return out
}

type copyTranscoder struct{}

func (copyTranscoder) Transcode(ctx context.Context, src io.Reader, name string) ([]byte, error) {
	return io.ReadAll(src)
}

// cancelAwareStore refuses work on a cancelled context the way a network
// backed store does
type cancelAwareStore struct {
	storage.Store
}

func (s cancelAwareStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.Delete(ctx, key)
}

type testEnv struct {
	t       *testing.T
	srv     *Server
	handler http.Handler
	mailer  *fakeMailer
	files   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	database, err := db.Open(ctx, config.DatabaseConfig{Driver: "sqlite3", DSN: filepath.Join(dir, "planx.db")})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	files := filepath.Join(dir, "files")
	store, err := storage.NewDiskStore(files, "/files")
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	mailer := &fakeMailer{}
	srv := New(Deps{
		DB:       database,
		Auth:     auth.NewManager("test-secret", time.Hour),
		Mail:     mailer,
		Media:    media.NewPipeline(cancelAwareStore{store}, media.ImageResizer{MaxWidth: 64}, copyTranscoder{}, logger),
		Logger:   logger,
		Server:   config.ServerConfig{AllowedOrigins: []string{"*"}},
		OTPTTL:   10 * time.Minute,
		FilesDir: files,
	})
	return &testEnv{t: t, srv: srv, handler: srv.Router(), mailer: mailer, files: files}
}

// do sends a JSON request, authenticating with token when non-empty
func (e *testEnv) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

type part struct {
	field, filename, contentType string
	data                         []byte
}

// upload sends a multipart form with the given fields and files
func (e *testEnv) upload(path string, fields map[string]string, parts []part, token string) *httptest.ResponseRecorder {
	e.t.Helper()
	return e.uploadWith(http.MethodPost, path, fields, parts, token)
}

// uploadWith sends a multipart form with the given method
func (e *testEnv) uploadWith(method, path string, fields map[string]string, parts []part, token string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(e.t, mw.WriteField(k, v))
	}
	for _, p := range parts {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		h.Set("Content-Type", p.contentType)
		w, err := mw.CreatePart(h)
		require.NoError(e.t, err)
		_, err = w.Write(p.data)
		require.NoError(e.t, err)
	}
	require.NoError(e.t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// signup registers a user and returns its id and a session token
func (e *testEnv) signup(name, email string) (int64, string) {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/users", map[string]any{
		"userName": name, "email": email, "password": "secret1",
	}, "")
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var u struct{ ID int64 }
	decode(e.t, rec, &u)

	rec = e.do(http.MethodPost, "/users/login", map[string]any{"email": email, "password": "secret1"}, "")
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
	var login struct{ Token string }
	decode(e.t, rec, &login)
	return u.ID, login.Token
}

func (e *testEnv) mustCreate(path string, body any, token string) int64 {
	e.t.Helper()
	rec := e.do(http.MethodPost, path, body, token)
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct{ ID int64 }
	decode(e.t, rec, &out)
	return out.ID
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var m messageResponse
	decode(t, rec, &m)
	return m.Message
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
