package inkwell

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testAPIKey is pre-registered by newTestApp so API requests can
// authenticate without minting.
const testAPIKey = "ak_testsecret0000000000000000"

// newTestApp wires an App against a temp database with routes registered
// but without the HTTP middleware stack, so tests exercise handlers and
// route guards directly.
func newTestApp(t *testing.T) *App {
	t.Helper()

	store, err := OpenStore(filepath.Join(t.TempDir(), "app_test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	a := &App{
		Config: Config{
			BaseURL:       "http://localhost:3000",
			StaticDir:     t.TempDir(),
			AdminPassword: "test-password",
			SessionSecret: "test-session-secret",
		},
		Echo:         echo.New(),
		Store:        store,
		Cache:        NewPostCache(store, time.Minute),
		log:          zerolog.Nop(),
		validate:     validator.New(),
		loginLimiter: NewLoginLimiter(5, time.Minute),
	}
	a.setupRoutes()

	require.NoError(t, store.SaveSetting(SettingAPIKeys, []APIKey{
		{Name: "test", Key: testAPIKey, CreatedAt: "2024-01-01T00:00:00Z"},
	}))
	return a
}

// apiGET performs an authenticated GET against the app's router.
func apiGET(a *App, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(APIKeyHeader, testAPIKey)
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func TestAPIListPosts(t *testing.T) {
	a := newTestApp(t)

	rec := apiGET(a, "/api/posts")
	require.Equal(t, http.StatusOK, rec.Code)

	var posts []Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	require.Len(t, posts, 1, "fresh install serves the seed post")
	assert.Equal(t, "hello-world", posts[0].Slug)
}

func TestAPIListPostsByTag(t *testing.T) {
	a := newTestApp(t)

	require.NoError(t, a.Store.SavePost(Post{
		Slug: "go-notes", Title: "Go Notes", Date: "2024-03-01T00:00:00Z",
		Tags: []string{"go"},
	}))

	rec := apiGET(a, "/api/posts?tag=general")
	require.Equal(t, http.StatusOK, rec.Code)
	var posts []Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "hello-world", posts[0].Slug)

	rec = apiGET(a, "/api/posts?tag=go")
	var goPosts []Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &goPosts))
	require.Len(t, goPosts, 1)
	assert.Equal(t, "go-notes", goPosts[0].Slug)

	// Unknown tag yields an empty array, not null and not an error.
	rec = apiGET(a, "/api/posts?tag=nonexistent")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAPIGetPost(t *testing.T) {
	a := newTestApp(t)

	rec := apiGET(a, "/api/posts/hello-world")
	require.Equal(t, http.StatusOK, rec.Code)
	var post Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))
	assert.Equal(t, "hello-world", post.Slug)
	assert.Equal(t, []string{"general"}, post.Tags)

	rec = apiGET(a, "/api/posts/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Post not found"}`, rec.Body.String())
}

func TestAPIPages(t *testing.T) {
	a := newTestApp(t)

	rec := apiGET(a, "/api/pages")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	require.NoError(t, a.Store.SavePage(Page{
		Slug: "about", Title: "About", Content: "<p>Hi</p>", Date: "2024-01-01T00:00:00Z",
	}))

	rec = apiGET(a, "/api/pages/about")
	require.Equal(t, http.StatusOK, rec.Code)
	var page Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, "About", page.Title)

	rec = apiGET(a, "/api/pages/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Page not found"}`, rec.Body.String())
}

func TestAPITags(t *testing.T) {
	a := newTestApp(t)

	require.NoError(t, a.Store.CreateTag("Go"))
	require.NoError(t, a.Store.CreateTag("Web Dev"))

	rec := apiGET(a, "/api/tags")
	require.Equal(t, http.StatusOK, rec.Code)

	var tags []Tag
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tags))
	require.Len(t, tags, 2)
	assert.Equal(t, Tag{Name: "Go", Slug: "go"}, tags[0])
	assert.Equal(t, Tag{Name: "Web Dev", Slug: "web-dev"}, tags[1])
}

func TestAPISettingPassthrough(t *testing.T) {
	a := newTestApp(t)

	require.NoError(t, a.Store.SaveSetting(SettingSiteInfo, SiteInfo{
		Title: "Inkwell", Description: "Field notes",
	}))

	rec := apiGET(a, "/api/settings/site_info")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"title":"Inkwell","description":"Field notes"}`, rec.Body.String())

	rec = apiGET(a, "/api/settings/never_set")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Setting not found"}`, rec.Body.String())
}

func TestAPISettingMalformed(t *testing.T) {
	a := newTestApp(t)

	_, err := a.Store.db.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)`,
		"broken", `{"unterminated`)
	require.NoError(t, err)

	rec := apiGET(a, "/api/settings/broken")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch setting"}`, rec.Body.String())
}

func TestHealthz(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
