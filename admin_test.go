package inkwell

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// adminCtx builds an echo context for invoking admin handlers directly,
// bypassing the session guard the way requireAdmin would after a
// successful login.
func adminCtx(a *App, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return a.Echo.NewContext(req, rec), rec
}

func TestAdminSavePost(t *testing.T) {
	a := newTestApp(t)

	c, rec := adminCtx(a, http.MethodPost, "/admin/posts/",
		`{"title":"My First Draft","content":"<p>Body</p>","tags":["go","","  "]}`)
	require.NoError(t, a.handleAdminSavePost(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var saved Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.Equal(t, "my-first-draft", saved.Slug, "slug derives from title when omitted")
	assert.Equal(t, []string{"go"}, saved.Tags, "blank tags are dropped")
	assert.NotEmpty(t, saved.Date, "date defaults to now")

	got, ok := a.Store.GetPost("my-first-draft")
	require.True(t, ok)
	assert.Equal(t, "My First Draft", got.Title)
}

func TestAdminSavePostValidation(t *testing.T) {
	a := newTestApp(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing title", `{"content":"<p>no title</p>"}`},
		{"whitespace title", `{"title":"   "}`},
		{"bad date", `{"title":"Ok","date":"yesterday"}`},
		{"malformed body", `{"title": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := adminCtx(a, http.MethodPost, "/admin/posts/", tt.body)
			require.NoError(t, a.handleAdminSavePost(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAdminSavePostInvalidatesCache(t *testing.T) {
	a := newTestApp(t)

	require.Len(t, a.Cache.Posts(), 1, "cache warm with the seed post")

	c, rec := adminCtx(a, http.MethodPost, "/admin/posts/",
		`{"title":"Fresh","date":"2024-06-01T00:00:00Z"}`)
	require.NoError(t, a.handleAdminSavePost(c))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Len(t, a.Cache.Posts(), 2, "save must invalidate the cache")
}

func TestAdminDeletePost(t *testing.T) {
	a := newTestApp(t)

	c, rec := adminCtx(a, http.MethodDelete, "/admin/posts/hello-world/", "")
	c.SetParamNames("slug")
	c.SetParamValues("hello-world")
	require.NoError(t, a.handleAdminDeletePost(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, ok := a.Store.GetPost("hello-world")
	assert.False(t, ok)

	// Deleting again is still 204.
	c, rec = adminCtx(a, http.MethodDelete, "/admin/posts/hello-world/", "")
	c.SetParamNames("slug")
	c.SetParamValues("hello-world")
	require.NoError(t, a.handleAdminDeletePost(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAdminSavePage(t *testing.T) {
	a := newTestApp(t)

	c, rec := adminCtx(a, http.MethodPost, "/admin/pages/",
		`{"title":"About Us","content":"<p>Hello</p>"}`)
	require.NoError(t, a.handleAdminSavePage(c))
	require.Equal(t, http.StatusOK, rec.Code)

	page, ok := a.Store.GetPage("about-us")
	require.True(t, ok)
	assert.Equal(t, "About Us", page.Title)
}

func TestAdminCreateTag(t *testing.T) {
	a := newTestApp(t)

	c, rec := adminCtx(a, http.MethodPost, "/admin/tags/", `{"name":"Web Dev"}`)
	require.NoError(t, a.handleAdminCreateTag(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"name":"Web Dev","slug":"web-dev"}`, rec.Body.String())

	// Duplicate create is a no-op that still reports created.
	c, rec = adminCtx(a, http.MethodPost, "/admin/tags/", `{"name":"Web Dev"}`)
	require.NoError(t, a.handleAdminCreateTag(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, a.Store.ListTags(), 1)

	c, rec = adminCtx(a, http.MethodPost, "/admin/tags/", `{"name":"  "}`)
	require.NoError(t, a.handleAdminCreateTag(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminSaveSetting(t *testing.T) {
	a := newTestApp(t)

	c, rec := adminCtx(a, http.MethodPut, "/admin/settings/site_info/",
		`{"title":"New Name","description":"Updated"}`)
	c.SetParamNames("key")
	c.SetParamValues(SettingSiteInfo)
	require.NoError(t, a.handleAdminSaveSetting(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	info := a.Store.SiteInfo()
	assert.Equal(t, "New Name", info.Title)

	// The stored value must be valid JSON; anything else is rejected
	// before it reaches the table.
	c, rec = adminCtx(a, http.MethodPut, "/admin/settings/site_info/", `{"title": oops`)
	c.SetParamNames("key")
	c.SetParamValues(SettingSiteInfo)
	require.NoError(t, a.handleAdminSaveSetting(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Value must be valid JSON"}`, rec.Body.String())

	info = a.Store.SiteInfo()
	assert.Equal(t, "New Name", info.Title, "rejected write must not touch the stored value")
}

func TestAdminKeyLifecycle(t *testing.T) {
	a := newTestApp(t)

	c, rec := adminCtx(a, http.MethodPost, "/admin/keys/", `{"name":"ci-pipeline"}`)
	require.NoError(t, a.handleAdminCreateKey(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var minted APIKey
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &minted))
	assert.Equal(t, "ci-pipeline", minted.Name)
	assert.True(t, strings.HasPrefix(minted.Key, "ak_"))

	registry := a.Store.APIKeys()
	require.Len(t, registry, 2, "mint appends to the existing registry")
	assert.True(t, Authorize(registry, minted.Key))
	assert.True(t, Authorize(registry, testAPIKey), "pre-existing keys survive a mint")

	c, rec = adminCtx(a, http.MethodDelete, "/admin/keys/ci-pipeline/", "")
	c.SetParamNames("name")
	c.SetParamValues("ci-pipeline")
	require.NoError(t, a.handleAdminDeleteKey(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	registry = a.Store.APIKeys()
	require.Len(t, registry, 1)
	assert.False(t, Authorize(registry, minted.Key), "revoked key no longer authorizes")
}

func TestAdminDeleteKeyUnknownName(t *testing.T) {
	a := newTestApp(t)

	c, rec := adminCtx(a, http.MethodDelete, "/admin/keys/no-such-key/", "")
	c.SetParamNames("name")
	c.SetParamValues("no-such-key")
	require.NoError(t, a.handleAdminDeleteKey(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, a.Store.APIKeys(), 1, "registry unchanged")
}

// loginTestServer mounts the login route behind the session middleware,
// which the handler needs to write the cookie.
func loginTestServer(a *App) *echo.Echo {
	e := echo.New()
	e.Use(session.Middleware(a.newSessionStore()))
	e.POST("/admin/login/", a.handleAdminLogin)
	return e
}

func TestAdminLogin(t *testing.T) {
	a := newTestApp(t)
	e := loginTestServer(a)

	req := httptest.NewRequest(http.MethodPost, "/admin/login/",
		strings.NewReader(`{"password":"wrong"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Header().Get("Set-Cookie"))

	req = httptest.NewRequest(http.MethodPost, "/admin/login/",
		strings.NewReader(`{"password":"test-password"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), sessionName)
}

func TestAdminLoginRateLimit(t *testing.T) {
	a := newTestApp(t)
	e := loginTestServer(a)

	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/admin/login/",
			strings.NewReader(`{"password":"wrong"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.RemoteAddr = fmt.Sprintf("%s:12345", ip)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusUnauthorized, do("203.0.113.7").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, do("203.0.113.7").Code)

	// A different IP is unaffected.
	assert.Equal(t, http.StatusUnauthorized, do("203.0.113.8").Code)
}
