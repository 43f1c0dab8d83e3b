package inkwell

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Admin handlers: the JSON surface behind the session cookie. Session
// checks live in the requireAdmin middleware; handlers here assume an
// authenticated caller.

type loginRequest struct {
	Password string `json:"password"`
}

func (a *App) handleAdminLogin(c echo.Context) error {
	if !a.loginLimiter.Check(c.RealIP()) {
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "Too many login attempts. Try again later."})
	}
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(a.Config.AdminPassword)) != 1 {
		a.loginLimiter.Record(c.RealIP())
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid password"})
	}
	if err := setAdminSession(c); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleAdminListPosts(c echo.Context) error {
	return c.JSON(http.StatusOK, postsOrEmpty(a.Store.ListPosts()))
}

func (a *App) handleAdminSavePost(c echo.Context) error {
	var post Post
	if err := c.Bind(&post); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	post.Title = strings.TrimSpace(post.Title)
	post.Slug = strings.TrimSpace(post.Slug)
	if post.Slug == "" {
		post.Slug = Slugify(post.Title)
	}
	post.Tags = FilterEmpty(post.Tags)
	if post.Date == "" {
		post.Date = time.Now().UTC().Format(time.RFC3339)
	} else if _, err := time.Parse(time.RFC3339, post.Date); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid date: must be RFC3339"})
	}
	if err := a.validate.Struct(post); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Slug and title are required"})
	}
	if err := a.Store.SavePost(post); err != nil {
		a.log.Error().Err(err).Str("slug", post.Slug).Msg("admin save post")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to save post"})
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, post)
}

func (a *App) handleAdminDeletePost(c echo.Context) error {
	slug := c.Param("slug")
	if err := a.Store.DeletePost(slug); err != nil {
		a.log.Error().Err(err).Str("slug", slug).Msg("admin delete post")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete post"})
	}
	a.Cache.Invalidate()
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleAdminListPages(c echo.Context) error {
	pages := a.Store.ListPages()
	if pages == nil {
		pages = []Page{}
	}
	return c.JSON(http.StatusOK, pages)
}

func (a *App) handleAdminSavePage(c echo.Context) error {
	var page Page
	if err := c.Bind(&page); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	page.Title = strings.TrimSpace(page.Title)
	page.Slug = strings.TrimSpace(page.Slug)
	if page.Slug == "" {
		page.Slug = Slugify(page.Title)
	}
	if page.Date == "" {
		page.Date = time.Now().UTC().Format(time.RFC3339)
	} else if _, err := time.Parse(time.RFC3339, page.Date); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid date: must be RFC3339"})
	}
	if err := a.validate.Struct(page); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Slug and title are required"})
	}
	if err := a.Store.SavePage(page); err != nil {
		a.log.Error().Err(err).Str("slug", page.Slug).Msg("admin save page")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to save page"})
	}
	return c.JSON(http.StatusOK, page)
}

func (a *App) handleAdminDeletePage(c echo.Context) error {
	slug := c.Param("slug")
	if err := a.Store.DeletePage(slug); err != nil {
		a.log.Error().Err(err).Str("slug", slug).Msg("admin delete page")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete page"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleAdminListTags(c echo.Context) error {
	tags := a.Store.ListTags()
	if tags == nil {
		tags = []Tag{}
	}
	return c.JSON(http.StatusOK, tags)
}

type createTagRequest struct {
	Name string `json:"name" validate:"required"`
}

func (a *App) handleAdminCreateTag(c echo.Context) error {
	var req createTagRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := a.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Tag name is required"})
	}
	if err := a.Store.CreateTag(req.Name); err != nil {
		a.log.Error().Err(err).Str("name", req.Name).Msg("admin create tag")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create tag"})
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusCreated, Tag{Name: req.Name, Slug: TagSlug(req.Name)})
}

// handleAdminDeleteTag removes the catalog row only. Posts keep the
// deleted tag in their tag lists.
func (a *App) handleAdminDeleteTag(c echo.Context) error {
	slug := c.Param("slug")
	if err := a.Store.DeleteTag(slug); err != nil {
		a.log.Error().Err(err).Str("slug", slug).Msg("admin delete tag")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete tag"})
	}
	a.Cache.Invalidate()
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleAdminGetSetting(c echo.Context) error {
	return a.handleAPISetting(c)
}

func (a *App) handleAdminSaveSetting(c echo.Context) error {
	key := c.Param("key")
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	if !json.Valid(body) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Value must be valid JSON"})
	}
	if err := a.Store.SaveSetting(key, json.RawMessage(body)); err != nil {
		a.log.Error().Err(err).Str("key", key).Msg("admin save setting")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to save setting"})
	}
	return c.NoContent(http.StatusNoContent)
}

type createKeyRequest struct {
	Name string `json:"name" validate:"required"`
}

// handleAdminCreateKey mints a new API key and appends it to the
// registry. The read-modify-write is not serialized against concurrent
// settings writers; acceptable for a single-admin tool.
func (a *App) handleAdminCreateKey(c echo.Context) error {
	var req createKeyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := a.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Key name is required"})
	}
	key, err := MintAPIKey(req.Name)
	if err != nil {
		a.log.Error().Err(err).Msg("mint api key")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to generate key"})
	}
	registry := append(a.Store.APIKeys(), key)
	if err := a.Store.SaveSetting(SettingAPIKeys, registry); err != nil {
		a.log.Error().Err(err).Msg("save api keys")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to save key"})
	}
	return c.JSON(http.StatusCreated, key)
}

func (a *App) handleAdminDeleteKey(c echo.Context) error {
	name := c.Param("name")
	registry := a.Store.APIKeys()
	kept := make([]APIKey, 0, len(registry))
	for _, k := range registry {
		if k.Name != name {
			kept = append(kept, k)
		}
	}
	if err := a.Store.SaveSetting(SettingAPIKeys, kept); err != nil {
		a.log.Error().Err(err).Msg("save api keys")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete key"})
	}
	return c.NoContent(http.StatusNoContent)
}
