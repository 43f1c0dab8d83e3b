package inkwell

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Read-only API handlers. Every route in this file sits behind
// requireAPIKey; responses are the bare entity JSON, matching what the
// admin console saved.

func (a *App) handleAPIPosts(c echo.Context) error {
	if tag := c.QueryParam("tag"); tag != "" {
		return c.JSON(http.StatusOK, postsOrEmpty(a.Store.ListPostsByTag(tag)))
	}
	return c.JSON(http.StatusOK, postsOrEmpty(a.Cache.Posts()))
}

func (a *App) handleAPIPost(c echo.Context) error {
	post, ok := a.Store.GetPost(c.Param("slug"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Post not found"})
	}
	return c.JSON(http.StatusOK, post)
}

func (a *App) handleAPIPages(c echo.Context) error {
	pages := a.Store.ListPages()
	if pages == nil {
		pages = []Page{}
	}
	return c.JSON(http.StatusOK, pages)
}

func (a *App) handleAPIPage(c echo.Context) error {
	page, ok := a.Store.GetPage(c.Param("slug"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Page not found"})
	}
	return c.JSON(http.StatusOK, page)
}

func (a *App) handleAPITags(c echo.Context) error {
	tags := a.Store.ListTags()
	if tags == nil {
		tags = []Tag{}
	}
	return c.JSON(http.StatusOK, tags)
}

func (a *App) handleAPISetting(c echo.Context) error {
	key := c.Param("key")
	raw, ok, err := a.Store.RawSetting(key)
	if err != nil {
		a.log.Error().Err(err).Str("key", key).Msg("api setting")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch setting"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Setting not found"})
	}
	return c.JSONBlob(http.StatusOK, raw)
}

func postsOrEmpty(posts []Post) []Post {
	if posts == nil {
		return []Post{}
	}
	return posts
}
