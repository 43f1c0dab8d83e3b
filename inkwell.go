// Package inkwell is a self-hosted blogging platform backend built with
// Go, Echo, and SQLite. It provides the content and configuration data
// layer (posts, pages, tags, settings), an authenticated admin surface
// for authoring, and a read-only JSON API gated by static API keys.
package inkwell

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// App is the central inkwell application. It wires together the store,
// cache, handlers, and middleware.
type App struct {
	Config Config
	Echo   *echo.Echo
	Store  *Store
	Cache  *PostCache

	log          zerolog.Logger
	validate     *validator.Validate
	loginLimiter *LoginLimiter
	customRoutes []func(*App)
}

// New creates a new inkwell App with the given configuration.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// setup initializes the database, cache, middleware, and routes. Split
// from Start so tests can drive the app without binding a listener.
func (a *App) setup() error {
	if a.Config.AdminPassword == "" {
		return fmt.Errorf("inkwell: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("inkwell: SessionSecret is required")
	}

	a.log = NewLogger(a.Config.LogLevel, a.Config.Environment)

	store, err := OpenStore(a.Config.DatabasePath, a.log)
	if err != nil {
		return fmt.Errorf("inkwell: init store: %w", err)
	}
	a.Store = store
	a.Cache = NewPostCache(store, a.Config.CacheTTL)
	a.loginLimiter = NewLoginLimiter(5, time.Minute)
	a.validate = validator.New()

	a.Echo.HideBanner = true
	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start initializes the app and runs the HTTP server until it stops.
func (a *App) Start() error {
	if err := a.setup(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Public surface.
	e.Static("/public", a.Config.StaticDir)
	e.GET("/healthz", handleHealth)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	// Read-only API, gated by the x-api-key header.
	api := e.Group("/api", a.requireAPIKey)
	api.GET("/posts", a.handleAPIPosts)
	api.GET("/posts/:slug", a.handleAPIPost)
	api.GET("/pages", a.handleAPIPages)
	api.GET("/pages/:slug", a.handleAPIPage)
	api.GET("/tags", a.handleAPITags)
	api.GET("/settings/:key", a.handleAPISetting)

	// Admin surface, gated by the session cookie.
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)

	admin := e.Group("/admin", a.requireAdmin)
	admin.GET("/posts/", a.handleAdminListPosts)
	admin.POST("/posts/", a.handleAdminSavePost)
	admin.DELETE("/posts/:slug/", a.handleAdminDeletePost)
	admin.GET("/pages/", a.handleAdminListPages)
	admin.POST("/pages/", a.handleAdminSavePage)
	admin.DELETE("/pages/:slug/", a.handleAdminDeletePage)
	admin.GET("/tags/", a.handleAdminListTags)
	admin.POST("/tags/", a.handleAdminCreateTag)
	admin.DELETE("/tags/:slug/", a.handleAdminDeleteTag)
	admin.GET("/settings/:key/", a.handleAdminGetSetting)
	admin.PUT("/settings/:key/", a.handleAdminSaveSetting)
	admin.POST("/keys/", a.handleAdminCreateKey)
	admin.DELETE("/keys/:name/", a.handleAdminDeleteKey)
	admin.GET("/images/", a.handleImageList)
	admin.POST("/images/upload/", a.handleImageUpload)
	admin.DELETE("/images/:filename/", a.handleImageDelete)
}

func handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
