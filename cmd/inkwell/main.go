package main

import (
	"log"
	"strings"
	"time"

	"github.com/inkwellcms/inkwell"
)

func main() {
	cfg := inkwell.Config{
		BaseURL:       strings.TrimSuffix(inkwell.EnvOr("BASE_URL", "http://localhost:3000"), "/"),
		Addr:          inkwell.EnvOr("ADDR", ":3000"),
		DatabasePath:  inkwell.EnvOr("DATABASE_PATH", "data/blog.db"),
		StaticDir:     inkwell.EnvOr("STATIC_DIR", "public"),
		AdminPassword: inkwell.MustEnv("ADMIN_PASSWORD"),
		SessionSecret: inkwell.MustEnv("ADMIN_SESSION_SECRET"),
		CookieSecure:  strings.EqualFold(inkwell.EnvOr("COOKIE_SECURE", ""), "true"),
		LogLevel:      inkwell.EnvOr("LOG_LEVEL", "info"),
		Environment:   inkwell.EnvOr("ENV", ""),
		CacheTTL:      5 * time.Minute,
	}

	app := inkwell.New(cfg)
	defer app.Close()

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}
