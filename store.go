package inkwell

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database and provides typed CRUD for posts, pages,
// the tag catalog, settings, and uploaded image metadata. It is the only
// component that issues raw queries.
//
// Read paths (List*/Get*) degrade on storage failure: the error is logged
// and an empty or absent result is returned, so a transient outage looks
// like "no content" to listing pages. Write paths (Save*/Delete*) always
// surface the failure to the caller.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// OpenStore opens (or creates) the SQLite database at path, ensures the
// data directory exists, runs schema setup, and seeds the first post on a
// fresh database.
func OpenStore(path string, log zerolog.Logger) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL allows concurrent reads during a write; busy_timeout makes
	// writers wait instead of returning SQLITE_BUSY immediately.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db, log: log}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := s.seed(); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    slug TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    tags TEXT NOT NULL,
    date TEXT NOT NULL,
    feature_image TEXT,
    excerpt TEXT
);
CREATE TABLE IF NOT EXISTS pages (
    slug TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    date TEXT NOT NULL,
    feature_image TEXT
);
CREATE TABLE IF NOT EXISTS tags (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT UNIQUE NOT NULL,
    slug TEXT UNIQUE NOT NULL
);
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS images (
    filename TEXT PRIMARY KEY,
    original_name TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    size INTEGER NOT NULL,
    uploaded_at TEXT NOT NULL
);
`)
	return err
}

// seed inserts a starter post when the posts table is empty.
func (s *Store) seed() error {
	var count int
	if err := s.db.QueryRow(`SELECT count(*) FROM posts`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.SavePost(Post{
		Slug:    "hello-world",
		Title:   "Hello World",
		Content: "<h1>Welcome to your blog</h1><p>This is your first post. You can edit or delete it from the admin dashboard.</p>",
		Tags:    []string{"general"},
		Date:    time.Now().UTC().Format(time.RFC3339),
		Excerpt: "Welcome to your new blog!",
	})
}

const postColumns = `slug, title, content, tags, date, feature_image, excerpt`

// scanPost scans a posts row. Must match the column order of postColumns.
func scanPost(scanner interface{ Scan(dest ...any) error }) (Post, error) {
	var p Post
	var tagsJSON string
	var featureImage, excerpt sql.NullString
	if err := scanner.Scan(&p.Slug, &p.Title, &p.Content, &tagsJSON, &p.Date, &featureImage, &excerpt); err != nil {
		return Post{}, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &p.Tags); err != nil {
		return Post{}, fmt.Errorf("decode tags for %q: %w", p.Slug, err)
	}
	p.FeatureImage = featureImage.String
	p.Excerpt = excerpt.String
	return p, nil
}

func (s *Store) queryPosts(query string, args ...any) ([]Post, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// ListPosts returns all posts ordered by date descending. On storage
// failure it returns an empty slice.
func (s *Store) ListPosts() []Post {
	posts, err := s.queryPosts(`SELECT ` + postColumns + ` FROM posts ORDER BY date DESC`)
	if err != nil {
		s.log.Error().Err(err).Msg("list posts")
		return nil
	}
	return posts
}

// ListPostsByTag returns posts whose tag list contains tag (exact,
// case-sensitive match), ordered by date descending.
func (s *Store) ListPostsByTag(tag string) []Post {
	posts, err := s.queryPosts(`SELECT `+postColumns+` FROM posts
		WHERE EXISTS (SELECT 1 FROM json_each(posts.tags) WHERE json_each.value = ?)
		ORDER BY date DESC`, tag)
	if err != nil {
		s.log.Error().Err(err).Str("tag", tag).Msg("list posts by tag")
		return nil
	}
	return posts
}

// GetPost returns a single post by slug. Absence is not an error: the
// second return value reports whether the post exists.
func (s *Store) GetPost(slug string) (Post, bool) {
	row := s.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE slug = ?`, slug)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return Post{}, false
	}
	if err != nil {
		s.log.Error().Err(err).Str("slug", slug).Msg("get post")
		return Post{}, false
	}
	return p, true
}

// SavePost upserts a post keyed by slug, fully replacing all columns.
func (s *Store) SavePost(p Post) error {
	tagsJSON, err := json.Marshal(tagsOrEmpty(p.Tags))
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO posts (slug, title, content, tags, date, feature_image, excerpt)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			tags = excluded.tags,
			date = excluded.date,
			feature_image = excluded.feature_image,
			excerpt = excluded.excerpt`,
		p.Slug, p.Title, p.Content, string(tagsJSON), p.Date, nullable(p.FeatureImage), nullable(p.Excerpt))
	if err != nil {
		return fmt.Errorf("save post %q: %w", p.Slug, err)
	}
	return nil
}

// DeletePost removes a post by slug. Deleting an absent slug is a no-op.
func (s *Store) DeletePost(slug string) error {
	if _, err := s.db.Exec(`DELETE FROM posts WHERE slug = ?`, slug); err != nil {
		return fmt.Errorf("delete post %q: %w", slug, err)
	}
	return nil
}

const pageColumns = `slug, title, content, date, feature_image`

func scanPage(scanner interface{ Scan(dest ...any) error }) (Page, error) {
	var p Page
	var featureImage sql.NullString
	if err := scanner.Scan(&p.Slug, &p.Title, &p.Content, &p.Date, &featureImage); err != nil {
		return Page{}, err
	}
	p.FeatureImage = featureImage.String
	return p, nil
}

// ListPages returns all pages ordered by date descending. On storage
// failure it returns an empty slice.
func (s *Store) ListPages() []Page {
	rows, err := s.db.Query(`SELECT ` + pageColumns + ` FROM pages ORDER BY date DESC`)
	if err != nil {
		s.log.Error().Err(err).Msg("list pages")
		return nil
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			s.log.Error().Err(err).Msg("list pages")
			return nil
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		s.log.Error().Err(err).Msg("list pages")
		return nil
	}
	return pages
}

// GetPage returns a single page by slug.
func (s *Store) GetPage(slug string) (Page, bool) {
	row := s.db.QueryRow(`SELECT `+pageColumns+` FROM pages WHERE slug = ?`, slug)
	p, err := scanPage(row)
	if err == sql.ErrNoRows {
		return Page{}, false
	}
	if err != nil {
		s.log.Error().Err(err).Str("slug", slug).Msg("get page")
		return Page{}, false
	}
	return p, true
}

// SavePage upserts a page keyed by slug, fully replacing all columns.
func (s *Store) SavePage(p Page) error {
	_, err := s.db.Exec(`INSERT INTO pages (slug, title, content, date, feature_image)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			date = excluded.date,
			feature_image = excluded.feature_image`,
		p.Slug, p.Title, p.Content, p.Date, nullable(p.FeatureImage))
	if err != nil {
		return fmt.Errorf("save page %q: %w", p.Slug, err)
	}
	return nil
}

// DeletePage removes a page by slug. Deleting an absent slug is a no-op.
func (s *Store) DeletePage(slug string) error {
	if _, err := s.db.Exec(`DELETE FROM pages WHERE slug = ?`, slug); err != nil {
		return fmt.Errorf("delete page %q: %w", slug, err)
	}
	return nil
}

// ListTags returns the tag catalog ordered by name ascending.
func (s *Store) ListTags() []Tag {
	rows, err := s.db.Query(`SELECT name, slug FROM tags ORDER BY name ASC`)
	if err != nil {
		s.log.Error().Err(err).Msg("list tags")
		return nil
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.Name, &t.Slug); err != nil {
			s.log.Error().Err(err).Msg("list tags")
			return nil
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		s.log.Error().Err(err).Msg("list tags")
		return nil
	}
	return tags
}

// CreateTag inserts a catalog row, deriving the slug from the name.
// A duplicate name is silently ignored.
func (s *Store) CreateTag(name string) error {
	_, err := s.db.Exec(`INSERT INTO tags (name, slug) VALUES (?, ?)
		ON CONFLICT(name) DO NOTHING`, name, TagSlug(name))
	if err != nil {
		return fmt.Errorf("create tag %q: %w", name, err)
	}
	return nil
}

// DeleteTag removes a catalog row by slug. Posts referencing the tag keep
// it in their tag lists; the catalog is not a foreign key.
func (s *Store) DeleteTag(slug string) error {
	if _, err := s.db.Exec(`DELETE FROM tags WHERE slug = ?`, slug); err != nil {
		return fmt.Errorf("delete tag %q: %w", slug, err)
	}
	return nil
}

// ListImages returns uploaded image metadata, newest first.
func (s *Store) ListImages() []Image {
	rows, err := s.db.Query(`SELECT filename, original_name, width, height, size, uploaded_at
		FROM images ORDER BY uploaded_at DESC`)
	if err != nil {
		s.log.Error().Err(err).Msg("list images")
		return nil
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.Filename, &img.OriginalName, &img.Width, &img.Height, &img.Size, &img.UploadedAt); err != nil {
			s.log.Error().Err(err).Msg("list images")
			return nil
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		s.log.Error().Err(err).Msg("list images")
		return nil
	}
	return images
}

// SaveImage records metadata for an uploaded image.
func (s *Store) SaveImage(img Image) error {
	_, err := s.db.Exec(`INSERT INTO images (filename, original_name, width, height, size, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			original_name = excluded.original_name,
			width = excluded.width,
			height = excluded.height,
			size = excluded.size,
			uploaded_at = excluded.uploaded_at`,
		img.Filename, img.OriginalName, img.Width, img.Height, img.Size, img.UploadedAt)
	if err != nil {
		return fmt.Errorf("save image %q: %w", img.Filename, err)
	}
	return nil
}

// DeleteImage removes an image metadata row.
func (s *Store) DeleteImage(filename string) error {
	if _, err := s.db.Exec(`DELETE FROM images WHERE filename = ?`, filename); err != nil {
		return fmt.Errorf("delete image %q: %w", filename, err)
	}
	return nil
}

// tagsOrEmpty never serializes nil tags as JSON null.
func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// nullable maps an empty string to SQL NULL for optional columns.
func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
