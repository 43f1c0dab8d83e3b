package inkwell

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// Well-known settings keys. The settings table is a schemaless key→JSON
// bag; each known key gets a typed accessor below so untyped values never
// leak past the store boundary.
const (
	SettingSiteInfo            = "site_info"
	SettingSiteDesign          = "site_design"
	SettingPrimaryNavigation   = "primary_navigation"
	SettingSecondaryNavigation = "secondary_navigation"
	SettingAPIKeys             = "api_keys"
)

// GetSetting loads the setting under key and unmarshals it into dest.
// It reports false when the key is unset or the read fails (the read path
// degrades). Malformed JSON under an existing key is an error, not
// "absent" — silently returning unset would hide a corrupt write.
func (s *Store) GetSetting(key string, dest any) (bool, error) {
	raw, ok, err := s.rawSetting(key)
	if !ok || err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("setting %q: decode: %w", key, err)
	}
	return true, nil
}

// RawSetting returns the stored JSON document under key without binding
// it to a concrete shape. Used by the settings API route, which relays
// the value verbatim.
func (s *Store) RawSetting(key string) (json.RawMessage, bool, error) {
	raw, ok, err := s.rawSetting(key)
	if !ok || err != nil {
		return nil, false, err
	}
	if !json.Valid(raw) {
		return nil, false, fmt.Errorf("setting %q: stored value is not valid JSON", key)
	}
	return raw, true, nil
}

func (s *Store) rawSetting(key string) (json.RawMessage, bool, error) {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("get setting")
		return nil, false, nil
	}
	return json.RawMessage(raw), true, nil
}

// SaveSetting serializes value to JSON and upserts it under key.
// The write replaces the previous value whole; there is no merge.
func (s *Store) SaveSetting(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("setting %q: encode: %w", key, err)
	}
	_, err = s.db.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, string(raw))
	if err != nil {
		return fmt.Errorf("save setting %q: %w", key, err)
	}
	return nil
}

// SiteInfo returns the site title and description, with defaults when the
// setting is unset or unreadable.
func (s *Store) SiteInfo() SiteInfo {
	def := SiteInfo{Title: "My Blog", Description: "A blog about everything."}
	info := def
	if _, err := s.GetSetting(SettingSiteInfo, &info); err != nil {
		s.log.Error().Err(err).Msg("site_info setting")
		return def
	}
	return info
}

// SiteDesign returns branding settings with defaults.
func (s *Store) SiteDesign() SiteDesign {
	def := SiteDesign{AccentColor: "#3b82f6"}
	design := def
	if _, err := s.GetSetting(SettingSiteDesign, &design); err != nil {
		s.log.Error().Err(err).Msg("site_design setting")
		return def
	}
	return design
}

// Navigation returns the link list stored under key
// (SettingPrimaryNavigation or SettingSecondaryNavigation), empty when
// unset.
func (s *Store) Navigation(key string) []NavLink {
	var links []NavLink
	if _, err := s.GetSetting(key, &links); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("navigation setting")
		return nil
	}
	return links
}

// APIKeys returns the API key registry, empty when the setting is unset
// or unreadable. An empty registry denies every request, so every failure
// mode here fails closed.
func (s *Store) APIKeys() []APIKey {
	var keys []APIKey
	if _, err := s.GetSetting(SettingAPIKeys, &keys); err != nil {
		s.log.Error().Err(err).Msg("api_keys setting")
		return nil
	}
	return keys
}
