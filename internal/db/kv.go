package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/chris/todoagent/internal/todo"
)

// KeyDiscordUser holds the ID of the last Discord user who sent the bot a
// direct message. Scheduled digests are delivered to that user.
const KeyDiscordUser = "discord_user_id"

// GetValue returns the value stored under key. The boolean is false when
// the key has never been written.
func (d *DB) GetValue(key string) (string, bool, error) {
	var value string
	err := d.conn.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting %q: %w", key, err)
	}
	return value, true, nil
}

// SetValue stores or replaces the value under key.
func (d *DB) SetValue(key, value string) error {
	_, err := d.conn.Exec(
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("setting %q: %w", key, err)
	}
	return nil
}

// TodoSlot persists the whole todo list as one JSON document under a fixed key.
type TodoSlot struct {
	db  *DB
	key string
}

var _ todo.Persister = (*TodoSlot)(nil)

// TodoSlot returns the slot stored under key.
func (d *DB) TodoSlot(key string) *TodoSlot {
	return &TodoSlot{db: d, key: key}
}

// Load returns nil when the slot is empty.
func (s *TodoSlot) Load() ([]todo.Item, error) {
	raw, ok, err := s.db.GetValue(s.key)
	if err != nil || !ok {
		return nil, err
	}
	var items []todo.Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decoding %q: %w", s.key, err)
	}
	return items, nil
}

func (s *TodoSlot) Save(items []todo.Item) error {
	if items == nil {
		items = []todo.Item{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding %q: %w", s.key, err)
	}
	return s.db.SetValue(s.key, string(b))
}
