package database

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/franckalain/fooddiary/internal/models"
	"github.com/franckalain/fooddiary/internal/observability"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

// SQLiteDB implements Store on a single SQLite file. Each user row holds the
// profile and chat history as JSON; each diary_days row holds one day's log.
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB creates a new SQLite database connection
func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// SQLite allows a single writer; serializing connections avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error enabling foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error enabling WAL mode: %w", err)
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing schema: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

func initializeSchema(db *sql.DB) error {
	schemaBytes, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("error reading schema file: %w", err)
	}

	if _, err := db.Exec(string(schemaBytes)); err != nil {
		return fmt.Errorf("error executing schema: %w", err)
	}

	observability.Logger().Debug("database schema initialized")
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// GetDailyLog returns the stored log of a day
func (s *SQLiteDB) GetDailyLog(ctx context.Context, uid, dateKey string) (models.DailyLog, error) {
	if err := checkUID(uid); err != nil {
		return nil, err
	}

	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT log FROM diary_days WHERE uid = ? AND date_key = ?`, uid, dateKey,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DailyLog{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load diary %s: %w", dateKey, err)
	}
	return decodeLog(raw)
}

// SaveMeal merges one meal into the day document, creating it if needed
func (s *SQLiteDB) SaveMeal(ctx context.Context, uid, dateKey string, mealType models.MealType, meal models.Meal) error {
	if err := checkUID(uid); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		log, err := s.readLogTx(ctx, tx, uid, dateKey)
		if err != nil {
			return err
		}
		if log == nil {
			log = models.DailyLog{}
		}
		log[mealType] = meal

		encoded, err := json.Marshal(log)
		if err != nil {
			return fmt.Errorf("encode diary: %w", err)
		}

		ts := now()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO diary_days (uid, date_key, log, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(uid, date_key) DO UPDATE SET
				log = excluded.log,
				updated_at = excluded.updated_at
		`, uid, dateKey, string(encoded), ts, ts)
		if err != nil {
			return fmt.Errorf("save meal %s: %w", mealType, err)
		}
		return nil
	})
}

// DeleteMeal removes one meal inside a transaction, deleting the day row
// when no meal remains
func (s *SQLiteDB) DeleteMeal(ctx context.Context, uid, dateKey string, mealType models.MealType) error {
	if err := checkUID(uid); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		log, err := s.readLogTx(ctx, tx, uid, dateKey)
		if err != nil {
			return err
		}
		if log == nil {
			observability.Logger().Warn("delete on missing diary day", "user_id", uid, "date", dateKey)
			return nil
		}
		if _, ok := log[mealType]; !ok {
			return nil
		}
		delete(log, mealType)

		if len(log) == 0 {
			_, err = tx.ExecContext(ctx,
				`DELETE FROM diary_days WHERE uid = ? AND date_key = ?`, uid, dateKey)
		} else {
			var encoded []byte
			encoded, err = json.Marshal(log)
			if err != nil {
				return fmt.Errorf("encode diary: %w", err)
			}
			_, err = tx.ExecContext(ctx,
				`UPDATE diary_days SET log = ?, updated_at = ? WHERE uid = ? AND date_key = ?`,
				string(encoded), now(), uid, dateKey)
		}
		if err != nil {
			return fmt.Errorf("delete meal %s: %w", mealType, err)
		}
		return nil
	})
}

// readLogTx returns nil when the day has no row
func (s *SQLiteDB) readLogTx(ctx context.Context, tx *sql.Tx, uid, dateKey string) (models.DailyLog, error) {
	var raw string
	err := tx.QueryRowContext(ctx,
		`SELECT log FROM diary_days WHERE uid = ? AND date_key = ?`, uid, dateKey,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load diary %s: %w", dateKey, err)
	}
	return decodeLog(raw)
}

func decodeLog(raw string) (models.DailyLog, error) {
	log := models.DailyLog{}
	if err := json.Unmarshal([]byte(raw), &log); err != nil {
		return nil, fmt.Errorf("decode diary: %w", err)
	}
	return log, nil
}

// ensureUser creates the user row with an empty profile and chat history
func (s *SQLiteDB) ensureUser(ctx context.Context, uid string) error {
	ts := now()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (uid, created_at, updated_at) VALUES (?, ?, ?)`, uid, ts, ts)
	if err != nil {
		return fmt.Errorf("create user %s: %w", uid, err)
	}
	return nil
}

// GetProfile returns the user's profile, creating the user on first access
func (s *SQLiteDB) GetProfile(ctx context.Context, uid string) (models.UserProfile, error) {
	var profile models.UserProfile
	if err := s.readUserField(ctx, uid, "profile", &profile); err != nil {
		return models.UserProfile{}, err
	}
	return profile, nil
}

// UpdateProfile replaces the stored profile; nil fields are dropped
func (s *SQLiteDB) UpdateProfile(ctx context.Context, uid string, profile models.UserProfile) error {
	return s.writeUserField(ctx, uid, "profile", profile)
}

// GetChatHistory returns the stored conversation, creating the user on first access
func (s *SQLiteDB) GetChatHistory(ctx context.Context, uid string) ([]models.ChatMessage, error) {
	messages := []models.ChatMessage{}
	if err := s.readUserField(ctx, uid, "chat_history", &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SaveChatHistory overwrites the stored conversation
func (s *SQLiteDB) SaveChatHistory(ctx context.Context, uid string, messages []models.ChatMessage) error {
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	return s.writeUserField(ctx, uid, "chat_history", messages)
}

// ClearChatHistory resets the conversation to an empty array
func (s *SQLiteDB) ClearChatHistory(ctx context.Context, uid string) error {
	return s.writeUserField(ctx, uid, "chat_history", []models.ChatMessage{})
}

// column is one of the fixed user columns, never user input
func (s *SQLiteDB) readUserField(ctx context.Context, uid, column string, dest any) error {
	if err := checkUID(uid); err != nil {
		return err
	}
	if err := s.ensureUser(ctx, uid); err != nil {
		return err
	}

	var raw string
	query := fmt.Sprintf(`SELECT %s FROM users WHERE uid = ?`, column)
	if err := s.db.QueryRowContext(ctx, query, uid).Scan(&raw); err != nil {
		return fmt.Errorf("load %s for %s: %w", column, uid, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("decode %s: %w", column, err)
	}
	return nil
}

func (s *SQLiteDB) writeUserField(ctx context.Context, uid, column string, value any) error {
	if err := checkUID(uid); err != nil {
		return err
	}
	if err := s.ensureUser(ctx, uid); err != nil {
		return err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", column, err)
	}

	query := fmt.Sprintf(`UPDATE users SET %s = ?, updated_at = ? WHERE uid = ?`, column)
	if _, err := s.db.ExecContext(ctx, query, string(encoded), now(), uid); err != nil {
		return fmt.Errorf("save %s for %s: %w", column, uid, err)
	}
	return nil
}

func (s *SQLiteDB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
