package history

import (
	"context"
	"fmt"

	domain "github.com/Singh2236/chatLocalAnom/domain/chat"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// messageRow is the persisted form of a chat message.
type messageRow struct {
	ID     uint   `gorm:"primarykey"`
	Room   string `gorm:"size:12;not null;index"`
	Sender string `gorm:"size:64;not null"`
	Text   string `gorm:"not null"`
	SentAt int64  `gorm:"column:created_at;not null"`
}

// TableName returns the table name for messageRow.
func (messageRow) TableName() string {
	return "messages"
}

// SQLStore keeps history in SQLite through GORM.
type SQLStore struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) the database at path and migrates it.
func OpenSQLite(path string, debug bool) (*SQLStore, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite serializes writers anyway; one connection also keeps
	// ":memory:" databases shared.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&messageRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLStore{db: db}, nil
}

// Append inserts a message row.
func (s *SQLStore) Append(ctx context.Context, room, sender, payload string, kind domain.Kind, timestamp int64) error {
	row := &messageRow{
		Room:   room,
		Sender: sender,
		Text:   encodePayload(payload, kind),
		SentAt: timestamp,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// ReadRecent returns the newest rows of room, newest first.
func (s *SQLStore) ReadRecent(ctx context.Context, room string, limit int) ([]Record, error) {
	if limit <= 0 {
		return []Record{}, nil
	}

	var rows []messageRow
	err := s.db.WithContext(ctx).
		Where("room = ?", room).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		payload, kind := decodePayload(row.Text)
		records = append(records, Record{
			Sender:    row.Sender,
			Payload:   payload,
			Kind:      kind,
			Timestamp: row.SentAt,
		})
	}
	return records, nil
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
