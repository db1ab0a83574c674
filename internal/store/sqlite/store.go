package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/devvrat-hans/algo-trading-bot/internal/position"
	"github.com/devvrat-hans/algo-trading-bot/internal/store/model"
)

// TradeStore persists trade records through gorm. Persistence failures must
// never block the trading loop; callers log and continue.
type TradeStore struct {
	db *gorm.DB
}

func NewTradeStore(path string) (*TradeStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.TradeRecordModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &TradeStore{db: db}, nil
}

func (s *TradeStore) Save(ctx context.Context, rec position.TradeRecord) error {
	snapshot, err := json.Marshal(rec.Resulting)
	if err != nil {
		return err
	}
	row := model.TradeRecordModel{
		RecordID:         rec.ID,
		FillID:           rec.FillID,
		InstrumentKey:    rec.Resulting.InstrumentKey,
		Direction:        string(rec.Direction),
		Quantity:         rec.Quantity,
		Price:            rec.Price,
		RealizedPnLDelta: rec.RealizedPnLDelta,
		RoundTripClosed:  rec.RoundTripClosed,
		ResultingJSON:    snapshot,
		Timestamp:        rec.Timestamp.Unix(),
		CreatedAtUnix:    time.Now().Unix(),
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *TradeStore) List(ctx context.Context, limit int) ([]position.TradeRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []model.TradeRecordModel
	if err := s.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]position.TradeRecord, 0, len(rows))
	for _, row := range rows {
		var resulting position.Position
		if len(row.ResultingJSON) > 0 {
			_ = json.Unmarshal(row.ResultingJSON, &resulting)
		}
		out = append(out, position.TradeRecord{
			ID:               row.RecordID,
			FillID:           row.FillID,
			Direction:        position.Direction(row.Direction),
			Quantity:         row.Quantity,
			Price:            row.Price,
			Timestamp:        time.Unix(row.Timestamp, 0),
			Resulting:        resulting,
			RealizedPnLDelta: row.RealizedPnLDelta,
			RoundTripClosed:  row.RoundTripClosed,
		})
	}
	return out, nil
}

func (s *TradeStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
