package model

import (
	"gorm.io/datatypes"
)

// TradeRecordModel persists the tracker's append-only audit trail. Rows are
// inserted once per applied fill and never updated.
type TradeRecordModel struct {
	ID               int64          `gorm:"column:id;primaryKey;autoIncrement"`
	RecordID         string         `gorm:"column:record_id;uniqueIndex"`
	FillID           string         `gorm:"column:fill_id;uniqueIndex"`
	InstrumentKey    string         `gorm:"column:instrument_key"`
	Direction        string         `gorm:"column:direction"`
	Quantity         int64          `gorm:"column:quantity"`
	Price            float64        `gorm:"column:price"`
	RealizedPnLDelta float64        `gorm:"column:realized_pnl_delta"`
	RoundTripClosed  bool           `gorm:"column:round_trip_closed"`
	ResultingJSON    datatypes.JSON `gorm:"column:resulting_position"`
	Timestamp        int64          `gorm:"column:timestamp"`
	CreatedAtUnix    int64          `gorm:"column:created_at"`
}

func (TradeRecordModel) TableName() string { return "trade_records" }
