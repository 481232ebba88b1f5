package models

import "time"

type TransactionRecord struct {
	ID              string  `gorm:"type:varchar(160);primaryKey"`
	Hash            string  `gorm:"type:varchar(128);not null;index"`
	Type            string  `gorm:"type:varchar(20);not null"`
	FromAddress     string  `gorm:"type:varchar(128)"`
	ToAddress       string  `gorm:"type:varchar(128)"`
	Amount          *string `gorm:"type:varchar(64)"`
	EncryptedAmount *string `gorm:"type:text"`
	Status          string  `gorm:"type:varchar(20);not null;index"`
	Timestamp       int64   `gorm:"not null;index"`
	BlockNumber     *uint64
	Network         string `gorm:"type:varchar(40)"`
	Metadata        string `gorm:"type:text"` // JSON object
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (TransactionRecord) TableName() string {
	return "transaction_records"
}
