// Package db is the optional audit-persistence sink for Station results.
// Spec.md §3 says the core requires no persistent state; a caller wires
// this in only when it wants operational history of past preparations.
package db

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	gasstation "github.com/tron-gas-station/gasstation"
)

// PreparationRecord is the GORM model for one PrepareForUSDT call.
type PreparationRecord struct {
	ID                uint      `gorm:"primaryKey;autoIncrement"`
	Timestamp         time.Time `gorm:"index;not null"`
	TargetAddress     string    `gorm:"type:varchar(64);not null;index"`
	Success           bool      `gorm:"not null"`
	Strategy          string    `gorm:"type:varchar(32);not null"`
	ExecutionTimeMS   int64     `gorm:"not null"`
	RequiredEnergy    string    `gorm:"type:varchar(20);not null;comment:uint64 as string"`
	RequiredBandwidth string    `gorm:"type:varchar(20);not null;comment:uint64 as string"`
	Warnings          string    `gorm:"type:text;comment:json array of strings"`
	Errors            string    `gorm:"type:text;comment:json array of ErrorEntry"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM.
func (PreparationRecord) TableName() string {
	return "preparation_records"
}

// DelegationRecord is the GORM model for one resource delegation within a
// preparation.
type DelegationRecord struct {
	ID                  uint      `gorm:"primaryKey;autoIncrement"`
	PreparationRecordID uint      `gorm:"index;not null"`
	Timestamp           time.Time `gorm:"index;not null"`
	TargetAddress       string    `gorm:"type:varchar(64);not null;index"`
	Resource            string    `gorm:"type:varchar(16);not null"`
	UnitsRequested      string    `gorm:"type:varchar(20);not null;comment:uint64 as string"`
	TRXFrozenSun        string    `gorm:"type:varchar(20);not null;comment:uint64 as string"`
	TxID                string    `gorm:"type:varchar(80)"`
	BroadcastOK         bool      `gorm:"not null"`
	ObservedIncrease    string    `gorm:"type:varchar(20);not null;comment:uint64 as string"`
	CreatedAt           time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM.
func (DelegationRecord) TableName() string {
	return "delegation_records"
}

// Recorder persists preparation results via GORM. It is the gas station's
// equivalent of the teacher's MySQLRecorder, generalized from a single
// asset-snapshot table to the PreparationResult/DelegationOutcome shape.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder opens a MySQL connection and migrates the schema. dsn format:
// "user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=Local".
func NewRecorder(dsn string) (*Recorder, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}
	return NewRecorderWithDB(db)
}

// NewRecorderWithDB wraps an existing GORM DB instance, migrating the
// recorder's tables onto it. Used directly by tests against a sqlmock DB.
func NewRecorderWithDB(db *gorm.DB) (*Recorder, error) {
	if err := db.AutoMigrate(&PreparationRecord{}, &DelegationRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Recorder{db: db}, nil
}

// RecordPreparation persists one PreparationResult and its delegations.
func (r *Recorder) RecordPreparation(target string, at time.Time, result gasstation.PreparationResult) error {
	record := PreparationRecord{
		Timestamp:         at,
		TargetAddress:     target,
		Success:           result.Success,
		Strategy:          result.Strategy,
		ExecutionTimeMS:   result.ExecutionTimeMS,
		RequiredEnergy:    uint64ToString(result.RequiredEnergy),
		RequiredBandwidth: uint64ToString(result.RequiredBandwidth),
		Warnings:          marshalOrEmpty(result.Warnings),
		Errors:            marshalOrEmpty(result.Errors),
	}

	if dbErr := r.db.Create(&record).Error; dbErr != nil {
		return fmt.Errorf("failed to record preparation: %w", dbErr)
	}

	for _, d := range result.Delegations {
		delegation := DelegationRecord{
			PreparationRecordID: record.ID,
			Timestamp:           at,
			TargetAddress:       target,
			Resource:            string(d.Resource),
			UnitsRequested:      uint64ToString(d.UnitsRequested),
			TRXFrozenSun:        uint64ToString(d.TRXFrozenSun),
			TxID:                d.TxID,
			BroadcastOK:         d.BroadcastOK,
			ObservedIncrease:    uint64ToString(d.ObservedIncrease),
		}
		if dbErr := r.db.Create(&delegation).Error; dbErr != nil {
			return fmt.Errorf("failed to record delegation: %w", dbErr)
		}
	}

	return nil
}

// GetLatestPreparation retrieves the most recent preparation record for an
// address.
func (r *Recorder) GetLatestPreparation(target string) (*PreparationRecord, error) {
	var record PreparationRecord
	result := r.db.Where("target_address = ?", target).Order("timestamp DESC").First(&record)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get latest preparation: %w", result.Error)
	}
	return &record, nil
}

// CountPreparations returns the total number of recorded preparations.
func (r *Recorder) CountPreparations() (int64, error) {
	var count int64
	result := r.db.Model(&PreparationRecord{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count preparations: %w", result.Error)
	}
	return count, nil
}

// Close closes the underlying database connection.
func (r *Recorder) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying DB: %w", err)
	}
	return sqlDB.Close()
}

func uint64ToString(v uint64) string {
	return fmt.Sprintf("%d", v)
}

func marshalOrEmpty(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(data)
}
