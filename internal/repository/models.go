// Package repository provides database abstraction for the ptrack service.
package repository

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/ptrackio/ptrack/pkg/model"
)

// PartitionRunRecord represents the partition_run table: one row per
// completed teardown analysis.
type PartitionRunRecord struct {
	ID                   int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RunID                string    `gorm:"column:run_id;type:varchar(64);uniqueIndex"`
	Arch0Anchor          string    `gorm:"column:arch0_anchor;type:varchar(256)"`
	Arch1Anchor          string    `gorm:"column:arch1_anchor;type:varchar(256)"`
	TotalCalls           uint64    `gorm:"column:total_calls"`
	TotalAccesses        uint64    `gorm:"column:total_accesses"`
	CutWeight            uint64    `gorm:"column:cut_weight"`
	AcceleratorFunctions JSONField `gorm:"column:accelerator_functions;type:json"`
	BoundaryFunctions    JSONField `gorm:"column:boundary_functions;type:json"`
	DotArtifactKey       string    `gorm:"column:dot_artifact_key;type:varchar(512)"`
	CreatedAt            time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the table name for PartitionRunRecord.
func (PartitionRunRecord) TableName() string {
	return "partition_run"
}

// ToModel converts PartitionRunRecord to model.PartitionRun.
func (r *PartitionRunRecord) ToModel() (*model.PartitionRun, error) {
	run := &model.PartitionRun{
		RunID:          r.RunID,
		Arch0Anchor:    r.Arch0Anchor,
		Arch1Anchor:    r.Arch1Anchor,
		TotalCalls:     r.TotalCalls,
		TotalAccesses:  r.TotalAccesses,
		CutWeight:      r.CutWeight,
		DotArtifactKey: r.DotArtifactKey,
		CreatedAt:      r.CreatedAt,
	}

	if r.AcceleratorFunctions != nil {
		if err := json.Unmarshal(r.AcceleratorFunctions, &run.AcceleratorFunctions); err != nil {
			return nil, err
		}
	}
	if r.BoundaryFunctions != nil {
		if err := json.Unmarshal(r.BoundaryFunctions, &run.BoundaryFunctions); err != nil {
			return nil, err
		}
	}

	return run, nil
}

// JSONField is a custom type for handling JSON fields in GORM.
type JSONField []byte

// Value implements driver.Valuer interface.
func (j JSONField) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements sql.Scanner interface.
func (j *JSONField) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
		return nil
	case string:
		*j = []byte(v)
		return nil
	default:
		return errors.New("unsupported type for JSONField")
	}
}

// MarshalJSON implements json.Marshaler interface.
func (j JSONField) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (j *JSONField) UnmarshalJSON(data []byte) error {
	if data == nil || string(data) == "null" {
		*j = nil
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}
