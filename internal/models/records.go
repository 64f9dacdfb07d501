package models

import (
	"time"

	"gorm.io/datatypes"
)

// TemplateRecord persists a template as a JSON document plus indexed columns
type TemplateRecord struct {
	ID        string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name      string         `gorm:"type:varchar(100);not null;index" json:"name"`
	Category  string         `gorm:"type:varchar(100);index" json:"category"`
	PlantID   string         `gorm:"type:varchar(64);index" json:"plant_id"`
	Version   string         `gorm:"type:varchar(32)" json:"version"`
	IsActive  bool           `gorm:"index" json:"is_active"`
	Document  datatypes.JSON `json:"document"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TableName specifies the table name for TemplateRecord
func (TemplateRecord) TableName() string {
	return "label_templates"
}

// PlantRecord persists a plant configuration document
type PlantRecord struct {
	ID        string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name      string         `gorm:"type:varchar(100);not null;index" json:"name"`
	Code      string         `gorm:"type:varchar(32);index" json:"code"`
	Country   string         `gorm:"type:varchar(64)" json:"country"`
	IsActive  bool           `gorm:"index" json:"is_active"`
	Document  datatypes.JSON `json:"document"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TableName specifies the table name for PlantRecord
func (PlantRecord) TableName() string {
	return "plant_configurations"
}

// LabelRecord is an append-only row for one generated label
type LabelRecord struct {
	ID               string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	TemplateID       string         `gorm:"type:varchar(64);index" json:"template_id"`
	PlantID          string         `gorm:"type:varchar(64);index" json:"plant_id"`
	BatchID          string         `gorm:"type:varchar(64);index" json:"batch_id"`
	TraceabilityCode string         `gorm:"type:varchar(64);index" json:"traceability_code"`
	GeneratedBy      string         `gorm:"type:varchar(100)" json:"generated_by"`
	Timestamp        string         `gorm:"type:varchar(32)" json:"timestamp"`
	Ordinal          int            `json:"ordinal"`
	Document         datatypes.JSON `json:"document"`
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for LabelRecord
func (LabelRecord) TableName() string {
	return "generated_labels"
}
