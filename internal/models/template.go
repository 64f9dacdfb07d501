package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// FieldType is the kind of element a template field renders as
type FieldType string

const (
	FieldText    FieldType = "text"
	FieldNumber  FieldType = "number"
	FieldDate    FieldType = "date"
	FieldQR      FieldType = "qr"
	FieldBarcode FieldType = "barcode"
	FieldLogo    FieldType = "logo"
	FieldDynamic FieldType = "dynamic"
)

// Valid reports whether t is one of the known field types
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldNumber, FieldDate, FieldQR, FieldBarcode, FieldLogo, FieldDynamic:
		return true
	}
	return false
}

// SourceKind tags the variant of a DataSource
type SourceKind string

const (
	SourceStatic     SourceKind = "static"
	SourceForm       SourceKind = "form"
	SourcePlant      SourceKind = "plant"
	SourceRegulation SourceKind = "regulation"
	SourceCalculated SourceKind = "calculated"
	SourceDynamic    SourceKind = "dynamic"
	// SourceDirect is the legacy plain-string data source: the string is a key
	// looked up in the merged data context.
	SourceDirect SourceKind = "direct"
)

// DataSource binds a field to the data it displays.
// It is a tagged variant: Kind selects which of SourceKey/Formula applies.
type DataSource struct {
	Kind          SourceKind             `json:"type"`
	SourceKey     string                 `json:"sourceKey,omitempty"`
	Formula       string                 `json:"formula,omitempty"`
	Params        map[string]interface{} `json:"params,omitempty"`
	FallbackValue string                 `json:"fallbackValue,omitempty"`
}

// UnmarshalJSON accepts both the object form and the legacy string form
func (d *DataSource) UnmarshalJSON(data []byte) error {
	var key string
	if err := json.Unmarshal(data, &key); err == nil {
		*d = DataSource{Kind: SourceDirect, SourceKey: key}
		return nil
	}

	type plain DataSource
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("invalid data source: %w", err)
	}
	*d = DataSource(p)
	return nil
}

// MarshalJSON writes direct sources back in their string form
func (d DataSource) MarshalJSON() ([]byte, error) {
	if d.Kind == SourceDirect {
		return json.Marshal(d.SourceKey)
	}
	type plain DataSource
	return json.Marshal(plain(d))
}

// Position places a field on the label, in layout units
type Position struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	ZIndex int     `json:"zIndex,omitempty"`
}

// FieldStyle holds presentation hints consumed by renderers
type FieldStyle struct {
	FontSize        float64 `json:"fontSize,omitempty"`
	FontWeight      string  `json:"fontWeight,omitempty"`
	FontFamily      string  `json:"fontFamily,omitempty"`
	Color           string  `json:"color,omitempty"`
	BackgroundColor string  `json:"backgroundColor,omitempty"`
	Border          string  `json:"border,omitempty"`
	BorderRadius    float64 `json:"borderRadius,omitempty"`
	TextAlign       string  `json:"textAlign,omitempty"`
	Padding         float64 `json:"padding,omitempty"`
	Margin          float64 `json:"margin,omitempty"`
}

// FieldValidation describes input constraints for editable fields
type FieldValidation struct {
	Required  bool   `json:"required"`
	MinLength int    `json:"minLength,omitempty"`
	MaxLength int    `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
}

// Field is one positioned, styled, data-bound element of a template
type Field struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Type         FieldType        `json:"type"`
	Label        string           `json:"label"`
	Value        string           `json:"value,omitempty"`
	DefaultValue string           `json:"defaultValue,omitempty"`
	Position     Position         `json:"position"`
	Style        FieldStyle       `json:"style"`
	Required     bool             `json:"required"`
	Editable     bool             `json:"editable"`
	DataSource   *DataSource      `json:"dataSource,omitempty"`
	Validation   *FieldValidation `json:"validation,omitempty"`
	ImageURL     string           `json:"imageUrl,omitempty"`
}

// Margin is the inner margin of a label layout
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// Layout is the physical label layout
type Layout struct {
	Width           float64 `json:"width"`
	Height          float64 `json:"height"`
	Unit            string  `json:"unit"` // mm, inch, px
	Orientation     string  `json:"orientation"`
	Margin          Margin  `json:"margin"`
	BackgroundColor string  `json:"backgroundColor,omitempty"`
	Border          string  `json:"border,omitempty"`
}

// CustomCompliance maps a non-standard certification onto a field
type CustomCompliance struct {
	Name         string `json:"name"`
	Required     bool   `json:"required"`
	FieldMapping string `json:"fieldMapping"`
}

// Compliance lists the certifications a template is designed to display
type Compliance struct {
	HACCP            bool               `json:"haccp"`
	FDA              bool               `json:"fda"`
	ISO22000         bool               `json:"iso22000"`
	Halal            bool               `json:"halal"`
	Organic          bool               `json:"organic"`
	CustomCompliance []CustomCompliance `json:"customCompliance,omitempty"`
}

// Template is a reusable label definition
type Template struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	Version         string     `json:"version"`
	IsActive        bool       `json:"isActive"`
	Category        string     `json:"category,omitempty"`
	PlantID         string     `json:"plantId,omitempty"`
	Width           float64    `json:"width,omitempty"`
	Height          float64    `json:"height,omitempty"`
	BackgroundColor string     `json:"backgroundColor,omitempty"`
	Fields          []Field    `json:"fields"`
	Layout          Layout     `json:"layout"`
	Compliance      Compliance `json:"compliance"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// TemplateUpdate is a partial template; nil members are left untouched
type TemplateUpdate struct {
	Name            *string     `json:"name,omitempty"`
	Description     *string     `json:"description,omitempty"`
	Version         *string     `json:"version,omitempty"`
	IsActive        *bool       `json:"isActive,omitempty"`
	Category        *string     `json:"category,omitempty"`
	Width           *float64    `json:"width,omitempty"`
	Height          *float64    `json:"height,omitempty"`
	BackgroundColor *string     `json:"backgroundColor,omitempty"`
	Fields          []Field     `json:"fields,omitempty"`
	Layout          *Layout     `json:"layout,omitempty"`
	Compliance      *Compliance `json:"compliance,omitempty"`
}

// Apply copies the set members of u onto t
func (u TemplateUpdate) Apply(t *Template) {
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Version != nil {
		t.Version = *u.Version
	}
	if u.IsActive != nil {
		t.IsActive = *u.IsActive
	}
	if u.Category != nil {
		t.Category = *u.Category
	}
	if u.Width != nil {
		t.Width = *u.Width
	}
	if u.Height != nil {
		t.Height = *u.Height
	}
	if u.BackgroundColor != nil {
		t.BackgroundColor = *u.BackgroundColor
	}
	if u.Fields != nil {
		t.Fields = u.Fields
	}
	if u.Layout != nil {
		t.Layout = *u.Layout
	}
	if u.Compliance != nil {
		t.Compliance = *u.Compliance
	}
}
