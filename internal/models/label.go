package models

// FieldPoint is the top-left corner of a generated field
type FieldPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FieldSize is the box size of a generated field
type FieldSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// GeneratedField is one template field with its resolved display value
type GeneratedField struct {
	FieldID    string     `json:"fieldId"`
	Label      string     `json:"label"`
	Value      string     `json:"value"`
	Type       FieldType  `json:"type"`
	Position   FieldPoint `json:"position"`
	Dimensions FieldSize  `json:"dimensions"`
}

// LabelMetadata records who and where a label was generated
type LabelMetadata struct {
	GeneratedBy      string `json:"generatedBy"`
	Station          string `json:"station,omitempty"`
	ProcessingMethod string `json:"processingMethod,omitempty"`
	Operator         string `json:"operator,omitempty"`
}

// GeneratedLabel is a fully resolved label. It is never mutated after
// creation; a new generation produces a new label.
type GeneratedLabel struct {
	ID         string           `json:"id"`
	TemplateID string           `json:"templateId"`
	PlantID    string           `json:"plantId"`
	BatchID    string           `json:"batchId"`
	Timestamp  string           `json:"timestamp"`
	QRCodeData string           `json:"qrCodeData"`
	QRCodeURL  string           `json:"qrCodeUrl,omitempty"`
	Fields     []GeneratedField `json:"fields"`
	Metadata   LabelMetadata    `json:"metadata"`
}

// EventType names a label-format event
type EventType string

const (
	EventTemplateCreated EventType = "TEMPLATE_CREATED"
	EventTemplateUpdated EventType = "TEMPLATE_UPDATED"
	EventTemplateDeleted EventType = "TEMPLATE_DELETED"
	EventPlantUpdated    EventType = "PLANT_UPDATED"
	EventPlantDeleted    EventType = "PLANT_DELETED"
	EventLabelsGenerated EventType = "LABELS_GENERATED"
)

// LabelFormatEvent is pushed to websocket listeners
type LabelFormatEvent struct {
	Type      EventType   `json:"type"`
	Timestamp string      `json:"timestamp"`
	UserID    string      `json:"userId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}
