package models

// ProductInfo is the product section of a code payload
type ProductInfo struct {
	Type      string  `json:"type"`
	Weight    float64 `json:"weight"`
	Grade     string  `json:"grade"`
	LotNumber string  `json:"lotNumber"`
}

// ProcessingInfo is the processing section of a code payload.
// Temperature and Duration serialize as null when unknown.
type ProcessingInfo struct {
	Method      string   `json:"method"`
	Temperature *float64 `json:"temperature"`
	Duration    *float64 `json:"duration"`
	Operator    string   `json:"operator"`
}

// QualityInfo is the quality-control section of a code payload
type QualityInfo struct {
	Inspector string `json:"inspector"`
	CheckDate string `json:"checkDate"`
	Status    string `json:"status"`
	Notes     string `json:"notes"`
}

// TraceabilityInfo is the provenance section of a code payload
type TraceabilityInfo struct {
	SourceLocation   string `json:"sourceLocation"`
	WeightNoteID     string `json:"weightNoteId"`
	ReceivalDate     string `json:"receivalDate"`
	Supplier         string `json:"supplier"`
	TraceabilityCode string `json:"traceabilityCode"`
}

// ApprovalNumbers carries certificate numbers of active approvals only
type ApprovalNumbers struct {
	HACCP    string            `json:"haccp,omitempty"`
	FDA      string            `json:"fda,omitempty"`
	ISO22000 string            `json:"iso22000,omitempty"`
	Halal    string            `json:"halal,omitempty"`
	Organic  string            `json:"organic,omitempty"`
	Custom   map[string]string `json:"custom,omitempty"`
}

// PackagingInfo is emitted when the plant defines a matching packaging spec
type PackagingInfo struct {
	SpecID      string  `json:"specId"`
	Type        string  `json:"type"`
	TareWeight  float64 `json:"tareWeight"`
	GrossWeight float64 `json:"grossWeight"`
}

// CodePayload is the provenance record serialized into a label's QR code
type CodePayload struct {
	PlantID      string           `json:"plantId"`
	PlantName    string           `json:"plantName,omitempty"`
	BatchID      string           `json:"batchId"`
	Timestamp    string           `json:"timestamp"`
	Station      string           `json:"station"`
	Product      ProductInfo      `json:"product"`
	Processing   ProcessingInfo   `json:"processing"`
	Quality      QualityInfo      `json:"quality"`
	Traceability TraceabilityInfo `json:"traceability"`
	Approvals    ApprovalNumbers  `json:"approvals"`
	Packaging    *PackagingInfo   `json:"packaging,omitempty"`
}
