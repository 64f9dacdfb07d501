package models

import (
	"strconv"
	"strings"
	"time"
)

// ApprovalStatus is the lifecycle state of a certification
type ApprovalStatus string

const (
	ApprovalPending   ApprovalStatus = "pending"
	ApprovalActive    ApprovalStatus = "active"
	ApprovalExpired   ApprovalStatus = "expired"
	ApprovalSuspended ApprovalStatus = "suspended"
)

// Valid reports whether s is a known approval status
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalActive, ApprovalExpired, ApprovalSuspended:
		return true
	}
	return false
}

// Approval is one regulatory certification held by a plant
type Approval struct {
	Name       string         `json:"name,omitempty"` // custom approvals only
	Number     string         `json:"number"`
	ExpiryDate string         `json:"expiryDate"`
	Issuer     string         `json:"issuer"`
	IssuedDate string         `json:"issuedDate,omitempty"`
	Status     ApprovalStatus `json:"status"`
	Documents  []string       `json:"documents,omitempty"`
}

// IsActive reports whether the approval may be projected onto a label
func (a Approval) IsActive() bool {
	return a.Status == ApprovalActive
}

// Expiry parses ExpiryDate, accepting a plain date or RFC3339
func (a Approval) Expiry() (time.Time, bool) {
	if a.ExpiryDate == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, a.ExpiryDate); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ApprovalKinds lists the standard certification keys in payload order
var ApprovalKinds = []string{"haccp", "fda", "iso22000", "halal", "organic"}

// Approvals holds the standard certifications plus custom ones
type Approvals struct {
	HACCP    Approval   `json:"haccp"`
	FDA      Approval   `json:"fda"`
	ISO22000 Approval   `json:"iso22000"`
	Halal    Approval   `json:"halal"`
	Organic  Approval   `json:"organic"`
	Custom   []Approval `json:"custom,omitempty"`
}

// ByKey returns the standard approval named by key (case-insensitive)
func (a Approvals) ByKey(key string) (Approval, bool) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "haccp":
		return a.HACCP, true
	case "fda":
		return a.FDA, true
	case "iso22000":
		return a.ISO22000, true
	case "halal":
		return a.Halal, true
	case "organic":
		return a.Organic, true
	}
	return Approval{}, false
}

// Coordinates is a geographic point
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PlantLocation is the postal and geographic location of a plant
type PlantLocation struct {
	Address     string       `json:"address"`
	City        string       `json:"city"`
	State       string       `json:"state"`
	Country     string       `json:"country"`
	ZipCode     string       `json:"zipCode"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// ContactInfo holds plant contact details
type ContactInfo struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

// TemperatureRange bounds a processing temperature
type TemperatureRange struct {
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Unit      string  `json:"unit"`
	Tolerance float64 `json:"tolerance"`
}

// ProcessingMethod is a processing step a plant can apply
type ProcessingMethod struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Code             string           `json:"code"`
	Description      string           `json:"description,omitempty"`
	Category         string           `json:"category"`
	TemperatureRange TemperatureRange `json:"temperatureRange"`
	Certifications   []string         `json:"certifications,omitempty"`
}

// Station is a finished-product station inside a plant
type Station struct {
	ID                string   `json:"id"`
	StationID         string   `json:"stationId,omitempty"`
	Name              string   `json:"name"`
	Code              string   `json:"code"`
	Location          string   `json:"location"`
	ProcessingMethods []string `json:"processingMethods,omitempty"`
	Capacity          float64  `json:"capacity"`
	IsActive          bool     `json:"isActive"`
}

// PackagingSpec is an approved box/packaging specification
type PackagingSpec struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Code       string  `json:"code"`
	BoxType    string  `json:"boxType"`
	Capacity   float64 `json:"capacity"`
	TareWeight float64 `json:"tareWeight"`
	Material   string  `json:"material,omitempty"`
	IsActive   bool    `json:"isActive"`
}

// PlantConfiguration is a processing facility's identity and capabilities
type PlantConfiguration struct {
	ID                string             `json:"id"`
	PlantName         string             `json:"plantName"`
	PlantCode         string             `json:"plantCode"`
	Name              string             `json:"name,omitempty"`
	Location          PlantLocation      `json:"location"`
	ContactInfo       ContactInfo        `json:"contactInfo"`
	Approvals         Approvals          `json:"approvals"`
	ProcessingMethods []ProcessingMethod `json:"processingMethods"`
	Stations          []Station          `json:"stations"`
	PackagingSpecs    []PackagingSpec    `json:"packagingSpecs,omitempty"`
	DefaultPackaging  string             `json:"defaultPackaging,omitempty"`
	IsActive          bool               `json:"isActive"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// DisplayName prefers Name and falls back to PlantName
func (p *PlantConfiguration) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.PlantName
}

// PackagingSpecByID finds an active packaging spec by id or code
func (p *PlantConfiguration) PackagingSpecByID(id string) (PackagingSpec, bool) {
	if id == "" {
		return PackagingSpec{}, false
	}
	for _, spec := range p.PackagingSpecs {
		if spec.IsActive && (spec.ID == id || spec.Code == id) {
			return spec, true
		}
	}
	return PackagingSpec{}, false
}

// Lookup resolves a dot path such as "location.city" against the known
// plant attributes. Unknown or empty values report false.
func (p *PlantConfiguration) Lookup(path string) (string, bool) {
	if p == nil {
		return "", false
	}
	parts := strings.Split(path, ".")
	var v string
	switch parts[0] {
	case "id":
		v = p.ID
	case "plantName":
		v = p.PlantName
	case "plantCode":
		v = p.PlantCode
	case "name":
		v = p.Name
	case "defaultPackaging":
		v = p.DefaultPackaging
	case "isActive":
		v = strconv.FormatBool(p.IsActive)
	case "location":
		v = p.lookupLocation(parts[1:])
	case "contactInfo":
		v = p.lookupContact(parts[1:])
	case "approvals":
		v = p.lookupApproval(parts[1:])
	case "processingMethods":
		v = p.lookupIndexed(parts[1:], len(p.ProcessingMethods), func(i int, attr string) string {
			m := p.ProcessingMethods[i]
			switch attr {
			case "id":
				return m.ID
			case "name":
				return m.Name
			case "code":
				return m.Code
			case "category":
				return m.Category
			}
			return ""
		})
	case "stations":
		v = p.lookupIndexed(parts[1:], len(p.Stations), func(i int, attr string) string {
			s := p.Stations[i]
			switch attr {
			case "id":
				return s.ID
			case "name":
				return s.Name
			case "code":
				return s.Code
			case "location":
				return s.Location
			}
			return ""
		})
	}
	return v, v != ""
}

func (p *PlantConfiguration) lookupLocation(rest []string) string {
	if len(rest) == 0 {
		return ""
	}
	loc := p.Location
	switch rest[0] {
	case "address":
		return loc.Address
	case "city":
		return loc.City
	case "state":
		return loc.State
	case "country":
		return loc.Country
	case "zipCode":
		return loc.ZipCode
	case "coordinates":
		if loc.Coordinates == nil || len(rest) < 2 {
			return ""
		}
		switch rest[1] {
		case "latitude":
			return strconv.FormatFloat(loc.Coordinates.Latitude, 'f', -1, 64)
		case "longitude":
			return strconv.FormatFloat(loc.Coordinates.Longitude, 'f', -1, 64)
		}
	}
	return ""
}

func (p *PlantConfiguration) lookupContact(rest []string) string {
	if len(rest) == 0 {
		return ""
	}
	switch rest[0] {
	case "phone":
		return p.ContactInfo.Phone
	case "email":
		return p.ContactInfo.Email
	case "address":
		return p.ContactInfo.Address
	}
	return ""
}

func (p *PlantConfiguration) lookupApproval(rest []string) string {
	if len(rest) == 0 {
		return ""
	}
	a, ok := p.Approvals.ByKey(rest[0])
	if !ok {
		return ""
	}
	attr := "number"
	if len(rest) > 1 {
		attr = rest[1]
	}
	switch attr {
	case "number":
		return a.Number
	case "status":
		return string(a.Status)
	case "issuer":
		return a.Issuer
	case "expiryDate":
		return a.ExpiryDate
	case "issuedDate":
		return a.IssuedDate
	}
	return ""
}

func (p *PlantConfiguration) lookupIndexed(rest []string, n int, attr func(int, string) string) string {
	if len(rest) < 2 {
		return ""
	}
	i, err := strconv.Atoi(rest[0])
	if err != nil || i < 0 || i >= n {
		return ""
	}
	return attr(i, rest[1])
}
