package labels

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/xelth-com/clamflow-labels/internal/models"
)

// Validation bounds.
const (
	MaxNameLength      = 100
	MaxTemplateSide    = 2000
	MaxFieldSide       = 1000
	minSide            = 1
	templateSideErrFmt = "Template %s must be between 1 and 2000 units"
)

// ValidationResult collects every problem found in one pass.
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Error joins the collected errors.
func (v ValidationResult) Error() string {
	return strings.Join(v.Errors, ", ")
}

type collector struct {
	errors   []string
	warnings []string
}

func (c *collector) errorf(format string, args ...interface{}) {
	c.errors = append(c.errors, fmt.Sprintf(format, args...))
}

func (c *collector) warnf(format string, args ...interface{}) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

func (c *collector) result() ValidationResult {
	errs, warns := c.errors, c.warnings
	if errs == nil {
		errs = []string{}
	}
	if warns == nil {
		warns = []string{}
	}
	return ValidationResult{IsValid: len(errs) == 0, Errors: errs, Warnings: warns}
}

// ValidateTemplate checks a complete template before it is created.
// All rules run; nothing stops at the first error.
func ValidateTemplate(t models.Template) ValidationResult {
	c := &collector{}

	name := strings.TrimSpace(t.Name)
	switch {
	case name == "":
		c.errorf("Template name is required")
	case len([]rune(t.Name)) > MaxNameLength:
		c.errorf("Template name must be at most %d characters", MaxNameLength)
	}

	if strings.TrimSpace(t.Category) == "" {
		c.errorf("Template category is required")
	}

	// zero means unspecified on a full template
	if t.Width != 0 && !inRange(t.Width, minSide, MaxTemplateSide) {
		c.errorf(templateSideErrFmt, "width")
	}
	if t.Height != 0 && !inRange(t.Height, minSide, MaxTemplateSide) {
		c.errorf(templateSideErrFmt, "height")
	}

	if len(t.Fields) == 0 {
		c.errorf("Template must have at least one field")
	}
	validateFields(c, t.Fields, t.Width, t.Height)

	return c.result()
}

// ValidateTemplateUpdate checks a partial template before an update.
// Only the members present in u are validated; category is not required.
func ValidateTemplateUpdate(u models.TemplateUpdate) ValidationResult {
	c := &collector{}

	if u.Name != nil {
		switch {
		case strings.TrimSpace(*u.Name) == "":
			c.errorf("Template name cannot be empty")
		case len([]rune(*u.Name)) > MaxNameLength:
			c.errorf("Template name must be at most %d characters", MaxNameLength)
		}
	}
	if u.Category != nil && strings.TrimSpace(*u.Category) == "" {
		c.errorf("Template category cannot be empty")
	}
	if u.Width != nil && !inRange(*u.Width, minSide, MaxTemplateSide) {
		c.errorf(templateSideErrFmt, "width")
	}
	if u.Height != nil && !inRange(*u.Height, minSide, MaxTemplateSide) {
		c.errorf(templateSideErrFmt, "height")
	}

	if u.Fields != nil {
		if len(u.Fields) == 0 {
			c.errorf("Template must have at least one field")
		}
		var w, h float64
		if u.Width != nil {
			w = *u.Width
		}
		if u.Height != nil {
			h = *u.Height
		}
		validateFields(c, u.Fields, w, h)
	}

	return c.result()
}

// ValidateForGeneration is the lighter check run before labels are produced
// from a stored template.
func ValidateForGeneration(t models.Template) ValidationResult {
	c := &collector{}
	if len(t.Fields) == 0 {
		c.errorf("Template must have at least one field")
	}
	for i, f := range t.Fields {
		if f.ID == "" {
			c.errorf("Field %d: Missing field ID", i+1)
		}
		if f.Type == "" {
			c.errorf("Field %d: Missing field type", i+1)
		}
		if f.Type == models.FieldQR && f.DataSource == nil {
			c.errorf("Field %d: QR field requires a data source", i+1)
		}
	}
	return c.result()
}

// ValidateField checks one field; index is zero-based.
func ValidateField(f models.Field, index int) []string {
	c := &collector{}
	validateField(c, f, index)
	return c.errors
}

func validateFields(c *collector, fields []models.Field, width, height float64) {
	seen := make(map[string]int, len(fields))
	var dups []string
	for i, f := range fields {
		validateField(c, f, i)

		if f.ID != "" {
			seen[f.ID]++
			if seen[f.ID] == 2 {
				dups = append(dups, f.ID)
			}
		}

		pos := f.Position
		if width > 0 && pos.X+pos.Width > width {
			c.warnf("Field %d: extends beyond template width", i+1)
		}
		if height > 0 && pos.Y+pos.Height > height {
			c.warnf("Field %d: extends beyond template height", i+1)
		}
		if f.Required && f.DataSource != nil && f.DataSource.Kind == models.SourceStatic && f.DefaultValue == "" {
			c.warnf("Field %d: required static field has no default value", i+1)
		}
	}
	if len(dups) > 0 {
		c.errorf("Duplicate field IDs found: %s", strings.Join(dups, ", "))
	}
}

func validateField(c *collector, f models.Field, index int) {
	prefix := fmt.Sprintf("Field %d", index+1)

	if strings.TrimSpace(f.ID) == "" {
		c.errorf("%s: Field ID is required", prefix)
	}
	if f.Type == "" {
		c.errorf("%s: Field type is required", prefix)
	} else if !f.Type.Valid() {
		c.errorf("%s: Unknown field type %q", prefix, f.Type)
	}
	if strings.TrimSpace(f.Label) == "" {
		c.errorf("%s: Field label is required", prefix)
	}

	if f.Position.X < 0 {
		c.errorf("%s: X position cannot be negative", prefix)
	}
	if f.Position.Y < 0 {
		c.errorf("%s: Y position cannot be negative", prefix)
	}
	// zero size is unspecified; generation falls back to 100x30
	if f.Position.Width != 0 && !inRange(f.Position.Width, minSide, MaxFieldSide) {
		c.errorf("%s: Width must be between 1 and 1000 units", prefix)
	}
	if f.Position.Height != 0 && !inRange(f.Position.Height, minSide, MaxFieldSide) {
		c.errorf("%s: Height must be between 1 and 1000 units", prefix)
	}

	if f.Type == models.FieldLogo && strings.TrimSpace(f.ImageURL) == "" {
		c.errorf("%s: Logo field requires an image URL", prefix)
	}
	if src := f.DataSource; src != nil {
		if f.Type == models.FieldQR && src.Kind == models.SourceCalculated && strings.TrimSpace(src.Formula) == "" {
			c.errorf("%s: QR field with calculated data source requires a formula", prefix)
		}
		if !knownSource(src.Kind) {
			c.errorf("%s: Unknown data source type %q", prefix, src.Kind)
		}
	}

	if v := f.Validation; v != nil {
		if v.MinLength < 0 || v.MaxLength < 0 || (v.MaxLength > 0 && v.MinLength > v.MaxLength) {
			c.errorf("%s: Invalid length constraints", prefix)
		}
		if v.Pattern != "" {
			if _, err := regexp.Compile(v.Pattern); err != nil {
				c.errorf("%s: Invalid validation pattern", prefix)
			}
		}
	}
}

func knownSource(k models.SourceKind) bool {
	switch k {
	case models.SourceStatic, models.SourceForm, models.SourcePlant, models.SourceRegulation,
		models.SourceCalculated, models.SourceDynamic, models.SourceDirect:
		return true
	}
	return false
}

func inRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

// ValidatePlantConfig checks a plant configuration before it is saved.
func ValidatePlantConfig(p models.PlantConfiguration) ValidationResult {
	c := &collector{}

	name := p.DisplayName()
	switch {
	case strings.TrimSpace(name) == "":
		c.errorf("Plant name is required")
	case len([]rune(name)) > MaxNameLength:
		c.errorf("Plant name must be at most %d characters", MaxNameLength)
	}
	if strings.TrimSpace(p.Location.Address) == "" {
		c.errorf("Plant address is required")
	}
	if p.ContactInfo.Email != "" {
		if _, err := mail.ParseAddress(p.ContactInfo.Email); err != nil {
			c.errorf("Invalid email address format")
		}
	}

	standard := []models.Approval{p.Approvals.HACCP, p.Approvals.FDA, p.Approvals.ISO22000, p.Approvals.Halal, p.Approvals.Organic}
	for i, a := range standard {
		validateApproval(c, strings.ToUpper(models.ApprovalKinds[i]), a)
	}
	for i, a := range p.Approvals.Custom {
		label := fmt.Sprintf("Custom approval %d", i+1)
		if strings.TrimSpace(a.Name) == "" {
			c.errorf("%s: name is required", label)
		}
		validateApproval(c, label, a)
	}

	for i, m := range p.ProcessingMethods {
		if strings.TrimSpace(m.Name) == "" {
			c.errorf("Processing Method %d: name is required", i+1)
		}
		if strings.TrimSpace(m.Category) == "" {
			c.errorf("Processing Method %d: category is required", i+1)
		}
	}

	stationIDs := make(map[string]bool, len(p.Stations))
	for i, s := range p.Stations {
		id := firstString(s.StationID, s.ID)
		if strings.TrimSpace(id) == "" {
			c.errorf("FP Station %d: station ID is required", i+1)
		} else if stationIDs[id] {
			c.errorf("FP Station %d: duplicate station ID %s", i+1, id)
		}
		stationIDs[id] = true
		if strings.TrimSpace(s.Name) == "" {
			c.errorf("FP Station %d: station name is required", i+1)
		}
	}

	return c.result()
}

func validateApproval(c *collector, label string, a models.Approval) {
	// an all-empty standard approval means the plant does not hold it
	if a.Status == "" && a.Number == "" {
		return
	}
	if !a.Status.Valid() {
		c.errorf("%s: unknown approval status %q", label, a.Status)
	}
	if a.IsActive() && strings.TrimSpace(a.Number) == "" {
		c.errorf("%s: certificate number is required", label)
	}
	if a.ExpiryDate != "" {
		if _, ok := a.Expiry(); !ok {
			c.errorf("%s: invalid expiry date format", label)
		}
	}
}
