package labels

import (
	"sort"
	"strings"
	"time"

	"github.com/xelth-com/clamflow-labels/internal/models"
)

// ApprovalNotice flags an active approval that has expired or will soon.
type ApprovalNotice struct {
	Kind       string    `json:"kind"`
	Number     string    `json:"number"`
	ExpiryDate string    `json:"expiryDate"`
	Expired    bool      `json:"expired"`
	DaysLeft   int       `json:"daysLeft"`
	expiry     time.Time
}

// ExpiringApprovals lists active approvals whose expiry date falls before
// now+window, soonest first. Approvals with unparseable dates are skipped.
func ExpiringApprovals(p models.PlantConfiguration, now time.Time, window time.Duration) []ApprovalNotice {
	limit := now.Add(window)
	notices := []ApprovalNotice{}

	check := func(kind string, a models.Approval) {
		if !a.IsActive() {
			return
		}
		exp, ok := a.Expiry()
		if !ok || exp.After(limit) {
			return
		}
		notices = append(notices, ApprovalNotice{
			Kind:       kind,
			Number:     a.Number,
			ExpiryDate: a.ExpiryDate,
			Expired:    !exp.After(now),
			DaysLeft:   int(exp.Sub(now).Hours() / 24),
			expiry:     exp,
		})
	}

	for _, kind := range models.ApprovalKinds {
		a, _ := p.Approvals.ByKey(kind)
		check(strings.ToUpper(kind), a)
	}
	for _, a := range p.Approvals.Custom {
		check(a.Name, a)
	}

	sort.SliceStable(notices, func(i, j int) bool {
		return notices[i].expiry.Before(notices[j].expiry)
	})
	return notices
}
