package labels

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/clamflow-labels/internal/models"
)

func TestExpiringApprovals(t *testing.T) {
	p := *testPlant()
	p.Approvals.Custom = append(p.Approvals.Custom,
		models.Approval{Name: "ASC", Number: "ASC-1", Status: models.ApprovalActive, ExpiryDate: "2024-03-01"},
		models.Approval{Name: "BAP", Number: "BAP-1", Status: models.ApprovalSuspended, ExpiryDate: "2024-03-20"},
		models.Approval{Name: "BRC", Number: "BRC-1", Status: models.ApprovalActive, ExpiryDate: "soon"},
	)

	got := ExpiringApprovals(p, fixedNow, 30*24*time.Hour)
	require.Len(t, got, 2)

	assert.Equal(t, "ASC", got[0].Kind)
	assert.True(t, got[0].Expired)
	assert.Equal(t, -14, got[0].DaysLeft)

	assert.Equal(t, "HACCP", got[1].Kind)
	assert.Equal(t, "HACCP-123", got[1].Number)
	assert.False(t, got[1].Expired)
	assert.Equal(t, 16, got[1].DaysLeft)
}

func TestExpiringApprovalsNarrowWindow(t *testing.T) {
	got := ExpiringApprovals(*testPlant(), fixedNow, 24*time.Hour)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
