package xlsexport

import (
	"testing"
	"time"

	"crm-backend/models"
	approvalapimodels "crm-backend/models/api/approval"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportApprovalRequests(t *testing.T) {
	approver := "u-fin"
	reason := "active contracts"
	decided := time.Date(2024, 3, 2, 10, 30, 0, 0, time.UTC)
	list := []approvalapimodels.RequestView{
		{
			ID:            "r-1",
			WorkflowName:  "customer delete",
			Resource:      models.ResourceCustomer,
			ResourceID:    "c-1",
			Action:        models.ActionDelete,
			StatusName:    models.ApprovalPending.ToHuman(),
			RequestedByID: "u-sales",
			RequestedAt:   time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			ID:              "r-2",
			Resource:        models.ResourceDeal,
			ResourceID:      "d-1",
			Action:          models.ActionAmountOverride,
			StatusName:      models.ApprovalRejected.ToHuman(),
			RequestedByID:   "u-sales",
			RequestedAt:     time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
			ApprovedByID:    &approver,
			ApprovedAt:      &decided,
			RejectionReason: &reason,
		},
	}
	buf, err := impl{}.ExportApprovalRequests(list)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Approval requests")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, approvalRequestHeaders, rows[0])
	require.Equal(t, "r-1", rows[1][0])
	require.Equal(t, "Pending", rows[1][5])
	require.Equal(t, "2024-03-02 10:30", rows[2][9])
	require.Equal(t, "active contracts", rows[2][10])
}
