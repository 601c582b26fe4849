package xlsexport

import (
	"bytes"

	approvalapimodels "crm-backend/models/api/approval"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

type Provider interface {
	ExportApprovalRequests(list []approvalapimodels.RequestView) (*bytes.Buffer, error)
}

var Instance Provider

func NewHandler() {
	Instance = impl{}
}

type impl struct{}

const dateFormat = "2006-01-02 15:04"

var approvalRequestHeaders = []string{"Request", "Workflow", "Resource", "Resource ID", "Action", "Status", "Requested by", "Requested at", "Decided by", "Decided at", "Rejection reason"}

func (i impl) ExportApprovalRequests(list []approvalapimodels.RequestView) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.WithError(err).Error("failed to close xlsx file")
		}
	}()
	sheet := "Sheet1"
	row, err := writeHeader(f, sheet, 0, approvalRequestHeaders)
	if err != nil {
		return nil, errors.Wrap(err, "failed to write xlsx header")
	}
	if len(list) != 0 {
		if _, err = writeApprovalRequestData(f, sheet, list, row); err != nil {
			return nil, errors.Wrap(err, "failed to write xlsx rows")
		}
	}
	if err = f.SetSheetName(sheet, "Approval requests"); err != nil {
		return nil, errors.Wrap(err, "failed to name xlsx sheet")
	}
	return f.WriteToBuffer()
}

func writeApprovalRequestData(f *excelize.File, sheet string, list []approvalapimodels.RequestView, row int) (int, error) {
	if err := applyDataCellStyle(f, sheet, 1, row+1, len(approvalRequestHeaders), row+len(list)); err != nil {
		return row, err
	}
	for _, item := range list {
		row++
		values := []interface{}{
			item.ID,
			item.WorkflowName,
			item.Resource,
			item.ResourceID,
			item.Action,
			item.StatusName,
			item.RequestedByID,
			item.RequestedAt.Format(dateFormat),
			"",
			"",
			"",
		}
		if item.ApprovedByID != nil {
			values[8] = *item.ApprovedByID
		}
		if item.ApprovedAt != nil {
			values[9] = item.ApprovedAt.Format(dateFormat)
		}
		if item.RejectionReason != nil {
			values[10] = *item.RejectionReason
		}
		for idx, value := range values {
			if err := writeColumn(f, sheet, idx+1, row, value); err != nil {
				return row, err
			}
		}
	}
	return row, nil
}
