package report

import (
	"bytes"
	"fmt"
	"time"

	"CompanionGuard/pkg/crisis"

	"github.com/xuri/excelize/v2"
)

const alertSheet = "Crisis Alerts"

// AlertExportHeader 导出表头
var AlertExportHeader = []string{
	"Alert ID",
	"Subject Code",
	"Conversation ID",
	"Severity",
	"Status",
	"Trigger Reason",
	"Created At",
	"Notified At",
	"Viewed At",
	"Resolved At",
	"Minutes To View",
	"Resolution Notes",
}

var alertColumnWidths = []float64{38, 16, 38, 12, 12, 50, 22, 22, 22, 22, 16, 50}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func alertRow(a crisis.CrisisAlert) []interface{} {
	var minutes interface{}
	if a.NotifiedAt != nil && a.ViewedAt != nil {
		minutes = int(a.ViewedAt.Sub(*a.NotifiedAt).Minutes())
	}
	notes := ""
	if a.ResolutionNotes != nil {
		notes = *a.ResolutionNotes
	}
	return []interface{}{
		a.ID,
		a.SubjectCode,
		a.ConversationID,
		a.Severity.String(),
		string(a.Status()),
		a.TriggerReason,
		formatTime(&a.CreatedAt),
		formatTime(a.NotifiedAt),
		formatTime(a.ViewedAt),
		formatTime(a.ResolvedAt),
		minutes,
		notes,
	}
}

// AlertsWorkbook 生成警报导出 Excel 文件，供机构做质控复盘
func AlertsWorkbook(alerts []crisis.CrisisAlert) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(alertSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	// 删除默认的 Sheet1
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FDE2E2"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetRow(alertSheet, "A1", &AlertExportHeader); err != nil {
		return nil, err
	}
	last, _ := excelize.CoordinatesToCellName(len(AlertExportHeader), 1)
	if err := f.SetCellStyle(alertSheet, "A1", last, headerStyle); err != nil {
		return nil, err
	}
	for i, w := range alertColumnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(alertSheet, col, col, w); err != nil {
			return nil, err
		}
	}

	for i, a := range alerts {
		cell, _ := excelize.CoordinatesToCellName(1, i+2) // 第1行是表头
		row := alertRow(a)
		if err := f.SetSheetRow(alertSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write alert %s: %w", a.ID, err)
		}
	}
	if err := f.SetPanes(alertSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
