package export

import (
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"CheckMate/internal/model"
)

// 导出报表：每记录日一个 xlsx，首行表头，一行一条记录，
// 文件名沿用日表命名 <DD>-<MM>_<tag>.xlsx。
const sheetName = "Sheet1"

// BuildCheckInReport 从台账快照生成当日打卡报表。空台账也产出只有表头的报表。
func BuildCheckInReport(day model.RecordDay, records []model.CheckInRecord, loc *time.Location) ([]byte, string, error) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	rows := make([][]interface{}, 0, len(records)+1)
	rows = append(rows, []interface{}{"User", "Timestamp"})
	for _, rec := range records {
		rows = append(rows, []interface{}{
			rec.DisplayName,
			rec.Timestamp.In(loc).Format("15:04"),
		})
	}

	data, err := writeSheet(rows)
	if err != nil {
		return nil, "", fmt.Errorf("build check-in report: %w", err)
	}

	return data, fmt.Sprintf("%s_CIT.xlsx", day.FileStem()), nil
}

// BuildNotesReport 从记事快照生成报表，保持插入顺序。
func BuildNotesReport(day model.RecordDay, notes []model.NoteRecord, loc *time.Location) ([]byte, string, error) {
	rows := make([][]interface{}, 0, len(notes)+1)
	rows = append(rows, []interface{}{"User", "Message", "Timestamp"})
	for _, note := range notes {
		rows = append(rows, []interface{}{
			note.DisplayName,
			note.Text,
			note.Timestamp.In(loc).Format("15:04:05"),
		})
	}

	data, err := writeSheet(rows)
	if err != nil {
		return nil, "", fmt.Errorf("build notes report: %w", err)
	}

	return data, fmt.Sprintf("%s_NOTES.xlsx", day.FileStem()), nil
}

func writeSheet(rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
