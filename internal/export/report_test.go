package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"CheckMate/internal/model"
)

func readRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	return rows
}

func TestBuildCheckInReport(t *testing.T) {
	day := model.RecordDay("2026-08-28")
	records := []model.CheckInRecord{
		{UserID: "U2", DisplayName: "bob", Timestamp: time.Date(2026, 8, 28, 10, 15, 0, 0, time.UTC)},
		{UserID: "U1", DisplayName: "alice", Timestamp: time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC)},
	}

	data, filename, err := BuildCheckInReport(day, records, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "28-08_CIT.xlsx", filename)

	rows := readRows(t, data)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"User", "Timestamp"}, rows[0])
	// 按打卡时间排序
	assert.Equal(t, []string{"alice", "09:30"}, rows[1])
	assert.Equal(t, []string{"bob", "10:15"}, rows[2])
}

func TestBuildCheckInReportEmptyLedger(t *testing.T) {
	data, filename, err := BuildCheckInReport(model.RecordDay("2026-01-02"), nil, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "02-01_CIT.xlsx", filename)

	rows := readRows(t, data)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"User", "Timestamp"}, rows[0])
}

func TestBuildNotesReportKeepsOrder(t *testing.T) {
	day := model.RecordDay("2026-08-28")
	notes := []model.NoteRecord{
		{UserID: "U1", DisplayName: "alice", Text: "log this: first", Timestamp: time.Date(2026, 8, 28, 9, 0, 1, 0, time.UTC)},
		{UserID: "U2", DisplayName: "bob", Text: "note this: second", Timestamp: time.Date(2026, 8, 28, 8, 0, 2, 0, time.UTC)},
	}

	data, filename, err := BuildNotesReport(day, notes, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "28-08_NOTES.xlsx", filename)

	rows := readRows(t, data)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"User", "Message", "Timestamp"}, rows[0])
	assert.Equal(t, []string{"alice", "log this: first", "09:00:01"}, rows[1])
	assert.Equal(t, []string{"bob", "note this: second", "08:00:02"}, rows[2])
}
