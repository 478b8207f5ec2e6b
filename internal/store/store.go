package store

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"CheckMate/internal/model"
	pkgerrors "CheckMate/pkg/errors"
	"CheckMate/pkg/snowflake"
)

// 持久化格式：每记录日一个 CSV 文件，首行表头，之后每行一条记录。
// 打卡表 <DD>-<MM>_CIT.csv 两列 [User, Timestamp]，
// 记事表 <DD>-<MM>_NOTES.csv 三列 [User, Message, Timestamp]。
const (
	checkInTag = "CIT"
	notesTag   = "NOTES"

	checkInTimeLayout = "15:04:05"
)

var (
	checkInHeader = []string{"User", "Timestamp"}
	notesHeader   = []string{"User", "Message", "Timestamp"}
)

// Store 拥有台账生命周期：内存索引 + 追加写的日表文件。
// 其他组件不得绕过它修改台账。
type Store struct {
	mu       sync.Mutex
	dir      string
	loc      *time.Location
	logger   *zap.Logger
	checkIns map[model.RecordDay]map[string]model.CheckInRecord
	notes    []model.NoteRecord
}

// New 创建存储并回放当天已落盘的记录，进程重启不丢当日去重状态。
func New(dir string, loc *time.Location, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create record dir: %w", err)
	}

	s := &Store{
		dir:      dir,
		loc:      loc,
		logger:   logger,
		checkIns: make(map[model.RecordDay]map[string]model.CheckInRecord),
	}

	today := model.DayOf(time.Now(), loc)
	if err := s.reloadDay(today); err != nil {
		return nil, err
	}

	return s, nil
}

// HasCheckedIn 判断 (day, user) 是否已有打卡记录。
func (s *Store) HasCheckedIn(day model.RecordDay, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.checkIns[day][userID]
	return ok
}

// RecordCheckIn 原子的先查后写：重复打卡返回 CheckInAlreadyDone 且不产生任何变更；
// 落盘失败同样不改内存索引，调用方可提示用户重试。
func (s *Store) RecordCheckIn(day model.RecordDay, rec model.CheckInRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.checkIns[day][rec.UserID]; ok {
		return pkgerrors.CheckInAlreadyDone
	}

	row := []string{rec.UserID, rec.Timestamp.In(s.loc).Format(checkInTimeLayout)}
	if err := s.appendRow(day, checkInTag, checkInHeader, row); err != nil {
		return fmt.Errorf("%w: persist check-in: %v", pkgerrors.StoreIOFailed, err)
	}

	ledger, ok := s.checkIns[day]
	if !ok {
		ledger = make(map[string]model.CheckInRecord)
		s.checkIns[day] = ledger
	}
	ledger[rec.UserID] = rec

	return nil
}

// AppendNote 追加记事，无去重。返回带 ID 的记录。
func (s *Store) AppendNote(rec model.NoteRecord) (model.NoteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == 0 {
		id, err := snowflake.NextID()
		if err == nil {
			rec.ID = id
		}
	}

	day := model.DayOf(rec.Timestamp, s.loc)
	row := []string{rec.UserID, rec.Text, rec.Timestamp.In(s.loc).Format(time.RFC3339)}
	if err := s.appendRow(day, notesTag, notesHeader, row); err != nil {
		return model.NoteRecord{}, fmt.Errorf("%w: persist note: %v", pkgerrors.StoreIOFailed, err)
	}

	s.notes = append(s.notes, rec)

	return rec, nil
}

// AllNotes 按插入顺序返回记事快照，无记录时返回空切片。
func (s *Store) AllNotes() []model.NoteRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.NoteRecord, len(s.notes))
	copy(out, s.notes)
	return out
}

// LedgerFor 返回某记录日的打卡快照，导出用；无台账时返回空切片。
func (s *Store) LedgerFor(day model.RecordDay) []model.CheckInRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger := s.checkIns[day]
	out := make([]model.CheckInRecord, 0, len(ledger))
	for _, rec := range ledger {
		out = append(out, rec)
	}
	return out
}

func (s *Store) filePath(day model.RecordDay, tag string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.csv", day.FileStem(), tag))
}

// appendRow 单次写入追加一条记录；新文件连同表头一并写出，
// 避免出现只有表头或半行数据的文件。
func (s *Store) appendRow(day model.RecordDay, tag string, header, row []string) error {
	path := s.filePath(day, tag)

	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if isNew {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

// reloadDay 回放当天的打卡与记事文件到内存索引。
func (s *Store) reloadDay(day model.RecordDay) error {
	rows, err := s.readRows(s.filePath(day, checkInTag))
	if err != nil {
		return err
	}

	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		tod, err := time.ParseInLocation(checkInTimeLayout, row[1], s.loc)
		if err != nil {
			s.logger.Warn("Skipping malformed check-in row",
				zap.String("day", day.String()),
				zap.Strings("row", row),
			)
			continue
		}

		base, _ := time.ParseInLocation("2006-01-02", day.String(), s.loc)
		ts := time.Date(base.Year(), base.Month(), base.Day(),
			tod.Hour(), tod.Minute(), tod.Second(), 0, s.loc)

		ledger, ok := s.checkIns[day]
		if !ok {
			ledger = make(map[string]model.CheckInRecord)
			s.checkIns[day] = ledger
		}
		// 重启后展示名不可知，回退为用户 ID
		ledger[row[0]] = model.CheckInRecord{UserID: row[0], DisplayName: row[0], Timestamp: ts}
	}

	noteRows, err := s.readRows(s.filePath(day, notesTag))
	if err != nil {
		return err
	}

	for _, row := range noteRows {
		if len(row) < 3 {
			continue
		}
		ts, err := time.Parse(time.RFC3339, row[2])
		if err != nil {
			s.logger.Warn("Skipping malformed note row",
				zap.String("day", day.String()),
				zap.Strings("row", row),
			)
			continue
		}
		s.notes = append(s.notes, model.NoteRecord{
			UserID:      row[0],
			DisplayName: row[0],
			Text:        row[1],
			Timestamp:   ts,
		})
	}

	if n := len(s.checkIns[day]); n > 0 || len(s.notes) > 0 {
		s.logger.Info("Reloaded today's records from disk",
			zap.String("day", day.String()),
			zap.Int("check_ins", n),
			zap.Int("notes", len(s.notes)),
		)
	}

	return nil
}

// readRows 读取一个日表文件并去掉表头；文件不存在视为空表。
func (s *Store) readRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open record file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var rows [][]string
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record file %s: %w", path, err)
		}
		if first {
			first = false
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}
