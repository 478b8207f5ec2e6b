package model

import "time"

// CheckInRecord 每用户每记录日至多一条。
type CheckInRecord struct {
	UserID      string    `json:"user_id"` // Slack 用户 ID，去重键
	DisplayName string    `json:"display_name"`
	Timestamp   time.Time `json:"timestamp"`
}

// NoteRecord 记事条目，无唯一性约束，按插入顺序展示。
type NoteRecord struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Text        string    `json:"text"` // 原始消息全文
	Timestamp   time.Time `json:"timestamp"`
}

// RecordDay 记录日，固定时区下的日历日期。
type RecordDay string

const recordDayLayout = "2006-01-02"

func DayOf(t time.Time, loc *time.Location) RecordDay {
	return RecordDay(t.In(loc).Format(recordDayLayout))
}

func (d RecordDay) String() string {
	return string(d)
}

// FileStem 导出文件名的日期前缀，格式 DD-MM。
func (d RecordDay) FileStem() string {
	t, err := time.Parse(recordDayLayout, string(d))
	if err != nil {
		return string(d)
	}
	return t.Format("02-01")
}
