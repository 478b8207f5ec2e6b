package schedule

// 日报调度器：每天固定本地时刻把当日台账快照导出并邮件投递。
// 进程不在线时错过的触发不补发，至多一次。

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"CheckMate/internal/export"
	"CheckMate/internal/model"
	pkgerrors "CheckMate/pkg/errors"
	"CheckMate/pkg/snowflake"
)

// ReportSender 报表投递方，pkg/mailer 实现。
type ReportSender interface {
	SendReport(subject, body, filename string, attachment []byte) error
}

// LedgerReader 台账快照读取方，internal/store 实现。
type LedgerReader interface {
	LedgerFor(day model.RecordDay) []model.CheckInRecord
	AllNotes() []model.NoteRecord
}

type ExportScheduler struct {
	cron    *cron.Cron
	store   LedgerReader
	sender  ReportSender
	variant string // checkin 或 notes，决定报表形态
	loc     *time.Location
	logger  *zap.Logger
}

func NewExportScheduler(
	st LedgerReader,
	sender ReportSender,
	variant string,
	loc *time.Location,
	logger *zap.Logger,
) *ExportScheduler {
	return &ExportScheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		store:   st,
		sender:  sender,
		variant: variant,
		loc:     loc,
		logger:  logger,
	}
}

// Start 注册每日任务并启动调度；exportTime 为 HH:MM 墙钟时刻。
func (s *ExportScheduler) Start(exportTime string) error {
	spec, err := cronSpecFor(exportTime)
	if err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(spec, s.runExport); err != nil {
		return fmt.Errorf("register export job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Daily export scheduled",
		zap.String("export_time", exportTime),
		zap.String("timezone", s.loc.String()),
	)
	return nil
}

// Stop 停止调度并等待进行中的导出结束。
func (s *ExportScheduler) Stop() {
	<-s.cron.Stop().Done()
}

// runExport 单次导出。任何失败只记日志，调度继续排明天的任务。
func (s *ExportScheduler) runExport() {
	start := time.Now()
	day := model.DayOf(start, s.loc)

	batchID, err := snowflake.NextID()
	if err != nil {
		batchID = 0
	}

	s.logger.Info("Starting daily export",
		zap.String("day", day.String()),
		zap.Int64("batch_id", batchID),
	)

	data, filename, err := s.buildReport(day)
	if err != nil {
		s.logger.Error("Failed to build daily report",
			zap.String("day", day.String()),
			zap.Int64("batch_id", batchID),
			zap.Error(err),
		)
		return
	}

	subject := fmt.Sprintf("End of Day Check-in Report (%s)", day.String())
	body := "Please find attached the check-in report for today."
	if strings.EqualFold(s.variant, "notes") {
		subject = fmt.Sprintf("End of Day Notes Report (%s)", day.String())
		body = "Please find attached the notes report for today."
	}

	if err := s.sender.SendReport(subject, body, filename, data); err != nil {
		s.logger.Error("Failed to deliver daily report",
			zap.String("day", day.String()),
			zap.Int64("batch_id", batchID),
			zap.Error(fmt.Errorf("%w: %v", pkgerrors.ExportDeliveryFailed, err)),
		)
		return
	}

	s.logger.Info("Daily export completed",
		zap.String("day", day.String()),
		zap.String("filename", filename),
		zap.Duration("duration", time.Since(start)),
	)
}

func (s *ExportScheduler) buildReport(day model.RecordDay) ([]byte, string, error) {
	var (
		data     []byte
		filename string
		err      error
	)

	if strings.EqualFold(s.variant, "notes") {
		data, filename, err = export.BuildNotesReport(day, s.store.AllNotes(), s.loc)
	} else {
		data, filename, err = export.BuildCheckInReport(day, s.store.LedgerFor(day), s.loc)
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", pkgerrors.ExportBuildFailed, err)
	}

	return data, filename, nil
}

// cronSpecFor 把 HH:MM（或 HH:MM:SS，秒被忽略）换算成 cron 表达式。
func cronSpecFor(exportTime string) (string, error) {
	layout := "15:04"
	if strings.Count(exportTime, ":") == 2 {
		layout = "15:04:05"
	}

	t, err := time.Parse(layout, exportTime)
	if err != nil {
		return "", fmt.Errorf("invalid export time %q, want HH:MM: %w", exportTime, err)
	}

	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
}
