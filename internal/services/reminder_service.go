package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	tele "gopkg.in/telebot.v4"

	"gifty/backend/internal/config"
	"gifty/backend/internal/models"
)

// PruneSchedule は古いアップロードファイルを削除するジョブの実行時刻です。
const PruneSchedule = "30 3 * * *"

// Notifier はリマインダーのメッセージを送信します。
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// LogNotifier はメッセージをログに出力するだけの Notifier です。
type LogNotifier struct{}

// Notify はメッセージをログに出力します。
func (LogNotifier) Notify(_ context.Context, message string) error {
	log.Printf("Reminder:\n%s", message)
	return nil
}

// TelegramNotifier は Telegram のチャットにメッセージを送信します。
type TelegramNotifier struct {
	bot  *tele.Bot
	chat tele.ChatID
}

// NewTelegramNotifier は新しいTelegramNotifierを作成します。
// 送信だけを行うので、起動時に Telegram へ問い合わせない offline モードで作成します。
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tele.NewBot(tele.Settings{Token: token, Offline: true})
	if err != nil {
		return nil, fmt.Errorf("could not create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chat: tele.ChatID(chatID)}, nil
}

// Notify はメッセージを送信します。
func (n *TelegramNotifier) Notify(_ context.Context, message string) error {
	if _, err := n.bot.Send(n.chat, message); err != nil {
		return fmt.Errorf("could not send telegram message: %w", err)
	}
	return nil
}

// NewNotifier は設定に応じた Notifier を返します。Telegram が設定されていなければ LogNotifier です。
func NewNotifier(cfg config.ReminderConfig) (Notifier, error) {
	if cfg.TelegramToken == "" || cfg.TelegramChatID == 0 {
		return LogNotifier{}, nil
	}
	return NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
}

// DigestLabels はリマインダーの文言を返します。
type DigestLabels interface {
	DigestHeader() string
	DigestLine(u models.UpcomingBirthday) string
}

// DigestText はリマインダーの本文を組み立てます。
func DigestText(items []models.UpcomingBirthday, labels DigestLabels) string {
	var sb strings.Builder
	sb.WriteString(labels.DigestHeader())
	for _, u := range items {
		sb.WriteString("\n")
		sb.WriteString(labels.DigestLine(u))
	}
	return sb.String()
}

// ReminderService は毎日のリマインダー送信と古いアップロードファイルの削除を cron で実行します。
type ReminderService struct {
	birthdays *BirthdayService
	notifier  Notifier
	labels    DigestLabels
	archive   *UploadArchive
	reminder  config.ReminderConfig
	retention time.Duration
	cron      *cron.Cron
}

// NewReminderService は新しいReminderServiceを作成します。loc は cron の実行タイムゾーンです。
func NewReminderService(birthdays *BirthdayService, notifier Notifier, labels DigestLabels, archive *UploadArchive, cfg *config.Config, loc *time.Location) *ReminderService {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderService{
		birthdays: birthdays,
		notifier:  notifier,
		labels:    labels,
		archive:   archive,
		reminder:  cfg.Reminder,
		retention: cfg.Upload.Retention,
		cron:      cron.New(cron.WithLocation(loc)),
	}
}

// Start はジョブを登録して cron を開始します。
func (s *ReminderService) Start() error {
	if s.reminder.Enabled {
		if _, err := s.cron.AddFunc(s.reminder.Schedule, s.runDigest); err != nil {
			return fmt.Errorf("invalid reminder schedule %q: %w", s.reminder.Schedule, err)
		}
		log.Printf("Reminder scheduled at %q", s.reminder.Schedule)
	}
	if s.archive.Enabled() && s.retention > 0 {
		if _, err := s.cron.AddFunc(PruneSchedule, s.runPrune); err != nil {
			return fmt.Errorf("could not schedule upload pruning: %w", err)
		}
	}
	s.cron.Start()
	return nil
}

// Stop は cron を停止し、実行中のジョブの終了を待ちます。
func (s *ReminderService) Stop() {
	<-s.cron.Stop().Done()
}

// SendDigest は直近の誕生日をまとめて送信します。対象がなければ送信せず false を返します。
func (s *ReminderService) SendDigest(ctx context.Context) (bool, error) {
	items, err := s.birthdays.Digest(ctx, s.reminder.DigestDays)
	if err != nil {
		return false, fmt.Errorf("could not build digest: %w", err)
	}
	if len(items) == 0 {
		return false, nil
	}
	if err := s.notifier.Notify(ctx, DigestText(items, s.labels)); err != nil {
		return false, err
	}
	return true, nil
}

func (s *ReminderService) runDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	sent, err := s.SendDigest(ctx)
	if err != nil {
		log.Printf("Failed to send reminder: %v", err)
		return
	}
	if !sent {
		log.Println("No upcoming birthdays to remind")
	}
}

func (s *ReminderService) runPrune() {
	removed, err := s.archive.Prune(time.Now(), s.retention)
	if err != nil {
		log.Printf("Failed to prune uploads: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Pruned %d old uploads", removed)
	}
}
