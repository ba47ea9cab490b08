package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gifty/backend/internal/birthdate"
	"gifty/backend/internal/models"
	"gifty/backend/internal/repositories"
)

var (
	ErrInvalidMonth  = errors.New("month must be between 1 and 12")
	ErrInvalidWindow = errors.New("days must be a non-negative integer")
	ErrInvalidName   = errors.New("name and lastName must not be blank")
)

// DigestDays はリマインダーに含める日数の既定値です。
const DigestDays = 7

// sampleBirthdays はサンプルデータです。
var sampleBirthdays = []models.Birthday{
	{Name: "Max", LastName: "Mustermann", DateOfBirth: datePtr("1990-05-15"), Todo: models.TodoNeedPresent},
	{Name: "Anna", LastName: "Schmidt", DateOfBirth: datePtr("1985-12-03"), Todo: models.TodoWhatsApp},
	{Name: "Peter", LastName: "Müller", DateOfBirth: datePtr("1992-08-22"), Todo: models.TodoNeedCard},
}

func datePtr(s string) *birthdate.Date {
	d := birthdate.MustParse(s)
	return &d
}

// BirthdayService は誕生日関連のビジネスロジックを扱います。
type BirthdayService struct {
	repo  repositories.BirthdayRepository
	clock birthdate.Clock
	names MonthNamer
}

// NewBirthdayService は新しいBirthdayServiceを作成します。
func NewBirthdayService(repo repositories.BirthdayRepository, clock birthdate.Clock, names MonthNamer) *BirthdayService {
	if clock == nil {
		clock = birthdate.RealClock{}
	}
	return &BirthdayService{repo: repo, clock: clock, names: names}
}

// Today は設定されたタイムゾーンでの今日の日付を返します。
func (s *BirthdayService) Today() time.Time {
	return birthdate.Today(s.clock)
}

// FindAll はすべての誕生日を取得します。
func (s *BirthdayService) FindAll(ctx context.Context) ([]*models.Birthday, error) {
	return s.repo.FindAll(ctx)
}

// FindOne は指定IDの誕生日を取得します。
func (s *BirthdayService) FindOne(ctx context.Context, id int) (*models.Birthday, error) {
	return s.repo.FindByID(ctx, id)
}

// Create は新しい誕生日を作成します。Todo が未指定なら NEEDPRESENT になります。
func (s *BirthdayService) Create(ctx context.Context, req *models.CreateBirthdayRequest) (*models.Birthday, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.LastName) == "" {
		return nil, ErrInvalidName
	}
	b := &models.Birthday{
		Name:        req.Name,
		LastName:    req.LastName,
		DateOfBirth: req.DateOfBirth,
		Todo:        req.Todo,
	}
	if b.Todo == "" {
		b.Todo = models.DefaultTodo
	}
	return s.repo.Create(ctx, b)
}

// Update は指定されたフィールドだけを更新します。
func (s *BirthdayService) Update(ctx context.Context, id int, req *models.UpdateBirthdayRequest) (*models.Birthday, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}
	if req.LastName != nil {
		existing.LastName = *req.LastName
	}
	if strings.TrimSpace(existing.Name) == "" || strings.TrimSpace(existing.LastName) == "" {
		return nil, ErrInvalidName
	}
	switch {
	case req.ClearDateOfBirth:
		existing.DateOfBirth = nil
	case req.DateOfBirth != nil:
		existing.DateOfBirth = req.DateOfBirth
	}
	if req.Todo != nil {
		existing.Todo = *req.Todo
	}
	return s.repo.Update(ctx, id, existing)
}

// Remove は指定IDの誕生日を削除します。
func (s *BirthdayService) Remove(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

// FindUpcoming は days 日以内に誕生日を迎えるものを近い順に返します。
func (s *BirthdayService) FindUpcoming(ctx context.Context, days int) ([]models.UpcomingBirthday, error) {
	if days < 0 {
		return nil, ErrInvalidWindow
	}
	records, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return FindUpcoming(records, s.Today(), days), nil
}

// Statistics はダッシュボード用の集計を返します。
func (s *BirthdayService) Statistics(ctx context.Context) (*models.Statistics, error) {
	records, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	stats := BuildStatistics(records, s.Today(), s.names)
	return &stats, nil
}

// ByMonth は誕生月が month (1〜12) のものを返します。
func (s *BirthdayService) ByMonth(ctx context.Context, month int) ([]*models.Birthday, error) {
	if month < 1 || month > 12 {
		return nil, ErrInvalidMonth
	}
	records, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByMonth(records, time.Month(month)), nil
}

// GenerateSampleData はサンプルデータを登録し、作成した件数を返します。
// 同じ名前の人がすでに登録されている場合はスキップします。
func (s *BirthdayService) GenerateSampleData(ctx context.Context) (int, error) {
	created := 0
	for _, sample := range sampleBirthdays {
		b := sample
		if _, err := s.repo.FindByName(ctx, b.Name, b.LastName); err == nil {
			continue
		} else if !errors.Is(err, repositories.ErrBirthdayNotFound) {
			return created, err
		}

		if _, err := s.repo.Create(ctx, &b); err != nil {
			if errors.Is(err, repositories.ErrDuplicateBirthday) {
				continue
			}
			return created, fmt.Errorf("could not create sample %s: %w", b.FullName(), err)
		}
		created++
	}
	log.Printf("Generated %d sample birthdays", created)
	return created, nil
}

// Digest は今日から days 日以内の誕生日を返します。リマインダー用です。
func (s *BirthdayService) Digest(ctx context.Context, days int) ([]models.UpcomingBirthday, error) {
	if days <= 0 {
		days = DigestDays
	}
	return s.FindUpcoming(ctx, days)
}

// Snapshot はすべての誕生日と今日の日付を返します。カレンダー出力用です。
func (s *BirthdayService) Snapshot(ctx context.Context) ([]*models.Birthday, time.Time, error) {
	records, err := s.repo.FindAll(ctx)
	return records, s.Today(), err
}
