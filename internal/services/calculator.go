package services

import (
	"sort"
	"time"

	"gifty/backend/internal/birthdate"
	"gifty/backend/internal/models"
)

const (
	// DefaultUpcomingDays は days が指定されなかった場合の期間です。
	DefaultUpcomingDays = 30
	// StatisticsWindowDays は統計の upcomingCount に使う固定の期間です。
	StatisticsWindowDays = 30
	// StatisticsUpcomingLimit は統計に含める直近の誕生日の件数です。
	StatisticsUpcomingLimit = 5
)

// MonthNamer は月の表示名を返します。
type MonthNamer interface {
	MonthName(m time.Month) string
}

// Project は誕生日が設定されていればその次回の誕生日を計算します。
func Project(b *models.Birthday, today time.Time) (models.UpcomingBirthday, bool) {
	if b.DateOfBirth == nil {
		return models.UpcomingBirthday{}, false
	}
	p := birthdate.Project(*b.DateOfBirth, today)
	return models.UpcomingBirthday{
		Birthday:          *b,
		DaysUntilBirthday: p.DaysUntil,
		BirthdayThisYear:  p.Next.Format(birthdate.FullLayout),
		Age:               p.Age,
	}, true
}

// FindUpcoming は windowDays 日以内 (当日を含む) に誕生日を迎えるものを近い順に返します。
// 残り日数が同じ場合は records の順序を保ちます。
func FindUpcoming(records []*models.Birthday, today time.Time, windowDays int) []models.UpcomingBirthday {
	upcoming := []models.UpcomingBirthday{}
	for _, b := range records {
		u, ok := Project(b, today)
		if !ok || u.DaysUntilBirthday < 0 || u.DaysUntilBirthday > windowDays {
			continue
		}
		upcoming = append(upcoming, u)
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].DaysUntilBirthday < upcoming[j].DaysUntilBirthday
	})
	return upcoming
}

// BuildStatistics はダッシュボード用の集計を行います。
func BuildStatistics(records []*models.Birthday, today time.Time, names MonthNamer) models.Statistics {
	byMonth := make([]models.MonthStatistic, 12)
	for i := range byMonth {
		m := time.Month(i + 1)
		byMonth[i] = models.MonthStatistic{Month: int(m), MonthName: monthName(names, m)}
	}
	for _, b := range records {
		if b.DateOfBirth == nil {
			continue
		}
		byMonth[b.DateOfBirth.Month-1].Count++
	}

	upcoming := FindUpcoming(records, today, StatisticsWindowDays)
	stats := models.Statistics{
		Total:         len(records),
		UpcomingCount: len(upcoming),
		ByMonth:       byMonth,
		Upcoming:      upcoming,
	}
	if len(upcoming) > StatisticsUpcomingLimit {
		stats.Upcoming = upcoming[:StatisticsUpcomingLimit]
	}
	return stats
}

// FilterByMonth は誕生月が month のものを返します。誕生日が未設定のものは含みません。
func FilterByMonth(records []*models.Birthday, month time.Month) []*models.Birthday {
	filtered := []*models.Birthday{}
	for _, b := range records {
		if b.DateOfBirth != nil && b.DateOfBirth.Month == month {
			filtered = append(filtered, b)
		}
	}
	return filtered
}

func monthName(names MonthNamer, m time.Month) string {
	if names == nil {
		return m.String()
	}
	return names.MonthName(m)
}
