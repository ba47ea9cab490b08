package birthdate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gifty/backend/internal/birthdate"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestProject(t *testing.T) {
	today := date(2024, time.June, 10)

	t.Run("upcoming this year with known year", func(t *testing.T) {
		p := birthdate.Project(birthdate.MustParse("1990-06-15"), today)
		assert.Equal(t, date(2024, time.June, 15), p.Next)
		assert.Equal(t, 5, p.DaysUntil)
		require.NotNil(t, p.Age)
		assert.Equal(t, 34, *p.Age)
	})

	t.Run("already passed recurring date moves to next year", func(t *testing.T) {
		p := birthdate.Project(birthdate.MustParse("--06-01"), today)
		assert.Equal(t, date(2025, time.June, 1), p.Next)
		assert.Equal(t, 356, p.DaysUntil)
		assert.Nil(t, p.Age, "年なしの誕生日は年齢を持たない")
	})

	t.Run("birthday today", func(t *testing.T) {
		p := birthdate.Project(birthdate.MustParse("2000-06-10"), today)
		assert.Equal(t, today, p.Next)
		assert.Equal(t, 0, p.DaysUntil)
	})

	t.Run("yesterday is almost a year away", func(t *testing.T) {
		p := birthdate.Project(birthdate.MustParse("--06-09"), today)
		assert.Equal(t, date(2025, time.June, 9), p.Next)
		assert.Equal(t, 364, p.DaysUntil)
	})

	t.Run("year end boundary", func(t *testing.T) {
		p := birthdate.Project(birthdate.MustParse("1980-01-01"), date(2024, time.December, 31))
		assert.Equal(t, date(2025, time.January, 1), p.Next)
		assert.Equal(t, 1, p.DaysUntil)
		// 年齢は today の年との差 (まだ誕生日を迎えていなくても引かない)
		assert.Equal(t, 44, *p.Age)
	})
}

func TestNextOccurrence_LeapDay(t *testing.T) {
	leapling := birthdate.MustParse("2000-02-29")

	t.Run("non leap year clamps to Feb 28", func(t *testing.T) {
		next := birthdate.NextOccurrence(leapling, date(2025, time.January, 10))
		assert.Equal(t, date(2025, time.February, 28), next)
	})

	t.Run("leap year keeps Feb 29", func(t *testing.T) {
		next := birthdate.NextOccurrence(leapling, date(2024, time.January, 1))
		assert.Equal(t, date(2024, time.February, 29), next)
	})

	t.Run("on Feb 28 of a non leap year it is today", func(t *testing.T) {
		today := date(2025, time.February, 28)
		next := birthdate.NextOccurrence(leapling, today)
		assert.Equal(t, today, next)
		assert.Equal(t, 0, birthdate.DaysUntil(next, today))
	})

	t.Run("after Feb 28 in a year before a leap year", func(t *testing.T) {
		next := birthdate.NextOccurrence(birthdate.MustParse("--02-29"), date(2023, time.March, 1))
		assert.Equal(t, date(2024, time.February, 29), next)
	})
}

func TestDaysUntil_IgnoresTimeOfDayAndZone(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// 夏時間の切り替え (2024-03-31) をまたいでも日数がずれないこと
	today := time.Date(2024, time.March, 30, 23, 30, 0, 0, berlin)
	next := birthdate.NextOccurrence(birthdate.MustParse("--04-01"), today)
	assert.Equal(t, date(2024, time.April, 1), next)
	assert.Equal(t, 2, birthdate.DaysUntil(next, today))
}

func TestDaysUntil_Bounds(t *testing.T) {
	starts := []time.Time{
		date(2023, time.January, 1),
		date(2024, time.February, 29),
		date(2024, time.March, 1),
		date(2024, time.December, 31),
	}
	for _, today := range starts {
		for m := time.January; m <= time.December; m++ {
			for _, d := range []int{1, 15, 28} {
				bd := birthdate.Date{Month: m, Day: d}
				days := birthdate.DaysUntil(birthdate.NextOccurrence(bd, today), today)
				assert.GreaterOrEqual(t, days, 0)
				assert.LessOrEqual(t, days, 366)
			}
		}
	}
}

func TestAge_IndependentOfMonthOrder(t *testing.T) {
	today := date(2024, time.June, 10)
	for _, s := range []string{"1990-01-01", "1990-06-10", "1990-06-11", "1990-12-31"} {
		age, ok := birthdate.Age(birthdate.MustParse(s), today)
		require.True(t, ok)
		assert.Equal(t, 34, age, s)
	}
	_, ok := birthdate.Age(birthdate.MustParse("--01-01"), today)
	assert.False(t, ok)
}

func TestToday_UsesClockLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	clock := birthdate.FixedClock(time.Date(2024, time.June, 10, 23, 0, 0, 0, tokyo))
	assert.Equal(t, date(2024, time.June, 10), birthdate.Today(clock))
}
