package birthdate

import (
	"math"
	"time"
)

// Projection は「今日」を基準にした次回の誕生日の情報です。
type Projection struct {
	Next      time.Time
	DaysUntil int
	// Age は年が分かっている場合のみ設定されます。
	Age *int
}

// On は指定した年における誕生日を返します。
// うるう年以外の年では 2/29 生まれは 2/28 として扱います。
func (d Date) On(year int) time.Time {
	day := d.Day
	if d.Month == time.February && day == 29 && !IsLeap(year) {
		day = 28
	}
	return time.Date(year, d.Month, day, 0, 0, 0, 0, time.UTC)
}

// NextOccurrence は today 以降 (当日を含む) で最も近い誕生日を返します。
func NextOccurrence(d Date, today time.Time) time.Time {
	today = DateOnly(today)
	candidate := d.On(today.Year())
	if candidate.Before(today) {
		candidate = d.On(today.Year() + 1)
	}
	return candidate
}

// DaysUntil は today から next までの日数を返します。当日なら 0 です。
func DaysUntil(next, today time.Time) int {
	diff := DateOnly(next).Sub(DateOnly(today))
	return int(math.Ceil(diff.Hours() / 24))
}

// Age は today の年と生まれ年の差を返します。
// 今年の誕生日をまだ迎えていなくても 1 を引きません。年が不明なら ok は false です。
func Age(d Date, today time.Time) (age int, ok bool) {
	if !d.YearKnown {
		return 0, false
	}
	return today.Year() - d.Year, true
}

// Project は次回の誕生日、残り日数、年齢をまとめて計算します。
func Project(d Date, today time.Time) Projection {
	next := NextOccurrence(d, today)
	p := Projection{Next: next, DaysUntil: DaysUntil(next, today)}
	if age, ok := Age(d, today); ok {
		p.Age = &age
	}
	return p
}

// DateOnly は t のローカル日付を UTC の 0 時として返します。
// 日数計算で夏時間の影響を受けないようにするためです。
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
