package birthdate

import "time"

// Clock は現在時刻を返します。テストで「今日」を固定するために使います。
type Clock interface {
	Now() time.Time
}

// RealClock は実際の時刻を Location のタイムゾーンで返します。
type RealClock struct {
	Location *time.Location
}

// Now は現在時刻を返します。
func (c RealClock) Now() time.Time {
	if c.Location != nil {
		return time.Now().In(c.Location)
	}
	return time.Now()
}

// FixedClock は常に同じ時刻を返す Clock です。
type FixedClock time.Time

// Now は固定された時刻を返します。
func (c FixedClock) Now() time.Time {
	return time.Time(c)
}

// Today は clock の現在日付を返します。
func Today(c Clock) time.Time {
	return DateOnly(c.Now())
}
