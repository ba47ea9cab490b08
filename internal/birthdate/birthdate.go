// Package birthdate は誕生日の日付表現 (年あり / 年なし) と次回の記念日の計算を提供します。
package birthdate

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalidFormat は誕生日の文字列が受け付け可能な形式でない場合のエラーです。
var ErrInvalidFormat = errors.New("invalid birthday format")

// FullLayout は年ありの誕生日の書式です。
const FullLayout = "2006-01-02"

var (
	fullPattern      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	recurringPattern = regexp.MustCompile(`^--(\d{2})-(\d{2})$`)
)

// Date は誕生日を表します。
// YearKnown が false の場合は "--MM-DD" 形式の毎年繰り返す日付で、Year は 0 です。
type Date struct {
	Year      int
	Month     time.Month
	Day       int
	YearKnown bool
}

// Parse は "YYYY-MM-DD" または "--MM-DD" 形式の文字列を Date に変換します。
// 上記以外の形式、空文字列、存在しない日付はすべて ErrInvalidFormat になります。
func Parse(s string) (Date, error) {
	switch {
	case fullPattern.MatchString(s):
		t, err := time.Parse(FullLayout, s)
		if err != nil {
			return Date{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
		}
		return Date{Year: t.Year(), Month: t.Month(), Day: t.Day(), YearKnown: true}, nil
	case recurringPattern.MatchString(s):
		m := recurringPattern.FindStringSubmatch(s)
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		// 年が不明なので 2/29 を許容するためにうるう年で検証する
		if month < 1 || month > 12 || day < 1 || day > daysIn(time.Month(month), 2000) {
			return Date{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
		}
		return Date{Month: time.Month(month), Day: day}, nil
	default:
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
}

// MustParse は Parse のパニック版です。テストやサンプルデータ用です。
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String は保存形式 ("YYYY-MM-DD" または "--MM-DD") を返します。
func (d Date) String() string {
	if d.YearKnown {
		return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
	}
	return fmt.Sprintf("--%02d-%02d", int(d.Month), d.Day)
}

// MarshalJSON は保存形式の文字列として出力します。
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON は保存形式の文字列を検証して読み込みます。
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: dateOfBirth must be a string", ErrInvalidFormat)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// FromNullString は NULL 許容カラムの値から Date を復元します。NULL は nil になります。
func FromNullString(ns sql.NullString) (*Date, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := Parse(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// NullString は NULL 許容カラムに保存する値を返します。nil の場合は NULL です。
func (d *Date) NullString() sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsLeap はうるう年かどうかを返します。
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
