// Package modelsはBirthdayを定義します。
package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"gifty/backend/internal/birthdate"
)

// TodoKind は誕生日に向けてやることを表します。
type TodoKind string

const (
	TodoWhatsApp    TodoKind = "WHATSAPP"
	TodoNeedCard    TodoKind = "NEEDCARD"
	TodoNeedPresent TodoKind = "NEEDPRESENT"
)

// DefaultTodo は新規作成時の TodoKind です。
const DefaultTodo = TodoNeedPresent

// ErrInvalidTodo は TodoKind が定義済みの値でない場合のエラーです。
var ErrInvalidTodo = errors.New("invalid todo")

// ParseTodo は文字列を TodoKind に変換します。
func ParseTodo(s string) (TodoKind, error) {
	switch k := TodoKind(s); k {
	case TodoWhatsApp, TodoNeedCard, TodoNeedPresent:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTodo, s)
}

// UnmarshalJSON は定義済みの値だけを受け付けます。
func (k *TodoKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: todo must be a string", ErrInvalidTodo)
	}
	parsed, err := ParseTodo(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Birthday は誕生日のデータベース構造体を表します。
type Birthday struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	LastName    string          `json:"lastName"`
	DateOfBirth *birthdate.Date `json:"dateOfBirth"` // NULL の場合あり
	Todo        TodoKind        `json:"todo"`
}

// FullName は "名 姓" を返します。
func (b *Birthday) FullName() string {
	return b.Name + " " + b.LastName
}

// UpcomingBirthday は Birthday に次回の誕生日の情報を加えたものです。保存はされません。
type UpcomingBirthday struct {
	Birthday
	DaysUntilBirthday int    `json:"daysUntilBirthday"`
	BirthdayThisYear  string `json:"birthdayThisYear"` // YYYY-MM-DD
	Age               *int   `json:"age"`              // 年が不明な場合は null
}

// MonthStatistic は月ごとの誕生日の件数です。
type MonthStatistic struct {
	Month     int    `json:"month"`
	MonthName string `json:"monthName"`
	Count     int    `json:"count"`
}

// Statistics はダッシュボード用の集計結果です。
type Statistics struct {
	Total         int                `json:"total"`
	UpcomingCount int                `json:"upcomingCount"`
	ByMonth       []MonthStatistic   `json:"byMonth"`
	Upcoming      []UpcomingBirthday `json:"upcoming"`
}

// ImportResult はファイル取り込みの結果です。
type ImportResult struct {
	Message  string   `json:"message,omitempty"`
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
}

// CreateBirthdayRequest は誕生日作成リクエストの構造体です。
type CreateBirthdayRequest struct {
	Name        string          `json:"name" binding:"required"`
	LastName    string          `json:"lastName" binding:"required"`
	DateOfBirth *birthdate.Date `json:"dateOfBirth"`
	Todo        TodoKind        `json:"todo"` // 省略時は NEEDPRESENT
}

// UpdateBirthdayRequest は誕生日更新リクエストの構造体です。指定されたフィールドだけ更新します。
type UpdateBirthdayRequest struct {
	Name        *string         `json:"name"`
	LastName    *string         `json:"lastName"`
	DateOfBirth *birthdate.Date `json:"dateOfBirth"`
	// ClearDateOfBirth が true の場合は誕生日を NULL にします。
	ClearDateOfBirth bool      `json:"clearDateOfBirth"`
	Todo             *TodoKind `json:"todo"`
}
