package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"

	"gifty/backend/internal/birthdate"
	"gifty/backend/internal/models"
)

const calendarProductID = "-//Gifty//Birthdays//DE"

// emptyCalendar は予定が1件もない場合に返す最小限のカレンダーです。
const emptyCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + calendarProductID + "\r\nEND:VCALENDAR\r\n"

// CalendarLabels はカレンダーに表示する文言を返します。
type CalendarLabels interface {
	CalendarName() string
	BirthdaySummary(name string) string
	TodoLabel(k models.TodoKind) string
}

// CalendarService は誕生日を iCalendar 形式で出力します。
type CalendarService struct {
	labels CalendarLabels
}

// NewCalendarService は新しいCalendarServiceを作成します。
func NewCalendarService(labels CalendarLabels) *CalendarService {
	return &CalendarService{labels: labels}
}

// Render は誕生日ごとに毎年繰り返す終日の予定を持つカレンダーを返します。
// 誕生日が未設定のものは含みません。UID は ID から決まるので、再取得しても予定は重複しません。
func (s *CalendarService) Render(records []*models.Birthday, today time.Time) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, calendarProductID)
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")
	cal.Props.SetText("X-WR-CALNAME", s.labels.CalendarName())

	stamp := birthdate.DateOnly(today)
	for _, b := range records {
		if b.DateOfBirth == nil {
			continue
		}
		cal.Children = append(cal.Children, s.event(b, *b.DateOfBirth, today, stamp).Component)
	}

	if len(cal.Children) == 0 {
		return []byte(emptyCalendar), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("could not encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *CalendarService) event(b *models.Birthday, d birthdate.Date, today, stamp time.Time) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, fmt.Sprintf("birthday-%d@gifty", b.ID))
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
	event.Props.SetText(ical.PropSummary, s.labels.BirthdaySummary(b.FullName()))
	event.Props.SetText(ical.PropDescription, s.labels.TodoLabel(b.Todo))
	event.Props.SetText(ical.PropTransparency, "TRANSPARENT")

	// 年が不明な場合は今年の日付から繰り返す
	start := d.On(today.Year())
	if d.YearKnown {
		start = d.On(d.Year)
	}
	dtStart := ical.NewProp(ical.PropDateTimeStart)
	dtStart.SetDate(start)
	event.Props.Set(dtStart)

	rrule := ical.NewProp(ical.PropRecurrenceRule)
	rrule.Value = "FREQ=YEARLY"
	if d.Month == time.February && d.Day == 29 {
		// うるう年以外は 2/28 にする
		rrule.Value = "FREQ=YEARLY;BYMONTH=2;BYMONTHDAY=-1"
	}
	event.Props.Set(rrule)
	return event
}
