package services

import (
	"embed"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"gifty/backend/internal/models"
)

//go:embed locales/*.json
var localeFS embed.FS

// DefaultLocale は画面の元の言語であるドイツ語です。
const DefaultLocale = "de"

// Translator は設定された言語で表示用の文言を返します。
type Translator struct {
	localizer *i18n.Localizer
	lang      language.Tag
	supported []string
}

// NewTranslator は埋め込みのロケールファイルを読み込み、locale 用の Translator を作成します。
// 未対応の言語はドイツ語にフォールバックします。
func NewTranslator(locale string) (*Translator, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}

	bundle := i18n.NewBundle(language.German)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("could not read embedded locales: %w", err)
	}
	var supported []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			continue
		}
		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			return nil, fmt.Errorf("could not load locale file %s: %w", name, err)
		}
		supported = append(supported, strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".json"))
	}

	return &Translator{
		localizer: i18n.NewLocalizer(bundle, tag.String(), DefaultLocale),
		lang:      tag,
		supported: supported,
	}, nil
}

// Language は要求された言語タグを返します。
func (t *Translator) Language() string {
	return t.lang.String()
}

// Supported は読み込まれたロケールの一覧を返します。
func (t *Translator) Supported() []string {
	return t.supported
}

func (t *Translator) localize(cfg *i18n.LocalizeConfig, fallback string) string {
	msg, err := t.localizer.Localize(cfg)
	if err != nil {
		log.Printf("Missing translation %q: %v", cfg.MessageID, err)
		return fallback
	}
	return msg
}

// MonthName は月の名前を返します。
func (t *Translator) MonthName(m time.Month) string {
	return t.localize(&i18n.LocalizeConfig{MessageID: "month_" + strconv.Itoa(int(m))}, m.String())
}

// CalendarName はカレンダーの名前を返します。
func (t *Translator) CalendarName() string {
	return t.localize(&i18n.LocalizeConfig{MessageID: "calendar_name"}, "Birthdays")
}

// BirthdaySummary はカレンダーの予定のタイトルを返します。
func (t *Translator) BirthdaySummary(name string) string {
	return t.localize(&i18n.LocalizeConfig{
		MessageID:    "calendar_summary",
		TemplateData: map[string]any{"Name": name},
	}, "Birthday: "+name)
}

// TodoLabel は TodoKind の表示名を返します。
func (t *Translator) TodoLabel(k models.TodoKind) string {
	return t.localize(&i18n.LocalizeConfig{MessageID: "todo_" + string(k)}, string(k))
}

// DigestHeader はリマインダーの見出しを返します。
func (t *Translator) DigestHeader() string {
	return t.localize(&i18n.LocalizeConfig{MessageID: "digest_header"}, "Upcoming birthdays")
}

// DigestLine はリマインダーの1行を返します。当日の場合は専用の文言になります。
func (t *Translator) DigestLine(u models.UpcomingBirthday) string {
	data := map[string]any{
		"Name":  u.FullName(),
		"Todo":  t.TodoLabel(u.Todo),
		"Date":  u.BirthdayThisYear,
		"Count": u.DaysUntilBirthday,
	}
	if u.DaysUntilBirthday == 0 {
		return t.localize(&i18n.LocalizeConfig{MessageID: "digest_today", TemplateData: data}, "Today: "+u.FullName())
	}
	return t.localize(&i18n.LocalizeConfig{
		MessageID:    "digest_upcoming",
		TemplateData: data,
		PluralCount:  u.DaysUntilBirthday,
	}, fmt.Sprintf("In %d days: %s", u.DaysUntilBirthday, u.FullName()))
}
