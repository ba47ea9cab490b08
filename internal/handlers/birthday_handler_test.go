package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gifty/backend/internal/models"
	"gifty/backend/testutil"
)

func doJSON(t *testing.T, r http.Handler, method, url string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(b)
	} else {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var res map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	msg, _ := res["error"].(string)
	return msg
}

func TestHello(t *testing.T) {
	r, _, _ := testutil.SetupTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/api/hello", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDBCheck(t *testing.T) {
	r, repo, _ := testutil.SetupTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/dbcheck", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	repo.PingErr = errors.New("connection refused")
	w = doJSON(t, r, http.MethodGet, "/api/dbcheck", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCreateBirthday_Success(t *testing.T) {
	r, _, _ := testutil.SetupTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/birthdays", map[string]any{
		"name":        "Max",
		"lastName":    "Mustermann",
		"dateOfBirth": "1990-05-15",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created models.Birthday
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Max", created.Name)
	assert.Equal(t, "1990-05-15", created.DateOfBirth.String())
	assert.Equal(t, models.TodoNeedPresent, created.Todo, "todo defaults to NEEDPRESENT")
}

func TestCreateBirthday_Validation(t *testing.T) {
	r, _, _ := testutil.SetupTestRouter(t)

	tests := []struct {
		name    string
		payload map[string]any
	}{
		{"名前がない", map[string]any{"lastName": "Mustermann"}},
		{"不正な日付", map[string]any{"name": "Max", "lastName": "Mustermann", "dateOfBirth": "15.05.1990"}},
		{"存在しない日付", map[string]any{"name": "Max", "lastName": "Mustermann", "dateOfBirth": "2023-02-30"}},
		{"不正なtodo", map[string]any{"name": "Max", "lastName": "Mustermann", "todo": "CALL"}},
		{"空白だけの名前", map[string]any{"name": "  ", "lastName": "Mustermann"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/birthdays", tt.payload)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.NotEmpty(t, decodeError(t, w))
		})
	}
}

func TestCreateBirthday_Duplicate(t *testing.T) {
	r, _, _ := testutil.SetupTestRouter(t)
	testutil.CreateTestBirthday(t, r, "Anna", "Schmidt", "1985-12-03")

	w := doJSON(t, r, http.MethodPost, "/api/birthdays", map[string]any{"name": "Anna", "lastName": "Schmidt"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetBirthdays(t *testing.T) {
	r, _, _ := testutil.SetupTestRouter(t)

	// 空の場合は [] を返す
	w := doJSON(t, r, http.MethodGet, "/api/birthdays", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	testutil.CreateTestBirthday(t, r, "Max", "Mustermann", "1990-05-15")
	testutil.CreateTestBirthday(t, r, "Anna", "Schmidt", "--12-03")
	testutil.CreateTestBirthday(t, r, "Peter", "Müller", "")

	w = doJSON(t, r, http.MethodGet, "/api/birthdays", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 3)
	// NULL が先頭、次に文字列順
	assert.Nil(t, list[0]["dateOfBirth"])
	assert.Equal(t, "--12-03", list[1]["dateOfBirth"])
	assert.Equal(t, "1990-05-15", list[2]["dateOfBirth"])
}

func TestGetBirthdayByID(t *testing.T) {
	r, _, _ := testutil.SetupTestRouter(t)
	created := testutil.CreateTestBirthday(t, r, "Max", "Mustermann", "1990-05-15")

	t.Run("成功", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/birthdays/"+itoa(created.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)
		var got models.Birthday
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("存在しない", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/birthdays/999", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Birthday not found", decodeError(t, w))
	})

	t.Run("不正なID", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/birthdays/abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUpdateBirthday(t *testing.T) {
	r, _, _ := testutil.SetupTestRouter(t)
	created := testutil.CreateTestBirthday(t, r, "Max", "Mustermann", "1990-05-15")
	testutil.CreateTestBirthday(t, r, "Anna", "Schmidt", "1985-12-03")

	t.Run("部分更新", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPut, "/api/birthdays/"+itoa(created.ID), map[string]any{"todo": "NEEDCARD", "dateOfBirth": "--05-15"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var got models.Birthday
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "Max", got.Name)
		assert.Equal(t, models.TodoNeedCard, got.Todo)
		assert.Equal(t, "--05-15", got.DateOfBirth.String())
	})

	t.Run("名前の重複", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPut, "/api/birthdays/"+itoa(created.ID), map[string]any{"name": "Anna", "lastName": "Schmidt"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("存在しない", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPut, "/api/birthdays/999", map[string]any{"todo": "NEEDCARD"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("不正なtodo", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPut, "/api/birthdays/"+itoa(created.ID), map[string]any{"todo": "nope"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDeleteBirthday(t *testing.T) {
	r, repo, _ := testutil.SetupTestRouter(t)
	created := testutil.CreateTestBirthday(t, r, "Max", "Mustermann", "1990-05-15")

	w := doJSON(t, r, http.MethodDelete, "/api/birthdays/"+itoa(created.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, repo.Len())

	w = doJSON(t, r, http.MethodDelete, "/api/birthdays/"+itoa(created.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetUpcoming(t *testing.T) {
	r, repo, _ := testutil.SetupTestRouter(t)
	testutil.SeedBirthday(t, repo, "Bald", "Kind", "1990-06-15", models.TodoNeedPresent)
	testutil.SeedBirthday(t, repo, "Heute", "Kind", "1985-06-10", models.TodoNeedPresent)
	testutil.SeedBirthday(t, repo, "Ohne", "Jahr", "--06-01", models.TodoNeedPresent)

	t.Run("既定は30日", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/birthdays/upcoming", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var list []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
		require.Len(t, list, 2)
		assert.Equal(t, "Heute", list[0]["name"])
		assert.EqualValues(t, 0, list[0]["daysUntilBirthday"])
		assert.EqualValues(t, 39, list[0]["age"])
		assert.Equal(t, "Bald", list[1]["name"])
		assert.Equal(t, "2024-06-15", list[1]["birthdayThisYear"])
	})

	t.Run("daysを指定", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/birthdays/upcoming?days=366", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var list []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
		require.Len(t, list, 3)
		assert.Nil(t, list[2]["age"], "age is null when the year is unknown")
		assert.Contains(t, list[2], "age")
	})

	for _, days := range []string{"abc", "-1", "1.5"} {
		t.Run("不正なdays "+days, func(t *testing.T) {
			w := doJSON(t, r, http.MethodGet, "/api/birthdays/upcoming?days="+days, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestGetStatistics(t *testing.T) {
	r, repo, _ := testutil.SetupTestRouter(t)
	testutil.SeedBirthday(t, repo, "Bald", "Kind", "1990-06-15", models.TodoNeedPresent)
	testutil.SeedBirthday(t, repo, "Ohne", "Jahr", "--06-01", models.TodoNeedPresent)
	testutil.SeedBirthday(t, repo, "Ohne", "Datum", "", models.TodoNeedPresent)

	w := doJSON(t, r, http.MethodGet, "/api/birthdays/statistics", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats models.Statistics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.UpcomingCount)
	require.Len(t, stats.ByMonth, 12)
	assert.Equal(t, "Juni", stats.ByMonth[5].MonthName)
	assert.Equal(t, 2, stats.ByMonth[5].Count)
	require.Len(t, stats.Upcoming, 1)
	assert.Equal(t, 5, stats.Upcoming[0].DaysUntilBirthday)
}

func TestGetByMonth(t *testing.T) {
	r, repo, _ := testutil.SetupTestRouter(t)
	testutil.SeedBirthday(t, repo, "Voll", "Datum", "1990-06-15", models.TodoNeedPresent)
	testutil.SeedBirthday(t, repo, "Ohne", "Jahr", "--06-01", models.TodoNeedPresent)

	w := doJSON(t, r, http.MethodGet, "/api/birthdays/by-month/6", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var june []models.Birthday
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &june))
	assert.Len(t, june, 2)

	w = doJSON(t, r, http.MethodGet, "/api/birthdays/by-month/7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	for _, month := range []string{"0", "13", "june"} {
		w = doJSON(t, r, http.MethodGet, "/api/birthdays/by-month/"+month, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, month)
	}
}

func TestGetCalendar(t *testing.T) {
	r, repo, _ := testutil.SetupTestRouter(t)
	testutil.SeedBirthday(t, repo, "Max", "Mustermann", "1990-05-15", models.TodoNeedPresent)

	w := doJSON(t, r, http.MethodGet, "/api/birthdays/calendar.ics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/calendar"))
	assert.Contains(t, w.Body.String(), "SUMMARY:Geburtstag: Max Mustermann")
}

func TestGenerateSample(t *testing.T) {
	r, repo, _ := testutil.SetupTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/birthdays/generate-sample", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Sample data generated","count":3}`, w.Body.String())
	assert.Equal(t, 3, repo.Len())

	w = doJSON(t, r, http.MethodPost, "/api/birthdays/generate-sample", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Sample data generated","count":0}`, w.Body.String())
}

func TestStoreFailure(t *testing.T) {
	r, repo, _ := testutil.SetupTestRouter(t)
	repo.FailWith = errors.New("connection refused")

	w := doJSON(t, r, http.MethodGet, "/api/birthdays", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to fetch birthdays", decodeError(t, w))
}
