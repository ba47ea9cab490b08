package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"gifty/backend/internal/birthdate"
	"gifty/backend/internal/config"
	"gifty/backend/internal/database"
	"gifty/backend/internal/models"
	"gifty/backend/internal/routes"
	"gifty/backend/internal/services"
)

// TestToday はテストで使う「今日」です。
var TestToday = time.Date(2024, time.June, 10, 9, 30, 0, 0, time.UTC)

// TestClock は TestToday を返す Clock です。
func TestClock() birthdate.Clock {
	return birthdate.FixedClock(TestToday)
}

// TestConfig はテスト用の設定を返します。アップロードは t.TempDir() に保存されます。
func TestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Upload.Dir = t.TempDir()
	cfg.Upload.MaxBytes = 1 << 20
	return cfg
}

// Translator はドイツ語の Translator を返します。
func Translator(t *testing.T) *services.Translator {
	t.Helper()
	tr, err := services.NewTranslator("de")
	require.NoError(t, err)
	return tr
}

// SetupTestRouter はメモリ上のリポジトリを使うテスト用のGinルーターをセットアップします。
func SetupTestRouter(t *testing.T) (*gin.Engine, *MemoryBirthdayRepository, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := NewMemoryBirthdayRepository()
	cfg := TestConfig(t)
	r := routes.SetupRouter(cfg, repo, repo, TestClock(), Translator(t))
	return r, repo, cfg
}

// SetupTestDB は TEST_DB_* で指定された MySQL に接続し、birthdays テーブルを空にします。
// 環境変数が設定されていない場合はテストをスキップします。
func SetupTestDB(t *testing.T) *database.Store {
	t.Helper()

	if err := godotenv.Load("../../.env"); err != nil {
		log.Printf("Warning: Could not load .env file for tests: %v", err)
	}

	port, _ := strconv.Atoi(os.Getenv("TEST_DB_PORT"))
	cfg := config.DatabaseConfig{
		Driver:   config.DriverMySQL,
		User:     os.Getenv("TEST_DB_USER"),
		Password: os.Getenv("TEST_DB_PASS"),
		Host:     os.Getenv("TEST_DB_HOST"),
		Port:     port,
		Name:     os.Getenv("TEST_DB_NAME"),
	}
	if cfg.User == "" || cfg.Host == "" || cfg.Port == 0 || cfg.Name == "" {
		t.Skip("TEST_DB_* is not set; skipping MySQL integration test")
	}

	store, err := database.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	// テストのたびにクリーンな状態にする
	_, err = store.SQL.ExecContext(context.Background(), "TRUNCATE TABLE birthdays")
	require.NoError(t, err)
	return store
}

// CreateTestBirthday は API 経由で誕生日を作成します。
func CreateTestBirthday(t *testing.T, router *gin.Engine, name, lastName, dateOfBirth string) *models.Birthday {
	t.Helper()
	payload := map[string]any{"name": name, "lastName": lastName}
	if dateOfBirth != "" {
		payload["dateOfBirth"] = dateOfBirth
	}
	body, _ := json.Marshal(payload)

	req, _ := http.NewRequest(http.MethodPost, "/api/birthdays", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code, "誕生日の作成に失敗しました: %s", resp.Body.String())

	var created models.Birthday
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	return &created
}

// SeedBirthday はリポジトリに直接誕生日を登録します。dateOfBirth が空なら NULL です。
func SeedBirthday(t *testing.T, repo *MemoryBirthdayRepository, name, lastName, dateOfBirth string, todo models.TodoKind) *models.Birthday {
	t.Helper()
	b := &models.Birthday{Name: name, LastName: lastName, Todo: todo}
	if dateOfBirth != "" {
		d := birthdate.MustParse(dateOfBirth)
		b.DateOfBirth = &d
	}
	created, err := repo.Create(context.Background(), b)
	require.NoError(t, err)
	return created
}

// MultipartFile はフォーム項目 file にファイルを載せたリクエストを作成します。
func MultipartFile(t *testing.T, url, filename, contentType string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}
