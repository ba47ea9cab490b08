package services

import (
	"crypto/rand"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// UploadArchive はアップロードされたファイルを "<ULID>-<元のファイル名>" で保存します。
// ULID の時刻部分が保存日時になるので、古いファイルの削除に使います。
type UploadArchive struct {
	Dir string
	now func() time.Time
}

// NewUploadArchive は新しいUploadArchiveを作成します。dir が空の場合は何も保存しません。
func NewUploadArchive(dir string) *UploadArchive {
	return &UploadArchive{Dir: dir, now: time.Now}
}

// Enabled は保存先が設定されているかを返します。
func (a *UploadArchive) Enabled() bool {
	return a != nil && a.Dir != ""
}

// Save は r の内容を保存し、保存したパスを返します。
func (a *UploadArchive) Save(name string, r io.Reader) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create upload directory: %w", err)
	}

	entropy := ulid.Monotonic(rand.Reader, 0)
	id := ulid.MustNew(ulid.Timestamp(a.now()), entropy)
	path := filepath.Join(a.Dir, id.String()+"-"+cleanFileName(name))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("could not create upload file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("could not write upload file: %w", err)
	}
	return path, nil
}

// Prune は retention より前に保存されたファイルを削除し、削除した件数を返します。
// ULID で始まらないファイルは更新日時で判定します。
func (a *UploadArchive) Prune(now time.Time, retention time.Duration) (int, error) {
	if !a.Enabled() || retention <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(a.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("could not read upload directory: %w", err)
	}

	cutoff := now.Add(-retention)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		savedAt, ok := archivedAt(entry)
		if !ok || !savedAt.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(a.Dir, entry.Name())); err != nil {
			log.Printf("Failed to remove upload %s: %v", entry.Name(), err)
			continue
		}
		removed++
	}
	return removed, nil
}

func archivedAt(entry os.DirEntry) (time.Time, bool) {
	name := entry.Name()
	if len(name) > ulid.EncodedSize && name[ulid.EncodedSize] == '-' {
		if id, err := ulid.ParseStrict(name[:ulid.EncodedSize]); err == nil {
			return ulid.Time(id.Time()), true
		}
	}
	info, err := entry.Info()
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

func cleanFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}
