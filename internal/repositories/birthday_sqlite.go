package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"gifty/backend/internal/models"
)

// birthdayRecord は gorm 用の birthdays テーブルの行です。
type birthdayRecord struct {
	ID          int            `gorm:"primaryKey"`
	Name        string         `gorm:"not null;uniqueIndex:idx_birthdays_name"`
	LastName    string         `gorm:"not null;uniqueIndex:idx_birthdays_name"`
	DateOfBirth sql.NullString `gorm:"size:10"`
	Todo        string         `gorm:"not null;default:NEEDPRESENT"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (birthdayRecord) TableName() string { return "birthdays" }

func (rec *birthdayRecord) toModel() (*models.Birthday, error) {
	return fromColumns(models.Birthday{ID: rec.ID, Name: rec.Name, LastName: rec.LastName}, rec.DateOfBirth, rec.Todo)
}

// SQLiteBirthdayRepository は gorm + SQLite を使った BirthdayRepository です。
type SQLiteBirthdayRepository struct {
	DB *gorm.DB
}

// NewSQLiteBirthdayRepository は新しいSQLiteBirthdayRepositoryインスタンスを作成します。
func NewSQLiteBirthdayRepository(db *gorm.DB) *SQLiteBirthdayRepository {
	return &SQLiteBirthdayRepository{DB: db}
}

// Migrate は birthdays テーブルを作成・更新します。
func (r *SQLiteBirthdayRepository) Migrate(ctx context.Context) error {
	if err := r.DB.WithContext(ctx).AutoMigrate(&birthdayRecord{}); err != nil {
		return fmt.Errorf("could not migrate birthdays table: %w", err)
	}
	return nil
}

// FindAll はすべての誕生日を date_of_birth の昇順で取得します。
func (r *SQLiteBirthdayRepository) FindAll(ctx context.Context) ([]*models.Birthday, error) {
	var records []birthdayRecord
	if err := r.DB.WithContext(ctx).Order("date_of_birth ASC").Order("id ASC").Find(&records).Error; err != nil {
		log.Printf("Failed to query birthdays: %v", err)
		return nil, fmt.Errorf("could not query birthdays: %w", err)
	}

	birthdays := make([]*models.Birthday, 0, len(records))
	for i := range records {
		b, err := records[i].toModel()
		if err != nil {
			return nil, err
		}
		birthdays = append(birthdays, b)
	}
	return birthdays, nil
}

// FindByID は指定されたIDの誕生日を取得します。
func (r *SQLiteBirthdayRepository) FindByID(ctx context.Context, id int) (*models.Birthday, error) {
	var rec birthdayRecord
	if err := r.DB.WithContext(ctx).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBirthdayNotFound
		}
		log.Printf("Failed to query birthday by ID: %v", err)
		return nil, fmt.Errorf("could not query birthday: %w", err)
	}
	return rec.toModel()
}

// FindByName は名と姓が一致する誕生日を取得します。
func (r *SQLiteBirthdayRepository) FindByName(ctx context.Context, name, lastName string) (*models.Birthday, error) {
	var rec birthdayRecord
	err := r.DB.WithContext(ctx).Where("name = ? AND last_name = ?", name, lastName).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBirthdayNotFound
		}
		log.Printf("Failed to query birthday by name: %v", err)
		return nil, fmt.Errorf("could not query birthday: %w", err)
	}
	return rec.toModel()
}

// Create は新しい誕生日をデータベースに挿入します。
func (r *SQLiteBirthdayRepository) Create(ctx context.Context, b *models.Birthday) (*models.Birthday, error) {
	rec := birthdayRecord{
		Name:        b.Name,
		LastName:    b.LastName,
		DateOfBirth: b.DateOfBirth.NullString(),
		Todo:        string(b.Todo),
	}
	if err := r.DB.WithContext(ctx).Create(&rec).Error; err != nil {
		if isSQLiteDuplicate(err) {
			return nil, ErrDuplicateBirthday
		}
		log.Printf("Failed to insert birthday: %v", err)
		return nil, fmt.Errorf("could not insert birthday: %w", err)
	}
	b.ID = rec.ID
	return b, nil
}

// Update は指定されたIDの誕生日を更新します。
func (r *SQLiteBirthdayRepository) Update(ctx context.Context, id int, b *models.Birthday) (*models.Birthday, error) {
	result := r.DB.WithContext(ctx).Model(&birthdayRecord{}).Where("id = ?", id).Updates(map[string]any{
		"name":          b.Name,
		"last_name":     b.LastName,
		"date_of_birth": b.DateOfBirth.NullString(),
		"todo":          string(b.Todo),
	})
	if result.Error != nil {
		if isSQLiteDuplicate(result.Error) {
			return nil, ErrDuplicateBirthday
		}
		log.Printf("Failed to update birthday: %v", result.Error)
		return nil, fmt.Errorf("could not update birthday: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrBirthdayNotFound
	}
	return r.FindByID(ctx, id)
}

// Delete は指定されたIDの誕生日を削除します。
func (r *SQLiteBirthdayRepository) Delete(ctx context.Context, id int) error {
	result := r.DB.WithContext(ctx).Delete(&birthdayRecord{}, id)
	if result.Error != nil {
		log.Printf("Failed to delete birthday: %v", result.Error)
		return fmt.Errorf("could not delete birthday: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBirthdayNotFound
	}
	return nil
}

// isSQLiteDuplicate は一意制約違反かどうかを返します。
// TranslateError が有効なら gorm.ErrDuplicatedKey に変換されている。
func isSQLiteDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}
