package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"gifty/backend/internal/models"
)

// birthdayRow は bun 用の birthdays テーブルの行です。
type birthdayRow struct {
	bun.BaseModel `bun:"table:birthdays,alias:b"`

	ID          int            `bun:"id,pk,autoincrement"`
	Name        string         `bun:"name,notnull,unique:birthdays_name_key"`
	LastName    string         `bun:"last_name,notnull,unique:birthdays_name_key"`
	DateOfBirth sql.NullString `bun:"date_of_birth,type:varchar(10)"`
	Todo        string         `bun:"todo,notnull,default:'NEEDPRESENT'"`
	CreatedAt   time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (row *birthdayRow) toModel() (*models.Birthday, error) {
	return fromColumns(models.Birthday{ID: row.ID, Name: row.Name, LastName: row.LastName}, row.DateOfBirth, row.Todo)
}

func newBirthdayRow(b *models.Birthday) *birthdayRow {
	return &birthdayRow{
		ID:          b.ID,
		Name:        b.Name,
		LastName:    b.LastName,
		DateOfBirth: b.DateOfBirth.NullString(),
		Todo:        string(b.Todo),
	}
}

// PostgresBirthdayRepository は bun + PostgreSQL を使った BirthdayRepository です。
type PostgresBirthdayRepository struct {
	DB *bun.DB
}

// NewPostgresBirthdayRepository は新しいPostgresBirthdayRepositoryインスタンスを作成します。
func NewPostgresBirthdayRepository(db *bun.DB) *PostgresBirthdayRepository {
	return &PostgresBirthdayRepository{DB: db}
}

// Migrate は birthdays テーブルを作成します。
func (r *PostgresBirthdayRepository) Migrate(ctx context.Context) error {
	_, err := r.DB.NewCreateTable().
		Model((*birthdayRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("could not create birthdays table: %w", err)
	}
	return nil
}

// FindAll はすべての誕生日を date_of_birth の昇順で取得します。
func (r *PostgresBirthdayRepository) FindAll(ctx context.Context) ([]*models.Birthday, error) {
	var rows []birthdayRow
	err := r.DB.NewSelect().
		Model(&rows).
		OrderExpr("date_of_birth ASC NULLS FIRST, id ASC").
		Scan(ctx)
	if err != nil {
		log.Printf("Failed to query birthdays: %v", err)
		return nil, fmt.Errorf("could not query birthdays: %w", err)
	}

	birthdays := make([]*models.Birthday, 0, len(rows))
	for i := range rows {
		b, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		birthdays = append(birthdays, b)
	}
	return birthdays, nil
}

func (r *PostgresBirthdayRepository) findOne(ctx context.Context, where string, args ...any) (*models.Birthday, error) {
	row := new(birthdayRow)
	if err := r.DB.NewSelect().Model(row).Where(where, args...).Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBirthdayNotFound
		}
		log.Printf("Failed to query birthday: %v", err)
		return nil, fmt.Errorf("could not query birthday: %w", err)
	}
	return row.toModel()
}

// FindByID は指定されたIDの誕生日を取得します。
func (r *PostgresBirthdayRepository) FindByID(ctx context.Context, id int) (*models.Birthday, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByName は名と姓が一致する誕生日を取得します。
func (r *PostgresBirthdayRepository) FindByName(ctx context.Context, name, lastName string) (*models.Birthday, error) {
	return r.findOne(ctx, "name = ? AND last_name = ?", name, lastName)
}

// Create は新しい誕生日をデータベースに挿入します。
func (r *PostgresBirthdayRepository) Create(ctx context.Context, b *models.Birthday) (*models.Birthday, error) {
	row := newBirthdayRow(b)
	_, err := r.DB.NewInsert().
		Model(row).
		ExcludeColumn("id", "created_at", "updated_at").
		Returning("id").
		Exec(ctx)
	if err != nil {
		if isPostgresDuplicate(err) {
			return nil, ErrDuplicateBirthday
		}
		log.Printf("Failed to insert birthday: %v", err)
		return nil, fmt.Errorf("could not insert birthday: %w", err)
	}
	b.ID = row.ID
	return b, nil
}

// Update は指定されたIDの誕生日を更新します。
func (r *PostgresBirthdayRepository) Update(ctx context.Context, id int, b *models.Birthday) (*models.Birthday, error) {
	row := newBirthdayRow(b)
	result, err := r.DB.NewUpdate().
		Model(row).
		Column("name", "last_name", "date_of_birth", "todo").
		Set("updated_at = current_timestamp").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		if isPostgresDuplicate(err) {
			return nil, ErrDuplicateBirthday
		}
		log.Printf("Failed to update birthday: %v", err)
		return nil, fmt.Errorf("could not update birthday: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("could not get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrBirthdayNotFound
	}
	return r.FindByID(ctx, id)
}

// Delete は指定されたIDの誕生日を削除します。
func (r *PostgresBirthdayRepository) Delete(ctx context.Context, id int) error {
	result, err := r.DB.NewDelete().
		Model((*birthdayRow)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		log.Printf("Failed to delete birthday: %v", err)
		return fmt.Errorf("could not delete birthday: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrBirthdayNotFound
	}
	return nil
}

// isPostgresDuplicate は一意制約違反 (SQLSTATE 23505) かどうかを返します。
func isPostgresDuplicate(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}
