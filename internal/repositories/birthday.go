// Package repositories はデータベース操作を行うリポジトリを提供します。
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/go-sql-driver/mysql"

	"gifty/backend/internal/birthdate"
	"gifty/backend/internal/models"
)

var (
	ErrBirthdayNotFound  = errors.New("birthday not found")
	ErrDuplicateBirthday = errors.New("birthday already exists")
)

// BirthdayRepository は誕生日の永続化を行うリポジトリのインターフェースです。
type BirthdayRepository interface {
	Migrate(ctx context.Context) error
	FindAll(ctx context.Context) ([]*models.Birthday, error)
	FindByID(ctx context.Context, id int) (*models.Birthday, error)
	FindByName(ctx context.Context, name, lastName string) (*models.Birthday, error)
	Create(ctx context.Context, b *models.Birthday) (*models.Birthday, error)
	Update(ctx context.Context, id int, b *models.Birthday) (*models.Birthday, error)
	Delete(ctx context.Context, id int) error
}

// MySQLBirthdayRepository は MySQL を使った BirthdayRepository です。
type MySQLBirthdayRepository struct {
	DB *sql.DB
}

// NewMySQLBirthdayRepository は新しいMySQLBirthdayRepositoryインスタンスを作成します。
func NewMySQLBirthdayRepository(db *sql.DB) *MySQLBirthdayRepository {
	return &MySQLBirthdayRepository{DB: db}
}

const createBirthdayTableMySQL = `
	CREATE TABLE IF NOT EXISTS birthdays (
		id INT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		last_name VARCHAR(255) NOT NULL,
		date_of_birth VARCHAR(10) NULL,
		todo VARCHAR(20) NOT NULL DEFAULT 'NEEDPRESENT',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_birthdays_name (name, last_name)
	);`

// Migrate は birthdays テーブルを作成します。
func (r *MySQLBirthdayRepository) Migrate(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, createBirthdayTableMySQL); err != nil {
		return fmt.Errorf("could not create birthdays table: %w", err)
	}
	return nil
}

const selectBirthdayColumns = "SELECT id, name, last_name, date_of_birth, todo FROM birthdays"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBirthday(s rowScanner) (*models.Birthday, error) {
	var (
		b   models.Birthday
		dob sql.NullString
		tk  string
	)
	if err := s.Scan(&b.ID, &b.Name, &b.LastName, &dob, &tk); err != nil {
		return nil, err
	}
	return fromColumns(b, dob, tk)
}

// fromColumns は DB の値を検証しながら Birthday に詰め替えます。
func fromColumns(b models.Birthday, dob sql.NullString, tk string) (*models.Birthday, error) {
	d, err := birthdate.FromNullString(dob)
	if err != nil {
		return nil, fmt.Errorf("birthday %d has corrupt date_of_birth: %w", b.ID, err)
	}
	todo, err := models.ParseTodo(tk)
	if err != nil {
		return nil, fmt.Errorf("birthday %d has corrupt todo: %w", b.ID, err)
	}
	b.DateOfBirth = d
	b.Todo = todo
	return &b, nil
}

// FindAll はすべての誕生日を date_of_birth の昇順で取得します。
func (r *MySQLBirthdayRepository) FindAll(ctx context.Context) ([]*models.Birthday, error) {
	rows, err := r.DB.QueryContext(ctx, selectBirthdayColumns+" ORDER BY date_of_birth ASC, id ASC")
	if err != nil {
		log.Printf("Failed to query birthdays: %v", err)
		return nil, fmt.Errorf("could not query birthdays: %w", err)
	}
	defer rows.Close()

	birthdays := []*models.Birthday{}
	for rows.Next() {
		b, err := scanBirthday(rows)
		if err != nil {
			log.Printf("Failed to scan birthday: %v", err)
			return nil, fmt.Errorf("could not scan birthday: %w", err)
		}
		birthdays = append(birthdays, b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating birthdays: %w", err)
	}
	return birthdays, nil
}

// FindByID は指定されたIDの誕生日を取得します。
func (r *MySQLBirthdayRepository) FindByID(ctx context.Context, id int) (*models.Birthday, error) {
	b, err := scanBirthday(r.DB.QueryRowContext(ctx, selectBirthdayColumns+" WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBirthdayNotFound
		}
		log.Printf("Failed to query birthday by ID: %v", err)
		return nil, fmt.Errorf("could not query birthday: %w", err)
	}
	return b, nil
}

// FindByName は名と姓が一致する誕生日を取得します。
func (r *MySQLBirthdayRepository) FindByName(ctx context.Context, name, lastName string) (*models.Birthday, error) {
	b, err := scanBirthday(r.DB.QueryRowContext(ctx, selectBirthdayColumns+" WHERE name = ? AND last_name = ?", name, lastName))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBirthdayNotFound
		}
		log.Printf("Failed to query birthday by name: %v", err)
		return nil, fmt.Errorf("could not query birthday: %w", err)
	}
	return b, nil
}

// Create は新しい誕生日をデータベースに挿入します。
func (r *MySQLBirthdayRepository) Create(ctx context.Context, b *models.Birthday) (*models.Birthday, error) {
	query := "INSERT INTO birthdays (name, last_name, date_of_birth, todo) VALUES (?, ?, ?, ?)"
	result, err := r.DB.ExecContext(ctx, query, b.Name, b.LastName, b.DateOfBirth.NullString(), string(b.Todo))
	if err != nil {
		if isMySQLDuplicate(err) {
			return nil, ErrDuplicateBirthday
		}
		log.Printf("Failed to insert birthday: %v", err)
		return nil, fmt.Errorf("could not insert birthday: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("could not get last insert ID: %w", err)
	}
	b.ID = int(id)
	return b, nil
}

// Update は指定されたIDの誕生日を更新します。
func (r *MySQLBirthdayRepository) Update(ctx context.Context, id int, b *models.Birthday) (*models.Birthday, error) {
	query := "UPDATE birthdays SET name = ?, last_name = ?, date_of_birth = ?, todo = ? WHERE id = ?"
	if _, err := r.DB.ExecContext(ctx, query, b.Name, b.LastName, b.DateOfBirth.NullString(), string(b.Todo), id); err != nil {
		if isMySQLDuplicate(err) {
			return nil, ErrDuplicateBirthday
		}
		log.Printf("Failed to update birthday: %v", err)
		return nil, fmt.Errorf("could not update birthday: %w", err)
	}
	// MySQL は値が変わらない行を RowsAffected に数えないので、再取得で存在を確認する
	return r.FindByID(ctx, id)
}

// Delete は指定されたIDの誕生日を削除します。
func (r *MySQLBirthdayRepository) Delete(ctx context.Context, id int) error {
	result, err := r.DB.ExecContext(ctx, "DELETE FROM birthdays WHERE id = ?", id)
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

// isMySQLDuplicate は MySQLの重複エントリーエラーコード1062かどうかを返します。
func isMySQLDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
