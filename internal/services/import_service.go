package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"gifty/backend/internal/birthdate"
	"gifty/backend/internal/models"
	"gifty/backend/internal/repositories"
)

// 取り込み行のキー (CSV のヘッダー名) です。
const (
	ColumnFirstName = "First Name"
	ColumnLastName  = "Last Name"
	ColumnBirthday  = "Birthday"
)

// ImportService は CSV / vCard からの誕生日の一括登録を扱います。
type ImportService struct {
	repo repositories.BirthdayRepository
}

// NewImportService は新しいImportServiceを作成します。
func NewImportService(repo repositories.BirthdayRepository) *ImportService {
	return &ImportService{repo: repo}
}

// ImportCSV は CSV を読み込んで登録します。
func (s *ImportService) ImportCSV(ctx context.Context, r io.Reader) models.ImportResult {
	rows, err := ReadCSVRows(r)
	if err != nil {
		return sourceFailure(err)
	}
	return s.ProcessRows(ctx, rows)
}

// ImportVCard は vCard を読み込んで登録します。
func (s *ImportService) ImportVCard(ctx context.Context, r io.Reader) models.ImportResult {
	rows, err := ReadVCardRows(r)
	if err != nil {
		return sourceFailure(err)
	}
	return s.ProcessRows(ctx, rows)
}

func sourceFailure(err error) models.ImportResult {
	log.Printf("Failed to read import source: %v", err)
	return models.ImportResult{Imported: 0, Errors: []string{err.Error()}}
}

// ProcessRows は1行ずつ検証して登録します。行ごとのエラーは Errors に追加し、処理は中断しません。
// 名・姓・誕生日のいずれかが空の行は黙ってスキップします。
func (s *ImportService) ProcessRows(ctx context.Context, rows []map[string]string) models.ImportResult {
	result := models.ImportResult{Errors: []string{}}

	for _, row := range rows {
		firstName := row[ColumnFirstName]
		lastName := row[ColumnLastName]
		value := strings.TrimSpace(row[ColumnBirthday])
		if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" || value == "" {
			continue
		}

		dob, err := birthdate.Parse(value)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Invalid date format for %s %s: %s", firstName, lastName, value))
			continue
		}

		_, err = s.repo.FindByName(ctx, firstName, lastName)
		switch {
		case err == nil:
			result.Errors = append(result.Errors, fmt.Sprintf("Person %s %s already exists", firstName, lastName))
			continue
		case !errors.Is(err, repositories.ErrBirthdayNotFound):
			result.Errors = append(result.Errors, fmt.Sprintf("Error processing %s %s: %v", firstName, lastName, err))
			continue
		}

		b := &models.Birthday{
			Name:        firstName,
			LastName:    lastName,
			DateOfBirth: &dob,
			Todo:        models.TodoNeedPresent,
		}
		if _, err := s.repo.Create(ctx, b); err != nil {
			// 確認から登録までの間に同じ人が登録された場合は一意制約で検出される
			if errors.Is(err, repositories.ErrDuplicateBirthday) {
				result.Errors = append(result.Errors, fmt.Sprintf("Person %s %s already exists", firstName, lastName))
			} else {
				result.Errors = append(result.Errors, fmt.Sprintf("Error processing %s %s: %v", firstName, lastName, err))
			}
			continue
		}
		result.Imported++
	}

	log.Printf("Imported %d birthdays (%d errors)", result.Imported, len(result.Errors))
	return result
}
