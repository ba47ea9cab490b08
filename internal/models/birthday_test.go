package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gifty/backend/internal/birthdate"
	"gifty/backend/internal/models"
)

func TestParseTodo(t *testing.T) {
	for _, s := range []string{"WHATSAPP", "NEEDCARD", "NEEDPRESENT"} {
		k, err := models.ParseTodo(s)
		require.NoError(t, err)
		assert.Equal(t, models.TodoKind(s), k)
	}

	_, err := models.ParseTodo("whatsapp")
	assert.ErrorIs(t, err, models.ErrInvalidTodo)
	_, err = models.ParseTodo("")
	assert.ErrorIs(t, err, models.ErrInvalidTodo)
}

func TestCreateBirthdayRequest_JSON(t *testing.T) {
	var req models.CreateBirthdayRequest
	err := json.Unmarshal([]byte(`{"name":"Max","lastName":"Mustermann","dateOfBirth":"--02-29","todo":"NEEDCARD"}`), &req)
	require.NoError(t, err)
	assert.Equal(t, models.TodoNeedCard, req.Todo)
	require.NotNil(t, req.DateOfBirth)
	assert.False(t, req.DateOfBirth.YearKnown)

	// 未知の todo は拒否する
	err = json.Unmarshal([]byte(`{"name":"Max","lastName":"Mustermann","todo":"PARTY"}`), &req)
	assert.ErrorIs(t, err, models.ErrInvalidTodo)

	err = json.Unmarshal([]byte(`{"todo":3}`), &req)
	assert.ErrorIs(t, err, models.ErrInvalidTodo)
}

func TestBirthday_JSON(t *testing.T) {
	d := birthdate.MustParse("1990-05-15")
	b := models.Birthday{ID: 1, Name: "Max", LastName: "Mustermann", DateOfBirth: &d, Todo: models.TodoNeedPresent}

	out, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"Max","lastName":"Mustermann","dateOfBirth":"1990-05-15","todo":"NEEDPRESENT"}`, string(out))

	b.DateOfBirth = nil
	out, err = json.Marshal(b)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"dateOfBirth":null`)
}

func TestBirthday_FullName(t *testing.T) {
	b := models.Birthday{Name: "Anna", LastName: "Schmidt"}
	assert.Equal(t, "Anna Schmidt", b.FullName())
}
