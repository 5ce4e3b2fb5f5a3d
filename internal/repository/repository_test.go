package repository

import (
	"context"
	"database/sql"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/user-auth-service/internal/model"
)

var userCols = []string{
	"id", "username", "name", "surname", "email", "password_hash",
	"user_gender", "user_birthday", "user_preferences", "user_avatar",
	"user_weight", "user_height", "user_subscription", "created_at", "updated_at",
}

var selectUsers = "SELECT " + strings.Join(userCols, ", ") + " FROM users WHERE "

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func fixedNow() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

func newTestUserRepo(db *sql.DB) *UserRepo {
	r := NewUserRepo(db)
	r.now = fixedNow
	return r
}

func aliceRow(rows *sqlmock.Rows) *sqlmock.Rows {
	now := fixedNow()
	return rows.AddRow("u-1", "alice", "Alice", "Liddell", "alice@example.com", "$2a$hash",
		nil, nil, nil, nil, nil, nil, nil, now, now)
}

func TestSQLRepo_GetByField_Found(t *testing.T) {
	db, mock := newMock(t)
	repo := newTestUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(selectUsers + "email = ?")).
		WithArgs("alice@example.com").
		WillReturnRows(aliceRow(sqlmock.NewRows(userCols)))

	u, err := repo.GetByEmail(context.Background(), "  Alice@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.Nil(t, u.Gender)
	assert.Nil(t, u.Preferences)
}

func TestSQLRepo_GetByField_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := newTestUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(selectUsers + "id = ?")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLRepo_GetByField_UnknownField(t *testing.T) {
	db, _ := newMock(t)
	repo := newTestUserRepo(db)

	_, err := repo.GetByField(context.Background(), "shoe_size", 42)
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestSQLRepo_All_OrdersByCreation(t *testing.T) {
	db, mock := newMock(t)
	repo := newTestUserRepo(db)

	rows := aliceRow(sqlmock.NewRows(userCols))
	rows.AddRow("u-2", "bob", "Bob", "Builder", "bob@example.com", "$2a$hash",
		"MALE", fixedNow(), []byte(`{"theme":"dark"}`), "bob.png", 80.5, 181.0, "PRO",
		fixedNow(), fixedNow())
	mock.ExpectQuery(regexp.QuoteMeta(selectUsers + "1 = 1 ORDER BY created_at")).
		WillReturnRows(rows)

	users, err := repo.All(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	bob := users[1]
	require.NotNil(t, bob.Gender)
	assert.Equal(t, model.GenderMale, *bob.Gender)
	assert.JSONEq(t, `{"theme":"dark"}`, string(bob.Preferences))
	assert.Equal(t, 80.5, *bob.Weight)
	assert.Equal(t, model.SubscriptionPro, *bob.Subscription)
}

func TestSQLRepo_All_Empty(t *testing.T) {
	db, mock := newMock(t)
	repo := newTestUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(selectUsers + "1 = 1 ORDER BY created_at")).
		WillReturnRows(sqlmock.NewRows(userCols))

	users, err := repo.All(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestSQLRepo_Create_PreparesRow(t *testing.T) {
	db, mock := newMock(t)
	repo := newTestUserRepo(db)

	insert := "INSERT INTO users (" + strings.Join(userCols, ", ") + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(userCols)), ", ") + ")"
	mock.ExpectExec(regexp.QuoteMeta(insert)).
		WithArgs(sqlmock.AnyArg(), "alice", "Alice", "Liddell", "alice@example.com", "$2a$hash",
			nil, nil, nil, nil, nil, nil, nil, fixedNow(), fixedNow()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &model.User{Username: "alice", Name: "Alice", Surname: "Liddell",
		Email: "Alice@Example.com", PasswordHash: "$2a$hash"}
	require.NoError(t, repo.Create(context.Background(), u))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, fixedNow(), u.CreatedAt)
}

func TestSQLRepo_CreateMany_SingleStatement(t *testing.T) {
	db, mock := newMock(t)
	repo := newTestUserRepo(db)

	group := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(userCols)), ", ") + ")"
	insert := "INSERT INTO users (" + strings.Join(userCols, ", ") + ") VALUES " + group + ", " + group
	mock.ExpectExec(regexp.QuoteMeta(insert)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.CreateMany(context.Background(), []*model.User{
		{Username: "a", Email: "a@example.com"},
		{Username: "b", Email: "b@example.com"},
	})
	require.NoError(t, err)
}

func TestSQLRepo_CreateMany_DuplicateIsConflict(t *testing.T) {
	db, mock := newMock(t)
	repo := newTestUserRepo(db)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@example.com'"})

	err := repo.CreateMany(context.Background(), []*model.User{{Username: "a", Email: "a@example.com"}})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestSQLRepo_CreateMany_Empty(t *testing.T) {
	db, _ := newMock(t)
	repo := newTestUserRepo(db)
	assert.NoError(t, repo.CreateMany(context.Background(), nil))
}

func TestSQLRepo_Update(t *testing.T) {
	db, mock := newMock(t)
	repo := newTestUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET name = ?, surname = ?, updated_at = ? WHERE id = ?")).
		WithArgs("Alicia", "L.", fixedNow(), "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(selectUsers + "id = ?")).
		WithArgs("u-1").
		WillReturnRows(aliceRow(sqlmock.NewRows(userCols)))

	u, err := repo.Update(context.Background(), "u-1", map[string]any{
		ColSurname: "L.",
		ColName:    "Alicia",
	})
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
}

func TestSQLRepo_Update_MissingRow(t *testing.T) {
	db, mock := newMock(t)
	repo := newTestUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET name = ?, updated_at = ? WHERE id = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(selectUsers + "id = ?")).
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := repo.Update(context.Background(), "nope", map[string]any{ColName: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLRepo_Update_RejectsProtectedColumns(t *testing.T) {
	db, _ := newMock(t)
	repo := newTestUserRepo(db)

	for _, col := range []string{"id", "created_at", "updated_at", "nickname"} {
		_, err := repo.Update(context.Background(), "u-1", map[string]any{col: "x"})
		assert.ErrorIs(t, err, ErrUnknownField, col)
	}
	_, err := repo.Update(context.Background(), "u-1", nil)
	assert.Error(t, err)
}

func TestSQLRepo_Delete(t *testing.T) {
	db, mock := newMock(t)
	repo := newTestUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = ?")).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = ?")).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "u-1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "u-1"), ErrNotFound)
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil, "op"))

	err := translate(&mysql.MySQLError{Number: 1062, Message: "dup"}, "users.Create")
	assert.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "users.Create")

	base := errors.New("connection refused")
	err = translate(base, "users.First")
	assert.ErrorIs(t, err, base)
	assert.NotErrorIs(t, err, ErrConflict)
}
