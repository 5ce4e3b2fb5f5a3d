// Package repository contains data access logic separated from HTTP handlers
// and services. This file defines the error values shared by every table so
// higher layers can tell failure scenarios apart with errors.Is.
package repository

import (
	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when a lookup, update or delete matches no row.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write would violate a unique key, such as
// registering an email that already exists.
var ErrConflict = errors.New("conflict")

// ErrUnknownField is returned when a caller names a column the table does
// not have.
var ErrUnknownField = errors.New("unknown field")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// translate maps driver errors onto the package sentinels and adds op as
// context.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return errors.Wrap(ErrConflict, op+": "+myErr.Message)
	}
	return errors.Wrap(err, op)
}
