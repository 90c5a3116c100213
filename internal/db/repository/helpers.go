// Package repository implements domain storage interfaces using SQLite.
package repository

import (
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// ErrLocked reports that another process held the database past busy_timeout.
var ErrLocked = errors.New("checkpoint database is locked by another process")

func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) && (sqErr.Code == sqlite3.ErrBusy || sqErr.Code == sqlite3.ErrLocked) {
		return errors.Join(ErrLocked, err)
	}
	if strings.Contains(err.Error(), "database is locked") {
		return errors.Join(ErrLocked, err)
	}
	return err
}
