package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"

	"github.com/lib/pq"
)

// SQLSTATE codes the pipeline reacts to.
const (
	codeDuplicateTable  = "42P07"
	codeDuplicateObject = "42710"
	codeDuplicateSchema = "42P06"
	codeAdminShutdown   = "57P01"
	codeCrashShutdown   = "57P02"
	codeCannotConnect   = "57P03"
	codeTooManyConns    = "53300"

	classConnectionException = "08"
)

// IsTransient reports whether err is a connection-level failure worth retrying
// on a fresh connection. Query errors and cancellations are not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code.Class() == classConnectionException {
			return true
		}
		switch string(pqErr.Code) {
		case codeAdminShutdown, codeCrashShutdown, codeCannotConnect, codeTooManyConns:
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsAlreadyExists reports whether err is a duplicate schema object error.
func IsAlreadyExists(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch string(pqErr.Code) {
	case codeDuplicateTable, codeDuplicateObject, codeDuplicateSchema:
		return true
	}
	return false
}
