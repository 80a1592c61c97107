// internal/adapters/db/errors.go
package db

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
)

// PostgreSQL error codes the adapter maps onto domain errors
const (
	codeForeignKeyViolation  = "23503"
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeNumericOutOfRange    = "22003"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
	codeAdminShutdown        = "57P01"
	codeCrashShutdown        = "57P02"
	codeCannotConnectNow     = "57P03"
	codeTooManyConnections   = "53300"
)

var domainErrors = []error{
	domain.ErrNotFound,
	domain.ErrInvalidQuantity,
	domain.ErrEmptySale,
	domain.ErrInsufficientStock,
	domain.ErrStorageUnavailable,
	domain.ErrReferentialConflict,
	domain.ErrValidation,
	domain.ErrAlreadyExists,
}

// classify maps a driver error onto the domain taxonomy. Errors that already
// carry a domain meaning pass through unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.StorageUnavailable(op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeForeignKeyViolation:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrReferentialConflict, pgErr.Detail)
		case pgErr.Code == codeUniqueViolation:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrAlreadyExists, pgErr.Detail)
		case pgErr.Code == codeCheckViolation, pgErr.Code == codeNumericOutOfRange:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrValidation, pgErr.Message)
		case isTransient(pgErr.Code):
			return domain.StorageUnavailable(op, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var connectErr *pgconn.ConnectError
	var netErr net.Error
	if pgconn.Timeout(err) || errors.As(err, &connectErr) || errors.As(err, &netErr) {
		return domain.StorageUnavailable(op, err)
	}
	if strings.Contains(err.Error(), "closed pool") || strings.Contains(err.Error(), "conn closed") {
		return domain.StorageUnavailable(op, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}

func isTransient(code string) bool {
	// class 08 is connection exception
	if strings.HasPrefix(code, "08") {
		return true
	}
	switch code {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable,
		codeQueryCanceled, codeAdminShutdown, codeCrashShutdown,
		codeCannotConnectNow, codeTooManyConnections:
		return true
	}
	return false
}
