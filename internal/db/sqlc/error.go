package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	UniqueViolationCode = "23505"
)

const (
	UniqueNotificationTupleConstraint = "notification_headers_tuple_key"
	UniqueAvatarSubjectConstraint     = "notification_avatars_subject_key"
	UniqueAttachmentSubjectConstraint = "notification_attachments_subject_key"
)

var ErrRecordNotFound = pgx.ErrNoRows

// ErrNoRecipients indicates a builder contract violation: a bundle reached
// the store without a single recipient. This is a hard error, not a
// concurrency artifact, and must never be retried into existence.
var ErrNoRecipients = errors.New("notification bundle has no recipients")

// ErrorDescription returns the error code and constraint name from a Postgres error.
func ErrorDescription(err error) (errCode string, constraintName string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}

	return
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation. Under concurrent redelivery these are expected and resolved by
// re-reading the winning row.
func IsUniqueViolation(err error) bool {
	errCode, _ := ErrorDescription(err)
	return errCode == UniqueViolationCode
}
