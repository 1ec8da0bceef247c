package mongo

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

const writeConflictCode = 112

// IsWriteConflict reports whether err means another transaction touched the
// same documents first. Only the WriteConflict code counts: the
// TransientTransactionError label is also attached to network failures.
func IsWriteConflict(err error) bool {
	if err == nil {
		return false
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == writeConflictCode
	}
	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		for _, we := range writeErr.WriteErrors {
			if we.Code == writeConflictCode {
				return true
			}
		}
		return writeErr.WriteConcernError != nil && writeErr.WriteConcernError.Code == writeConflictCode
	}
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) {
		return serverErr.HasErrorCode(writeConflictCode)
	}
	return false
}

func IsDuplicateKey(err error) bool {
	return err != nil && mongo.IsDuplicateKeyError(err)
}

// IsUnavailable reports connectivity and timeout failures, which callers
// surface as service unavailability rather than internal errors.
func IsUnavailable(err error) bool {
	return err != nil && (mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, mongo.ErrClientDisconnected))
}
