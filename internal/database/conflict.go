package database

import (
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/apperr"
)

var (
	dupIndexPattern = regexp.MustCompile(`index: (\S+)`)
	dupValuePattern = regexp.MustCompile(`dup key: \{ [^:]+: "([^"]*)" \}`)
)

// Conflict converts a duplicate-key write error into an apperr.ConflictError
// naming the field of the violated unique index. Other errors pass through.
func (r *Registry) Conflict(collection string, err error) error {
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return err
	}

	msg := duplicateMessage(err)
	conflict := &apperr.ConflictError{Field: "unknown"}

	if m := dupIndexPattern.FindStringSubmatch(msg); m != nil {
		if field, ok := r.FieldForIndex(collection, m[1]); ok {
			conflict.Field = field
		}
	}
	if m := dupValuePattern.FindStringSubmatch(msg); m != nil {
		conflict.Value = m[1]
	}
	return conflict
}

func duplicateMessage(err error) string {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 || e.Code == 11001 || e.Code == 12582 {
				return e.Message
			}
		}
		if we.WriteConcernError != nil {
			return we.WriteConcernError.Message
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}
