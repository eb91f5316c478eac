package purge

import (
	"errors"

	"github.com/dbsmedya/gopurge/internal/logger"
	"github.com/dbsmedya/gopurge/internal/store"
)

// withHintFallback runs call with hint and, if the engine rejects the hint,
// once more without it. fellBack reports whether the second call was made.
// Any other error is returned as is.
func withHintFallback[T any](log *logger.Logger, op string, hint *store.Hint, call func(*store.Hint) (T, error)) (result T, fellBack bool, err error) {
	if hint == nil {
		result, err = call(nil)
		return result, false, err
	}

	result, err = call(hint)
	if err == nil || !errors.Is(err, store.ErrHintRejected) {
		return result, false, err
	}

	log.Warnw("Index hint rejected, retrying without hint",
		"operation", op,
		"field", hint.Field,
		"index", hint.Index,
		"error", err,
	)
	result, err = call(nil)
	return result, true, err
}
