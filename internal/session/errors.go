package session

import (
	"errors"

	"github.com/hazadus/go-abloop/internal/loop"
	"github.com/hazadus/go-abloop/internal/player"
	"github.com/hazadus/go-abloop/internal/segment"
	"github.com/hazadus/go-abloop/internal/storage"
)

// ErrorKind - категория ошибки для слоя представления
type ErrorKind string

const (
	KindFileNotFound           ErrorKind = "file_not_found"
	KindUnsupportedFormat      ErrorKind = "unsupported_format"
	KindNoMediaLoaded          ErrorKind = "no_media_loaded"
	KindInvalidLoopRange       ErrorKind = "invalid_loop_range"
	KindLoopPointsIncomplete   ErrorKind = "loop_points_incomplete"
	KindPersistenceCorrupt     ErrorKind = "persistence_corrupt"
	KindPersistenceWriteFailed ErrorKind = "persistence_write_failed"
	KindInvalidSegment         ErrorKind = "invalid_segment"
	KindDuplicateSegment       ErrorKind = "duplicate_segment"
	KindSegmentNotFound        ErrorKind = "segment_not_found"
	KindEngineUnavailable      ErrorKind = "engine_unavailable"
	KindInvalidIntent          ErrorKind = "invalid_intent"
	KindInternal               ErrorKind = "internal"
)

// ErrInvalidIntent возвращается для неизвестных или неполных команд
var ErrInvalidIntent = errors.New("некорректная команда")

var kinds = []struct {
	target error
	kind   ErrorKind
}{
	{player.ErrFileNotFound, KindFileNotFound},
	{player.ErrUnsupportedFormat, KindUnsupportedFormat},
	{player.ErrNoMediaLoaded, KindNoMediaLoaded},
	{player.ErrEngineUnavailable, KindEngineUnavailable},
	{loop.ErrInvalidLoopRange, KindInvalidLoopRange},
	{loop.ErrLoopPointsIncomplete, KindLoopPointsIncomplete},
	{storage.ErrCorrupt, KindPersistenceCorrupt},
	{storage.ErrWriteFailed, KindPersistenceWriteFailed},
	{segment.ErrInvalidRange, KindInvalidSegment},
	{segment.ErrDuplicate, KindDuplicateSegment},
	{segment.ErrNotFound, KindSegmentNotFound},
	{ErrInvalidIntent, KindInvalidIntent},
}

// KindOf определяет категорию ошибки по обернутым ошибкам пакетов
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.target) {
			return k.kind
		}
	}
	return KindInternal
}
