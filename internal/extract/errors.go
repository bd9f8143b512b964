package extract

import "errors"

var (
	// ErrExtraction - сервис распознавания недоступен или отклонил запрос.
	ErrExtraction = errors.New("extraction failure")
	// ErrTimeout - сервис распознавания не ответил за отведённое время.
	ErrTimeout = errors.New("extraction timed out")
	// ErrMalformedResponse - ответ сервиса не разбирается в ожидаемую структуру.
	ErrMalformedResponse = errors.New("malformed extraction response")
	// ErrInvalidDocument - сервис явно сообщил, что на снимке не тот документ.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrInvalidImage - загрузка пустая или не является изображением.
	ErrInvalidImage = errors.New("invalid image file")
)
