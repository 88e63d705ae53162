package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок авторизации (неверный токен, нет прав).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия
	// (например, попытка обратиться к чужой попытке прохождения).
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных,
	// включая ответы неправильной формы для типа вопроса.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния
	// (например, повторный submit уже отправляемой попытки).
	ErrConflict = errors.New("resource state conflict")
)
