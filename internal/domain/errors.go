package domain

import "errors"

var (
	// ErrDuplicateOrder — заказ с таким номером уже в очереди. Ожидаемо при
	// повторной доставке webhook; append при этом no-op.
	ErrDuplicateOrder = errors.New("order already present in queue")
	// ErrOrderNotFound — заказ с таким номером отсутствует в очереди.
	ErrOrderNotFound = errors.New("order not found")
	// ErrBoundary — попытка сдвинуть первую запись вверх или последнюю вниз.
	ErrBoundary = errors.New("order already at queue boundary")
	// ErrPersistenceFailure — ошибка записи в долговременное хранилище.
	ErrPersistenceFailure = errors.New("persistence write failed")
	// ErrUnauthorized — отсутствующий или неверный ключ доступа. Отличим от
	// остальных ошибок, чтобы клиент запросил новые учётные данные, а не
	// повторял попытку вслепую.
	ErrUnauthorized = errors.New("missing or invalid access credential")

	// Ошибки валидации документа заказа.
	ErrOrderNumberInvalid   = errors.New("order number must be positive")
	ErrLineItemsRequired    = errors.New("order must contain at least one line item")
	ErrLineItemQtyInvalid   = errors.New("line item quantity must be greater than zero")
	ErrLineItemNameRequired = errors.New("line item name is required")
)

// IsUnauthorized проверяет, является ли ошибка ошибкой авторизации.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
