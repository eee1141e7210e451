package domain

// OrderRepository описывает требования к долговременному хранилищу заказов.
// Очередь в памяти остаётся источником истины для порядка обслуживания;
// хранилище догоняет её write-behind.
type OrderRepository interface {
	// Insert сохраняет новую запись на указанной позиции. Повторная вставка
	// того же номера — no-op (защита от повторной доставки webhook).
	Insert(rec OrderRecord, position int) error
	// Delete удаляет запись по номеру заказа. Отсутствие записи — не ошибка.
	Delete(n OrderNumber) error
	// UpdateDisplayName перезаписывает отображаемое имя.
	UpdateDisplayName(n OrderNumber, name string) error
	// UpdatePositions записывает новый порядок обслуживания после
	// переупорядочивания очереди.
	UpdatePositions(positions map[OrderNumber]int) error
	// SelectAll возвращает все записи в сохранённом порядке обслуживания.
	// Используется один раз при старте для наполнения очереди.
	SelectAll() ([]OrderRecord, error)
}

// AuthKeyRepository проверяет ключи доступа операторов.
type AuthKeyRepository interface {
	// ValidateKey сообщает, действительна ли пара username/key.
	ValidateKey(username, key string) (bool, error)
}
