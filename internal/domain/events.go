package domain

// StreamEvent — сообщение push-канала сервер → дашборд. Сейчас существует
// единственный вид события: очередь обновилась, в payload её полный снапшот.
// Внешнее тегирование сохраняет формат, который уже парсят фронтенды.
type StreamEvent struct {
	BreaksUpdated QueueSnapshot `json:"BreaksUpdated"`
}
