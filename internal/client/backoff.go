package client

import "time"

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 15 * time.Second
)

// backoff — ограниченная экспоненциальная пауза между попытками
// переподключения. Не завершается никогда: дашборд обязан пережить
// любой сетевой провал без участия оператора.
type backoff struct {
	next time.Duration
}

func newBackoff() *backoff {
	return &backoff{next: initialBackoff}
}

// Next возвращает текущую паузу и удваивает следующую до потолка.
func (b *backoff) Next() time.Duration {
	d := b.next
	b.next *= 2
	if b.next > maxBackoff {
		b.next = maxBackoff
	}
	return d
}

// Reset сбрасывает паузу после успешного подключения.
func (b *backoff) Reset() {
	b.next = initialBackoff
}
