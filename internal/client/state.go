package client

// State — состояние логического подключения дашборда к серверу.
type State int

const (
	// StateDisconnected — подключения нет; после паузы backoff начнётся
	// новая попытка.
	StateDisconnected State = iota
	// StateAwaitingCredentials — нет действительного ключа доступа;
	// переподключение заморожено до появления нового ключа.
	StateAwaitingCredentials
	// StateConnecting — открываем stream и забираем начальный снапшот.
	StateConnecting
	// StateConnected — активно принимаем push-снапшоты.
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateAwaitingCredentials:
		return "awaiting_credentials"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Event — событие, двигающее машину состояний.
type Event int

const (
	// EventRetry — истёк backoff, пора пробовать снова.
	EventRetry Event = iota
	// EventOpened — stream открыт и начальный снапшот получен.
	EventOpened
	// EventStreamClosed — чтение из stream оборвалось или завершилось.
	EventStreamClosed
	// EventConnectFailed — попытка подключения не удалась (сеть, не-2xx).
	EventConnectFailed
	// EventUnauthorized — сервер отверг ключ доступа.
	EventUnauthorized
	// EventCredentialSupplied — оператор ввёл новый ключ.
	EventCredentialSupplied
)

// Transition — чистая функция переходов (state, event) -> state.
// Вся работа с сетью живёт в цикле Run; здесь только логика состояний,
// которую легко проверить таблицей.
func Transition(s State, e Event) State {
	switch s {
	case StateDisconnected:
		if e == EventRetry {
			return StateConnecting
		}
	case StateAwaitingCredentials:
		if e == EventCredentialSupplied {
			return StateConnecting
		}
	case StateConnecting:
		switch e {
		case EventOpened:
			return StateConnected
		case EventUnauthorized:
			return StateAwaitingCredentials
		case EventConnectFailed:
			return StateDisconnected
		}
	case StateConnected:
		switch e {
		case EventStreamClosed:
			return StateDisconnected
		case EventUnauthorized:
			return StateAwaitingCredentials
		}
	}
	return s
}
