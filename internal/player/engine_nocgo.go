//go:build !((linux && cgo) || windows || darwin)

package player

// EngineAvailable сообщает, поддерживается ли вывод звука в этой сборке.
// Без cgo на linux нативная библиотека звука недоступна.
const EngineAvailable = false

// NewBeepEngine в этой сборке всегда возвращает ErrEngineUnavailable
func NewBeepEngine() (Engine, error) {
	return nil, ErrEngineUnavailable
}
