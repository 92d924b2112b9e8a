package store

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable возвращается, когда подсистема покупок недоступна
// в текущем окружении. Поглощается на границе сервиса переходом
// в деградированный режим и никогда не доходит до пользователя.
var ErrStoreUnavailable = errors.New("store: purchase capability unavailable")

// ErrUserCancelled возвращается, когда пользователь прервал покупку.
// Вызывающая сторона обязана трактовать его как отсутствие операции,
// а не как ошибку.
var ErrUserCancelled = errors.New("store: purchase cancelled by user")

// PurchaseError отказ платформы при проверке покупки с причиной,
// сообщенной платформой. Причина логируется, но пользователю
// показывается общий текст.
type PurchaseError struct {
	Reason string
}

func (e *PurchaseError) Error() string {
	return fmt.Sprintf("store: purchase failed: %s", e.Reason)
}

// RestoreError отказ при восстановлении истории покупок. Доводится
// до пользователя отдельно от PurchaseError.
type RestoreError struct {
	Reason string
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("store: restore failed: %s", e.Reason)
}
