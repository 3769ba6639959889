package menu

import "errors"

var (
	ErrItemNotFound       = errors.New("menu item not found")
	ErrQuantityOutOfRange = errors.New("quantity out of range")
)
