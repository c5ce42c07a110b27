package cart

import "errors"

var (
	ErrMissingID       = errors.New("item id is empty")
	ErrInvalidQuantity = errors.New("quantity must be between 1 and MaxQuantity")
	ErrInvalidKind     = errors.New("kind is not valid")
)
