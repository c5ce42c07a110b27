package domain

// Cart is a point-in-time copy of a cart's contents.
type Cart struct {
	OwnerID  string
	Products []LineItem
	Services []LineItem
}

func (c Cart) Items(kind Kind) []LineItem {
	if kind == KindService {
		return c.Services
	}
	return c.Products
}
