package domain

import (
	"fmt"
	"strings"
)

type Kind int

const (
	KindProduct Kind = iota
	KindService
)

var Kinds = []Kind{KindProduct, KindService}

func (k Kind) String() string {
	switch k {
	case KindProduct:
		return "product"
	case KindService:
		return "service"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "product", "products", "part", "spare-part":
		return KindProduct, nil
	case "service", "services":
		return KindService, nil
	default:
		return 0, fmt.Errorf("kind[%s] is not valid", s)
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
