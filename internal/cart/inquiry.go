package cart

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/nikolayk812/repairshop-cart/internal/domain"
)

const (
	inquiryHeader = "Hello! I would like to inquire about the following items:\n\n"
	inquiryFooter = "Please provide more details about availability, delivery options, and final pricing. Thank you!"
)

// GenerateInquiryMessage summarises the cart as plain text for a shop
// conversation. Empty collections are left out; the total line is always present.
func (s *Store) GenerateInquiryMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	b.WriteString(inquiryHeader)

	s.writeBlockLocked(&b, "PRODUCTS", domain.KindProduct)
	s.writeBlockLocked(&b, "SERVICES", domain.KindService)

	total := domain.Money{Amount: s.totalLocked(), Currency: s.currency}
	fmt.Fprintf(&b, "Total Amount: %s\n\n", total.Format(s.locale))
	b.WriteString(inquiryFooter)

	return b.String()
}

func (s *Store) writeBlockLocked(b *strings.Builder, title string, kind domain.Kind) {
	items := s.itemsLocked(kind)
	if len(items) == 0 {
		return
	}

	b.WriteString(title + ":\n")
	for _, li := range items {
		lineTotal := domain.Money{Amount: li.Total(), Currency: s.currency}
		fmt.Fprintf(b, "• %s (Quantity: %d) - %s\n", li.Name, li.Quantity, lineTotal.Format(s.locale))
	}
	b.WriteString("\n")
}

// ChatLink builds a wa.me link that opens a chat with phone, prefilled with message.
// Everything but digits is stripped from phone.
func ChatLink(phone, message string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if digits == "" {
		return "", fmt.Errorf("phone[%s] has no digits", phone)
	}

	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return "https://wa.me/" + digits + "?text=" + text, nil
}
