package valueobject

import (
	"fmt"
	"strings"

	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
)

const DefaultCurrency = "RUB"

// Money хранит сумму в минимальных единицах валюты (копейки, центы).
type Money struct {
	Cents    int64
	Currency string
}

func NewMoney(cents int64, currency string) (Money, error) {
	if cents < 0 {
		return Money{}, apperror.New(apperror.ErrCodeValidation, "сумма не может быть отрицательной")
	}
	code, err := NormalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: cents, Currency: code}, nil
}

// NormalizeCurrency приводит код валюты к ISO-4217 виду (три заглавные буквы).
func NormalizeCurrency(currency string) (string, error) {
	if currency == "" {
		return DefaultCurrency, nil
	}
	code := strings.ToUpper(strings.TrimSpace(currency))
	if len(code) != 3 {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный код валюты")
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", apperror.New(apperror.ErrCodeValidation, "некорректный код валюты")
		}
	}
	return code, nil
}

func (m Money) Times(qty int) Money {
	return Money{Cents: m.Cents * int64(qty), Currency: m.Currency}
}

func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, apperror.New(apperror.ErrCodeInvalidOperation, "нельзя складывать суммы в разных валютах")
	}
	return Money{Cents: m.Cents + other.Cents, Currency: m.Currency}, nil
}

func (m Money) IsZero() bool {
	return m.Cents == 0
}

func (m Money) String() string {
	return fmt.Sprintf("%d.%02d %s", m.Cents/100, m.Cents%100, m.Currency)
}
