package mpesa

import (
	"errors"
	"strings"
)

var ErrInvalidPhone = errors.New("número de teléfono inválido")

// NormalizePhone lleva 07XXXXXXXX, 01XXXXXXXX, +254… y 254… al formato 254XXXXXXXXX.
func NormalizePhone(phone string) (string, error) {
	p := strings.TrimSpace(phone)
	p = strings.ReplaceAll(p, " ", "")
	p = strings.TrimPrefix(p, "+")

	switch {
	case len(p) == 10 && strings.HasPrefix(p, "0"):
		p = "254" + p[1:]
	case len(p) == 9 && (p[0] == '7' || p[0] == '1'):
		p = "254" + p
	}

	if len(p) != 12 || !strings.HasPrefix(p, "254") || (p[3] != '7' && p[3] != '1') {
		return "", ErrInvalidPhone
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhone
		}
	}
	return p, nil
}
