package detect

import "fmt"

// checksumFunc is a hard validation gate applied to a regex match before it
// becomes a span. Returning false discards the match silently: a formatted
// number with bad check digits is noise, not PII.
type checksumFunc func(value string) bool

// checksumByName resolves a checksum gate named in recognizer YAML. An empty
// name means no gate. Unknown names are configuration errors.
func checksumByName(name string) (checksumFunc, error) {
	switch name {
	case "":
		return nil, nil
	case "cpf":
		return ValidCPF, nil
	case "cnpj":
		return ValidCNPJ, nil
	default:
		return nil, fmt.Errorf("unknown checksum %q", name)
	}
}

// ValidCPF verifies the two CPF check digits (módulo 11). Formatting
// characters are ignored; repdigit sequences like 999.999.999-99 are
// rejected even when their check digits happen to work out.
func ValidCPF(value string) bool {
	digits := digitsOf(value)
	if len(digits) != 11 || allSame(digits) {
		return false
	}

	sum := 0
	for i := 0; i < 9; i++ {
		sum += digits[i] * (10 - i)
	}
	check1 := (sum * 10) % 11 % 10

	sum = 0
	for i := 0; i < 10; i++ {
		sum += digits[i] * (11 - i)
	}
	check2 := (sum * 10) % 11 % 10

	return digits[9] == check1 && digits[10] == check2
}

// ValidCNPJ verifies the two CNPJ check digits.
func ValidCNPJ(value string) bool {
	digits := digitsOf(value)
	if len(digits) != 14 || allSame(digits) {
		return false
	}

	weights1 := []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	weights2 := []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}

	return digits[12] == cnpjDigit(digits[:12], weights1) &&
		digits[13] == cnpjDigit(digits[:13], weights2)
}

func cnpjDigit(digits, weights []int) int {
	sum := 0
	for i, d := range digits {
		sum += d * weights[i]
	}
	rem := sum % 11
	if rem < 2 {
		return 0
	}
	return 11 - rem
}

// digitsOf extracts decimal digits from s, dropping separators.
func digitsOf(s string) []int {
	out := make([]int, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, int(s[i]-'0'))
		}
	}
	return out
}

func allSame(digits []int) bool {
	for _, d := range digits[1:] {
		if d != digits[0] {
			return false
		}
	}
	return true
}
