// Package validation содержит функции валидации входных данных.
package validation

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// IsValidEmail выполняет базовую проверку адреса электронной почты.
func IsValidEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	if strings.Contains(domain, "@") {
		return false
	}
	dot := strings.Index(domain, ".")
	if dot <= 0 || dot == len(domain)-1 {
		return false
	}
	return !strings.ContainsAny(email, " \t\r\n")
}

// IsValidCouponCode проверяет формат кода купона: 3–32 символа,
// латинские буквы, цифры, дефис и подчёркивание.
func IsValidCouponCode(code string) bool {
	if len(code) < 3 || len(code) > 32 {
		return false
	}
	for _, ch := range code {
		switch {
		case ch >= 'a' && ch <= 'z':
		case ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9':
		case ch == '-' || ch == '_':
		default:
			return false
		}
	}
	return true
}

// ParseDateRange разбирает границы отчётного окна в формате YYYY-MM-DD.
// Пустые значения заменяются умолчаниями: конец — текущий момент,
// начало — за 30 дней до конца. Конец окна включителен, поэтому
// указанная дата конца расширяется до конца суток.
func ParseDateRange(startStr, endStr string, now time.Time) (time.Time, time.Time, error) {
	end := now
	if endStr != "" {
		d, err := time.Parse(dateLayout, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q", endStr)
		}
		end = d.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	start := end.AddDate(0, 0, -30)
	if startStr != "" {
		d, err := time.Parse(dateLayout, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q", startStr)
		}
		start = d
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start date %s is after end date %s",
			start.Format(dateLayout), end.Format(dateLayout))
	}

	return start, end, nil
}
