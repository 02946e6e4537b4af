// Package utils содержит утилитарные функции, используемые в разных частях приложения
package utils

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimestamp возвращается, когда строку не удалось разобрать как отметку времени
var ErrInvalidTimestamp = errors.New("неверный формат времени")

// FormatDuration форматирует time.Duration в формат MM:SS или HH:MM:SS для длинных записей
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// ToMillis отбрасывает доли миллисекунды. Отрицательные значения не меняются,
// чтобы проверки диапазона их по-прежнему отклоняли.
func ToMillis(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	return d.Truncate(time.Millisecond)
}

// FormatPrecise форматирует время с миллисекундами: MM:SS.mmm
func FormatPrecise(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds() % 1000
	return fmt.Sprintf("%s.%03d", FormatDuration(d), ms)
}

// ParseTimestamp разбирает отметку времени вида "90", "1:30", "1:30.250" или "01:02:03"
func ParseTimestamp(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidTimestamp
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}

	// Последняя часть может содержать дробные секунды
	seconds, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil || seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}
	if len(parts) > 1 && seconds >= 60 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}

	total := time.Duration(seconds * float64(time.Second))
	multiplier := time.Minute
	for i := len(parts) - 2; i >= 0; i-- {
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
		}
		if i > 0 && n >= 60 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
		}
		total += time.Duration(n) * multiplier
		multiplier *= 60
	}

	return total.Round(time.Millisecond), nil
}

// TruncateString обрезает строку до указанной длины, добавляя "..." если строка длиннее
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// FormatFileSize форматирует размер файла в человекочитаемом виде
func FormatFileSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
