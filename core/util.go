package core

import (
	"math"
	"os"
	"path/filepath"
	"strings"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// CleanStrings cleans every item of `ss` and drops the empty ones.
func CleanStrings(ss []string) []string {
	cleaned := make([]string, 0, len(ss))
	for _, s := range ss {
		if s = CleanString(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return cleaned
}

// Round2 rounds x to 2 decimal places, half away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Rate returns part/total*100 rounded to 2 decimals, or 0 when total is 0.
func Rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return Round2(float64(part) / float64(total) * 100)
}

// Average returns sum/count rounded to 2 decimals, or 0 when count is 0.
func Average(sum float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return Round2(sum / float64(count))
}

// Getwd tries to find the project root (the directory holding go.mod).
// go test runs from the package directory, so the current directory cannot be trusted.
// Falls back to the current directory for deployed binaries.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	currDir := wd
	for {
		if _, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
