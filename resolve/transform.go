package resolve

import (
	"strconv"
	"strings"
)

// parseScale extracts the horizontal scale factor from a computed CSS
// transform string. The embedding layer scales uniformly, so the first
// matrix coefficient is the live zoom. An unreadable transform reports
// ok=false, which resolution treats as "cannot currently render".
//
//	""                          → 1
//	"none"                      → 1
//	"matrix(0.8, 0, 0, 0.8, 0, 0)" → 0.8
//	"matrix3d(0.5, 0, ...)"     → 0.5
//	"scale(1.25)"               → 1.25
//	"scale(1.25, 2)"            → 1.25
func parseScale(transform string) (float64, bool) {
	s := strings.TrimSpace(transform)
	if s == "" || s == "none" {
		return 1, true
	}

	open := strings.IndexByte(s, '(')
	close := strings.LastIndexByte(s, ')')
	if open < 0 || close < open {
		return 0, false
	}
	fn := strings.TrimSpace(s[:open])
	args := strings.Split(s[open+1:close], ",")
	if len(args) == 0 {
		return 0, false
	}

	switch fn {
	case "matrix", "matrix3d", "scale", "scaleX":
		v, err := strconv.ParseFloat(strings.TrimSpace(args[0]), 64)
		if err != nil || v <= 0 {
			return 0, false
		}
		return v, true
	default:
		return 0, false
	}
}
