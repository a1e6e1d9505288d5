package candles

import (
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// compactLayout is the wire form for candle timestamps: "YY-MM-DD HH:MM"
// with the century assumed to be 2000+YY. Interpreted in local time.
const compactLayout = "06-01-02 15:04"

// ParseTime normalizes a wire timestamp to unix seconds.
// Accepted forms: a numeric epoch already in seconds (JSON numbers decode
// as float64), or the compact "YY-MM-DD HH:MM" string.
func ParseTime(v any) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case string:
		if parsed, err := time.ParseInLocation(compactLayout, t, time.Local); err == nil {
			return parsed.Unix(), nil
		}
		if secs, err := strconv.ParseFloat(t, 64); err == nil {
			return int64(secs), nil
		}
		return 0, fmt.Errorf("unparseable candle time %q", t)
	default:
		return 0, fmt.Errorf("unsupported candle time type %T", v)
	}
}

// Normalize is ParseTime with the documented fallback: unparseable input is
// logged and replaced with the current time rather than raised.
func Normalize(v any, logger *logrus.Logger) int64 {
	secs, err := ParseTime(v)
	if err != nil {
		logger.Warnf("[candles] %v, falling back to now", err)
		return time.Now().Unix()
	}
	return secs
}
