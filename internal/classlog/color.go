package classlog

import (
	"crypto/md5"
	"fmt"
	"log/slog"
	"math"
)

// RGB is a 24-bit colour.
type RGB struct {
	R, G, B uint8
}

// Hex returns the colour as RRGGBB.
func (c RGB) Hex() string {
	return fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B)
}

var (
	black  = RGB{0, 0, 0}
	yellow = RGB{255, 255, 0}
	red    = RGB{255, 0, 0}
	gray   = RGB{128, 128, 128}
)

// ComponentColor returns a stable, saturated colour for a component name.
// The hue is taken from the first byte of the name's MD5 digest.
func ComponentColor(name string) RGB {
	if name == "" {
		return gray
	}
	sum := md5.Sum([]byte(name))
	return hsvToRGB(float64(sum[0])/256, 1, 1)
}

// LevelColor returns the message colour for a level.
func LevelColor(level slog.Level) RGB {
	switch {
	case level >= slog.LevelError:
		return red
	case level >= slog.LevelWarn:
		return yellow
	case level >= slog.LevelInfo:
		return black
	default:
		return gray
	}
}

// Colorize wraps s in bold colour rich-text tags.
func Colorize(s string, c RGB) string {
	return "<b><color=#" + c.Hex() + "FF>" + s + "</color></b>"
}

func hsvToRGB(h, s, v float64) RGB {
	h = math.Mod(h, 1) * 6
	i := math.Floor(h)
	f := h - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	var r, g, b float64
	switch int(i) {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return RGB{channel(r), channel(g), channel(b)}
}

func channel(x float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, x)) * 255))
}
