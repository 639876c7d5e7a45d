package display

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/Zyko0/go-sdl3/sdl"
)

// ParseColor parses "R,G,B" or "R,G,B,A". Alpha defaults to 255.
func ParseColor(s string) (sdl.Color, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return sdl.Color{}, fmt.Errorf("invalid color %q: want R,G,B[,A]", s)
	}

	var v [4]uint8
	v[3] = 255
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 255 {
			return sdl.Color{}, fmt.Errorf("invalid color %q: component %d out of range", s, i)
		}
		v[i] = uint8(n)
	}
	return sdl.Color{R: v[0], G: v[1], B: v[2], A: v[3]}, nil
}

// WrapText splits text into lines of at most width characters, breaking on
// spaces. Words longer than width get a line of their own.
func WrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if width <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len([]rune(line))+1+len([]rune(w)) > width {
			lines = append(lines, line)
			line = w
			continue
		}
		line += " " + w
	}
	return append(lines, line)
}

// Centered returns a w x h rectangle centred in a screenW x screenH window.
func Centered(screenW, screenH int, w, h float32) sdl.FRect {
	return sdl.FRect{
		X: (float32(screenW) - w) / 2,
		Y: (float32(screenH) - h) / 2,
		W: w,
		H: h,
	}
}

// DefaultFontPath looks for a TrueType font in ./fonts and then in the
// usual system locations. It returns "" if none is found.
func DefaultFontPath() string {
	entries, err := os.ReadDir("fonts")
	if err == nil {
		for _, entry := range entries {
			ext := strings.ToLower(filepath.Ext(entry.Name()))
			if !entry.IsDir() && (ext == ".ttf" || ext == ".ttc") {
				return filepath.Join("fonts", entry.Name())
			}
		}
	}

	var paths []string
	switch runtime.GOOS {
	case "windows":
		paths = []string{`C:\Windows\Fonts\arial.ttf`}
	case "darwin":
		paths = []string{"/System/Library/Fonts/Helvetica.ttc"}
	default:
		paths = []string{
			"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
			"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
