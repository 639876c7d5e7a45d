package script

import "fmt"

// Mode governs how a clip is presented and whether boundary marks are collected.
type Mode string

const (
	ModePassive     Mode = "Passive"
	ModeRetroactive Mode = "Retroactive"
	ModeProactive   Mode = "Proactive"
)

// Pair is one segmentation order entry.
type Pair struct {
	Primary   int
	Secondary int
}

func (p Pair) String() string {
	return fmt.Sprintf("(%d, %d)", p.Primary, p.Secondary)
}

// DecodeMode maps an order entry to its mode:
// (0, *) is Passive, (n, 0) is Retroactive, (n, m) is Proactive.
func DecodeMode(p Pair) Mode {
	if p.Primary == 0 {
		return ModePassive
	}
	if p.Secondary == 0 {
		return ModeRetroactive
	}
	return ModeProactive
}

// ParseMode accepts a capitalized or lower-case mode name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "Passive", "passive":
		return ModePassive, nil
	case "Retroactive", "retroactive":
		return ModeRetroactive, nil
	case "Proactive", "proactive":
		return ModeProactive, nil
	}
	return "", fmt.Errorf("unknown mode: %q", s)
}
