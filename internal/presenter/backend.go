package presenter

// Display paints one scene per frame. Flip presents the composed scene and
// blocks until the next refresh; it is the loop's only yield point.
type Display interface {
	ShowText(text string) error
	ShowFixation() error
	ShowMovie(m Movie) error
	Flip() error
	Close() error
}

// Input returns the key-down edges observed since the previous call.
// Key names are lower case ("space", "escape", "n").
type Input interface {
	Keys() []string
}

// Movie is a decoded clip ready for playback.
type Movie interface {
	Duration() float64
	Seek(seconds float64) error
	Play() error
	Pause() error
	Close() error
}

// MovieLoader opens clips by path. Errors are per clip and never fatal.
type MovieLoader interface {
	Load(path string) (Movie, error)
}

// Keys names the session-control and response keys.
type Keys struct {
	Boundary string
	EndClip  string
	Abort    string
}

// DefaultKeys returns the keys named in the built-in instructions.
func DefaultKeys() Keys {
	return Keys{
		Boundary: "space",
		EndClip:  "n",
		Abort:    "escape",
	}
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
