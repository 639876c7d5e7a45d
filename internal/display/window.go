// Package display is the SDL3 presentation backend: one window, a text
// renderer for instruction screens, a fixation cross and a streaming
// texture for movie frames. It also reads the keyboard.
package display

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Zyko0/go-sdl3/sdl"
	"github.com/Zyko0/go-sdl3/ttf"

	"github.com/AaronLay10/DynamicSeg/internal/presenter"
)

const (
	crossHalf      = 100 // fixation cross spans 200 px
	crossThickness = 8
	lineSpacing    = 1.2
)

// Options configures the window.
type Options struct {
	Title      string
	Width      int
	Height     int
	Fullscreen bool
	VSync      bool
	FontFile   string
	FontSize   float64
	WrapChars  int
	Background sdl.Color
	Foreground sdl.Color
	Fixation   sdl.Color
	// QuitKey is reported by Keys when the window is closed.
	QuitKey string
}

// Window implements presenter.Display and presenter.Input.
// All methods must be called from the thread that created it.
type Window struct {
	opts     Options
	window   *sdl.Window
	renderer *sdl.Renderer
	font     *ttf.Font

	textKey  string
	textTex  []*sdl.Texture
	textSize [][2]float32

	movieTex *sdl.Texture
	movieSeq uint64
	movieSrc *Movie

	keys   []string
	closed bool
}

// Open initialises SDL and TTF and creates the window. The SDL and TTF
// shared libraries must already be loaded.
func Open(opts Options) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("SDL_Init: %w", err)
	}
	if err := ttf.Init(); err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("TTF_Init: %w", err)
	}

	flags := sdl.WINDOW_RESIZABLE
	if opts.Fullscreen {
		flags |= sdl.WINDOW_FULLSCREEN
	}
	window, renderer, err := sdl.CreateWindowAndRenderer(opts.Title, opts.Width, opts.Height, flags)
	if err != nil {
		ttf.Quit()
		sdl.Quit()
		return nil, fmt.Errorf("CreateWindowAndRenderer: %w", err)
	}
	if opts.VSync {
		renderer.SetVSync(1)
	} else {
		renderer.SetVSync(0)
	}

	w := &Window{opts: opts, window: window, renderer: renderer}

	fontPath := opts.FontFile
	if fontPath == "" {
		fontPath = DefaultFontPath()
	}
	if fontPath == "" {
		w.Close()
		return nil, errors.New("no font found; set display.font_file")
	}
	w.font, err = ttf.OpenFont(fontPath, float32(opts.FontSize))
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to load font %s: %w", fontPath, err)
	}

	_ = sdl.HideCursor()
	return w, nil
}

// RefreshRate returns the refresh rate of the window's display, or 60.
func (w *Window) RefreshRate() float32 {
	display := sdl.GetDisplayForWindow(w.window)
	mode, err := display.CurrentDisplayMode()
	if err == nil && mode.RefreshRate > 0 {
		return mode.RefreshRate
	}
	return 60
}

func (w *Window) clear() {
	bg := w.opts.Background
	w.renderer.SetDrawColor(bg.R, bg.G, bg.B, bg.A)
	w.renderer.Clear()
}

// ShowText draws text centred and wrapped. Rendered lines are cached until
// the text changes.
func (w *Window) ShowText(text string) error {
	if text != w.textKey {
		if err := w.renderText(text); err != nil {
			return err
		}
	}

	w.clear()
	var total float32
	for _, size := range w.textSize {
		total += size[1] * lineSpacing
	}
	y := (float32(w.opts.Height) - total) / 2
	for i, tex := range w.textTex {
		lw, lh := w.textSize[i][0], w.textSize[i][1]
		dst := sdl.FRect{X: (float32(w.opts.Width) - lw) / 2, Y: y, W: lw, H: lh}
		w.renderer.RenderTexture(tex, nil, &dst)
		y += lh * lineSpacing
	}
	return nil
}

func (w *Window) renderText(text string) error {
	w.dropText()
	for _, line := range WrapText(text, w.opts.WrapChars) {
		surf, err := w.font.RenderTextBlended(line, w.opts.Foreground)
		if err != nil {
			return fmt.Errorf("failed to render text: %w", err)
		}
		tex, err := w.renderer.CreateTextureFromSurface(surf)
		size := [2]float32{float32(surf.W), float32(surf.H)}
		surf.Destroy()
		if err != nil {
			return fmt.Errorf("failed to create text texture: %w", err)
		}
		w.textTex = append(w.textTex, tex)
		w.textSize = append(w.textSize, size)
	}
	w.textKey = text
	return nil
}

func (w *Window) dropText() {
	for _, tex := range w.textTex {
		tex.Destroy()
	}
	w.textTex = nil
	w.textSize = nil
	w.textKey = ""
}

// ShowFixation draws a centred cross.
func (w *Window) ShowFixation() error {
	w.clear()
	c := w.opts.Fixation
	w.renderer.SetDrawColor(c.R, c.G, c.B, c.A)
	h := Centered(w.opts.Width, w.opts.Height, 2*crossHalf, crossThickness)
	v := Centered(w.opts.Width, w.opts.Height, crossThickness, 2*crossHalf)
	w.renderer.RenderFillRect(&h)
	w.renderer.RenderFillRect(&v)
	return nil
}

// ShowMovie draws the newest frame of m, centred. Until the first frame
// after a seek arrives the screen is left blank.
func (w *Window) ShowMovie(m presenter.Movie) error {
	movie, ok := m.(*Movie)
	if !ok {
		return fmt.Errorf("unsupported movie type %T", m)
	}

	mw, mh := movie.Size()
	if w.movieSrc != movie || w.movieTex == nil {
		if w.movieTex != nil {
			w.movieTex.Destroy()
		}
		tex, err := w.renderer.CreateTexture(sdl.PIXELFORMAT_RGBA32, sdl.TEXTUREACCESS_STREAMING, mw, mh)
		if err != nil {
			return fmt.Errorf("failed to create movie texture: %w", err)
		}
		w.movieTex = tex
		w.movieSrc = movie
		w.movieSeq = 0
	}

	var uploadErr error
	w.movieSeq = movie.WithFrame(w.movieSeq, func(pix []byte) {
		uploadErr = w.movieTex.Update(nil, pix, int32(mw*4))
	})
	if uploadErr != nil {
		return fmt.Errorf("failed to upload movie frame: %w", uploadErr)
	}

	w.clear()
	if w.movieSeq > 0 {
		dst := Centered(w.opts.Width, w.opts.Height, float32(mw), float32(mh))
		w.renderer.RenderTexture(w.movieTex, nil, &dst)
	}
	return nil
}

// Flip presents the frame, waiting for vsync when enabled, and collects
// the key presses that arrived meanwhile.
func (w *Window) Flip() error {
	w.renderer.Present()
	if !w.opts.VSync {
		sdl.Delay(1)
	}
	w.pump()
	return nil
}

func (w *Window) pump() {
	var ev sdl.Event
	for sdl.PollEvent(&ev) {
		switch ev.Type {
		case sdl.EVENT_QUIT:
			if w.opts.QuitKey != "" {
				w.keys = append(w.keys, w.opts.QuitKey)
			}
		case sdl.EVENT_KEY_DOWN:
			ke := ev.KeyboardEvent()
			if ke.Repeat {
				continue
			}
			w.keys = append(w.keys, strings.ToLower(ke.Key.KeyName()))
		}
	}
}

// Keys returns key presses since the previous call, lower-cased SDL names.
func (w *Window) Keys() []string {
	w.pump()
	keys := w.keys
	w.keys = nil
	return keys
}

// Close destroys all SDL resources. Later calls are no-ops.
func (w *Window) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.dropText()
	if w.movieTex != nil {
		w.movieTex.Destroy()
		w.movieTex = nil
	}
	if w.font != nil {
		w.font.Close()
		w.font = nil
	}
	if w.renderer != nil {
		w.renderer.Destroy()
		w.renderer = nil
	}
	if w.window != nil {
		w.window.Destroy()
		w.window = nil
	}
	ttf.Quit()
	sdl.Quit()
	return nil
}
