package texrender

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/yungbote/curricula-backend/internal/platform/logger"
)

// Artifact is a rendered equation image. Empty markup yields a zero Artifact,
// which is valid: not every concept has a formula.
type Artifact struct {
	PNG      []byte `json:"png,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Markup   string `json:"markup,omitempty"`
}

func (a Artifact) Empty() bool { return len(a.PNG) == 0 && strings.TrimSpace(a.Markup) == "" }

// Renderer rasterizes equation markup into a PNG artifact.
type Renderer interface {
	Render(markup string) (Artifact, error)
}

type renderer struct {
	log      *logger.Logger
	fontFace font.Face
	fontSize float64
	padding  float64
}

func NewRenderer(log *logger.Logger) (Renderer, error) {
	serviceLog := log.With("service", "TexRenderer")

	fontPath := strings.TrimSpace(os.Getenv("FORMULA_FONT"))
	if fontPath == "" {
		return nil, fmt.Errorf("env var FORMULA_FONT is empty")
	}

	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("read formula font: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parse formula font: %w", err)
	}

	const size = 28.0
	face := truetype.NewFace(parsedFont, &truetype.Options{Size: size})

	return &renderer{
		log:      serviceLog,
		fontFace: face,
		fontSize: size,
		padding:  24,
	}, nil
}

func (r *renderer) Render(markup string) (Artifact, error) {
	markup = strings.TrimSpace(markup)
	if markup == "" {
		return Artifact{}, nil
	}

	lines := splitLines(markup)

	// Measure pass to size the canvas.
	measure := gg.NewContext(1, 1)
	measure.SetFontFace(r.fontFace)
	maxW := 0.0
	lineH := r.fontSize * 1.5
	for _, line := range lines {
		w, _ := measure.MeasureString(line)
		if w > maxW {
			maxW = w
		}
	}

	width := int(maxW + 2*r.padding)
	height := int(lineH*float64(len(lines)) + 2*r.padding)

	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.DrawRectangle(0, 0, float64(width), float64(height))
	dc.Fill()

	dc.SetFontFace(r.fontFace)
	dc.SetColor(color.Black)
	for i, line := range lines {
		y := r.padding + lineH*float64(i) + r.fontSize
		dc.DrawString(line, r.padding, y)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return Artifact{}, fmt.Errorf("encode formula png: %w", err)
	}

	return Artifact{
		PNG:      buf.Bytes(),
		MimeType: "image/png",
		Width:    width,
		Height:   height,
		Markup:   markup,
	}, nil
}

func splitLines(markup string) []string {
	raw := strings.Split(strings.ReplaceAll(markup, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	if len(out) == 0 {
		out = []string{markup}
	}
	return out
}
