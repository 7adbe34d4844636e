package chart

import (
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"github.com/KaramelBytes/csvinsight/internal/dataset"
)

// Format identifies how an Artifact's content is encoded.
type Format string

const (
	FormatHTML Format = "html"
	FormatPNG  Format = "png"
	FormatText Format = "text"
)

// ParseFormat accepts html, png or text (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatHTML, FormatPNG, FormatText:
		return f, nil
	case "":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unknown chart format %q (want html, png or text)", s)
	}
}

// Artifact is a rendered chart.
type Artifact struct {
	Format  Format
	Title   string
	Content []byte
}

// String returns the content as text; for PNG artifacts this is the data URI.
func (a *Artifact) String() string {
	if a == nil {
		return ""
	}
	if a.Format == FormatPNG {
		return string(a.DataURI())
	}
	return string(a.Content)
}

// DataURI returns a base64 data URI for image artifacts.
func (a *Artifact) DataURI() template.URL {
	if a == nil || a.Format != FormatPNG {
		return ""
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(a.Content))
}

// Renderer turns a resolved plan into an artifact.
type Renderer interface {
	Render(p *Plan) (*Artifact, error)
}

// NewRenderer returns the renderer for the given format.
func NewRenderer(f Format, theme string) (Renderer, error) {
	switch f {
	case FormatHTML, "":
		return &HTMLRenderer{Theme: theme}, nil
	case FormatPNG:
		return &PNGRenderer{}, nil
	case FormatText:
		return &TextRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown chart format %q", f)
}

// ResolveAndRender resolves and renders a chart, returning nil when no chart
// applies or anything fails along the way. Failures other than an
// unsupported label are logged at warn level.
func ResolveAndRender(ds *dataset.Dataset, label string, hints Hints, question string, r Renderer, log *slog.Logger) (art *Artifact) {
	if log == nil {
		log = slog.Default()
	}
	defer func() {
		if rec := recover(); rec != nil {
			log.Warn("chart render panicked", "chart_type", label, "panic", rec)
			art = nil
		}
	}()
	p, err := Resolve(ds, label, hints, question)
	if err != nil {
		if errors.Is(err, ErrUnsupportedKind) {
			log.Debug("no chart for label", "chart_type", label)
		} else {
			log.Warn("chart resolve failed", "chart_type", label, "err", err)
		}
		return nil
	}
	if r == nil {
		return nil
	}
	art, err = r.Render(p)
	if err != nil {
		log.Warn("chart render failed", "chart_type", label, "title", p.Title, "err", err)
		return nil
	}
	return art
}
