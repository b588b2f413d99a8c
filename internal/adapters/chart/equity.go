// Package chart renders P&L series as images with gonum/plot.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"pnlEngine/internal/pnl/analytics"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no data points to plot")

// Default image size.
const (
	Width  = 8 * vg.Inch
	Height = 4 * vg.Inch
)

// EquityCurve builds a plot of the cumulative realized P&L by day with a
// zero baseline.
func EquityCurve(points []analytics.EquityPoint, title, currency string) (*plot.Plot, error) {
	if len(points) == 0 {
		return nil, ErrNoData
	}

	pts := make(plotter.XYs, len(points))
	for i, p := range points {
		day, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			return nil, fmt.Errorf("equity point %d: %w", i, err)
		}
		pts[i].X = float64(day.Unix())
		pts[i].Y = p.Equity
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Date"
	p.Y.Label.Text = fmt.Sprintf("Realized P&L (%s)", currency)
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Add(plotter.NewGrid())

	line, markers, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to create equity line: %w", err)
	}
	line.Color = color.RGBA{R: 0, G: 128, B: 255, A: 255}
	line.Width = vg.Points(2)
	markers.Shape = nil

	first, last := pts[0].X, pts[len(pts)-1].X
	if first == last {
		last = first + 24*60*60
	}
	baseline, err := plotter.NewLine(plotter.XYs{{X: first, Y: 0}, {X: last, Y: 0}})
	if err != nil {
		return nil, fmt.Errorf("failed to create baseline: %w", err)
	}
	baseline.Color = color.RGBA{R: 255, G: 0, B: 0, A: 100}
	baseline.LineStyle.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}

	p.Add(line, baseline)
	return p, nil
}

// WriteEquityPNG renders the equity curve as a PNG into w.
func WriteEquityPNG(w io.Writer, points []analytics.EquityPoint, title, currency string) error {
	p, err := EquityCurve(points, title, currency)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(Width, Height, "png")
	if err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// SaveEquityPNG renders the equity curve to a file; the format follows the
// file extension.
func SaveEquityPNG(points []analytics.EquityPoint, title, currency, path string) error {
	p, err := EquityCurve(points, title, currency)
	if err != nil {
		return err
	}
	return p.Save(Width, Height, path)
}
