package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"strconv"

	"github.com/fogleman/gg"
	"github.com/gality369/simplefs/internal/filetable"
	"github.com/gality369/simplefs/internal/schema"
)

const (
	slotColumns  = 8
	cellWidth    = 96
	cellHeight   = 48
	margin       = 16
	headerHeight = 24
	textInset    = 8
)

//nolint:gochecknoglobals
var (
	backgroundColor = color.RGBA{255, 255, 255, 255}
	borderColor     = color.RGBA{96, 96, 96, 255}
	textColor       = color.RGBA{0, 0, 0, 255}
	dirColor        = color.RGBA{153, 204, 255, 255}
	fileColor       = color.RGBA{255, 204, 153, 255}
	unknownColor    = color.RGBA{255, 153, 153, 255}
	freeColor       = color.RGBA{230, 230, 230, 255}
)

type tableStater interface {
	Capacity() int
	Stat(h filetable.Handle) (schema.Entry, error)
}

// ImageSize returns the pixel dimensions of the slot map of a table with
// the given number of slots.
func ImageSize(slots int) (int, int) {
	rows := (slots + slotColumns - 1) / slotColumns

	return 2*margin + slotColumns*cellWidth, 2*margin + headerHeight + rows*cellHeight
}

// CellOrigin returns the top left pixel of the cell of a slot.
func CellOrigin(idx int) (int, int) {
	return margin + (idx%slotColumns)*cellWidth, margin + headerHeight + (idx/slotColumns)*cellHeight
}

// WriteSlotMap draws one colored cell per slot, labelled with its index and
// the name of its entry, and encodes the image as PNG.
func WriteSlotMap(table tableStater, w io.Writer) error {
	slots := table.Capacity()

	width, height := ImageSize(slots)
	dc := gg.NewContext(width, height)
	dc.SetColor(backgroundColor)
	dc.Clear()

	used := 0

	for idx := range slots {
		e, err := table.Stat(filetable.Handle(idx))
		free := errors.Is(err, filetable.ErrNotFound)
		if err != nil && !free {
			return fmt.Errorf("(report) failed to stat slot %d: %w", idx, err)
		}

		ix, iy := CellOrigin(idx)
		x, y := float64(ix), float64(iy)

		dc.SetColor(cellColor(e, free))
		dc.DrawRectangle(x, y, cellWidth, cellHeight)
		dc.Fill()

		dc.SetColor(borderColor)
		dc.SetLineWidth(1)
		dc.DrawRectangle(x, y, cellWidth, cellHeight)
		dc.Stroke()

		dc.SetColor(textColor)
		dc.DrawString(strconv.Itoa(idx), x+textInset, y+textInset+12)

		if !free {
			used++
			dc.DrawString(cellLabel(e), x+textInset, y+cellHeight-textInset)
		}
	}

	dc.SetColor(textColor)
	dc.DrawString(fmt.Sprintf("slot map: %d of %d slots used", used, slots), margin, margin+14)

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("(report) failed to encode image: %w", err)
	}

	return nil
}

// cellColor returns the fill color of a cell.
func cellColor(e schema.Entry, free bool) color.RGBA {
	switch {
	case free:
		return freeColor
	case e.IsDir():
		return dirColor
	case e.IsRegular():
		return fileColor
	default:
		return unknownColor
	}
}

func cellLabel(e schema.Entry) string {
	switch {
	case e.IsRoot():
		return "/"
	case e.IsDir():
		return e.Name + "/"
	case e.IsRegular():
		return e.Name + " " + strconv.Itoa(len(e.Content())) + "B"
	default:
		return e.Name + " ?"
	}
}
