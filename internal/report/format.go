package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
)

// Format selects how a Formatter renders usages.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// Units selects how sizes are written in text and table output. JSON
// always carries raw byte counts.
type Units string

const (
	UnitsBytes Units = "bytes"
	UnitsIEC   Units = "iec"
	UnitsSI    Units = "si"
)

// Formatter writes usages to an output stream. Call Flush when done; table
// output is buffered until then.
type Formatter struct {
	w      io.Writer
	format Format
	units  Units

	enc         *json.Encoder
	tw          *tabwriter.Writer
	wroteHeader bool
	volumes     bool
}

// NewFormatter validates format and units and returns a Formatter writing
// to w. volumes adds filesystem columns to table output.
func NewFormatter(w io.Writer, format, units string, volumes bool) (*Formatter, error) {
	f := &Formatter{
		w:       w,
		format:  Format(format),
		units:   Units(units),
		volumes: volumes,
	}

	switch f.units {
	case UnitsBytes, UnitsIEC, UnitsSI:
	default:
		return nil, fmt.Errorf("unknown units %q", units)
	}

	switch f.format {
	case FormatText:
	case FormatJSON:
		f.enc = json.NewEncoder(w)
	case FormatTable:
		f.tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}

	return f, nil
}

// Write emits one usage.
func (f *Formatter) Write(u Usage) error {
	switch f.format {
	case FormatJSON:
		return f.enc.Encode(u)
	case FormatTable:
		return f.writeRow(u)
	default:
		return f.writeLine(u)
	}
}

// Flush writes any buffered output.
func (f *Formatter) Flush() error {
	if f.tw != nil {
		return f.tw.Flush()
	}
	return nil
}

func (f *Formatter) writeLine(u Usage) error {
	line := fmt.Sprintf("%s, %s logical, %s on-disk", u.Path, f.size(u.Logical), f.size(u.OnDisk))
	if u.Volume != nil {
		line += fmt.Sprintf(" (%s, %s blocks)", fsType(u.Volume.FSType), f.size(u.Volume.BlockSize))
	}

	_, err := fmt.Fprintln(f.w, line)
	return err
}

func (f *Formatter) writeRow(u Usage) error {
	if !f.wroteHeader {
		header := "LOGICAL\tON-DISK\tRATIO\t"
		if f.volumes {
			header += "FSTYPE\tBLOCK\tROUNDED\t"
		}
		if _, err := fmt.Fprintln(f.tw, header+"PATH"); err != nil {
			return err
		}
		f.wroteHeader = true
	}

	row := fmt.Sprintf("%s\t%s\t%s\t", f.size(u.Logical), f.size(u.OnDisk), strconv.FormatFloat(u.Ratio(), 'f', 2, 64))
	if f.volumes {
		if u.Volume != nil {
			row += fmt.Sprintf("%s\t%s\t%s\t", fsType(u.Volume.FSType), f.size(u.Volume.BlockSize), f.size(u.Rounded()))
		} else {
			row += "-\t-\t-\t"
		}
	}

	_, err := fmt.Fprintln(f.tw, row+u.Path)
	return err
}

func (f *Formatter) size(n uint64) string {
	switch f.units {
	case UnitsIEC:
		return humanize.IBytes(n)
	case UnitsSI:
		return humanize.Bytes(n)
	default:
		return strconv.FormatUint(n, 10) + " bytes"
	}
}

func fsType(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
