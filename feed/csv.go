package feed

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/quantflow/tickflow/models"
)

// CSVColumns maps tick fields to the 0-based column index of a CSV row.
// A negative index means the field is absent from the file. Bid and Ask
// are the only fields every row must supply a usable price from.
type CSVColumns struct {
	Time      int
	Bid       int
	Ask       int
	BidVolume int
	AskVolume int
}

// DefaultCSVColumns is the layout "time,bid,ask,bid_volume,ask_volume".
func DefaultCSVColumns() CSVColumns {
	return CSVColumns{Time: 0, Bid: 1, Ask: 2, BidVolume: 3, AskVolume: 4}
}

type csvFeed struct {
	r       *csv.Reader
	closer  io.Closer
	cols    CSVColumns
	layout  string
	skipHdr bool
	read    int
}

// CSVOption configures a CSV feed beyond the required reader and column
// layout.
type CSVOption func(*csvFeed)

// WithTimeLayout sets the time.Parse layout used for the time column.
// Defaults to time.RFC3339.
func WithTimeLayout(layout string) CSVOption {
	return func(f *csvFeed) { f.layout = layout }
}

// WithHeaderRow skips the first row read, for files with a header line.
func WithHeaderRow() CSVOption {
	return func(f *csvFeed) { f.skipHdr = true }
}

// NewCSVFeed returns a Factory reading ticks from r according to cols.
// The returned DataFeed takes ownership of r if it implements io.Closer,
// closing it once Next first returns io.EOF or any other error.
func NewCSVFeed(r io.Reader, cols CSVColumns, opts ...CSVOption) Factory {
	return func() (DataFeed, error) {
		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		f := &csvFeed{r: reader, cols: cols, layout: time.RFC3339}
		if c, ok := r.(io.Closer); ok {
			f.closer = c
		}
		for _, opt := range opts {
			opt(f)
		}
		if f.skipHdr {
			if _, err := f.r.Read(); err != nil && err != io.EOF {
				return nil, errors.Wrap(err, "csv feed: reading header row")
			}
		}
		return f, nil
	}
}

func (f *csvFeed) Next() (_ models.Tick, err error) {
	defer func() {
		if err != nil && f.closer != nil {
			_ = f.closer.Close()
		}
	}()
	row, err := f.r.Read()
	if err != nil {
		if err == io.EOF {
			return models.Tick{}, io.EOF
		}
		return models.Tick{}, errors.Wrapf(err, "csv feed: reading row %d", f.read+1)
	}
	f.read++

	ts, err := time.Parse(f.layout, row[f.cols.Time])
	if err != nil {
		return models.Tick{}, errors.Wrapf(err, "csv feed: row %d: parsing time %q", f.read, row[f.cols.Time])
	}

	tick := models.Tick{Time: ts}
	if tick.Bid, err = optionalFloat(row, f.cols.Bid); err != nil {
		return models.Tick{}, errors.Wrapf(err, "csv feed: row %d: bid", f.read)
	}
	if tick.Ask, err = optionalFloat(row, f.cols.Ask); err != nil {
		return models.Tick{}, errors.Wrapf(err, "csv feed: row %d: ask", f.read)
	}
	if tick.BidVolume, err = optionalFloat(row, f.cols.BidVolume); err != nil {
		return models.Tick{}, errors.Wrapf(err, "csv feed: row %d: bid_volume", f.read)
	}
	if tick.AskVolume, err = optionalFloat(row, f.cols.AskVolume); err != nil {
		return models.Tick{}, errors.Wrapf(err, "csv feed: row %d: ask_volume", f.read)
	}
	return tick, nil
}

// optionalFloat parses row[col] as a float64, returning nil if col is
// negative (the column doesn't exist in this layout) or the cell is
// empty (the field wasn't reported for this row).
func optionalFloat(row []string, col int) (*float64, error) {
	if col < 0 || col >= len(row) || row[col] == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(row[col], 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
