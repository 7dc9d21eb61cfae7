package writer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"slices"
	"strings"
	"time"

	"intradaytick/metrics"
	"intradaytick/models"
	"intradaytick/utils"
)

const dateLayout = "2006-01-02"

// DailyCSV appends tick rows to one CSV file per (security, date). The file
// is switched whenever the date of an incoming tick differs from the date
// being written.
type DailyCSV struct {
	dir      string
	security string

	file        *os.File
	w           *csv.Writer
	currentDate string
	files       []string
}

func NewDailyCSV(dir, security string) *DailyCSV {
	return &DailyCSV{dir: dir, security: security}
}

var fileNameReplacer = strings.NewReplacer(" ", "-", "/", "-", `\`, "-")

// FileName is <security, spaces and path separators as '-'>_<YYYY-MM-DD>.csv.
func FileName(security, date string) string {
	return fileNameReplacer.Replace(security) + "_" + date + ".csv"
}

// FormatRow renders time,type,value,size with the value to three decimals.
func FormatRow(row models.TickRow) []string {
	return []string{
		row.Time,
		row.Type,
		strconv.FormatFloat(row.Value, 'f', 3, 64),
		strconv.FormatInt(int64(row.Size), 10),
	}
}

// WriteRows writes rows in order and flushes once at the end.
func (d *DailyCSV) WriteRows(rows []models.TickRow) error {
	for _, row := range rows {
		if err := d.Write(row); err != nil {
			return err
		}
	}
	return d.Flush()
}

func (d *DailyCSV) Write(row models.TickRow) error {
	date := row.Date()
	if _, err := time.Parse(dateLayout, date); err != nil {
		return fmt.Errorf("invalid tick time %q: %w", row.Time, err)
	}
	if d.file == nil || date != d.currentDate {
		if err := d.rotate(date); err != nil {
			return err
		}
	}
	if err := d.w.Write(FormatRow(row)); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	metrics.RecordTickWritten(row.Type)
	return nil
}

func (d *DailyCSV) Flush() error {
	if d.w == nil {
		return nil
	}
	d.w.Flush()
	if err := d.w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", d.file.Name(), err)
	}
	return nil
}

// Files lists every file opened so far, in order.
func (d *DailyCSV) Files() []string {
	return append([]string(nil), d.files...)
}

func (d *DailyCSV) Close() error {
	if d.file == nil {
		return nil
	}
	flushErr := d.Flush()
	closeErr := d.file.Close()
	d.file, d.w = nil, nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

func (d *DailyCSV) rotate(date string) error {
	if err := d.Close(); err != nil {
		return err
	}

	path := filepath.Join(d.dir, FileName(d.security, date))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	d.file = f
	d.w = csv.NewWriter(f)
	d.currentDate = date
	if !slices.Contains(d.files, path) {
		d.files = append(d.files, path)
	}

	metrics.RecordFileOpened()
	utils.Logger.Infow("Writing ticks", "file", path, "date", date)
	return nil
}
