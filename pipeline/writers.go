package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/aluiziolira/go-scrape-operators/models"
)

// JSONWriter writes the whole collection as a single JSON array.
type JSONWriter struct {
	filename string
	pretty   bool
	written  int
	mu       sync.Mutex
}

// NewJSONWriter prepares a JSON writer for filename. Nothing touches the
// disk until Write.
func NewJSONWriter(filename string, pretty bool) *JSONWriter {
	return &JSONWriter{filename: filename, pretty: pretty, written: -1}
}

// Write truncates the output file and encodes operators into it.
func (jw *JSONWriter) Write(operators []*models.Operator) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if operators == nil {
		operators = []*models.Operator{}
	}

	if err := ensureDir(jw.filename); err != nil {
		return err
	}
	f, err := os.Create(jw.filename)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	if jw.pretty {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(operators); err != nil {
		f.Close()
		return fmt.Errorf("encode json records: %w", err)
	}
	if err := buffer.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush json writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close json file: %w", err)
	}

	jw.written = len(operators)
	return nil
}

// Close is a no-op; Write owns the file handle for its whole lifetime.
func (jw *JSONWriter) Close() error {
	return nil
}

// Validate re-reads the file and checks it holds the written array.
func (jw *JSONWriter) Validate() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.written < 0 {
		return fmt.Errorf("json file %s was never written", jw.filename)
	}

	f, err := os.Open(jw.filename)
	if err != nil {
		return fmt.Errorf("open json file: %w", err)
	}
	defer f.Close()

	var records []json.RawMessage
	if err := json.NewDecoder(f).Decode(&records); err != nil {
		return fmt.Errorf("decode json file: %w", err)
	}
	if len(records) != jw.written {
		return fmt.Errorf("json file holds %d records, wrote %d", len(records), jw.written)
	}
	return nil
}

var csvHeader = []string{
	"name", "pretty_name", "side", "real_name", "date_of_birth", "place_of_birth",
	"squad", "armor", "speed", "difficulty", "roles",
	"primary", "secondary", "gadgets", "unique", "url",
}

// CSVWriter writes one flattened row per operator.
type CSVWriter struct {
	filename string
	written  int
	mu       sync.Mutex
}

// NewCSVWriter prepares a CSV writer for filename.
func NewCSVWriter(filename string) *CSVWriter {
	return &CSVWriter{filename: filename, written: -1}
}

// Write truncates the output file and writes the header plus one row per operator.
func (cw *CSVWriter) Write(operators []*models.Operator) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if err := ensureDir(cw.filename); err != nil {
		return err
	}
	f, err := os.Create(cw.filename)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(csvHeader); err != nil {
		f.Close()
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, op := range operators {
		if err := writer.Write(csvRecord(op)); err != nil {
			f.Close()
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush csv records: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close csv file: %w", err)
	}

	cw.written = len(operators)
	return nil
}

// Close is a no-op; Write owns the file handle for its whole lifetime.
func (cw *CSVWriter) Close() error {
	return nil
}

// Validate re-reads the file and checks the header and row count.
func (cw *CSVWriter) Validate() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.written < 0 {
		return fmt.Errorf("csv file %s was never written", cw.filename)
	}

	f, err := os.Open(cw.filename)
	if err != nil {
		return fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return fmt.Errorf("read csv file: %w", err)
	}
	if len(rows) == 0 || rows[0][0] != csvHeader[0] {
		return fmt.Errorf("csv file is missing its header")
	}
	if len(rows)-1 != cw.written {
		return fmt.Errorf("csv file holds %d rows, wrote %d", len(rows)-1, cw.written)
	}
	return nil
}

func csvRecord(op *models.Operator) []string {
	info := op.Info
	unique := ""
	if op.Loadout.Unique != nil {
		unique = op.Loadout.Unique.Name
	}
	return []string{
		info.Name,
		info.PrettyName,
		info.Side,
		cell(info.RealName),
		cell(info.DateOfBirth),
		cell(info.PlaceOfBirth),
		cell(info.Squad),
		cell(info.Stats.Armor),
		cell(info.Stats.Speed),
		cell(info.Stats.Difficulty),
		cell(info.Roles),
		entryNames(op.Loadout.Primary),
		entryNames(op.Loadout.Secondary),
		entryNames(op.Loadout.Gadgets),
		unique,
		info.URL,
	}
}

func entryNames(entries []models.LoadoutEntry) string {
	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.Name
	}
	return strings.Join(names, ";")
}

// cell renders a loosely typed payload value for a CSV column.
func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = cell(item)
		}
		return strings.Join(parts, ";")
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(raw)
	}
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
