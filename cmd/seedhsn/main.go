// Command seedhsn imports the GST HSN/SAC Excel master. It either writes a SQL
// seed file or upserts the rows straight into hsn_codes.
//
// Usage:
//
//	go run ./cmd/seedhsn -xlsx master.xlsx -out db/seeds/hsn_codes.sql
//	go run ./cmd/seedhsn -xlsx master.xlsx -db
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"invscreen/internal/config"
	"invscreen/internal/logger"
	"invscreen/internal/port"
	"invscreen/internal/repository/postgres"
)

const sqlBatchSize = 500

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	xlsxPath := flag.String("xlsx", "", "path to the GST HSN/SAC master workbook")
	outPath := flag.String("out", "db/seeds/hsn_codes.sql", "SQL seed file to write")
	toDB := flag.Bool("db", false, "upsert into the database instead of writing a seed file")
	flag.Parse()
	if *xlsxPath == "" {
		flag.Usage()
		return fmt.Errorf("-xlsx is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	zl, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()
	zl = zl.Named("seedhsn")

	f, err := excelize.OpenFile(*xlsxPath)
	if err != nil {
		return fmt.Errorf("open Excel file: %w", err)
	}
	defer func() { _ = f.Close() }()

	entries, err := readMaster(f, zl)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if *toDB {
		db, err := postgres.NewDB(ctx, &cfg.DB)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		n, err := postgres.NewHSNRepo(db).Upsert(ctx, entries)
		if err != nil {
			return err
		}
		zl.Info("hsn master upserted", zap.Int("rows", n))
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	out, err := os.Create(*outPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() { _ = out.Close() }()

	if err := writeSeed(out, entries); err != nil {
		return err
	}
	zl.Info("seed file written", zap.String("path", *outPath), zap.Int("rows", len(entries)))
	return nil
}

// readMaster reads the goods sheet (first sheet) and the SAC_Master sheet.
func readMaster(f *excelize.File, zl *zap.Logger) ([]port.HSNEntry, error) {
	seen := make(map[string]bool)

	goodsRows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read HSN sheet: %w", err)
	}
	goods := parseGoods(goodsRows, seen)
	zl.Info("HSN sheet parsed", zap.Int("entries", len(goods)))

	sacRows, err := f.GetRows("SAC_Master")
	if err != nil {
		return nil, fmt.Errorf("read SAC sheet: %w", err)
	}
	services := parseServices(sacRows, seen)
	zl.Info("SAC sheet parsed", zap.Int("entries", len(services)))

	return append(goods, services...), nil
}

// Goods sheet layout: F=4-digit code, H=its description, I=6-digit code,
// J=its description, K=8-digit code, M=its description, N=GST rate. Data from row 6.
const (
	goodsFirstRow = 5
	colCode4      = 5
	colDesc4      = 7
	colCode6      = 8
	colDesc6      = 9
	colCode8      = 10
	colDesc8      = 12
	colGoodsRate  = 13
)

func parseGoods(rows [][]string, seen map[string]bool) []port.HSNEntry {
	var entries []port.HSNEntry
	for i := goodsFirstRow; i < len(rows); i++ {
		row := rows[i]
		rate, err := strconv.ParseFloat(strings.TrimSuffix(cell(row, colGoodsRate), "%"), 64)
		if err != nil {
			continue
		}
		for _, pair := range [][2]int{{colCode8, colDesc8}, {colCode6, colDesc6}, {colCode4, colDesc4}} {
			entries = add(entries, seen, cell(row, pair[0]), cell(row, pair[1]), rate, "")
		}
	}
	return entries
}

// SAC sheet layout: A=4-digit code, B=its description, C=6-digit code,
// D=its description, E=free-text rate. Data from row 4.
const sacFirstRow = 3

func parseServices(rows [][]string, seen map[string]bool) []port.HSNEntry {
	var entries []port.HSNEntry
	for i := sacFirstRow; i < len(rows); i++ {
		row := rows[i]
		for _, r := range parseSACRate(cell(row, 4)) {
			entries = add(entries, seen, cell(row, 2), cell(row, 3), r.rate, r.condition)
			entries = add(entries, seen, cell(row, 0), cell(row, 1), r.rate, r.condition)
		}
	}
	return entries
}

type sacRate struct {
	rate      float64
	condition string
}

// ratePattern matches "18%" with an optional parenthesised condition.
var ratePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%\s*(?:\(([^)]*)\))?`)

// parseSACRate extracts the rates from free text such as "18%", "Exempt",
// "12%-18%" or "1% (without ITC) or 5% (without ITC)".
func parseSACRate(s string) []sacRate {
	switch strings.ToLower(s) {
	case "":
		return nil
	case "exempt", "nil":
		return []sacRate{{rate: 0, condition: "exempt"}}
	}

	seen := make(map[float64]bool)
	var out []sacRate
	for _, m := range ratePattern.FindAllStringSubmatch(s, -1) {
		rate, err := strconv.ParseFloat(m[1], 64)
		if err != nil || seen[rate] {
			continue
		}
		seen[rate] = true
		out = append(out, sacRate{rate: rate, condition: strings.TrimSpace(m[2])})
	}
	return out
}

func add(entries []port.HSNEntry, seen map[string]bool, code, description string, rate float64, condition string) []port.HSNEntry {
	if !isNumeric(code) {
		return entries
	}
	key := fmt.Sprintf("%s|%.2f|%s", code, rate, condition)
	if seen[key] {
		return entries
	}
	seen[key] = true
	return append(entries, port.HSNEntry{Code: code, Description: description, GSTRate: rate, ConditionDesc: condition})
}

// writeSeed writes entries as batched multi-row INSERTs in one transaction.
func writeSeed(w io.Writer, entries []port.HSNEntry) error {
	if _, err := fmt.Fprintf(w, "-- HSN/SAC master: %d entries in batches of %d.\nBEGIN;\n", len(entries), sqlBatchSize); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for start := 0; start < len(entries); start += sqlBatchSize {
		end := min(start+sqlBatchSize, len(entries))
		var b strings.Builder
		b.WriteString("\nINSERT INTO hsn_codes (code, description, gst_rate, condition_desc, parent_code) VALUES\n")
		for i, e := range entries[start:end] {
			if i > 0 {
				b.WriteString(",\n")
			}
			parent := "NULL"
			if len(e.Code) > 4 {
				parent = quote(e.Code[:4])
			}
			fmt.Fprintf(&b, "  (%s, %s, %.2f, %s, %s)",
				quote(e.Code), quote(e.Description), e.GSTRate, quote(e.ConditionDesc), parent)
		}
		b.WriteString("\nON CONFLICT (code, gst_rate, condition_desc) DO NOTHING;\n")
		if _, err := io.WriteString(w, b.String()); err != nil {
			return fmt.Errorf("write batch at offset %d: %w", start, err)
		}
	}
	if _, err := io.WriteString(w, "\nCOMMIT;\n"); err != nil {
		return fmt.Errorf("write footer: %w", err)
	}
	return nil
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
