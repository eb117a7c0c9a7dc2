package etl

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"coupang-review-harvester/internal/models"
)

// Importer reads a pre-harvested tabular file into raw records so the
// normal Normalizer → Store path applies. Columns are matched by header
// name; missing columns degrade to "" like any other absent field.
type Importer struct {
	logger *slog.Logger
}

func NewImporter(logger *slog.Logger) *Importer {
	return &Importer{logger: logger.With("component", "importer")}
}

func (i *Importer) ImportFile(path string) ([]models.RawReview, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	return i.importCSV(f)
}

func (i *Importer) importCSV(r io.Reader) ([]models.RawReview, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for pos, name := range header {
		index[name] = pos
	}

	var raws []models.RawReview
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			i.logger.Warn("skipping malformed row", "line", line, "error", err)
			continue
		}

		field := func(name string) string {
			pos, ok := index[name]
			if !ok || pos >= len(record) {
				return ""
			}
			return record[pos]
		}

		page, _ := strconv.Atoi(field("review_page"))

		raws = append(raws, models.RawReview{
			Product: models.ProductContext{
				Name:      field("product_name"),
				Brand:     field("brand"),
				Price:     field("price"),
				ProductID: field("coupang_product_id"),
				Option:    field("option"),
			},
			Title:            field("review_title"),
			Content:          field("review_content"),
			Page:             page,
			Author:           field("author"),
			Rating:           field("rating"),
			WrittenAt:        field("created_at"),
			Seller:           field("seller"),
			PurchasedProduct: field("actual_purchase_product_name"),
			Images:           field("images"),
			Survey:           field("survey_response"),
			HelpfulCount:     field("helpful_count"),
		})
	}

	i.logger.Info("imported rows", "count", len(raws))
	return raws, nil
}
