package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"gstr2b-reconciler/internal/gateway"
	"gstr2b-reconciler/internal/normalize"
	"gstr2b-reconciler/internal/usecase"
)

func main() {
	booksStr := flag.String("books", "", "Comma-separated purchase register files (.xlsx/.csv/.json) (required)")
	gstr2bStr := flag.String("gstr2b", "", "Comma-separated GSTR-2B statement files (.xlsx/.csv/.json) (required)")
	outPath := flag.String("out", "", "Path for the xlsx report (optional; JSON always goes to stdout)")
	booksMapPath := flag.String("books-mapping", "", "JSON file mapping canonical fields to books column headers (optional)")
	gstr2bMapPath := flag.String("gstr2b-mapping", "", "JSON file mapping canonical fields to GSTR-2B column headers (optional)")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if *booksStr == "" || *gstr2bStr == "" {
		fmt.Println("Error: flags -books and -gstr2b are required.")
		flag.Usage()
		os.Exit(1)
	}

	booksMapping, err := readMapping(*booksMapPath)
	if err != nil {
		log.Fatalf("Error reading books mapping: %v", err)
	}
	gstr2bMapping, err := readMapping(*gstr2bMapPath)
	if err != nil {
		log.Fatalf("Error reading GSTR-2B mapping: %v", err)
	}

	// Manual wiring, same as the rest of the app: gateway in, usecase on top.
	rows := gateway.NewFileRowSource()
	uc := usecase.NewReconciliationUseCase(rows, log)

	report, err := uc.Reconcile(
		context.Background(),
		strings.Split(*booksStr, ","),
		strings.Split(*gstr2bStr, ","),
		booksMapping,
		gstr2bMapping,
	)
	if err != nil {
		log.Fatalf("Reconciliation failed: %v", err)
	}

	if *outPath != "" {
		if err := gateway.NewReportWriter().Write(report, *outPath); err != nil {
			log.Fatalf("Failed to write xlsx report: %v", err)
		}
		log.WithField("path", *outPath).Info("xlsx report written")
	}

	output, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("Failed to generate JSON report: %v", err)
	}
	fmt.Println(string(output))
}

func readMapping(path string) (normalize.ColumnMapping, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var mapping normalize.ColumnMapping
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("invalid mapping file %s: %w", path, err)
	}
	return mapping, nil
}
