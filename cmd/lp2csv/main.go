// Command lp2csv batch-converts line protocol files to CSV.
//
// Every regular file in the input directory becomes a <basename>.csv in
// the output directory. Files with no valid records are skipped.
package main

import (
	"flag"
	"log"
	"path/filepath"

	"github.com/nicktill/linecsv/pkg/convert"
)

func main() {
	inputDir := flag.String("input", "./input", "directory containing line protocol files")
	outputDir := flag.String("output", "./output", "directory to write CSV files into")
	flag.Parse()

	absInput, err := filepath.Abs(*inputDir)
	if err != nil {
		log.Fatalf("❌ Invalid input directory: %v", err)
	}
	absOutput, err := filepath.Abs(*outputDir)
	if err != nil {
		log.Fatalf("❌ Invalid output directory: %v", err)
	}

	log.Println("🚀 Starting line protocol to CSV conversion...")
	log.Printf("📁 Input directory:  %s", absInput)
	log.Printf("📁 Output directory: %s", absOutput)

	summary, err := convert.ConvertDirectory(absInput, absOutput)
	if err != nil {
		log.Fatalf("❌ Conversion failed: %v", err)
	}

	log.Println("--- Conversion Summary ---")
	log.Printf("✅ Files converted: %d", summary.Processed)
	log.Printf("⚠️  Files skipped:   %d", summary.Skipped)
	log.Println("👋 Conversion process finished")
}
