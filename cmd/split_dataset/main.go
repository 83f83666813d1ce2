package main

import (
	"flag"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oktaw-g/MGR/eval"
)

func main() {
	srcDir := flag.String("src", "", "Dataset root whose subdirectories are class folders")
	destDir := flag.String("dest", "", "Destination root; train/, val/ and test/ are created inside")
	trainDir := flag.String("train", "", "Explicit train destination (overrides -dest)")
	valDir := flag.String("val", "", "Explicit val destination (overrides -dest)")
	testDir := flag.String("test", "", "Explicit test destination (overrides -dest)")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed for the per-class shuffle")
	flag.Parse()

	if *srcDir == "" {
		log.Fatal("Usage: go run ./cmd/split_dataset -src <directory> -dest <directory> [-seed N]\n\n" +
			"Example structure:\n" +
			"  flowers/\n" +
			"    daisy/\n" +
			"      img001.jpg\n" +
			"      img002.jpg\n" +
			"    tulip/\n" +
			"      img001.jpg\n" +
			"      img002.png\n")
	}

	if *destDir != "" {
		if *trainDir == "" {
			*trainDir = filepath.Join(*destDir, "train")
		}
		if *valDir == "" {
			*valDir = filepath.Join(*destDir, "val")
		}
		if *testDir == "" {
			*testDir = filepath.Join(*destDir, "test")
		}
	}
	if *trainDir == "" || *valDir == "" || *testDir == "" {
		log.Fatal("either -dest or all of -train/-val/-test must be given")
	}

	samples, err := eval.IndexDataset(*srcDir)
	if err != nil {
		log.Fatalf("failed to index dataset: %v", err)
	}

	groups := eval.GroupByClass(samples)
	log.Printf("Found %d classes (%d images) in %s:\n", len(groups), len(samples), *srcDir)
	for _, class := range sortedClasses(groups) {
		log.Printf("  - %-20s %d images", class, len(groups[class]))
	}
	log.Println()

	log.Printf("Splitting 60/20/20 with seed %d...\n", *seed)
	result := eval.Split(samples, *trainDir, *valDir, *testDir, eval.NewSplitter(*seed))

	log.Println()
	log.Println("Split result:")
	log.Println(strings.Repeat("-", 60))
	log.Printf("%-20s %7s %7s %7s\n", "Class", "Train", "Val", "Test")
	log.Println(strings.Repeat("-", 60))

	totals := eval.SplitCounts{}
	classes := make([]string, 0, len(result.Classes))
	for class := range result.Classes {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	for _, class := range classes {
		counts := result.Classes[class]
		log.Printf("%-20s %7d %7d %7d\n", class, counts.Train, counts.Val, counts.Test)
		totals.Train += counts.Train
		totals.Val += counts.Val
		totals.Test += counts.Test
	}
	log.Println(strings.Repeat("-", 60))
	log.Printf("%-20s %7d %7d %7d\n", "TOTAL", totals.Train, totals.Val, totals.Test)

	if len(result.Skipped) > 0 {
		log.Printf("\nWARNING: %d files were skipped due to copy errors\n", len(result.Skipped))
	}

	log.Println("\n✓ Dataset split complete")
}

func sortedClasses(groups map[string][]eval.Sample) []string {
	classes := make([]string, 0, len(groups))
	for class := range groups {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	return classes
}
