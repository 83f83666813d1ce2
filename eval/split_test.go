package eval

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestSplitRatios(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	makeClassImages(t, root, "daisy", 5)
	makeClassImages(t, root, "tulip", 10)

	samples, err := IndexDataset(root)
	if err != nil {
		t.Fatalf("IndexDataset returned error: %v", err)
	}

	dest := t.TempDir()
	trainRoot := filepath.Join(dest, "train")
	valRoot := filepath.Join(dest, "val")
	testRoot := filepath.Join(dest, "test")

	result := Split(samples, trainRoot, valRoot, testRoot, NewSplitter(42))

	daisy := result.Classes["daisy"]
	if daisy.Train != 3 || daisy.Val != 1 || daisy.Test != 1 {
		t.Fatalf("expected 3/1/1 for 5 daisy images, got %d/%d/%d", daisy.Train, daisy.Val, daisy.Test)
	}

	tulip := result.Classes["tulip"]
	if tulip.Train != 6 || tulip.Val != 2 || tulip.Test != 2 {
		t.Fatalf("expected 6/2/2 for 10 tulip images, got %d/%d/%d", tulip.Train, tulip.Val, tulip.Test)
	}

	if len(result.Skipped) != 0 {
		t.Fatalf("unexpected skipped files: %v", result.Skipped)
	}
}

func TestSplitPartitionsAreDisjointAndComplete(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	makeClassImages(t, root, "rose", 7)

	samples, err := IndexDataset(root)
	if err != nil {
		t.Fatalf("IndexDataset returned error: %v", err)
	}

	dest := t.TempDir()
	trainRoot := filepath.Join(dest, "train")
	valRoot := filepath.Join(dest, "val")
	testRoot := filepath.Join(dest, "test")

	Split(samples, trainRoot, valRoot, testRoot, NewSplitter(7))

	seen := make(map[string]string)
	total := 0
	for _, subset := range []string{trainRoot, valRoot, testRoot} {
		files, err := os.ReadDir(filepath.Join(subset, "rose"))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			t.Fatal(err)
		}
		for _, file := range files {
			if prev, dup := seen[file.Name()]; dup {
				t.Fatalf("file %s assigned to both %s and %s", file.Name(), prev, subset)
			}
			seen[file.Name()] = subset
			total++
		}
	}

	if total != len(samples) {
		t.Fatalf("expected union of subsets to hold %d files, got %d", len(samples), total)
	}
}

func TestSplitTinyClassBestEffort(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	makeClassImages(t, root, "orchid", 2)

	samples, err := IndexDataset(root)
	if err != nil {
		t.Fatalf("IndexDataset returned error: %v", err)
	}

	dest := t.TempDir()
	result := Split(samples,
		filepath.Join(dest, "train"), filepath.Join(dest, "val"), filepath.Join(dest, "test"),
		NewSplitter(1))

	counts := result.Classes["orchid"]
	// floor(2*0.6)=1 train, floor(2*0.2)=0 val, remainder to test.
	if counts.Train != 1 || counts.Val != 0 || counts.Test != 1 {
		t.Fatalf("expected 1/0/1 for 2 images, got %d/%d/%d", counts.Train, counts.Val, counts.Test)
	}
	if counts.Train+counts.Val+counts.Test != 2 {
		t.Fatalf("tiny class lost samples: %+v", counts)
	}
}

func TestSplitDeterministicForSeed(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	makeClassImages(t, root, "daisy", 10)

	samples, err := IndexDataset(root)
	if err != nil {
		t.Fatalf("IndexDataset returned error: %v", err)
	}

	destA := t.TempDir()
	destB := t.TempDir()
	Split(samples, filepath.Join(destA, "train"), filepath.Join(destA, "val"), filepath.Join(destA, "test"), NewSplitter(99))
	Split(samples, filepath.Join(destB, "train"), filepath.Join(destB, "val"), filepath.Join(destB, "test"), NewSplitter(99))

	for _, subset := range []string{"train", "val", "test"} {
		filesA := listNames(t, filepath.Join(destA, subset, "daisy"))
		filesB := listNames(t, filepath.Join(destB, subset, "daisy"))
		if len(filesA) != len(filesB) {
			t.Fatalf("subset %s differs in size between identical seeds", subset)
		}
		for i := range filesA {
			if filesA[i] != filesB[i] {
				t.Fatalf("subset %s differs in membership between identical seeds", subset)
			}
		}
	}
}

func TestSplitCopyFailureSkipsFilesOnly(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	makeClassImages(t, root, "daisy", 5)

	samples, err := IndexDataset(root)
	if err != nil {
		t.Fatalf("IndexDataset returned error: %v", err)
	}

	dest := t.TempDir()
	trainRoot := filepath.Join(dest, "train")
	valRoot := filepath.Join(dest, "val")
	testRoot := filepath.Join(dest, "test")

	// Occupy the train class path with a plain file so every copy into it
	// fails while val and test stay writable.
	if err := os.MkdirAll(trainRoot, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(trainRoot, "daisy"), []byte("in the way"), 0644); err != nil {
		t.Fatal(err)
	}

	result := Split(samples, trainRoot, valRoot, testRoot, NewSplitter(42))

	counts := result.Classes["daisy"]
	if counts.Train != 0 {
		t.Fatalf("expected no train copies to land, got %d", counts.Train)
	}
	if counts.Val != 1 || counts.Test != 1 {
		t.Fatalf("val/test should still materialize, got %d/%d", counts.Val, counts.Test)
	}
	if len(result.Skipped) != 3 {
		t.Fatalf("expected the 3 train-bound files skipped, got %v", result.Skipped)
	}

	if files := listNames(t, filepath.Join(valRoot, "daisy")); len(files) != 1 {
		t.Fatalf("expected 1 file in val subset, got %d", len(files))
	}
	if files := listNames(t, filepath.Join(testRoot, "daisy")); len(files) != 1 {
		t.Fatalf("expected 1 file in test subset, got %d", len(files))
	}
}

func makeClassImages(t *testing.T, root, class string, count int) {
	t.Helper()
	dir := filepath.Join(root, class)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < count; i++ {
		name := filepath.Join(dir, fmt.Sprintf("img%03d.jpg", i))
		if err := os.WriteFile(name, []byte("fixture"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}
