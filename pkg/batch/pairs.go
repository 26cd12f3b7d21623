// Package batch implements the CLI's file-pair inference and the
// bounded worker pool that processes them — the external "process each
// input to an output" collaborator spec.md §1 calls out as out of
// core scope, kept here as the thin driver around it.
//
// Grounded on the original's utils.py cli_file_pairs/foreach_file_pair:
// an input that is a file is used as-is (inferring the output name by
// swapping extensions); an input directory is walked and every matched
// file gets a corresponding output path under the output directory.
package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Pair is one input/output file mapping.
type Pair struct {
	Input  string
	Output string
}

// FilePairs resolves the CLI's input/output arguments into a list of
// Pairs, exactly as the original's cli_file_pairs does: a bare file
// input/output pair is used as-is; a directory input is walked
// (recursively when recursive is true) and every file whose lowercased
// name ends in inExt gets an output path under outputDir with inExt
// replaced by outExt, preserving the relative path.
func FilePairs(input, output, inExt, outExt string, recursive bool) ([]Pair, error) {
	if input == "" {
		input = "."
	}
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}

	if !info.IsDir() {
		inferred := inferOutput(filepath.Base(input), inExt, outExt)
		out := output
		switch {
		case out == "":
			out = filepath.Join(filepath.Dir(input), inferred)
		case isDirPath(out):
			out = filepath.Join(out, inferred)
		}
		return []Pair{{Input: input, Output: out}}, nil
	}

	outputDir := output
	if outputDir == "" {
		outputDir = input
	}
	if st, err := os.Stat(outputDir); err == nil && !st.IsDir() {
		return nil, fmt.Errorf("batch: output path exists but is not a directory: %s", outputDir)
	}

	var rels []string
	walker := walkShallow
	if recursive {
		walker = walkRecursive
	}
	if err := walker(input, func(rel string) { rels = append(rels, rel) }); err != nil {
		return nil, err
	}
	sort.Strings(rels)

	var pairs []Pair
	for _, rel := range rels {
		if inExt != "" && !strings.HasSuffix(strings.ToLower(rel), strings.ToLower(inExt)) {
			continue
		}
		outRel := inferOutput(rel, inExt, outExt)
		pairs = append(pairs, Pair{
			Input:  filepath.Join(input, rel),
			Output: filepath.Join(outputDir, outRel),
		})
	}
	return pairs, nil
}

func inferOutput(name, inExt, outExt string) string {
	if inExt != "" && strings.HasSuffix(strings.ToLower(name), strings.ToLower(inExt)) {
		name = name[:len(name)-len(inExt)]
	}
	return name + outExt
}

func isDirPath(p string) bool {
	if p == "" {
		return false
	}
	st, err := os.Stat(p)
	if err == nil {
		return st.IsDir()
	}
	return strings.HasSuffix(p, string(filepath.Separator))
}

func walkShallow(dir string, yield func(rel string)) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("batch: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		yield(e.Name())
	}
	return nil
}

func walkRecursive(dir string, yield func(rel string)) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		yield(rel)
		return nil
	})
}
