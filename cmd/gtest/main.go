package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/xplshn/gprev/pkg/compiler"
	"github.com/xplshn/gprev/pkg/interp"
	"github.com/xplshn/gprev/pkg/linear"
	"github.com/xplshn/gprev/pkg/samples"
)

// Execution is the observable outcome of one run
type Execution struct {
	Return int64  `json:"return"`
	Fault  string `json:"fault,omitempty"`
	Output string `json:"output,omitempty"`
	Digest string `json:"digest"`
}

type SampleResult struct {
	Sample   string        `json:"sample"`
	Status   string        `json:"status"` // PASS, FAIL, NEW, ERROR
	Message  string        `json:"message,omitempty"`
	Diff     string        `json:"diff,omitempty"`
	Code     string        `json:"code_hash"`
	Linear   Execution     `json:"linear"`
	Tree     Execution     `json:"tree"`
	Duration time.Duration `json:"duration"`
}

// golden is what gets stored per sample
type golden struct {
	Sample string    `json:"sample"`
	Code   string    `json:"code_hash"`
	Result Execution `json:"result"`
}

var (
	goldenDir  = flag.String("dir", "testdata/golden", "Directory to store/read golden JSON files.")
	update     = flag.Bool("update", false, "Rewrite golden files with the current results.")
	only       = flag.String("run", "", "Only test samples whose name contains one of these substrings (space-separated).")
	jobs       = flag.Int("j", 4, "Number of parallel test jobs.")
	memSize    = flag.Int64("memory-size", interp.DefaultMemorySize, "Interpreter memory size in bytes.")
	depth      = flag.Int("stack-depth", interp.DefaultMaxDepth, "Interpreter call depth limit.")
	outputJSON = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	verbose    = flag.Bool("v", false, "Enable verbose logging.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	if *jobs < 1 {
		*jobs = 1
	}
	if err := os.MkdirAll(*goldenDir, 0o755); err != nil {
		log.Fatalf("%s[ERROR]%s Failed to create golden directory: %v\n", cRed, cNone, err)
	}

	var selected []samples.Sample
	for _, s := range samples.All() {
		if matches(s.Name) {
			selected = append(selected, s)
		}
	}
	if len(selected) == 0 {
		log.Fatalf("%s[ERROR]%s No samples match '%s'\n", cRed, cNone, *only)
	}

	results := make([]*SampleResult, len(selected))
	var wg sync.WaitGroup
	sem := make(chan struct{}, *jobs)
	for i, s := range selected {
		wg.Add(1)
		go func(i int, s samples.Sample) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = testSample(s)
			if *verbose {
				log.Printf("%s[%s]%s %s\n", cCyan, results[i].Status, cNone, s.Name)
			}
		}(i, s)
	}
	wg.Wait()

	printSummary(results)
	writeJSONReport(results)
	for _, r := range results {
		if r.Status == "FAIL" || r.Status == "ERROR" {
			os.Exit(1)
		}
	}
}

func matches(name string) bool {
	if *only == "" {
		return true
	}
	for _, pat := range strings.Fields(*only) {
		if strings.Contains(name, pat) {
			return true
		}
	}
	return false
}

func getJSONPath(sample string) string {
	return filepath.Join(*goldenDir, "."+sample+".json")
}

// hashCode computes the xxhash of the linearized code, so that golden files
// record which code generation they were produced with
func hashCode(p *linear.Program) string {
	var buf bytes.Buffer
	linear.Dump(&buf, p)
	return strconv.FormatUint(xxhash.Sum64(buf.Bytes()), 16)
}

func execute(p *linear.Program, arg int64) Execution {
	var out bytes.Buffer
	m, err := interp.New(p, interp.Options{MemorySize: *memSize, MaxDepth: *depth, Output: &out})
	if err != nil {
		return Execution{Fault: err.Error()}
	}
	ret, err := m.Run(compiler.EntryName, arg)
	ex := Execution{Return: ret, Output: out.String(), Digest: strconv.FormatUint(m.Digest(), 16)}
	var fault *interp.Fault
	if errors.As(err, &fault) {
		ex.Fault = fault.Kind.String()
	} else if err != nil {
		ex.Fault = err.Error()
	}
	return ex
}

func testSample(s samples.Sample) *SampleResult {
	start := time.Now()
	res := &SampleResult{Sample: s.Name}
	defer func() { res.Duration = time.Since(start) }()

	unit, err := compiler.New(s.Build())
	if err != nil {
		res.Status, res.Message = "ERROR", err.Error()
		return res
	}
	unit.LayOut()
	unit.Generate()
	// Tree form is indexed by Generate, before Linearize rewrites the chunks
	tree := unit.Tree
	unit.Linearize()

	res.Code = hashCode(unit.Linear)
	res.Tree = execute(tree, s.Arg)
	res.Linear = execute(unit.Linear, s.Arg)

	if diff := cmp.Diff(res.Tree, res.Linear); diff != "" {
		res.Status, res.Message, res.Diff = "FAIL", "tree and linear execution differ", diff
		return res
	}

	path := getJSONPath(s.Name)
	want := golden{Sample: s.Name, Code: res.Code, Result: res.Linear}
	data, err := os.ReadFile(path)
	if *update || errors.Is(err, os.ErrNotExist) {
		if err := writeGolden(path, want); err != nil {
			res.Status, res.Message = "ERROR", err.Error()
			return res
		}
		res.Status = "NEW"
		if *update {
			res.Status = "PASS"
		}
		return res
	}
	if err != nil {
		res.Status, res.Message = "ERROR", err.Error()
		return res
	}

	var got golden
	if err := json.Unmarshal(data, &got); err != nil {
		res.Status, res.Message = "ERROR", fmt.Sprintf("corrupt golden file %s: %v", path, err)
		return res
	}
	if diff := cmp.Diff(got.Result, res.Linear); diff != "" {
		res.Status, res.Message, res.Diff = "FAIL", "result differs from golden file", diff
		return res
	}
	res.Status = "PASS"
	if got.Code != res.Code {
		res.Message = "generated code changed, results unchanged"
	}
	return res
}

func writeGolden(path string, g golden) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func printSummary(results []*SampleResult) {
	sort.Slice(results, func(i, j int) bool { return results[i].Sample < results[j].Sample })
	counts := map[string]int{}
	for _, r := range results {
		counts[r.Status]++
		color := cGreen
		switch r.Status {
		case "FAIL", "ERROR":
			color = cRed
		case "NEW":
			color = cYellow
		}
		line := fmt.Sprintf("%s[%s]%s %-12s %8s", color, r.Status, cNone, r.Sample, r.Duration.Round(time.Microsecond))
		if r.Linear.Fault != "" {
			line += fmt.Sprintf("  fault: %s", r.Linear.Fault)
		} else {
			line += fmt.Sprintf("  return: %d", r.Linear.Return)
		}
		if r.Message != "" {
			line += "  (" + r.Message + ")"
		}
		fmt.Println(line)
		if r.Diff != "" {
			fmt.Println(formatDiff(r.Diff))
		}
	}
	fmt.Printf("\n%s%d passed, %d failed, %d new, %d errors%s\n", cBold, counts["PASS"], counts["FAIL"], counts["NEW"], counts["ERROR"], cNone)
}

func formatDiff(diff string) string {
	var sb strings.Builder
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(strings.TrimSpace(line), "-"):
			sb.WriteString(cRed + "    " + line + cNone + "\n")
		case strings.HasPrefix(strings.TrimSpace(line), "+"):
			sb.WriteString(cGreen + "    " + line + cNone + "\n")
		default:
			sb.WriteString("    " + line + "\n")
		}
	}
	return sb.String()
}

func writeJSONReport(results []*SampleResult) {
	report := make(map[string]*SampleResult, len(results))
	for _, r := range results {
		report[r.Sample] = r
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Printf("%s[WARN]%s could not encode report: %v\n", cYellow, cNone, err)
		return
	}
	if err := os.WriteFile(*outputJSON, data, 0o644); err != nil {
		log.Printf("%s[WARN]%s could not write report: %v\n", cYellow, cNone, err)
	}
}
