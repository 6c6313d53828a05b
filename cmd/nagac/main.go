// Command nagac is the naga shader compiler CLI.
//
// Usage:
//
//	nagac [options] <input>
//
// Examples:
//
//	nagac shader.wgsl                    # Compile to SPIR-V on stdout
//	nagac -o shader.spv shader.wgsl      # Compile to SPIR-V
//	nagac -debug shader.wgsl             # Compile with debug info
//	nagac -analyze shader.wgsl           # Print uniformity/global-use analysis as JSON
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/analysis"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"
)

var (
	output      = flag.String("o", "", "output file (default: stdout)")
	debugFlag   = flag.Bool("debug", false, "include debug info")
	validate    = flag.Bool("validate", true, "validate IR")
	analyzeFlag = flag.Bool("analyze", false, "print uniformity and global-use analysis as JSON instead of compiling")
	versionFlag = flag.Bool("version", false, "print version")
)

// version returns the module version from build info.
func version() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}
	return "dev"
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *versionFlag {
		fmt.Printf("nagac version %s\n", version())
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: no input file specified")
		usage()
		os.Exit(1)
	}

	inputPath := args[0]

	// Read input file
	source, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	if *analyzeFlag {
		runAnalyze(inputPath, string(source))
		return
	}

	// Compile WGSL to SPIR-V
	opts := naga.CompileOptions{
		SPIRVVersion: spirv.Version1_3,
		Debug:        *debugFlag,
		Validate:     *validate,
	}
	spirvBytes, err := naga.CompileWithOptions(string(source), opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compilation error: %v\n", err)
		os.Exit(1)
	}

	// Write output
	if *output != "" {
		err = os.WriteFile(*output, spirvBytes, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Successfully compiled %s to %s (%d bytes)\n", inputPath, *output, len(spirvBytes))
	} else {
		_, err = os.Stdout.Write(spirvBytes)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			os.Exit(1)
		}
	}
}

// moduleSummary is the JSON shape printed by -analyze: one entry per
// module function, in IR order, followed by one entry per entry point.
type moduleSummary struct {
	Functions   []functionSummary `json:"functions"`
	EntryPoints []functionSummary `json:"entry_points"`
}

type functionSummary struct {
	Name        string   `json:"name"`
	NonUniform  bool     `json:"non_uniform_result"`
	MayKill     bool     `json:"may_kill"`
	GlobalReads []uint32 `json:"global_reads"`
	GlobalWrite []uint32 `json:"global_writes"`
	GlobalQuery []uint32 `json:"global_queries"`
	Samplings   int      `json:"sampling_pairs"`
}

func summarizeFunction(name string, info *analysis.FunctionInfo) functionSummary {
	s := functionSummary{
		Name:       name,
		NonUniform: info.Uniformity.NonUniformResult != nil,
		MayKill:    info.MayKill,
		Samplings:  len(info.SamplingSet),
	}
	for i := 0; i < info.GlobalVariableCount(); i++ {
		use := info.GlobalUse(ir.GlobalVariableHandle(i))
		if use.Has(analysis.UseRead) {
			s.GlobalReads = append(s.GlobalReads, uint32(i))
		}
		if use.Has(analysis.UseWrite) {
			s.GlobalWrite = append(s.GlobalWrite, uint32(i))
		}
		if use.Has(analysis.UseQuery) {
			s.GlobalQuery = append(s.GlobalQuery, uint32(i))
		}
	}
	return s
}

func runAnalyze(inputPath, source string) {
	ast, err := naga.Parse(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Parse error: %v\n", err)
		os.Exit(1)
	}

	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Lowering error: %v\n", err)
		os.Exit(1)
	}

	if *validate {
		validationErrors, err := naga.Validate(module)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
			os.Exit(1)
		}
		if len(validationErrors) > 0 {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", &validationErrors[0])
			os.Exit(1)
		}
	}

	info, err := naga.Analyze(module)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Analysis error: %v\n", err)
		os.Exit(1)
	}

	summary := moduleSummary{}
	for i := range module.Functions {
		summary.Functions = append(summary.Functions, summarizeFunction(module.Functions[i].Name, info.Function(ir.FunctionHandle(i))))
	}
	for i, ep := range module.EntryPoints {
		summary.EntryPoints = append(summary.EntryPoints, summarizeFunction(ep.Name, info.EntryPoint(i)))
	}

	encoded, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding analysis: %v\n", err)
		os.Exit(1)
	}

	if *output != "" {
		if err := os.WriteFile(*output, encoded, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Successfully analyzed %s, wrote %s\n", inputPath, *output)
		return
	}
	fmt.Println(string(encoded))
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: nagac [options] <input.wgsl>\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  nagac shader.wgsl               Compile to stdout\n")
	fmt.Fprintf(os.Stderr, "  nagac -o shader.spv shader.wgsl Compile to file\n")
	fmt.Fprintf(os.Stderr, "  nagac -debug shader.wgsl        Include debug info\n")
	fmt.Fprintf(os.Stderr, "  nagac -analyze shader.wgsl      Print uniformity/global-use analysis\n")
}
