// Command quill runs, compiles, and disassembles quill scripts.
//
// It dispatches on os.Args by hand rather than through a flag package
// or cobra, matching the teacher's cmd/funxy/main.go.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/quilldsl/quill/internal/bytecode"
	"github.com/quilldsl/quill/internal/clifmt"
	"github.com/quilldsl/quill/internal/compiler"
	"github.com/quilldsl/quill/internal/config"
	"github.com/quilldsl/quill/internal/parser"
	"github.com/quilldsl/quill/internal/runtime"
	"github.com/quilldsl/quill/internal/vm"
)

var fmtr = clifmt.New(clifmt.Auto)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  quill run <file>")
	fmt.Fprintln(os.Stderr, "  quill compile <file> -o <out>")
	fmt.Fprintln(os.Stderr, "  quill disasm <file>")
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r)
			}
			fmt.Fprintln(os.Stderr, fmtr.Error(fmt.Sprintf("Internal error: %v", r)))
			fmt.Fprintln(os.Stderr, fmtr.Error("This is a bug. Please report it."))
			os.Exit(1)
		}
	}()

	if len(os.Args) < 3 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		cmdRun(os.Args[2])
	case "compile":
		cmdCompile(os.Args[2:])
	case "disasm":
		cmdDisasm(os.Args[2])
	default:
		usage()
		os.Exit(1)
	}
}

func compileFile(path string) (*bytecode.Chunk, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	prog, err := parser.Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	chunk, err := compiler.New().Compile(prog)
	if err != nil {
		return nil, fmt.Errorf("compile error: %w", err)
	}
	return chunk, nil
}

func loadConfig(scriptPath string) *config.Config {
	dir := filepath.Dir(scriptPath)
	found, err := config.Find(dir)
	if err != nil || found == "" {
		return config.Default()
	}
	cfg, err := config.Load(found)
	if err != nil {
		fmt.Fprintln(os.Stderr, fmtr.Warn(fmt.Sprintf("warning: %s: %v, using defaults", found, err)))
		return config.Default()
	}
	return cfg
}

func cmdRun(path string) {
	chunk, err := compileFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, fmtr.Error(err.Error()))
		os.Exit(1)
	}

	host := runtime.New(loadConfig(path), nil)
	if err := vm.Run(chunk, host, nil); err != nil {
		fmt.Fprintln(os.Stderr, fmtr.Error(fmt.Sprintf("runtime error: %s", err)))
		os.Exit(1)
	}
	host.Wait()

	renderWidgets(os.Stdout, host.Widgets())
}

func renderWidgets(w io.Writer, widgets []*runtime.Widget) {
	if len(widgets) == 0 {
		return
	}
	for _, widget := range widgets {
		status := ""
		if widget.Packed() {
			status = " (packed)"
		}
		fmt.Fprintf(w, "%s [%s]%s\n", widget.Name(), widget.Type(), status)
		if options := widget.Options(); options != nil {
			fmt.Fprintf(w, "  %s\n", options.Inspect())
		}
	}
}

func cmdCompile(args []string) {
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}
	path := args[0]
	outPath := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".qbc"
	for i := 1; i < len(args); i++ {
		if args[i] == "-o" && i+1 < len(args) {
			outPath = args[i+1]
		}
	}

	chunk, err := compileFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, fmtr.Error(err.Error()))
		os.Exit(1)
	}

	f, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, fmtr.Error(fmt.Sprintf("creating %s: %s", outPath, err)))
		os.Exit(1)
	}
	defer f.Close()

	chunk.Disassemble(f, filepath.Base(path))
	fmt.Printf("Compiled %s -> %s\n", path, outPath)
}

func cmdDisasm(path string) {
	chunk, err := compileFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, fmtr.Error(err.Error()))
		os.Exit(1)
	}

	fmt.Println(disassembleColored(chunk, filepath.Base(path)))
}

// disassembleColored recolors chunk.Disassemble's plain-text output
// rather than threading a Formatter through bytecode, since bytecode
// has no dependency on clifmt and shouldn't gain one just for this.
func disassembleColored(chunk *bytecode.Chunk, name string) string {
	var buf strings.Builder
	chunk.Disassemble(&buf, name)

	lines := strings.Split(buf.String(), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "=="):
			lines[i] = fmtr.OK(line)
		case strings.HasPrefix(line, "    ") || line == "":
		default:
			if idx := strings.IndexByte(line, ' '); idx > 0 {
				offset, rest := line[:idx], line[idx:]
				lines[i] = fmtr.Dim(offset) + fmtr.Opcode(rest)
			}
		}
	}
	return strings.Join(lines, "\n")
}
