// Package cli is the annoscene command line: it moves annotations between
// class files, index files and the scene store.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/annoscene/internal/bytecodec"
	"github.com/funvibe/annoscene/internal/config"
	"github.com/funvibe/annoscene/internal/ctxlog"
	"github.com/funvibe/annoscene/internal/diagnostics"
	"github.com/funvibe/annoscene/internal/lexer"
	"github.com/funvibe/annoscene/internal/parser"
	"github.com/funvibe/annoscene/internal/pipeline"
	"github.com/funvibe/annoscene/internal/prettyprinter"
	"github.com/funvibe/annoscene/internal/scene"
	"github.com/funvibe/annoscene/internal/store"
	"github.com/funvibe/annoscene/internal/utils"
)

// Version is set at build time with -ldflags "-X .../pkg/cli.Version=...".
var Version = "dev"

const usage = `Usage: annoscene [-config FILE] [-debug] COMMAND [ARGS]

Commands:
  extract [-o FILE] CLASS|DIR...                 print the annotations of class files
  insert -index FILE... [-overwrite] [-o DIR] CLASS|DIR...
                                                 write index annotations into class files
  fmt [-w] FILE...                               reformat index files
  merge [-o FILE] FILE...                        combine index files into one
  store save FILE|CLASS...                       record annotations in the store
  store load [-o FILE] [CLASSNAME...]            print stored annotations
  store list                                     list stored classes
  version                                        print the version
`

// errUsage marks a malformed command line; the usage text has been printed.
var errUsage = errors.New("invalid arguments")

type runner struct {
	ctx    context.Context
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
}

// Run executes one command line (without the program name) and returns the
// process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	configPath := ""
	debugMode := false
	for len(args) > 0 && strings.HasPrefix(args[0], "-") {
		switch args[0] {
		case "-debug", "--debug":
			debugMode = true
			args = args[1:]
		case "-config", "--config":
			if len(args) < 2 {
				fmt.Fprint(stderr, usage)
				return 2
			}
			configPath = args[1]
			args = args[2:]
		case "-help", "--help", "-h":
			fmt.Fprint(stdout, usage)
			return 0
		default:
			fmt.Fprintf(stderr, "unknown option %s\n%s", args[0], usage)
			return 2
		}
	}
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if debugMode {
		cfg.Log.Level = "debug"
	}
	logger := ctxlog.New(cfg.Log.Level, logFormat(cfg.Log.Format, stderr), stderr)
	r := &runner{
		ctx:    ctxlog.WithLogger(context.Background(), logger),
		cfg:    cfg,
		stdout: stdout,
		stderr: stderr,
	}

	switch args[0] {
	case "extract":
		err = r.handleExtract(args[1:])
	case "insert":
		err = r.handleInsert(args[1:])
	case "fmt":
		err = r.handleFmt(args[1:])
	case "merge":
		err = r.handleMerge(args[1:])
	case "store":
		err = r.handleStore(args[1:])
	case "version":
		fmt.Fprintf(stdout, "annoscene %s\n", Version)
	case "help":
		fmt.Fprint(stdout, usage)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s", args[0], usage)
		return 2
	}
	return r.exitCode(err)
}

func (r *runner) exitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, errUsage) {
		fmt.Fprint(r.stderr, usage)
		return 2
	}
	var diags diagnostics.List
	if errors.As(err, &diags) {
		for _, d := range diags {
			fmt.Fprintln(r.stderr, d.Error())
		}
		return 1
	}
	fmt.Fprintf(r.stderr, "Error: %v\n", err)
	return 1
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		if path, err = config.FindConfig(wd); err != nil {
			return nil, err
		}
		if path == "" {
			return config.Default(), nil
		}
	}
	return config.LoadConfig(path)
}

// logFormat resolves "auto": text for a terminal, JSON otherwise.
func logFormat(format string, w io.Writer) string {
	if format != "auto" {
		return format
	}
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return "text"
	}
	return "json"
}

// flagValue consumes "-name VALUE" at args[*i].
func flagValue(args []string, i *int) (string, error) {
	if *i+1 >= len(args) {
		return "", fmt.Errorf("%s needs a value: %w", args[*i], errUsage)
	}
	*i++
	return args[*i], nil
}

func (r *runner) handleExtract(args []string) error {
	outputPath := ""
	var inputs []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-o":
			v, err := flagValue(args, &i)
			if err != nil {
				return err
			}
			outputPath = v
		default:
			inputs = append(inputs, args[i])
		}
	}
	if len(inputs) == 0 {
		return errUsage
	}
	s := scene.New()
	if err := r.readClasses(s, inputs); err != nil {
		return err
	}
	return r.printScene(s, outputPath)
}

func (r *runner) readClasses(s *scene.Scene, inputs []string) error {
	files, err := utils.ExpandClassFiles(inputs)
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := r.readClass(s, path); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) readClass(s *scene.Scene, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := bytecodec.ReadInto(r.ctx, s, f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (r *runner) readIndex(s *scene.Scene, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return parser.ParseInto(r.ctx, s, path, f)
}

func (r *runner) printScene(s *scene.Scene, outputPath string) error {
	p := prettyprinter.NewIndexPrinterWithIndent(r.cfg.Print.Indent)
	if err := p.PrintScene(s); err != nil {
		return err
	}
	if outputPath == "" {
		_, err := io.WriteString(r.stdout, p.String())
		return err
	}
	return os.WriteFile(outputPath, []byte(p.String()), 0o644)
}

func (r *runner) handleInsert(args []string) error {
	overwrite := r.cfg.Overwrite
	outputDir := ""
	var indexes, inputs []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-index":
			v, err := flagValue(args, &i)
			if err != nil {
				return err
			}
			indexes = append(indexes, v)
		case "-o":
			v, err := flagValue(args, &i)
			if err != nil {
				return err
			}
			outputDir = v
		case "-overwrite":
			overwrite = true
		default:
			inputs = append(inputs, args[i])
		}
	}
	if len(inputs) == 0 {
		return errUsage
	}

	files, err := utils.ExpandClassFiles(inputs)
	if err != nil {
		return err
	}
	if len(indexes) == 0 {
		// each class takes annotations from the index file next to it
		for _, path := range files {
			if idx := utils.IndexPathFor(path); fileExists(idx) {
				indexes = append(indexes, idx)
			}
		}
	}
	s := scene.New()
	for _, idx := range indexes {
		if err := r.readIndex(s, idx); err != nil {
			return err
		}
	}

	log := ctxlog.FromContext(r.ctx)
	for _, path := range files {
		out, err := r.insertInto(s, path, overwrite)
		if err != nil {
			return err
		}
		dest := path
		if outputDir != "" {
			dest = filepath.Join(outputDir, filepath.Base(path))
		}
		if err := os.WriteFile(dest, out, 0o644); err != nil {
			return err
		}
		log.Info("wrote class file", "path", dest, "overwrite", overwrite)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (r *runner) insertInto(s *scene.Scene, path string, overwrite bool) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	out, err := bytecodec.WriteFrom(r.ctx, s, f, overwrite)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

func (r *runner) handleFmt(args []string) error {
	write := false
	var files []string
	for _, arg := range args {
		if arg == "-w" {
			write = true
			continue
		}
		files = append(files, arg)
	}
	if len(files) == 0 {
		return errUsage
	}
	for _, path := range files {
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		pctx := pipeline.NewContext(r.ctx, path, string(src), nil)
		pctx = pipeline.New(
			&lexer.LexerProcessor{},
			&parser.ParserProcessor{},
			&prettyprinter.PrinterProcessor{Indent: r.cfg.Print.Indent},
		).Run(pctx)
		if err := pctx.Err(); err != nil {
			return err
		}
		if !write {
			if _, err := io.WriteString(r.stdout, pctx.Output); err != nil {
				return err
			}
			continue
		}
		if pctx.Output == string(src) {
			continue
		}
		if err := os.WriteFile(path, []byte(pctx.Output), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) handleMerge(args []string) error {
	outputPath := ""
	var files []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-o":
			v, err := flagValue(args, &i)
			if err != nil {
				return err
			}
			outputPath = v
		default:
			files = append(files, args[i])
		}
	}
	if len(files) == 0 {
		return errUsage
	}
	s := scene.New()
	for _, path := range files {
		if err := r.readIndex(s, path); err != nil {
			return err
		}
	}
	return r.printScene(s, outputPath)
}

func (r *runner) handleStore(args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	st, err := store.Open(r.ctx, r.cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	switch args[0] {
	case "save":
		if len(args) < 2 {
			return errUsage
		}
		s := scene.New()
		for _, path := range args[1:] {
			if config.HasIndexExt(path) {
				err = r.readIndex(s, path)
			} else {
				err = r.readClasses(s, []string{path})
			}
			if err != nil {
				return err
			}
		}
		n, err := st.Save(r.ctx, s)
		if err != nil {
			return err
		}
		ctxlog.FromContext(r.ctx).Info("saved scene", "store", r.cfg.Store.Path, "entries", n)
		return nil
	case "load":
		outputPath := ""
		var names []string
		rest := args[1:]
		for i := 0; i < len(rest); i++ {
			if rest[i] == "-o" {
				v, err := flagValue(rest, &i)
				if err != nil {
					return err
				}
				outputPath = v
				continue
			}
			names = append(names, rest[i])
		}
		s := scene.New()
		if err := st.Load(r.ctx, s, names...); err != nil {
			return err
		}
		return r.printScene(s, outputPath)
	case "list":
		names, err := st.Classes(r.ctx)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(r.stdout, name)
		}
		return nil
	}
	return errUsage
}
