package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/daimatz/minijvm/pkg/classfile"
	"github.com/daimatz/minijvm/pkg/config"
	"github.com/daimatz/minijvm/pkg/dump"
	"github.com/daimatz/minijvm/pkg/vm"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("minijvm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to "+config.FileName+" (default: search upward from the working directory)")
	classPath := fs.String("cp", "", "class path directory")
	dumpClass := fs.Bool("dump", false, "print a summary of the class before running it")
	format := fs.String("format", "", "dump format: text or cbor")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn, error")
	noRun := fs.Bool("no-run", false, "decode the class without interpreting it")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: minijvm [flags] <ClassName | path/to/Class.class>\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	// Flags override the file.
	if *classPath != "" {
		cfg.Run.ClassPath = *classPath
		cfg.Dir = ""
	}
	if *dumpClass {
		cfg.Dump.Enabled = true
	}
	if *format != "" {
		cfg.Dump.Format = *format
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *noRun {
		cfg.Run.Run = false
	}
	if fs.NArg() > 0 {
		cfg.Run.Class = fs.Arg(0)
	}
	if cfg.Run.Class == "" {
		fs.Usage()
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Sync()
	classfile.SetLogger(logger.Named("classfile"))
	vm.SetLogger(logger.Named("vm"))

	v, err := loadVM(cfg.ClassPathDir(), cfg.Run.Class)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	className, err := v.ClassFile.ClassName()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if cfg.Dump.Enabled {
		if err := writeDump(v.ClassFile, cfg.Dump, stdout); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	if !cfg.Run.Run {
		return 0
	}
	if err := v.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	logger.Info("execution finished", zap.String("class", className))
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.FindAndLoad(wd)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

func newLogger(c config.Log) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

// loadVM accepts either a class name relative to classPath or a path to
// a .class file. A file is parsed as is; its this_class may name a package.
func loadVM(classPath, arg string) (*vm.VM, error) {
	if strings.HasSuffix(arg, ".class") {
		vm.Logger().Debug("loading class file", zap.String("path", arg))
		cf, err := classfile.ParseFile(arg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", arg, err)
		}
		return vm.New(cf), nil
	}
	vm.Logger().Debug("loading class", zap.String("class", arg), zap.String("class_path", classPath))
	return vm.Load(vm.NewDirLoader(classPath), arg)
}

func writeDump(cf *classfile.ClassFile, c config.Dump, stdout io.Writer) (err error) {
	s, err := dump.Summarize(cf)
	if err != nil {
		return err
	}

	w := stdout
	if c.Output != "" {
		f, ferr := os.Create(c.Output)
		if ferr != nil {
			return ferr
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	if c.Format == config.FormatCBOR {
		data, err := dump.MarshalCBOR(s)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	return dump.WriteText(w, s)
}
