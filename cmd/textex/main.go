// Command textex is the reference console front end of spec.md §6: it
// reads a single .tex source, drives the engine to completion, and writes
// a typeset stream to a parallel output file plus a terminal stream for
// \message/\errmessage/\showthe/\show.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/anttex/textex"
	"github.com/anttex/textex/internal/texerr"
	"github.com/anttex/textex/mouth"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("textex", flag.ContinueOnError)
	jobName := fs.String("job-name", "", "job name reported by \\jobname (defaults to the input file's base name)")
	outPath := fs.String("o", "", "typeset output path (defaults to <job-name>.typ)")
	trace := fs.Bool("trace", false, "enable debug-level logging of \\message/\\errmessage traffic")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: textex [-job-name name] [-o out.typ] [-trace] input.tex")
		return 2
	}
	inPath := fs.Arg(0)

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if *trace {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}
	log.Logger = logger

	name := *jobName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(inPath), filepath.Ext(inPath))
	}
	if *outPath == "" {
		*outPath = name + ".typ"
	}

	in, err := os.Open(inPath)
	if err != nil {
		logger.Error().Err(err).Str("path", inPath).Msg("opening input")
		return 1
	}
	defer in.Close()

	out, err := os.Create(*outPath)
	if err != nil {
		logger.Error().Err(err).Str("path", *outPath).Msg("creating output")
		return 1
	}
	defer out.Close()

	opener := diskOpener(filepath.Dir(inPath), &logger)
	engine := textex.New(name, bufio.NewReader(in), out, os.Stdout, textex.WithFileOpener(opener))
	engine.Stomach.Log = &logger

	if err := engine.Run(); err != nil {
		logger.Error().Err(err).Msg("run failed")
		var te *texerr.Error
		if errors.As(err, &te) {
			fmt.Fprintf(os.Stderr, "! %s\n", te.Error())
		}
		return 1
	}
	logger.Info().Str("job", name).Str("output", *outPath).Msg("run complete")
	return 0
}

// diskOpener resolves \input file names against baseDir, the directory
// containing the job's top-level source (spec.md §4.2.5).
func diskOpener(baseDir string, logger *zerolog.Logger) mouth.FileOpener {
	return func(name string) (io.RuneScanner, io.Closer, error) {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, name)
		}
		if filepath.Ext(path) == "" {
			path += ".tex"
		}
		f, err := os.Open(path)
		if err != nil {
			logger.Debug().Err(err).Str("path", path).Msg("\\input resolution failed")
			return nil, nil, err
		}
		return bufio.NewReader(f), f, nil
	}
}
