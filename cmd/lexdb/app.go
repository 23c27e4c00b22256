package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/transform"
	"sigs.k8s.io/release-utils/version"

	"github.com/npillmayer/lexstore/tsv"
)

const (
	// ExitCodeSuccess is successful error code.
	ExitCodeSuccess int = iota

	// ExitCodeFlagParseError is the exit code for a flag parsing error.
	ExitCodeFlagParseError

	// ExitCodeUnknownError is the exit code for an unknown error.
	ExitCodeUnknownError

	// ExitCodeNotFound is returned by query if a key is absent.
	ExitCodeNotFound
)

// ErrLexdb is a parent error for all command errors.
var ErrLexdb = errors.New("lexdb")

// ErrFlagParse is a flag parsing error.
var ErrFlagParse = fmt.Errorf("%w: parsing flags", ErrLexdb)

// foldCaseFlag must be given to query if it was given to build.
var foldCaseFlag = &cli.BoolFlag{
	Name:    "fold-case",
	Usage:   "case fold keys before storing or looking them up",
	EnvVars: []string{"LEXDB_FOLD_CASE"},
}

var sourceFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "separator",
		Usage:   "separator between key and value in `SEP`",
		Aliases: []string{"s"},
		Value:   "\t",
		EnvVars: []string{"LEXDB_SEPARATOR"},
	},
	foldCaseFlag,
}

// sourceOptions derives tsv reader options from the command flags.
func sourceOptions(c *cli.Context) *tsv.Options {
	opts := &tsv.Options{
		Separator: c.String("separator"),
	}
	if c.Bool("fold-case") {
		opts.Folder = func() transform.Transformer { return cases.Fold() }
	}
	return opts
}

// openSource opens the input file named by the first argument, or stdin for "-".
func openSource(c *cli.Context) (*os.File, string, error) {
	if c.NArg() < 1 {
		return nil, "", cli.Exit(fmt.Errorf("%w: missing input file", ErrFlagParse), ExitCodeFlagParseError)
	}
	name := c.Args().Get(0)
	if name == "-" {
		return os.Stdin, "stdin", nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, "", err
	}
	return f, name, nil
}

func printVersion(c *cli.Context) error {
	info := version.GetVersionInfo()
	fmt.Fprintf(c.App.Writer, "%s %s\n", c.App.Name, info.GitVersion)
	fmt.Fprintln(c.App.Writer, "Copyright (c) Norbert Pillmayer")
	return nil
}

func newLexdbApp() *cli.App {
	return &cli.App{
		Name:  filepath.Base(os.Args[0]),
		Usage: "Build and query static lexicon files.",
		Description: strings.Join([]string{
			"lexdb compiles tab-separated lexicons into constant databases (.cdb)",
			"or double-array tries (.dat) and queries them.",
		}, "\n"),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:               "version",
				Usage:              "print version information and exit",
				Aliases:            []string{"V"},
				DisableDefaultText: true,
			},
		},
		HideHelpCommand: true,
		Action: func(c *cli.Context) error {
			if c.Bool("version") {
				return printVersion(c)
			}
			return cli.ShowAppHelp(c)
		},
		Commands: []*cli.Command{
			buildCDBCommand,
			buildDATCommand,
			queryCommand,
			statsCommand,
		},
	}
}
