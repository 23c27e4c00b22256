package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/npillmayer/lexstore"
	"github.com/npillmayer/lexstore/tsv"
)

var outputFlag = &cli.StringFlag{
	Name:     "output",
	Usage:    "write the lexicon file to `PATH`",
	Aliases:  []string{"o"},
	Required: true,
}

var buildCDBCommand = &cli.Command{
	Name:      "build-cdb",
	Usage:     "compile a tab-separated lexicon into a constant database",
	ArgsUsage: "INPUT",
	Flags:     append([]cli.Flag{outputFlag}, sourceFlags...),
	Action: func(c *cli.Context) error {
		in, name, err := openSource(c)
		if err != nil {
			return err
		}
		defer in.Close()
		n, err := lexstore.CompileCDB(c.String("output"), tsv.NewRecordReader(in, sourceOptions(c)))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		fmt.Fprintf(c.App.Writer, "%d records written to %s\n", n, c.String("output"))
		return nil
	},
}

var buildDATCommand = &cli.Command{
	Name:      "build-dat",
	Usage:     "compile a tab-separated lexicon with integer values into a double-array trie",
	ArgsUsage: "INPUT",
	Flags:     append([]cli.Flag{outputFlag}, sourceFlags...),
	Action: func(c *cli.Context) error {
		in, name, err := openSource(c)
		if err != nil {
			return err
		}
		defer in.Close()
		trie, err := lexstore.CompileTrie(name, tsv.NewEntryReader(in, sourceOptions(c)))
		if err != nil {
			return err
		}
		if err := trie.Save(c.String("output")); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%d slots written to %s\n", trie.NStates(), c.String("output"))
		return nil
	},
}
