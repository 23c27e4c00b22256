package main

import (
	"fmt"

	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"
	"golang.org/x/text/cases"

	"github.com/npillmayer/lexstore"
	"github.com/npillmayer/lexstore/dat"
)

func openLexiconArg(c *cli.Context, minArgs int) (lexstore.Lexicon, error) {
	if c.NArg() < minArgs {
		return nil, cli.Exit(fmt.Errorf("%w: expected %s", ErrFlagParse, c.Command.ArgsUsage), ExitCodeFlagParseError)
	}
	return lexstore.OpenLexicon(c.Args().Get(0))
}

var queryCommand = &cli.Command{
	Name:      "query",
	Usage:     "look up keys in a lexicon file",
	ArgsUsage: "FILE KEY...",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "prefixes",
			Usage:   "list all entries which are prefixes of each key (tries only)",
			Aliases: []string{"p"},
		},
		foldCaseFlag,
	},
	Action: func(c *cli.Context) error {
		lex, err := openLexiconArg(c, 2)
		if err != nil {
			return err
		}
		defer lex.Close()

		tbl := table.New("Key", "Value", "Length").WithWriter(c.App.Writer)
		missing := 0
		for _, key := range c.Args().Slice()[1:] {
			if c.Bool("fold-case") {
				key = cases.Fold().String(key)
			}
			rows := 0
			switch l := lex.(type) {
			case lexstore.CDBLexicon:
				vals, err := l.DB.All([]byte(key))
				if err != nil {
					return err
				}
				for _, v := range vals {
					tbl.AddRow(key, string(v), len(key))
					rows++
				}
			case lexstore.TrieLexicon:
				var matches []dat.Match
				if c.Bool("prefixes") {
					matches = l.Prefixes(key)
				} else if v, ok := l.Lookup(key); ok {
					matches = []dat.Match{{Value: v, Length: len([]rune(key))}}
				}
				for _, m := range matches {
					tbl.AddRow(string([]rune(key)[:m.Length]), m.Value, m.Length)
					rows++
				}
			}
			if rows == 0 {
				missing++
			}
		}
		tbl.Print()
		if missing > 0 {
			return cli.Exit(fmt.Sprintf("%d key(s) not found", missing), ExitCodeNotFound)
		}
		return nil
	},
}

var statsCommand = &cli.Command{
	Name:      "stats",
	Usage:     "verify a lexicon file and print its statistics",
	ArgsUsage: "FILE",
	Action: func(c *cli.Context) error {
		lex, err := openLexiconArg(c, 1)
		if err != nil {
			return err
		}
		defer lex.Close()

		tbl := table.New("Property", "Value").WithWriter(c.App.Writer)
		tbl.AddRow("File", c.Args().Get(0))
		switch l := lex.(type) {
		case lexstore.CDBLexicon:
			st := l.DB.Stats()
			tbl.AddRow("Format", "cdb")
			tbl.AddRow("Records", st.Records)
			tbl.AddRow("Buckets used", fmt.Sprintf("%d/256", st.Buckets))
			tbl.AddRow("Largest table", st.MaxSlots)
			tbl.AddRow("Size", st.Size)
		case lexstore.TrieLexicon:
			st := l.Trie.Stats()
			tbl.AddRow("Format", "double-array trie")
			tbl.AddRow("Slots", st.TotalSlots)
			tbl.AddRow("Used slots", st.UsedSlots)
			tbl.AddRow("Fill ratio", fmt.Sprintf("%.1f%%", 100*st.FillRatio()))
			tbl.AddRow("Mapped", l.Trie.Mapped())
		}
		tbl.Print()
		return nil
	},
}
