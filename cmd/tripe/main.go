// Command tripe maintains and queries tripe index files.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
	"golang.org/x/xerrors"

	"github.com/ianloic/tripe.go"
	"github.com/ianloic/tripe.go/store"
)

const usage = `USAGE: tripe <command> [arguments]

  tripe add <file.tripe> <doc-id>              index standard input as document <doc-id>
  tripe search [-exact] <file.tripe> <word>... print positions where the phrase occurs
  tripe dot <file.tripe>                       print the trie as a graphviz digraph
  tripe check <file.tripe>                     verify invariants and print statistics
`

const (
	exitOK    = 0
	exitUsage = 1
	exitFile  = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		fmt.Fprint(os.Stderr, usage)
		return exitUsage
	}
	var err error
	switch args[0] {
	case "add":
		err = cmdAdd(args[1:])
	case "search":
		err = cmdSearch(args[1:])
	case "dot":
		err = cmdDot(args[1:])
	case "check":
		err = cmdCheck(args[1:])
	default:
		fmt.Fprint(os.Stderr, usage)
		return exitUsage
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "tripe: %s\n", err)
		if xerrors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			return exitUsage
		}
		return exitFile
	}
	return exitOK
}

var errUsage = xerrors.New("bad arguments")

// openIndex opens the file and the index over it. The caller closes the
// returned store.
func openIndex(path string, writable bool) (*store.Store, *tripe.Index, error) {
	s, err := store.Open(path, writable)
	if err != nil {
		return nil, nil, err
	}
	ix, err := tripe.Open(s)
	if err != nil {
		_ = s.Close()
		return nil, nil, err
	}
	return s, ix, nil
}

func cmdAdd(args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	doc, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return xerrors.Errorf("doc id %q: %w", args[1], errUsage)
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "tripe: reading document text from terminal, ^D to finish")
	}
	text, err := io.ReadAll(os.Stdin)
	if err != nil {
		return xerrors.Errorf("reading stdin: %s: %w", err, store.ErrIO)
	}
	s, ix, err := openIndex(args[0], true)
	if err != nil {
		return err
	}
	defer s.Close()
	return ix.Add(string(text), doc)
}

func cmdSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	exact := fs.Bool("exact", false, "compare raw tokens instead of stemmed forms")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	rest := fs.Args()
	if len(rest) < 2 {
		return errUsage
	}
	s, ix, err := openIndex(rest[0], false)
	if err != nil {
		return err
	}
	defer s.Close()
	matches, err := ix.Search(strings.Join(rest[1:], " "), *exact)
	if xerrors.Is(err, tripe.ErrEmptyPhrase) {
		return xerrors.Errorf("%s: %w", err, errUsage)
	}
	if err != nil {
		return err
	}
	for _, m := range matches {
		fmt.Printf("matched in document %d at %d\n", m.Doc, m.Offset)
	}
	return nil
}

func cmdDot(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	s, ix, err := openIndex(args[0], false)
	if err != nil {
		return err
	}
	defer s.Close()
	return ix.WriteDot(os.Stdout)
}

func cmdCheck(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	s, ix, err := openIndex(args[0], false)
	if err != nil {
		return err
	}
	defer s.Close()
	stats, err := ix.Verify()
	if err != nil {
		return err
	}
	digest, err := ix.Digest()
	if err != nil {
		return err
	}
	fmt.Printf("nodes: %d\n", stats.Nodes)
	fmt.Printf("instances: %d\n", stats.Instances)
	fmt.Printf("text blocks: %d\n", stats.TextBlocks)
	fmt.Printf("free blocks: %d (%d bytes)\n", stats.FreeBlocks, stats.FreeBytes)
	fmt.Printf("live bytes: %d of %d\n", stats.LiveBytes, s.Size())
	fmt.Printf("digest: %s\n", hex.EncodeToString(digest[:]))
	return nil
}
