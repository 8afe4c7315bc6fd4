package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/hyperifyio/headtail/internal/extract"
	"github.com/hyperifyio/headtail/internal/record"
	"github.com/hyperifyio/headtail/internal/source"
)

// recscan samples a local file (or stdin) the way headtail samples an object,
// printing each record quoted so delimiter settings can be checked by eye.
func main() {
	var (
		mode       = flag.String("mode", "line", "Tokenizer: line or delimiter")
		delimiter  = flag.String("delimiter", `\n`, "Delimiter for -mode delimiter; escapes are decoded")
		match      = flag.String("match", "exact", "Delimiter matching: exact or legacy")
		k          = flag.Int("k", 5, "Records to keep at each end")
		skipHeader = flag.Bool("skip-header", false, "Consume the first line before sampling")
		encoding   = flag.String("encoding", "utf-8", "Input text encoding")
	)
	flag.Parse()

	in := io.Reader(os.Stdin)
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, "err:", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}
	if err := scan(os.Stdout, in, *mode, record.Unescape(*delimiter), *match, *k, *skipHeader, *encoding); err != nil {
		fmt.Fprintln(os.Stderr, "err:", err)
		os.Exit(1)
	}
}

func scan(w io.Writer, in io.Reader, modeName, delim, matchName string, k int, skipHeader bool, encName string) error {
	m, err := record.ParseMode(modeName)
	if err != nil {
		return err
	}
	mt, err := record.ParseMatch(matchName)
	if err != nil {
		return err
	}
	enc, err := source.LookupEncoding(encName)
	if err != nil {
		return err
	}
	br := bufio.NewReader(source.Decode(in, enc))
	if skipHeader {
		if err := record.SkipLine(br); err != nil {
			return err
		}
	}
	sc, err := record.New(br, m, record.Options{Delimiter: delim, Match: mt})
	if err != nil {
		return err
	}
	res, err := extract.HeadTail(sc, k)
	if err != nil {
		return err
	}
	for i, r := range res.Head {
		fmt.Fprintf(w, "%d. %s\n", i+1, strconv.Quote(r))
	}
	if len(res.Tail) > 0 {
		if skipped := res.Scanned - len(res.Head) - len(res.Tail); skipped > 0 {
			fmt.Fprintf(w, "... %d records omitted\n", skipped)
		}
		first := res.Scanned - len(res.Tail) + 1
		for i, r := range res.Tail {
			fmt.Fprintf(w, "%d. %s\n", first+i, strconv.Quote(r))
		}
	}
	fmt.Fprintf(w, "mode=%s records=%d kept=%d\n", m, res.Scanned, res.Len())
	if ds, ok := sc.(*record.DelimiterScanner); ok && ds.Skipped() > 0 {
		fmt.Fprintf(w, "blank records dropped=%d\n", ds.Skipped())
	}
	return nil
}
