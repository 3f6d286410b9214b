package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/littlelibrary/server/pkg/identifiers"
	"github.com/robinjoseph08/golib/logger"
)

func main() {
	log := logger.New()

	var opts struct {
		PerLine bool `short:"l" long:"per-line" description:"Run the extractor on each line separately"`
	}

	args, err := flags.Parse(&opts)
	if err != nil {
		log.Err(err).Fatal("flags parse error")
	}

	if len(args) > 1 {
		fmt.Println("go run ./cmd/scripts/debug/extract-isbn [path/to/recognized-text.txt]")
		os.Exit(1)
	}

	var data []byte
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		log.Err(err).Fatal("read input error")
	}

	text := string(data)
	if !opts.PerLine {
		printResult("input", text)
		return
	}

	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		printResult(fmt.Sprintf("line %d", i+1), line)
	}
}

func printResult(label, text string) {
	isbn, pass := identifiers.ExtractWithPass(text)
	if pass == identifiers.PassNone {
		fmt.Printf("%s: no isbn found\n", label)
		return
	}
	fmt.Printf("%s: %s (pass: %s)\n", label, isbn, pass)
}
