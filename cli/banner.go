package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

var printedBanner bool

// PrintBanner writes the startup banner once per process. Setting
// PRACTICELAB_NO_BANNER=1 silences it.
func PrintBanner(out io.Writer) {
	if printedBanner {
		return
	}
	if strings.TrimSpace(os.Getenv("PRACTICELAB_NO_BANNER")) == "1" {
		return
	}

	blue := color.New(color.FgCyan, color.Bold)
	tip := color.New(color.FgHiBlack)
	title := color.New(color.FgWhite, color.Bold)

	banner := []string{
		"┏━┓┏━┓┏━┓┏━╸╺┳╸╻┏━╸┏━╸╻  ┏━┓┏┓ ",
		"┣━┛┣┳┛┣━┫┃   ┃ ┃┃  ┣╸ ┃  ┣━┫┣┻┓",
		"╹  ╹┗╸╹ ╹┗━╸ ╹ ╹┗━╸┗━╸┗━╸╹ ╹┗━┛",
	}

	fmt.Fprintln(out)
	for _, line := range banner {
		blue.Fprintln(out, line)
	}

	fmt.Fprintln(out)
	title.Fprintln(out, "> practicelab: a slow, stateful mock API for automation practice")
	tip.Fprintln(out, "\nTips:")
	tip.Fprintln(out, "  1. practicelab serve             # Mock server (8080) and control API (8081)")
	tip.Fprintln(out, "  2. practicelab books list        # Call the mock endpoints from the terminal")
	tip.Fprintln(out, "  3. practicelab rules add         # Inject latency or errors into a route")
	tip.Fprintln(out, "  4. practicelab logs              # See what the server has answered")
	tip.Fprintln(out, "  5. Use --help on any command     # More options and examples")
	fmt.Fprintln(out)

	printedBanner = true
}
