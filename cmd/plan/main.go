// Command plan prints the transfer plan for a request read from a JSON file
// (or stdin when the path is "-"). It exits 1 when no complete plan exists.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/slot-transfer/internal/core/domain"
	"github.com/rl1809/slot-transfer/internal/core/planner"
)

func main() {
	stackLimit := flag.Int("stack-limit", domain.DefaultStackLimit, "maximum units per slot")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] request.json\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)

	req, err := readRequest(flag.Arg(0))
	if err != nil {
		log.Fatalf("failed to read request: %v", err)
	}

	plan, planErr := planner.New(*stackLimit).Plan(req)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(plan); err != nil {
		log.Fatalf("failed to write plan: %v", err)
	}

	if planErr != nil {
		log.WithError(planErr).Error("no complete plan")
		os.Exit(1)
	}
}

func readRequest(path string) (domain.TransferRequest, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return domain.TransferRequest{}, err
		}
		defer f.Close()
		r = f
	}

	var req domain.TransferRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return req, fmt.Errorf("decode: %w", err)
	}
	return req, nil
}
