package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/go-drift/fabric/pkg/trace"
)

func init() {
	RegisterCommand(&Command{
		Name:  "trace",
		Short: "List commit samples from a trace store",
		Long: `List the commit samples recorded in a bbolt trace store, per surface.

Flags:
  --surface N   Only show surface N
  --prune N     Keep only the newest N samples of each listed surface
  --json        Print samples as JSON`,
		Usage: "fabric trace <store.db> [--surface N] [--prune N] [--json]",
		Run:   runTrace,
	})
}

func runTrace(args []string) error {
	var (
		path    string
		surface = -1
		prune   = -1
		asJSON  bool
	)
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--json":
			asJSON = true
		case "--surface", "--prune":
			value, err := flagValue(args, i)
			if err != nil {
				return err
			}
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return fmt.Errorf("%s must be a non-negative integer (got %q)", args[i], value)
			}
			if args[i] == "--surface" {
				surface = n
			} else {
				prune = n
			}
			i++
		default:
			if path != "" {
				return fmt.Errorf("unexpected argument %q", args[i])
			}
			path = args[i]
		}
	}
	if path == "" {
		return fmt.Errorf("trace store path is required\n\nUsage: fabric trace <store.db>")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("failed to open trace store: %w", err)
	}

	sink, err := trace.OpenBoltSink(path)
	if err != nil {
		return err
	}
	defer sink.Close()

	surfaces, err := sink.Surfaces()
	if err != nil {
		return err
	}
	if surface >= 0 {
		surfaces = []int32{int32(surface)}
	}

	listed := make(map[int32][]trace.CommitSample, len(surfaces))
	for _, id := range surfaces {
		if prune >= 0 {
			if err := sink.Prune(id, prune); err != nil {
				return err
			}
		}
		samples, err := sink.Samples(id)
		if err != nil {
			return err
		}
		listed[id] = samples
	}

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(listed)
	}
	for _, id := range surfaces {
		samples := listed[id]
		fmt.Fprintf(stdout, "surface %d (%d samples)\n", id, len(samples))
		for _, s := range samples {
			fmt.Fprintf(stdout, "  commit %-5d %3d mutations  commit %.2fms  layout %.2fms\n", s.CommitNumber, s.Mutations, s.CommitMs, s.LayoutMs)
		}
	}
	return nil
}
