package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-drift/fabric/cmd/fabric/internal/project"
	"github.com/go-drift/fabric/pkg/config"
	"github.com/go-drift/fabric/pkg/graphics"
	"github.com/go-drift/fabric/pkg/layout"
	"github.com/go-drift/fabric/pkg/mounting"
	"github.com/go-drift/fabric/pkg/platform"
	"github.com/go-drift/fabric/pkg/shadow"
	"github.com/go-drift/fabric/pkg/trace"
	"github.com/go-drift/fabric/pkg/uimanager"
)

const renderSurface shadow.SurfaceID = 1

func init() {
	RegisterCommand(&Command{
		Name:  "render",
		Short: "Mount a UI template and print its mutations",
		Long: `Mount a YAML UI template on a headless surface and print every
mutation list the scheduler delivers.

The template is committed through the full pipeline: layout, diffing,
ordered delivery and mounting onto host views. With --verify the
delivered mutations are replayed on a strict stub host and checked
against the committed shadow tree.

Flags:
  --config FILE        Configuration file (default: fabric.yaml of the module)
  --width N            Surface width in points (default: 390)
  --height N           Surface height in points (default: 844)
  --font-scale N       Font scale factor (default: 1)
  --trace-store FILE   Append commit samples to a bbolt file
  --json               Print mutations as JSON
  --tree               Print the committed shadow tree
  --verify             Replay mutations on a stub host and verify them`,
		Usage: "fabric render <template.yaml> [--config FILE] [--width N] [--height N] [--json] [--tree] [--verify]",
		Run:   runRender,
	})
}

type renderOptions struct {
	templatePath string
	configPath   string
	traceStore   string
	width        float64
	height       float64
	fontScale    float64
	json         bool
	tree         bool
	verify       bool
}

func parseRenderArgs(args []string) (renderOptions, error) {
	opts := renderOptions{width: 390, height: 844, fontScale: 1}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--json":
			opts.json = true
		case "--tree":
			opts.tree = true
		case "--verify":
			opts.verify = true
		case "--config", "--trace-store", "--width", "--height", "--font-scale":
			value, err := flagValue(args, i)
			if err != nil {
				return opts, err
			}
			i++
			switch arg {
			case "--config":
				opts.configPath = value
			case "--trace-store":
				opts.traceStore = value
			default:
				n, err := parsePositive(arg, value)
				if err != nil {
					return opts, err
				}
				switch arg {
				case "--width":
					opts.width = n
				case "--height":
					opts.height = n
				case "--font-scale":
					opts.fontScale = n
				}
			}
		default:
			if opts.templatePath != "" {
				return opts, fmt.Errorf("unexpected argument %q", arg)
			}
			opts.templatePath = arg
		}
	}
	if opts.templatePath == "" {
		return opts, fmt.Errorf("template path is required\n\nUsage: fabric render <template.yaml>")
	}
	return opts, nil
}

// committedBatch is one delivered mutation list.
type committedBatch struct {
	Surface   shadow.SurfaceID      `json:"surface"`
	Commit    uint64                `json:"commit"`
	Mutations mounting.MutationList `json:"mutations"`
}

// renderDelegate mounts deliveries and keeps a copy of every batch.
type renderDelegate struct {
	*platform.MountingManager
	mu      sync.Mutex
	batches []committedBatch
}

func (d *renderDelegate) SchedulerDidFinishTransaction(surface shadow.SurfaceID, mutations mounting.MutationList, commitNumber uint64, info uimanager.TransactionInfo) {
	d.MountingManager.SchedulerDidFinishTransaction(surface, mutations, commitNumber, info)
	d.mu.Lock()
	d.batches = append(d.batches, committedBatch{Surface: surface, Commit: commitNumber, Mutations: mutations})
	d.mu.Unlock()
}

func runRender(args []string) error {
	opts, err := parseRenderArgs(args)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(opts.templatePath)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}
	cfg, name, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	traceStore := opts.traceStore
	if traceStore == "" {
		traceStore = cfg.Scheduler.TraceStore
	}
	buffer := trace.NewBuffer(cfg.Scheduler.TraceCapacity, cfg.Scheduler.SlowCommitThreshold)
	if traceStore != "" {
		sink, err := trace.OpenBoltSink(traceStore)
		if err != nil {
			return err
		}
		defer sink.Close()
		buffer.SetSink(sink)
	}

	executor := platform.NewSerialExecutor()
	defer executor.Close()

	scheduler := uimanager.NewScheduler(uimanager.Options{
		Config:     cfg,
		Executor:   executor,
		Dispatcher: executor.Dispatch,
		Trace:      buffer,
	})
	delegate := &renderDelegate{}
	delegate.MountingManager = platform.NewMountingManager(platform.MountingOptions{
		OnPropsChanged: scheduler.UpdateNodeProps,
	})
	defer scheduler.SetDelegate(delegate)()

	constraints := layout.Tight(graphics.Size{Width: opts.width, Height: opts.height})
	layoutCtx := layout.Context{PointScaleFactor: 1, FontSizeMultiplier: opts.fontScale}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := scheduler.StartSurface(ctx, renderSurface, name, nil, constraints, layoutCtx); err != nil {
		return err
	}
	if err := scheduler.RenderTemplateToSurface(renderSurface, string(data)); err != nil {
		return err
	}
	executor.Flush()

	tree, _ := scheduler.Registry().Get(renderSurface)
	committed := tree.Revision().Root

	delegate.mu.Lock()
	batches := append([]committedBatch(nil), delegate.batches...)
	delegate.mu.Unlock()

	if err := printBatches(batches, opts.json); err != nil {
		return err
	}
	if opts.tree {
		fmt.Fprint(stdout, committed.String())
	}
	if opts.verify {
		if err := verifyBatches(batches, committed, constraints, layoutCtx); err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
		fmt.Fprintf(stderr, "verified %d views against the committed tree\n", committed.Count())
	}

	timeline := buffer.Snapshot()
	fmt.Fprintf(stderr, "%d commits, %d slower than %.1fms\n", len(timeline.Samples), timeline.SlowCommits, timeline.ThresholdMs)

	scheduler.StopSurface(renderSurface)
	delegate.UnmountSurface(renderSurface)
	return nil
}

func parsePositive(flag, value string) (float64, error) {
	n, err := strconv.ParseFloat(value, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive number (got %q)", flag, value)
	}
	return n, nil
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.Load(path)
		return cfg, "fabric", err
	}
	p, err := project.Current()
	if err != nil {
		return nil, "", err
	}
	return p.Config, p.Name, nil
}

func printBatches(batches []committedBatch, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(batches)
	}
	for _, b := range batches {
		fmt.Fprintf(stdout, "commit %d (%d mutations)\n", b.Commit, len(b.Mutations))
		for _, m := range b.Mutations {
			fmt.Fprintf(stdout, "  %s\n", m)
		}
	}
	return nil
}

// verifyBatches replays batches on a stub host that starts from the empty
// root every surface is created with.
func verifyBatches(batches []committedBatch, committed *shadow.Node, constraints layout.Constraints, layoutCtx layout.Context) error {
	empty, err := shadow.DefaultRegistry().CreateShadowNode(shadow.RootViewName, shadow.Tag(renderSurface), nil, nil)
	if err != nil {
		return err
	}
	stub := mounting.NewStubViewTree(shadow.Layout(empty, constraints, layoutCtx))
	for _, b := range batches {
		if err := stub.Apply(b.Mutations); err != nil {
			return fmt.Errorf("commit %d: %w", b.Commit, err)
		}
	}
	return stub.Verify(committed)
}
