package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sitrep/internal/logging"
	"github.com/ppiankov/sitrep/internal/pipeline"
	"github.com/ppiankov/sitrep/internal/store"
	"github.com/ppiankov/sitrep/internal/worker"
)

var (
	replayWorkers  int
	replayCluster  bool
	replayIncident string
	replayTimeout  time.Duration
)

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Replay a transcript file through the fusion pipeline",
	Long: `Replay feeds a recorded transcript through the same pipeline the HTTP
API uses, one chunk per line, and prints the final incident states.

By default all chunks merge into a single incident. With --cluster each
chunk is routed to the incident it most likely belongs to, creating new
incidents as needed.

Example:
  sitrep replay call.txt
  sitrep replay calls.txt --cluster --workers 4`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().IntVar(&replayWorkers, "workers", 0, "number of concurrent chunks (default from config)")
	replayCmd.Flags().BoolVar(&replayCluster, "cluster", false, "route each chunk to its most likely incident")
	replayCmd.Flags().StringVar(&replayIncident, "incident", pipeline.DefaultIncidentID, "target incident id when not clustering")
	replayCmd.Flags().DurationVar(&replayTimeout, "timeout", 10*time.Minute, "total timeout for the replay")
}

// chunkJob feeds one transcript line through the pipeline
type chunkJob struct {
	pipeline *pipeline.Pipeline
	request  pipeline.ChunkRequest
	line     int
}

type chunkJobResult struct {
	line   int
	result *pipeline.ChunkResult
	err    error
}

func (r *chunkJobResult) GetError() error { return r.err }

func (j *chunkJob) Execute(ctx context.Context) worker.Result {
	res, err := j.pipeline.ProcessChunk(ctx, j.request)
	return &chunkJobResult{line: j.line, result: res, err: err}
}

func runReplay(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), replayTimeout)
	defer cancel()

	cfg := loadConfig()
	if replayWorkers > 0 {
		cfg.Concurrency.ReplayWorkers = replayWorkers
	}
	log := logging.New(cfg.LogLevel)

	st := store.New()
	p := buildPipeline(st, cfg, log)

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}
	if len(lines) == 0 {
		return fmt.Errorf("transcript is empty: %s", file)
	}

	fmt.Fprintf(os.Stderr, "Replaying %d chunks from %s\n", len(lines), file)

	if replayCluster {
		// Clustering decisions depend on the incidents earlier chunks
		// created, so clustered replays stay sequential.
		for i, line := range lines {
			if _, err := p.ProcessChunk(ctx, pipeline.ChunkRequest{Text: line, AutoCluster: true}); err != nil {
				fmt.Fprintf(os.Stderr, "chunk %d failed: %v\n", i+1, err)
			}
		}
	} else {
		pool := worker.NewPool(cfg.Concurrency.ReplayWorkers)
		pool.Start()
		for i, line := range lines {
			pool.Submit(&chunkJob{
				pipeline: p,
				line:     i + 1,
				request:  pipeline.ChunkRequest{Text: line, IncidentID: replayIncident},
			})
		}
		for _, r := range pool.Wait() {
			if err := r.GetError(); err != nil {
				cr := r.(*chunkJobResult)
				fmt.Fprintf(os.Stderr, "chunk %d failed: %v\n", cr.line, err)
			}
		}
	}

	// Final picture
	for _, e := range st.Snapshot() {
		state := e.Incident.State()
		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal state: %w", err)
		}
		fmt.Println(string(data))
	}
	fmt.Fprintf(os.Stderr, "\nDone: %d incident(s)\n", st.Len())
	return nil
}
