package orchestrator

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/samogod/musegen/pkg/database"
	"github.com/samogod/musegen/pkg/elastic"
	"github.com/samogod/musegen/pkg/sampler"
)

const (
	ManifestName = "manifest.jsonl"
	maxWriters   = 4
)

type GenerateOptions struct {
	ConfigName    string
	NumOutputs    int
	Temperature   float64
	Length        int
	Checkpoint    string
	OutputDir     string
	JSONFormat    bool
	ForceDownload bool
}

type GeneratedFile struct {
	Index     int     `json:"index"`
	Path      string  `json:"file"`
	Notes     int     `json:"notes"`
	TotalTime float64 `json:"total_time"`
}

type GenerateResult struct {
	RunID      uuid.UUID
	ConfigName string
	Checkpoint string
	Files      []GeneratedFile
	Manifest   string
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}

// ManifestEntry is one line of a run manifest.
type ManifestEntry struct {
	RunID       string    `json:"run_id"`
	ConfigName  string    `json:"config_name"`
	Checkpoint  string    `json:"checkpoint"`
	Temperature float64   `json:"temperature"`
	NumOutputs  int       `json:"num_outputs"`
	CreatedAt   time.Time `json:"created_at"`
	GeneratedFile
}

// FileName is the name of the i-th generated MIDI file of a run.
func FileName(i int) string {
	return fmt.Sprintf("generated_sequence_%d.mid", i)
}

func (o *Orchestrator) applyGenerateDefaults(opts GenerateOptions) GenerateOptions {
	if opts.ConfigName == "" {
		opts.ConfigName = o.config.Generation.Config
	}
	if opts.NumOutputs == 0 {
		opts.NumOutputs = o.config.Generation.NumOutputs
	}
	if opts.Temperature == 0 {
		opts.Temperature = o.config.Generation.Temperature
	}
	if opts.OutputDir == "" {
		opts.OutputDir = o.config.DefaultSettings.OutputDir
	}
	return opts
}

// RunGenerate samples new sequences from a registered configuration and
// writes them as MIDI files, a run manifest and, when enabled, history and
// index records.
func (o *Orchestrator) RunGenerate(ctx context.Context, options GenerateOptions) (*GenerateResult, error) {
	options = o.applyGenerateDefaults(options)
	startTime := time.Now()

	cfg, err := o.registry.Lookup(options.ConfigName)
	if err != nil {
		return nil, err
	}

	locator := options.Checkpoint
	if locator == "" {
		var ok bool
		if locator, ok = o.config.CheckpointFor(options.ConfigName); !ok {
			return nil, fmt.Errorf("no checkpoint known for config %s, pass one with --checkpoint", options.ConfigName)
		}
	}

	ctx, cancel := o.runContext(ctx)
	defer cancel()

	ckpt, err := o.newResolver(options.ForceDownload).Resolve(ctx, locator)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve checkpoint: %w", err)
	}
	o.logger.Debugf("Using checkpoint %s for %s", ckpt, options.ConfigName)

	req, err := sampler.NewRequest(options.ConfigName, cfg, ckpt, sampler.Options{
		BatchSize:   o.config.Sampler.BatchSize,
		NumOutputs:  options.NumOutputs,
		Length:      options.Length,
		Temperature: options.Temperature,
	})
	if err != nil {
		return nil, err
	}

	backend, err := o.sampleBackend()
	if err != nil {
		return nil, err
	}

	o.logger.Infof("Sampling %d sequences from %s (temperature %.2f)", options.NumOutputs, options.ConfigName, options.Temperature)

	sequences, err := backend.Sample(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("sampling failed: %w", err)
	}

	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	files := make([]GeneratedFile, len(sequences))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWriters)
	for i := range sequences {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(options.OutputDir, FileName(i))
			if err := sequences[i].WriteFile(path); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			if DebugLog != nil {
				DebugLog("wrote %s (%d notes)", path, len(sequences[i].Notes))
			}
			files[i] = GeneratedFile{
				Index:     i,
				Path:      path,
				Notes:     len(sequences[i].Notes),
				TotalTime: sequences[i].TotalTime,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &GenerateResult{
		RunID:      uuid.New(),
		ConfigName: options.ConfigName,
		Checkpoint: ckpt,
		Files:      files,
		Manifest:   filepath.Join(options.OutputDir, ManifestName),
		StartTime:  startTime,
	}

	entries := manifestEntries(result, options)
	for _, entry := range entries {
		if options.JSONFormat {
			line, _ := json.Marshal(entry)
			fmt.Fprintln(o.out, string(line))
		} else {
			fmt.Fprintf(o.out, "Saved: %s\n", entry.Path)
		}
	}

	if err := writeManifest(result.Manifest, entries); err != nil {
		return nil, err
	}

	o.recordHistory(ctx, entries)
	o.indexManifest(ctx, result.Manifest)

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)
	return result, nil
}

func manifestEntries(result *GenerateResult, options GenerateOptions) []ManifestEntry {
	entries := make([]ManifestEntry, len(result.Files))
	for i, f := range result.Files {
		entries[i] = ManifestEntry{
			RunID:         result.RunID.String(),
			ConfigName:    result.ConfigName,
			Checkpoint:    result.Checkpoint,
			Temperature:   options.Temperature,
			NumOutputs:    options.NumOutputs,
			CreatedAt:     result.StartTime.UTC(),
			GeneratedFile: f,
		}
	}
	return entries
}

func writeManifest(path string, entries []ManifestEntry) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("failed to write manifest: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return file.Close()
}

func (o *Orchestrator) recordHistory(ctx context.Context, entries []ManifestEntry) {
	if o.db == nil || !o.db.IsEnabled() {
		return
	}

	records := make([]database.GenerationRecord, 0, len(entries))
	for _, e := range entries {
		runID, err := uuid.Parse(e.RunID)
		if err != nil {
			o.logger.Warnf("Skipping history record for %s: %v", e.Path, err)
			continue
		}
		records = append(records, database.GenerationRecord{
			RunID:       runID,
			ConfigName:  e.ConfigName,
			Checkpoint:  e.Checkpoint,
			Temperature: e.Temperature,
			NumOutputs:  e.NumOutputs,
			FilePath:    e.Path,
			CreatedAt:   e.CreatedAt,
		})
	}

	if err := o.db.RecordGenerations(ctx, records); err != nil {
		o.logger.Warnf("Failed to record generations in database: %v", err)
	}
}

func (o *Orchestrator) indexManifest(ctx context.Context, manifest string) {
	if !o.config.Elastic.Enabled {
		return
	}

	client, err := elastic.New(elastic.Config{
		URL:      o.config.Elastic.URL,
		Username: o.config.Elastic.Username,
		Password: o.config.Elastic.Password,
		Index:    o.config.Elastic.Index,
	})
	if err != nil {
		o.logger.Warnf("Elasticsearch unavailable: %v", err)
		return
	}

	failed, err := client.IndexManifest(ctx, manifest)
	if err != nil {
		o.logger.Warnf("Failed to index manifest: %v", err)
		return
	}
	if failed > 0 {
		o.logger.Warnf("%d manifest entries were rejected by %s", failed, client.Index())
	}
}
