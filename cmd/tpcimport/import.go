package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/tpcload/internal/core"
)

type importOptions struct {
	table        string
	delimiter    string
	encoding     string
	trimTrailing bool
	parallel     int
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import one or more delimited files",
		Long: `Import streams each file into its table, several files at a time.
Without --table the table is taken from the file name, so lineitem.tbl and
lineitem.tbl.gz both load into lineitem. Without --trim-trailing the trailing
delimiter is trimmed for .tbl files only.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var trim *bool
			if cmd.Flags().Changed("trim-trailing") {
				trim = &opts.trimTrailing
			}
			return runImport(cmd, opts, trim, args)
		},
	}

	cmd.Flags().StringVarP(&opts.table, "table", "t", "", "Destination table (default: from file name)")
	cmd.Flags().StringVarP(&opts.delimiter, "delimiter", "d", "", "Field delimiter (default IMPORT_DEFAULT_DELIMITER)")
	cmd.Flags().StringVar(&opts.encoding, "encoding", "", "Character set: utf-8, gbk, gb18030")
	cmd.Flags().BoolVar(&opts.trimTrailing, "trim-trailing", false, "Drop one trailing delimiter per line")
	cmd.Flags().IntVarP(&opts.parallel, "parallel", "p", 0, "Files imported at once (default IMPORT_MAX_CONCURRENT)")
	return cmd
}

func runImport(cmd *cobra.Command, opts importOptions, trim *bool, files []string) error {
	reqs := make([]core.ImportRequest, len(files))
	for i, path := range files {
		req, err := buildRequest(opts, trim, path)
		if err != nil {
			return withCode(exitUsage, err)
		}
		reqs[i] = req
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	parallel := opts.parallel
	if limit := app.Config.Import.MaxConcurrent; parallel <= 0 || parallel > limit {
		parallel = limit
	}

	out := newEventWriter(cmd.OutOrStdout())
	var g errgroup.Group
	g.SetLimit(parallel)

	var (
		mu      sync.Mutex
		results = make([]*core.ImportResult, len(files))
	)
	for i, path := range files {
		g.Go(func() error {
			res, err := importFile(cmd, app.Service, reqs[i], path, out)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()

	var imported, failed int
	for _, res := range results {
		if res != nil {
			imported += res.ImportedRows
			failed += res.FailedRows
		}
	}
	slog.Info("import finished", "files", len(files), "imported", imported, "failed", failed)
	return err
}

func importFile(cmd *cobra.Command, svc *core.Service, req core.ImportRequest, path string, out *eventWriter) (*core.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil {
		req.Size = info.Size()
	}
	return svc.RunImport(cmd.Context(), req, f, out.sink(path))
}

func buildRequest(opts importOptions, trim *bool, path string) (core.ImportRequest, error) {
	table := opts.table
	if table == "" {
		table = tableFromPath(path)
	}
	if _, err := core.Resolve(table); err != nil {
		return core.ImportRequest{}, fmt.Errorf("%s: %w (use --table)", path, err)
	}

	trimTrailing := strings.Contains(filepath.Base(path), ".tbl")
	if trim != nil {
		trimTrailing = *trim
	}

	return core.ImportRequest{
		Table:                 table,
		FileName:              filepath.Base(path),
		Delimiter:             opts.delimiter,
		Encoding:              opts.encoding,
		TrimTrailingDelimiter: trimTrailing,
	}, nil
}

// tableFromPath strips directories and every extension: "data/orders.tbl.gz"
// gives "orders".
func tableFromPath(path string) string {
	name := filepath.Base(path)
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

// eventWriter writes the events of concurrent imports to one stream, one
// JSON object per line, each tagged with its file.
type eventWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
	err error
}

func newEventWriter(w io.Writer) *eventWriter {
	return &eventWriter{enc: json.NewEncoder(w)}
}

type fileEvent struct {
	File string `json:"file"`
	core.Event
}

func (w *eventWriter) sink(file string) core.EventSink {
	return core.SinkFunc(func(e core.Event) {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.err != nil {
			return
		}
		if err := w.enc.Encode(fileEvent{File: file, Event: e}); err != nil {
			w.err = err
			if !errors.Is(err, os.ErrClosed) {
				slog.Warn("write event", "error", err)
			}
		}
	})
}
