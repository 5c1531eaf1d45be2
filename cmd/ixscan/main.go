package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/andreyvit/ixscan"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	a := newApp()
	err := a.rootCommand().Execute()
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Exit(1)
	}
}

type app struct {
	v          *viper.Viper
	configFile string
	seeds      []string

	cfg   *Config
	store *ixscan.Store
}

func newApp() *app {
	return &app{v: newViper()}
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

func (a *app) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ixscan",
		Short:         "Query and paginate index scans over an ixscan store",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "config file path (default ./ixscan.yaml)")
	flags.String("db", "ixscan.db", "database file path")
	flags.Bool("memory", false, "use a transient in-memory store")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.StringArrayVar(&a.seeds, "seed", nil, "load table:file.jsonl before running the command (repeatable)")
	_ = a.v.BindPFlag("db", flags.Lookup("db"))
	_ = a.v.BindPFlag("memory", flags.Lookup("memory"))
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))

	cmd.AddCommand(
		newLoadCommand(a),
		newPaginateCommand(a),
		newDumpCommand(a),
		newStatsCommand(a),
	)
	return cmd
}

func (a *app) open(ctx context.Context) error {
	cfg, err := loadConfig(a.v, a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	schema, err := cfg.Schema()
	if err != nil {
		return err
	}
	logger, err := cfg.Logger()
	if err != nil {
		return err
	}
	opt := ixscan.Options{Logger: logger}
	if cfg.Memory {
		a.store, err = ixscan.OpenMemory(schema, opt)
	} else {
		a.store, err = ixscan.Open(cfg.DB, schema, opt)
	}
	if err != nil {
		return err
	}
	for _, seed := range a.seeds {
		table, file, ok := strings.Cut(seed, ":")
		if !ok || table == "" || file == "" {
			return fmt.Errorf("invalid --seed %q, expected table:file.jsonl", seed)
		}
		if _, err := a.load(ctx, table, file); err != nil {
			return err
		}
	}
	return nil
}

func newLoadCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load <table> <file.jsonl>",
		Short: "Insert one document per line of a JSON Lines file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.load(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d documents into %s\n", n, args[0])
			return nil
		},
	}
}

func newDumpCommand(a *app) *cobra.Command {
	var noIndexRows bool
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print every table, document and index entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := ixscan.DumpAll
			if noIndexRows {
				flags &^= ixscan.DumpIndexRows
			}
			return a.store.Read(cmd.Context(), func(tx *ixscan.ReadTx) error {
				_, err := io.WriteString(cmd.OutOrStdout(), tx.Dump(flags))
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&noIndexRows, "no-index-rows", false, "omit index entries")
	return cmd
}

func newStatsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print per-table row and size statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			return a.store.Read(cmd.Context(), func(tx *ixscan.ReadTx) error {
				for _, tbl := range tx.Schema().Tables() {
					s, err := tx.TableStats(tbl.Name())
					if err != nil {
						return err
					}
					fmt.Fprintf(w, "%s: rows = %d, index_rows = %d, data_size = %d, index_size = %d, total_alloc = %d\n", tbl.Name(), s.Rows, s.IndexRows, s.DataSize, s.IndexSize, s.TotalAlloc())
				}
				fmt.Fprintf(w, "size: %d\n", tx.Size())
				return nil
			})
		},
	}
}
