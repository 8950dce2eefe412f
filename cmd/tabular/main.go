package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/tabular/pkg/arrowconv"
	"github.com/ajitpratap0/tabular/pkg/column"
	"github.com/ajitpratap0/tabular/pkg/config"
	"github.com/ajitpratap0/tabular/pkg/frame"
	"github.com/ajitpratap0/tabular/pkg/logger"
	"github.com/ajitpratap0/tabular/pkg/rowindex"
	"github.com/ajitpratap0/tabular/pkg/strs"
)

var version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:   "tabular",
		Short: "Tabular - columnar data engine",
		Long: `Tabular is an in-memory columnar data engine. The CLI loads JSON row
data into typed columns and can describe, slice and re-encode it.`,
	}

	root.PersistentFlags().String("config", "", "engine config file (yaml)")
	root.PersistentFlags().Int("threads", 0, "worker threads (0 = all CPUs)")
	root.PersistentFlags().String("log-level", "info", "log level")
	_ = viper.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("threads", root.PersistentFlags().Lookup("threads"))
	_ = viper.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))
	viper.SetEnvPrefix("TABULAR")
	viper.AutomaticEnv()

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Tabular v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	var head int64
	describeCmd := &cobra.Command{
		Use:   "describe <input.json>",
		Short: "Load JSON rows and print per-column types and statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return describe(args[0])
		},
	}
	root.AddCommand(describeCmd)

	var format string
	convertCmd := &cobra.Command{
		Use:   "convert <input.json> <output>",
		Short: "Re-encode JSON rows as JSON or an Arrow IPC file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return convert(args[0], args[1], format, head)
		},
	}
	convertCmd.Flags().StringVar(&format, "format", "json", "output format: json or arrow")
	convertCmd.Flags().Int64Var(&head, "head", 0, "keep only the first N rows (0 = all)")
	root.AddCommand(convertCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// engineConfig assembles the engine configuration from the config file (if
// given), environment and flags, and initializes logging.
func engineConfig() (*config.Config, error) {
	if err := logger.Init(logger.Config{Level: viper.GetString("log_level")}); err != nil {
		return nil, err
	}
	cfg := config.Default()
	if path := viper.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if t := viper.GetInt("threads"); t > 0 {
		cfg.NumThreads = t
	}
	cfg.Logger = logger.Get()
	return cfg, cfg.Validate()
}

func describe(input string) error {
	cfg, err := engineConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	f, err := loadJSON(input)
	if err != nil {
		return err
	}
	defer f.Release()
	if err := f.Materialize(ctx, cfg); err != nil {
		return err
	}

	fmt.Printf("%s: %d rows, %d columns\n", input, f.NRows(), f.NCols())
	line := strs.NewBuilder(64)
	for i := 0; i < f.NCols(); i++ {
		col, err := f.Column(i)
		if err != nil {
			return err
		}
		st, err := col.Stats(ctx, cfg)
		if err != nil {
			return err
		}
		line.Reset()
		line.WriteString(strs.Sprintf("  %-20s %-8s na=%d", f.Names()[i], col.Stype(), st.NACount))
		if st.HasMinMax {
			line.WriteString(strs.Sprintf(" min=%g max=%g", st.MinFloat, st.MaxFloat))
		}
		fmt.Println(line.String())
	}
	return nil
}

func convert(input, output, format string, head int64) error {
	cfg, err := engineConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	log := cfg.Log()

	f, err := loadJSON(input)
	if err != nil {
		return err
	}
	defer f.Release()
	log.Info("loaded frame",
		zap.String("input", input),
		zap.Int64("rows", f.NRows()),
		zap.Int("cols", f.NCols()))

	if head > 0 && head < f.NRows() {
		ri, err := rowindex.FromSlice(0, head, 1)
		if err != nil {
			return err
		}
		if err := f.ApplyRowIndex(ri); err != nil {
			return err
		}
	}

	switch format {
	case "json":
		return writeJSON(ctx, cfg, f, output)
	case "arrow":
		return writeArrow(ctx, cfg, f, output)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeArrow(ctx context.Context, cfg *config.Config, f *frame.Frame, path string) error {
	rec, err := arrowconv.ToRecord(ctx, cfg, f, memory.NewGoAllocator())
	if err != nil {
		return err
	}
	defer rec.Release()

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	w, err := ipc.NewFileWriter(out, ipc.WithSchema(rec.Schema()))
	if err != nil {
		return err
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func writeJSON(ctx context.Context, cfg *config.Config, f *frame.Frame, path string) error {
	if err := f.Materialize(ctx, cfg); err != nil {
		return err
	}
	rows := make([]map[string]interface{}, f.NRows())
	for r := int64(0); r < f.NRows(); r++ {
		row := make(map[string]interface{}, f.NCols())
		for i := 0; i < f.NCols(); i++ {
			col, err := f.Column(i)
			if err != nil {
				return err
			}
			v, err := cellValue(col, r)
			if err != nil {
				return err
			}
			row[f.Names()[i]] = v
		}
		rows[r] = row
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func cellValue(col column.Column, r int64) (interface{}, error) {
	switch col.Ltype() {
	case column.LVoid:
		return nil, nil
	case column.LBool:
		v, na, err := col.GetInt32(r)
		if na || err != nil {
			return nil, err
		}
		return v != 0, nil
	case column.LInt:
		v, na, err := col.GetInt64(r)
		if na || err != nil {
			return nil, err
		}
		return v, nil
	case column.LReal:
		v, na, err := col.GetFloat64(r)
		if na || err != nil {
			return nil, err
		}
		return v, nil
	case column.LString:
		v, na, err := col.GetStr(r)
		if na || err != nil {
			return nil, err
		}
		return v, nil
	default:
		v, _, err := col.GetObj(r)
		return v, err
	}
}

// loadJSON reads an array of flat JSON objects into a frame, inferring one
// typed column per key. Booleans map to bool8, integral numbers to int64,
// other numbers to float64, strings to a string column; a column with mixed
// value kinds falls back to strings.
func loadJSON(path string) (*frame.Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows []map[string]json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}

	var names []string
	seen := map[string]bool{}
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}

	cols := make([]column.Column, 0, len(names))
	release := func() {
		for i := range cols {
			cols[i].Release()
		}
	}
	for _, name := range names {
		col, err := inferColumn(rows, name)
		if err != nil {
			release()
			return nil, err
		}
		cols = append(cols, col)
	}
	f, err := frame.New(names, cols)
	if err != nil {
		release()
		return nil, err
	}
	return f, nil
}

func inferColumn(rows []map[string]json.RawMessage, name string) (column.Column, error) {
	n := len(rows)
	valid := make([]bool, n)
	vals := make([]interface{}, n)
	hasBool, hasNum, hasStr, allIntegral := false, false, false, true
	for i, row := range rows {
		raw, ok := row[name]
		if !ok || string(raw) == "null" {
			continue
		}
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return column.Column{}, err
		}
		valid[i] = true
		vals[i] = v
		switch x := v.(type) {
		case bool:
			hasBool = true
		case float64:
			hasNum = true
			if x != math.Trunc(x) || x < math.MinInt64 || x >= math.MaxInt64 {
				allIntegral = false
			}
		case string:
			hasStr = true
		default:
			hasStr = true
			vals[i] = string(raw)
		}
	}

	kinds := 0
	for _, has := range []bool{hasBool, hasNum, hasStr} {
		if has {
			kinds++
		}
	}
	switch {
	case kinds == 0:
		return column.NewVoid(int64(n))
	case kinds > 1 || hasStr:
		out := make([]string, n)
		for i, v := range vals {
			if valid[i] {
				out[i] = fmt.Sprint(v)
			}
		}
		return column.FromStrs(out, valid)
	case hasBool:
		out := make([]bool, n)
		for i, v := range vals {
			if valid[i] {
				out[i] = v.(bool)
			}
		}
		return column.FromBools(out, valid)
	case allIntegral:
		out := make([]int64, n)
		for i, v := range vals {
			if valid[i] {
				out[i] = int64(v.(float64))
			} else {
				out[i] = column.NAInt64
			}
		}
		return column.FromFixed(out)
	default:
		out := make([]float64, n)
		for i, v := range vals {
			if valid[i] {
				out[i] = v.(float64)
			} else {
				out[i] = column.NAFloat64()
			}
		}
		return column.FromFixed(out)
	}
}
