package column

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/config"
	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/metrics"
	"github.com/ajitpratap0/tabular/pkg/parallel"
)

// castColumn re-types a source column lazily: elements are converted on
// access and nothing is stored until materialization. Missing values stay
// missing through every conversion.
//
// String sources parse leniently by default: an unparseable token, the empty
// string, or any token in the configured NA-string set becomes NA. The
// strict flag turns a parse failure into a value error naming the offending
// row instead.
type castColumn struct {
	src    impl
	st     SType
	strict bool
	isNA   func(s string) bool
}

func newCastColumn(cfg *config.Config, src impl, target SType, strict bool) (impl, error) {
	if src.stype() == target {
		return src.shallowCopy(), nil
	}
	if target == Void {
		n := src.nrows()
		return &voidColumn{n: n}, nil
	}
	from, to := src.stype().Ltype(), target.Ltype()
	if from == LObject && to != LObject {
		return nil, errors.NotImplError("cannot cast %s to %s", src.stype(), target)
	}
	cfg = orDefault(cfg)
	return &castColumn{src: src.shallowCopy(), st: target, strict: strict, isNA: cfg.IsNAString}, nil
}

func orDefault(cfg *config.Config) *config.Config {
	if cfg == nil {
		return config.Default()
	}
	return cfg
}

func (c *castColumn) stype() SType    { return c.st }
func (c *castColumn) nrows() int64    { return c.src.nrows() }
func (c *castColumn) isVirtual() bool { return true }

// srcInt64 reads row i of the source as an int64, whatever the source's
// logical type. Floats truncate toward zero; out-of-range floats become NA.
func (c *castColumn) srcInt64(i int64) (int64, bool, error) {
	switch c.src.stype().Ltype() {
	case LVoid:
		return 0, true, nil
	case LBool, LInt:
		return c.src.getInt64(i)
	case LReal:
		v, na, err := c.src.getFloat64(i)
		if na || err != nil {
			return 0, na, err
		}
		if math.IsNaN(v) || v <= math.MinInt64 || v >= math.MaxInt64 {
			return 0, true, nil
		}
		return int64(v), false, nil
	case LString:
		s, na, err := c.src.getStr(i)
		if na || err != nil {
			return 0, na, err
		}
		if c.isNA(s) {
			return 0, true, nil
		}
		v, perr := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if perr != nil {
			// Integer targets accept float-looking tokens by truncation.
			f, ferr := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if ferr != nil {
				if c.strict {
					return 0, false, errors.ValueError(
						"cannot parse %q in row %d as %s", s, i, c.st)
				}
				return 0, true, nil
			}
			return int64(f), false, nil
		}
		return v, false, nil
	default:
		return 0, false, accessorMismatch(c.src.stype(), "int64")
	}
}

func (c *castColumn) srcFloat64(i int64) (float64, bool, error) {
	switch c.src.stype().Ltype() {
	case LVoid:
		return 0, true, nil
	case LBool, LInt:
		v, na, err := c.src.getInt64(i)
		return float64(v), na, err
	case LReal:
		return c.src.getFloat64(i)
	case LString:
		s, na, err := c.src.getStr(i)
		if na || err != nil {
			return 0, na, err
		}
		if c.isNA(s) {
			return 0, true, nil
		}
		v, perr := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if perr != nil {
			if c.strict {
				return 0, false, errors.ValueError(
					"cannot parse %q in row %d as %s", s, i, c.st)
			}
			return 0, true, nil
		}
		return v, false, nil
	default:
		return 0, false, accessorMismatch(c.src.stype(), "float64")
	}
}

// srcStr formats row i of the source as text.
func (c *castColumn) srcStr(i int64) (string, bool, error) {
	switch c.src.stype().Ltype() {
	case LVoid:
		return "", true, nil
	case LBool:
		v, na, err := c.src.getInt32(i)
		if na || err != nil {
			return "", na, err
		}
		if v != 0 {
			return "True", false, nil
		}
		return "False", false, nil
	case LInt:
		v, na, err := c.src.getInt64(i)
		if na || err != nil {
			return "", na, err
		}
		return strconv.FormatInt(v, 10), false, nil
	case LReal:
		v, na, err := c.src.getFloat64(i)
		if na || err != nil {
			return "", na, err
		}
		return strconv.FormatFloat(v, 'g', -1, 64), false, nil
	case LString:
		return c.src.getStr(i)
	default:
		return "", false, accessorMismatch(c.src.stype(), "string")
	}
}

func (c *castColumn) getInt32(i int64) (int32, bool, error) {
	switch c.st {
	case Bool8, Int8, Int16, Int32:
		v, na, err := c.srcInt64(i)
		if na || err != nil {
			return 0, na, err
		}
		if c.st == Bool8 {
			if v != 0 {
				return 1, false, nil
			}
			return 0, false, nil
		}
		return int32(v), false, nil
	default:
		return 0, false, accessorMismatch(c.st, "int32")
	}
}

func (c *castColumn) getInt64(i int64) (int64, bool, error) {
	switch c.st {
	case Bool8, Int8, Int16, Int32, Int64:
		v, na, err := c.srcInt64(i)
		if na || err != nil {
			return 0, na, err
		}
		if c.st == Bool8 && v != 0 {
			v = 1
		}
		return v, false, nil
	default:
		return 0, false, accessorMismatch(c.st, "int64")
	}
}

func (c *castColumn) getFloat32(i int64) (float32, bool, error) {
	if c.st != Float32 {
		return 0, false, accessorMismatch(c.st, "float32")
	}
	v, na, err := c.srcFloat64(i)
	return float32(v), na, err
}

func (c *castColumn) getFloat64(i int64) (float64, bool, error) {
	if c.st != Float32 && c.st != Float64 {
		return 0, false, accessorMismatch(c.st, "float64")
	}
	return c.srcFloat64(i)
}

func (c *castColumn) getStr(i int64) (string, bool, error) {
	if c.st != Str32 && c.st != Str64 {
		return "", false, accessorMismatch(c.st, "string")
	}
	return c.srcStr(i)
}

func (c *castColumn) getObj(i int64) (interface{}, bool, error) {
	if c.st != Obj64 {
		return nil, false, accessorMismatch(c.st, "object")
	}
	switch c.src.stype().Ltype() {
	case LVoid:
		return nil, true, nil
	case LBool:
		v, na, err := c.src.getInt32(i)
		if na || err != nil {
			return nil, na, err
		}
		return v != 0, false, nil
	case LInt:
		v, na, err := c.src.getInt64(i)
		if na || err != nil {
			return nil, na, err
		}
		return v, false, nil
	case LReal:
		v, na, err := c.src.getFloat64(i)
		if na || err != nil {
			return nil, na, err
		}
		return v, false, nil
	case LString:
		s, na, err := c.src.getStr(i)
		if na || err != nil {
			return nil, na, err
		}
		return s, false, nil
	default:
		return c.src.getObj(i)
	}
}

func (c *castColumn) shallowCopy() impl {
	return &castColumn{src: c.src.shallowCopy(), st: c.st, strict: c.strict, isNA: c.isNA}
}

// textCoerced reports whether row i of a textual source held a non-missing
// token outside the NA-string set, i.e. lenient parsing turned real text
// into NA rather than passing an existing NA through.
func (c *castColumn) textCoerced(i int64) bool {
	s, na, err := c.src.getStr(i)
	return err == nil && !na && !c.isNA(s)
}

// castFill writes converted values for every row of out. Textual sources run
// on the dynamic schedule, since per-row parse cost varies wildly, and report
// leniently coerced rows through dlog: workers only buffer the message (no
// log sink may be touched inside a parallel region) and the caller flushes
// after the loop.
func castFill[T fixed](ctx context.Context, cfg *config.Config, out *fwColumn,
	get func(i int64) (T, bool), coerced func(i int64) bool,
	dynamic bool, dlog *parallel.DeferredLog) error {

	data := buffer.WritableView[T](out.mbuf)
	na := naValue[T]()
	body := func(start, end int64) {
		bad := int64(0)
		firstBad := int64(-1)
		for i := start; i < end; i++ {
			v, isna := get(i)
			if !isna {
				data[i] = v
				continue
			}
			data[i] = na
			if coerced != nil && coerced(i) {
				if firstBad < 0 {
					firstBad = i
				}
				bad++
			}
		}
		if bad > 0 && dlog != nil {
			dlog.Warn("cast coerced unparseable text to NA",
				zap.Int64("rows", bad), zap.Int64("first_row", firstBad))
		}
	}
	if dynamic {
		return parallel.ForDynamic(ctx, cfg, out.n, 0, body)
	}
	return parallel.ForStatic(ctx, cfg, out.n, body)
}

func (c *castColumn) materialize(ctx context.Context, cfg *config.Config) (impl, error) {
	cfg = orDefault(cfg)
	n := c.nrows()
	metrics.Materializations.WithLabelValues(c.st.String()).Inc()
	metrics.RowsMaterialized.Add(float64(n))

	// Parse and conversion errors surface per element; castFill bodies cannot
	// return them, so workers capture the first one and it is reported after
	// the loop.
	var errMu sync.Mutex
	var firstErr error
	capture := func(err error) {
		if err == nil {
			return
		}
		errMu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		errMu.Unlock()
	}

	switch c.st {
	case Str32, Str64:
		return buildStrColumn(ctx, cfg, n, c.getStr)

	case Obj64:
		elems := make([]interface{}, n)
		for i := int64(0); i < n; i++ {
			v, na, err := c.getObj(i)
			if err != nil {
				return nil, err
			}
			if !na {
				elems[i] = v
			}
		}
		return newObjColumn(elems, nil), nil
	}

	textual := c.src.stype().Ltype() == LString
	var dlog *parallel.DeferredLog
	var coerced func(i int64) bool
	if textual && !c.strict {
		dlog = &parallel.DeferredLog{}
		coerced = c.textCoerced
	}

	out, err := newFWColumn(c.st, n)
	if err != nil {
		return nil, err
	}
	switch c.st {
	case Bool8, Int8:
		err = castFill(ctx, cfg, out, func(i int64) (int8, bool) {
			v, na, e := c.getInt32(i)
			capture(e)
			return int8(v), na || e != nil
		}, coerced, textual, dlog)
	case Int16:
		err = castFill(ctx, cfg, out, func(i int64) (int16, bool) {
			v, na, e := c.getInt32(i)
			capture(e)
			return int16(v), na || e != nil
		}, coerced, textual, dlog)
	case Int32:
		err = castFill(ctx, cfg, out, func(i int64) (int32, bool) {
			v, na, e := c.getInt32(i)
			capture(e)
			return v, na || e != nil
		}, coerced, textual, dlog)
	case Int64:
		err = castFill(ctx, cfg, out, func(i int64) (int64, bool) {
			v, na, e := c.getInt64(i)
			capture(e)
			return v, na || e != nil
		}, coerced, textual, dlog)
	case Float32:
		err = castFill(ctx, cfg, out, func(i int64) (float32, bool) {
			v, na, e := c.getFloat32(i)
			capture(e)
			return v, na || e != nil
		}, coerced, textual, dlog)
	default:
		err = castFill(ctx, cfg, out, func(i int64) (float64, bool) {
			v, na, e := c.getFloat64(i)
			capture(e)
			return v, na || e != nil
		}, coerced, textual, dlog)
	}
	if dlog != nil && dlog.Len() > 0 {
		dlog.Flush(cfg.Log())
	}
	if err == nil && firstErr != nil {
		err = firstErr
	}
	if err != nil {
		out.release()
		return nil, err
	}
	return out, nil
}

func (c *castColumn) dataBuffer(int) *buffer.Buffer { return nil }

func (c *castColumn) release() {
	c.src.release()
}

func (c *castColumn) verify() error {
	return c.src.verify()
}
