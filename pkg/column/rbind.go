package column

import (
	"context"

	"github.com/ajitpratap0/tabular/pkg/config"
	"github.com/ajitpratap0/tabular/pkg/errors"
)

// Rbind concatenates columns vertically into one new column. The result's
// stype is the promotion of all input stypes; pieces of a narrower stype are
// cast up, and void pieces contribute runs of NA. The inputs are not
// consumed.
func Rbind(ctx context.Context, cfg *config.Config, cols ...Column) (Column, error) {
	cfg = orDefault(cfg)
	if len(cols) == 0 {
		return NewVoid(0)
	}

	st := Void
	var total int64
	for _, c := range cols {
		if !c.IsValid() {
			return Column{}, errors.ValueError("cannot rbind a zero-value column")
		}
		st = Promote(st, c.Stype())
		total += c.NRows()
	}
	if st == Void {
		return NewVoid(total)
	}

	// Cast every piece to the target stype and materialize it. Pieces whose
	// stype already matches come back as cheap shallow copies.
	pieces := make([]impl, 0, len(cols))
	defer func() {
		for _, p := range pieces {
			p.release()
		}
	}()
	for _, c := range cols {
		cast, err := newCastColumn(cfg, c.d, st, false)
		if err != nil {
			return Column{}, err
		}
		m, err := cast.materialize(ctx, cfg)
		cast.release()
		if err != nil {
			return Column{}, err
		}
		pieces = append(pieces, m)
	}

	switch {
	case st.IsFixedWidth():
		return rbindFixed(st, total, pieces)
	case st == Str32 || st == Str64:
		return rbindStr(total, pieces)
	default:
		return rbindObj(total, pieces)
	}
}

func rbindFixed(st SType, total int64, pieces []impl) (Column, error) {
	out, err := newFWColumn(st, total)
	if err != nil {
		return Column{}, err
	}
	dst := out.mbuf.WritableBytes()
	pos := int64(0)
	for _, p := range pieces {
		fw, ok := p.(*fwColumn)
		if !ok {
			out.release()
			return Column{}, errors.AssertionError(
				"rbind piece materialized as %T, want fixed-width", p)
		}
		n := copy(dst[pos:], fw.mbuf.Bytes())
		pos += int64(n)
	}
	return Column{d: out}, nil
}

func rbindStr(total int64, pieces []impl) (Column, error) {
	var bytes int64
	for _, p := range pieces {
		if s, ok := p.(*strColumn); ok {
			bytes += s.strdata.Size()
		}
	}
	b := newStrBuilder(total, bytes)
	for _, p := range pieces {
		s, ok := p.(*strColumn)
		if !ok {
			return Column{}, errors.AssertionError(
				"rbind piece materialized as %T, want string", p)
		}
		for i := int64(0); i < s.n; i++ {
			v, na, err := s.getStr(i)
			if err != nil {
				return Column{}, err
			}
			if na {
				b.appendNA()
			} else {
				b.appendStr(v)
			}
		}
	}
	c, err := b.finish()
	if err != nil {
		return Column{}, err
	}
	return Column{d: c}, nil
}

func rbindObj(total int64, pieces []impl) (Column, error) {
	// The combined column keeps the sources' vtable only when they all agree,
	// so Retain/Release hooks stay balanced per element.
	var vt *ObjVTable
	vtSet := false
	elems := make([]interface{}, 0, total)
	for _, p := range pieces {
		o, ok := p.(*objColumn)
		if !ok {
			return Column{}, errors.AssertionError(
				"rbind piece materialized as %T, want object", p)
		}
		if !vtSet {
			vt, vtSet = o.data.vt, true
		} else if vt != o.data.vt {
			vt = nil
		}
		elems = append(elems, o.data.elems...)
	}
	return Column{d: newObjColumn(elems, vt)}, nil
}
