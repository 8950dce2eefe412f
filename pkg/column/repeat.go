package column

import (
	"context"

	"github.com/ajitpratap0/tabular/pkg/config"
	"github.com/ajitpratap0/tabular/pkg/errors"
)

// Repeat tiles the column's rows times over, returning a new physical
// column of NRows*times rows. The input is not consumed.
func Repeat(ctx context.Context, cfg *config.Config, c Column, times int64) (Column, error) {
	if times < 0 {
		return Column{}, errors.ValueError("negative repeat count %d", times)
	}
	if !c.IsValid() {
		return Column{}, errors.ValueError("cannot repeat a zero-value column")
	}
	cfg = orDefault(cfg)
	n := c.NRows()
	total := n * times

	m, err := c.d.materialize(ctx, cfg)
	if err != nil {
		return Column{}, err
	}
	defer m.release()

	switch s := m.(type) {
	case *voidColumn:
		return NewVoid(total)

	case *fwColumn:
		out, err := newFWColumn(s.st, total)
		if err != nil {
			return Column{}, err
		}
		dst := out.mbuf.WritableBytes()
		unit := copy(dst, s.mbuf.Bytes())
		// Doubling copies: each pass reuses everything written so far.
		for filled := unit; filled < len(dst); {
			filled += copy(dst[filled:], dst[:filled])
		}
		return Column{d: out}, nil

	case *strColumn:
		b := newStrBuilder(total, s.strdata.Size()*times)
		for t := int64(0); t < times; t++ {
			for i := int64(0); i < n; i++ {
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
		rc, err := b.finish()
		if err != nil {
			return Column{}, err
		}
		return Column{d: rc}, nil

	case *objColumn:
		elems := make([]interface{}, 0, total)
		for t := int64(0); t < times; t++ {
			elems = append(elems, s.data.elems...)
		}
		return Column{d: newObjColumn(elems, s.data.vt)}, nil

	default:
		return Column{}, errors.AssertionError("materialize produced a virtual column")
	}
}
