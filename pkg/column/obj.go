package column

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/config"
	"github.com/ajitpratap0/tabular/pkg/errors"
)

// ObjVTable customizes the lifecycle of host objects stored in an object
// column. Retain is invoked once per element when the column takes ownership,
// Release once when the last column reference to the storage is dropped.
// Either hook may be nil.
type ObjVTable struct {
	Retain  func(v interface{})
	Release func(v interface{})
}

// objData is the shared element store behind object columns. Shallow copies
// of an object column alias the same objData; the vtable's Release hooks run
// exactly once, when the last alias drops its reference.
type objData struct {
	refs  atomic.Int64
	elems []interface{}
	vt    *ObjVTable
}

func newObjData(elems []interface{}, vt *ObjVTable) *objData {
	d := &objData{elems: elems, vt: vt}
	d.refs.Store(1)
	if vt != nil && vt.Retain != nil {
		for _, v := range elems {
			if v != nil {
				vt.Retain(v)
			}
		}
	}
	return d
}

func (d *objData) share() *objData {
	d.refs.Add(1)
	return d
}

func (d *objData) release() {
	if d.refs.Add(-1) != 0 {
		return
	}
	if d.vt != nil && d.vt.Release != nil {
		for _, v := range d.elems {
			if v != nil {
				d.vt.Release(v)
			}
		}
	}
	d.elems = nil
}

// objColumn stores one opaque host value per row. A nil element means NA.
type objColumn struct {
	data *objData

	statsMu sync.Mutex
	stats   *Stats
}

// newObjColumn takes ownership of elems (retaining each non-nil element if a
// vtable is supplied). The slice must not be mutated by the caller afterwards.
func newObjColumn(elems []interface{}, vt *ObjVTable) *objColumn {
	return &objColumn{data: newObjData(elems, vt)}
}

func (c *objColumn) stype() SType    { return Obj64 }
func (c *objColumn) nrows() int64    { return int64(len(c.data.elems)) }
func (c *objColumn) isVirtual() bool { return false }

func (c *objColumn) getInt32(int64) (int32, bool, error) {
	return 0, false, accessorMismatch(Obj64, "int32")
}
func (c *objColumn) getInt64(int64) (int64, bool, error) {
	return 0, false, accessorMismatch(Obj64, "int64")
}
func (c *objColumn) getFloat32(int64) (float32, bool, error) {
	return 0, false, accessorMismatch(Obj64, "float32")
}
func (c *objColumn) getFloat64(int64) (float64, bool, error) {
	return 0, false, accessorMismatch(Obj64, "float64")
}
func (c *objColumn) getStr(int64) (string, bool, error) {
	return "", false, accessorMismatch(Obj64, "string")
}

func (c *objColumn) getObj(i int64) (interface{}, bool, error) {
	v := c.data.elems[i]
	return v, v == nil, nil
}

func (c *objColumn) shallowCopy() impl {
	return &objColumn{data: c.data.share()}
}

func (c *objColumn) materialize(context.Context, *config.Config) (impl, error) {
	return c.shallowCopy(), nil
}

func (c *objColumn) dataBuffer(int) *buffer.Buffer { return nil }

func (c *objColumn) release() {
	c.data.release()
}

func (c *objColumn) verify() error {
	if c.data == nil {
		return errors.AssertionError("object column has no element store")
	}
	if r := c.data.refs.Load(); r < 1 {
		return errors.AssertionError("object store refcount is %d", r)
	}
	return nil
}
