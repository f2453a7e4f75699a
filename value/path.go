package value

import "strings"

// Get resolves a dotted path ("insured.address.city") against the object.
// Returns the value and true when every segment resolves through nested
// objects. Array indexing is not supported; paths address object fields only.
func (o Object) Get(path string) (Value, bool) {
	segs := strings.Split(path, ".")
	cur := o
	for i, seg := range segs {
		v, ok := cur[seg]
		if !ok {
			return Value{}, false
		}
		if i == len(segs)-1 {
			return v, true
		}
		cur, ok = v.Object()
		if !ok {
			return Value{}, false
		}
	}
	return Value{}, false
}

// Set returns a copy of the object with the value at the dotted path
// replaced. Missing intermediate objects are created; an intermediate
// non-object is replaced by an object. The receiver is never mutated.
func (o Object) Set(path string, v Value) Object {
	segs := strings.Split(path, ".")
	return setSegs(o, segs, v)
}

func setSegs(o Object, segs []string, v Value) Object {
	cp := o.Clone()
	if cp == nil {
		cp = Object{}
	}
	if len(segs) == 1 {
		cp[segs[0]] = v
		return cp
	}
	child, _ := cp[segs[0]].Object()
	cp[segs[0]] = Obj(setSegs(child, segs[1:], v))
	return cp
}

// Delete returns a copy of the object with the field at the dotted path
// removed. A path that does not resolve leaves the copy unchanged.
func (o Object) Delete(path string) Object {
	segs := strings.Split(path, ".")
	cp := o.Clone()
	cur := cp
	for i, seg := range segs {
		if i == len(segs)-1 {
			delete(cur, seg)
			return cp
		}
		child, ok := cur[seg].Object()
		if !ok {
			return cp
		}
		cur = child
	}
	return cp
}
