// Package fdt reads and writes flattened device tree (FDT) blobs.
//
// The decoder does not build a tree in memory. It exposes the structure
// block as a stream of events so callers can interpret the nodes they care
// about and skip everything else without looking at it:
//
//	r, err := fdt.NewReader(data)
//	if err != nil {
//	    return err
//	}
//	it := r.Walk()
//	for {
//	    e, err := it.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    switch e.Kind {
//	    case fdt.StartNode:
//	        if e.Name != "wanted" {
//	            err = it.SkipNode()
//	        }
//	    case fdt.Property:
//	        raw := make([]byte, e.Value.Size())
//	        if _, err := e.Value.ReadAt(raw, 0); err != nil {
//	            return err
//	        }
//	        fmt.Println(e.Name, fdt.InferType(raw).Kind)
//	    }
//	}
//
// Property values are exposed as [io.SectionReader]s over the blob so the
// caller decides how much it is willing to read (see [MaxValueSize]).
//
// [Builder] produces blobs (version 17) and is used to turn other layout
// descriptions into FDT, and by tests to build fixtures.
package fdt
