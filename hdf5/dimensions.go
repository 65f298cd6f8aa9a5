package hdf5

import (
	"fmt"

	"github.com/scigolib/dapd/hdf5/internal/core"
)

const dimensionListAttribute = "DIMENSION_LIST"

// DimensionNames resolves the names NetCDF-4 assigns to each axis of a
// dataset. Each axis is named after the coordinate variable the dataset's
// DIMENSION_LIST attribute points to; an axis with no resolvable coordinate
// gets a synthetic "<dataset>_<axis>" name, which never collides with a
// real variable and so is reported as a plain (non-coordinate) dimension.
func (f *File) DimensionNames(d *Dataset) ([]string, error) {
	meta, err := d.Metadata()
	if err != nil {
		return nil, err
	}
	rank := len(meta.Dataspace.Dimensions)

	names := make([]string, rank)
	for i := range names {
		names[i] = fmt.Sprintf("%s_%d", d.Name(), i)
	}
	if rank == 0 {
		return names, nil
	}

	attrs, err := d.Attributes()
	if err != nil {
		return names, nil //nolint:nilerr // best effort: fall back to synthetic names
	}

	var dimList *core.Attribute
	for _, a := range attrs {
		if a.Name == dimensionListAttribute {
			dimList = a
			break
		}
	}
	if dimList == nil {
		return names, nil
	}

	offsetSize := int(f.sb.OffsetSize)
	descSize := 4 + offsetSize + 4
	if len(dimList.Data) < rank*descSize {
		return names, nil
	}

	byAddress := make(map[uint64]string)
	for _, ds := range f.Datasets() {
		byAddress[ds.Address()] = ds.Name()
	}

	for i := 0; i < rank; i++ {
		desc := dimList.Data[i*descSize : (i+1)*descSize]
		seqLen := f.sb.Endianness.Uint32(desc[0:4])
		if seqLen == 0 {
			continue
		}
		heapAddr := readOffset(desc[4:4+offsetSize], f.sb)
		heapIndex := f.sb.Endianness.Uint32(desc[4+offsetSize : 4+offsetSize+4])

		collection, err := core.ReadGlobalHeapCollection(f.osFile, heapAddr, offsetSize)
		if err != nil {
			continue
		}
		obj, err := collection.GetObject(heapIndex)
		if err != nil || len(obj.Data) < offsetSize {
			continue
		}

		refAddr := readOffset(obj.Data[:offsetSize], f.sb)
		if name, ok := byAddress[refAddr]; ok {
			names[i] = name
		}
	}

	return names, nil
}

func readOffset(b []byte, sb *core.Superblock) uint64 {
	if sb.OffsetSize == 8 {
		return sb.Endianness.Uint64(b)
	}
	return uint64(sb.Endianness.Uint32(b))
}
