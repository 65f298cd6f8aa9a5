// Package dataset is the façade over a single HDF5/NetCDF-4 container: it
// opens the file once, builds the DAS and DDS caches eagerly, and exposes
// the dap2.Source contract for streaming constrained reads.
package dataset

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/scigolib/dapd/dap2"
	"github.com/scigolib/dapd/dap2/das"
	"github.com/scigolib/dapd/dap2/dds"
	"github.com/scigolib/dapd/hdf5"
)

// Dataset is an opened container with its DAS/DDS already built. It is
// immutable after Open and safe to share across concurrent requests.
type Dataset struct {
	file *hdf5.File
	name string

	das *das.Model
	dds *dds.Dataset

	// nativeLayout records each variable's on-disk element size and byte
	// order, captured at build time since StreamVariable must report the
	// container's actual wire layout rather than the widened DDS size.
	nativeLayout map[string]nativeLayout
}

type nativeLayout struct {
	elementSize int
	bigEndian   bool
}

// Open opens the HDF5/NetCDF-4 file at path and builds its DAS/DDS caches.
// name is the catalog route this dataset is served under; it becomes the
// DDS's top-level Dataset name.
func Open(path, name string) (*Dataset, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}

	d := &Dataset{file: f, name: name}
	if err := d.build(); err != nil {
		f.Close()
		return nil, err
	}
	return d, nil
}

// Close releases the underlying file handle.
func (d *Dataset) Close() error {
	return d.file.Close()
}

// Das returns the dataset's immutable attribute model.
func (d *Dataset) Das() *das.Model {
	return d.das
}

// Dds returns the dataset's immutable variable/dimension graph.
func (d *Dataset) Dds() *dds.Dataset {
	return d.dds
}

// Raw opens a fresh read-only handle to the underlying file for whole-file
// download, along with its size.
func (d *Dataset) Raw() (io.ReadCloser, int64, error) {
	f, err := os.Open(d.file.Path())
	if err != nil {
		return nil, 0, fmt.Errorf("dataset: raw open: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("dataset: raw stat: %w", err)
	}
	return f, info.Size(), nil
}

// build walks the file's allocated datasets into DDS variables and their
// DAS attribute blocks, and the root group's attributes into NC_GLOBAL.
func (d *Dataset) build() error {
	globalAttrs, err := d.file.Root().Attributes()
	if err != nil {
		return fmt.Errorf("dataset: reading global attributes: %w", err)
	}

	var variables []dds.Variable
	var dasVariables []das.Variable
	dimSize := make(map[string]uint64)
	layout := make(map[string]nativeLayout)

	for _, ds := range d.file.Datasets() {
		meta, err := ds.Metadata()
		if err != nil {
			return fmt.Errorf("dataset: metadata for %s: %w", ds.Name(), err)
		}
		if !meta.Allocated() {
			continue
		}

		vartype, err := varTypeOf(meta.Datatype)
		if err != nil {
			return fmt.Errorf("dataset: %s: %w", ds.Name(), err)
		}

		dimNames, err := d.file.DimensionNames(ds)
		if err != nil {
			return fmt.Errorf("dataset: dimension names for %s: %w", ds.Name(), err)
		}
		for i, dim := range dimNames {
			dimSize[dim] = meta.Dims()[i]
		}

		variables = append(variables, dds.Variable{
			Name:    ds.Name(),
			VarType: vartype,
			Dims:    dimNames,
		})
		layout[ds.Name()] = nativeLayout{
			elementSize: int(meta.Datatype.Size),
			bigEndian:   meta.Datatype.GetByteOrder() == binary.BigEndian,
		}

		attrs, err := ds.Attributes()
		if err != nil {
			return fmt.Errorf("dataset: attributes for %s: %w", ds.Name(), err)
		}
		dasVariables = append(dasVariables, das.Variable{
			Name:       ds.Name(),
			Attributes: filterAttrs(attrs),
		})
	}

	d.dds = dds.NewDataset(d.name, variables, dimSize)
	d.das = &das.Model{
		Global:    filterAttrs(globalAttrs),
		Variables: dasVariables,
	}
	d.nativeLayout = layout
	return nil
}

func filterAttrs(attrs []*hdf5.Attribute) []das.Attribute {
	out := make([]das.Attribute, 0, len(attrs))
	for _, a := range attrs {
		if das.KnownStructuralAttributes[a.Name] {
			continue
		}
		out = append(out, das.Attribute{Name: a.Name, Value: attrToValue(a)})
	}
	return out
}

// StreamVariable implements dap2.Source over this dataset's underlying file.
func (d *Dataset) StreamVariable(_ context.Context, details dds.VariableDetails) (bool, int, dap2.ByteStream, error) {
	ds := d.file.Dataset(details.Name)
	if ds == nil {
		return false, 0, nil, fmt.Errorf("dataset: no backing storage for %q", details.Name)
	}

	sel := &hdf5.HyperslabSelection{
		Start:  make([]uint64, len(details.Axes)),
		Count:  make([]uint64, len(details.Axes)),
		Stride: make([]uint64, len(details.Axes)),
		Block:  make([]uint64, len(details.Axes)),
	}
	for i, a := range details.Axes {
		sel.Start[i] = a.Start
		sel.Count[i] = a.Count
		sel.Stride[i] = a.Stride
		sel.Block[i] = 1
	}

	raw, err := ds.ReadHyperslabRaw(sel)
	if err != nil {
		return false, 0, nil, fmt.Errorf("%w: %s: %v", dap2.ErrRead, details.Name, err)
	}

	nl, ok := d.nativeLayout[details.Name]
	if !ok {
		return false, 0, nil, fmt.Errorf("dataset: no layout recorded for %q", details.Name)
	}

	return nl.bigEndian, nl.elementSize, dap2.NewSliceStream(raw, 0), nil
}
