package readers

import (
	"fmt"
	"math"
	"strconv"

	"github.com/TFMV/reconcile/pkg/core"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// SnapshotFromRecords converts Arrow record batches sharing one schema into a
// Snapshot. Column data types are the Arrow type names.
func SnapshotFromRecords(schema *arrow.Schema, records ...arrow.Record) (*core.Snapshot, error) {
	fields := schema.Fields()
	columns := make([]core.Column, len(fields))
	for i, f := range fields {
		columns[i] = core.Column{Name: f.Name, Ordinal: i, DataType: f.Type.String()}
	}

	var rows [][]core.Value
	for _, rec := range records {
		if int(rec.NumCols()) != len(fields) {
			return nil, fmt.Errorf("record has %d columns, schema has %d", rec.NumCols(), len(fields))
		}
		for i := 0; i < int(rec.NumRows()); i++ {
			row := make([]core.Value, len(fields))
			for j := range fields {
				v, err := arrowValue(rec.Column(j), i)
				if err != nil {
					return nil, fmt.Errorf("column %s row %d: %w", fields[j].Name, i, err)
				}
				row[j] = v
			}
			rows = append(rows, row)
		}
	}
	return core.NewSnapshot(columns, rows)
}

func arrowValue(col arrow.Array, idx int) (core.Value, error) {
	if col.IsNull(idx) {
		return core.Null(), nil
	}

	switch arr := col.(type) {
	case *array.Boolean:
		return core.Bool(arr.Value(idx)), nil
	case *array.Int8:
		return core.Int(int64(arr.Value(idx))), nil
	case *array.Int16:
		return core.Int(int64(arr.Value(idx))), nil
	case *array.Int32:
		return core.Int(int64(arr.Value(idx))), nil
	case *array.Int64:
		return core.Int(arr.Value(idx)), nil
	case *array.Uint8:
		return core.Int(int64(arr.Value(idx))), nil
	case *array.Uint16:
		return core.Int(int64(arr.Value(idx))), nil
	case *array.Uint32:
		return core.Int(int64(arr.Value(idx))), nil
	case *array.Uint64:
		v := arr.Value(idx)
		if v > math.MaxInt64 {
			return core.Decimal(strconv.FormatUint(v, 10)), nil
		}
		return core.Int(int64(v)), nil
	case *array.Float32:
		return core.Float(float64(arr.Value(idx))), nil
	case *array.Float64:
		return core.Float(arr.Value(idx)), nil
	case *array.Decimal128:
		scale := arr.DataType().(*arrow.Decimal128Type).Scale
		return core.Decimal(arr.Value(idx).ToString(scale)), nil
	case *array.Decimal256:
		scale := arr.DataType().(*arrow.Decimal256Type).Scale
		return core.Decimal(arr.Value(idx).ToString(scale)), nil
	case *array.String:
		return core.String(arr.Value(idx)), nil
	case *array.LargeString:
		return core.String(arr.Value(idx)), nil
	case *array.Binary:
		return core.Bytes(arr.Value(idx)), nil
	case *array.LargeBinary:
		return core.Bytes(arr.Value(idx)), nil
	case *array.FixedSizeBinary:
		return core.Bytes(arr.Value(idx)), nil
	case *array.Date32:
		return core.Time(arr.Value(idx).ToTime()), nil
	case *array.Date64:
		return core.Time(arr.Value(idx).ToTime()), nil
	case *array.Timestamp:
		unit := arr.DataType().(*arrow.TimestampType).Unit
		return core.Time(arr.Value(idx).ToTime(unit)), nil
	case array.ListLike:
		return listValue(arr, idx)
	}
	return core.Null(), fmt.Errorf("unsupported arrow type %s", col.DataType())
}

func listValue(arr array.ListLike, idx int) (core.Value, error) {
	values := arr.ListValues()
	start, end := arr.ValueOffsets(idx)

	items := make([]core.Value, 0, end-start)
	for i := start; i < end; i++ {
		v, err := arrowValue(values, int(i))
		if err != nil {
			return core.Null(), err
		}
		items = append(items, v)
	}
	return core.List(elementKind(values.DataType()), items...)
}

// elementKind maps an Arrow type to the Value kind arrowValue produces for it.
func elementKind(dt arrow.DataType) core.Kind {
	switch dt.ID() {
	case arrow.BOOL:
		return core.KindBool
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return core.KindInt
	case arrow.FLOAT32, arrow.FLOAT64:
		return core.KindFloat
	case arrow.DECIMAL128, arrow.DECIMAL256:
		return core.KindDecimal
	case arrow.STRING, arrow.LARGE_STRING:
		return core.KindString
	case arrow.BINARY, arrow.LARGE_BINARY, arrow.FIXED_SIZE_BINARY:
		return core.KindBytes
	case arrow.DATE32, arrow.DATE64, arrow.TIMESTAMP:
		return core.KindTime
	case arrow.LIST, arrow.LARGE_LIST, arrow.FIXED_SIZE_LIST:
		return core.KindList
	}
	return core.KindNull
}
