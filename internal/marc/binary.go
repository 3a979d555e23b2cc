package marc

import (
	"fmt"
	"io"
	"strings"
)

// ISO 2709 structure delimiters.
const (
	fieldTerminator   = 0x1e
	recordTerminator  = 0x1d
	subfieldDelimiter = 0x1f
	maxRecordLen      = 99999
)

// WriteBinary serializes records in the binary ISO 2709 form: for each
// record a leader with computed lengths, a directory, and the concatenated
// field data.
func WriteBinary(w io.Writer, records []*Record) error {
	for i, r := range records {
		if err := writeBinaryRecord(w, r); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

func writeBinaryRecord(w io.Writer, r *Record) error {
	var dir strings.Builder
	var data strings.Builder

	for _, f := range r.Fields {
		start := data.Len()
		if f.IsControl() {
			data.WriteString(f.Value)
		} else {
			data.WriteString(f.Ind1)
			data.WriteString(f.Ind2)
			for _, sf := range f.Subfields {
				data.WriteByte(subfieldDelimiter)
				data.WriteString(sf.Code)
				data.WriteString(sf.Value)
			}
		}
		data.WriteByte(fieldTerminator)

		length := data.Len() - start
		if length > 9999 || start > 99999 {
			return fmt.Errorf("field %s exceeds directory limits", f.Tag)
		}
		fmt.Fprintf(&dir, "%s%04d%05d", f.Tag, length, start)
	}

	baseAddress := LeaderLen + dir.Len() + 1
	recordLen := baseAddress + data.Len() + 1
	if recordLen > maxRecordLen {
		return fmt.Errorf("record length %d exceeds ISO 2709 limit", recordLen)
	}

	leader := padLeader(r.Leader)
	leader = fmt.Sprintf("%05d%s%05d%s", recordLen, leader[5:12], baseAddress, leader[17:])

	if _, err := io.WriteString(w, leader); err != nil {
		return err
	}
	if _, err := io.WriteString(w, dir.String()); err != nil {
		return err
	}
	if _, err := w.Write([]byte{fieldTerminator}); err != nil {
		return err
	}
	if _, err := io.WriteString(w, data.String()); err != nil {
		return err
	}
	_, err := w.Write([]byte{recordTerminator})
	return err
}
