package storefs

import (
	"github.com/filetree/vfscore/fs"
	"github.com/filetree/vfscore/fs/inode"
)

// Each store entry fuses the fixed-size inode header with its payload
// (file bytes, or an encoded directory listing) into one value, the
// "fused" layout spec.md §3 explicitly permits as an alternative to a
// separate header/payload ino pair. This halves the number of store round
// trips per operation at the cost of rewriting the (small, fixed-size)
// header whenever only the payload changes — an acceptable trade for an
// in-process engine with no page-level write granularity to preserve.
func encodeRecord(n *inode.Inode, payload []byte) ([]byte, error) {
	header, err := n.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(header)+len(payload))
	out = append(out, header...)
	out = append(out, payload...)
	return out, nil
}

func decodeRecord(data []byte) (*inode.Inode, []byte, error) {
	if len(data) < inode.Size {
		return nil, nil, fs.NewError(fs.EIO, "decodeRecord", "", nil)
	}
	n := &inode.Inode{}
	if err := n.UnmarshalBinary(data[:inode.Size]); err != nil {
		return nil, nil, err
	}
	return n, data[inode.Size:], nil
}
