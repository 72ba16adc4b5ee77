package storefs

import (
	"encoding/binary"

	"github.com/filetree/vfscore/fs"
)

// listing is the decoded form of a directory's payload: name -> child ino.
// Encoding is a small self-describing packed binary format (count-prefixed
// name/ino pairs) rather than JSON, resolving the Open Question spec.md §9
// leaves about listing encoding — see DESIGN.md for the rationale. The only
// hard requirement is decode(encode(x)) == x with a bounded size, which this
// satisfies for any name that fits in a uint16 length prefix.
type listing map[string]uint64

func encodeListing(l listing) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(len(l)))
	for name, ino := range l {
		nameBytes := []byte(name)
		entry := make([]byte, 2+len(nameBytes)+8)
		binary.LittleEndian.PutUint16(entry, uint16(len(nameBytes)))
		copy(entry[2:], nameBytes)
		binary.LittleEndian.PutUint64(entry[2+len(nameBytes):], ino)
		buf = append(buf, entry...)
	}
	return buf
}

func decodeListing(buf []byte) (listing, error) {
	if len(buf) < 4 {
		return listing{}, nil
	}
	count := binary.LittleEndian.Uint32(buf)
	l := make(listing, count)
	off := 4
	for i := uint32(0); i < count; i++ {
		if off+2 > len(buf) {
			return nil, fs.NewError(fs.EIO, "decodeListing", "", nil)
		}
		nameLen := int(binary.LittleEndian.Uint16(buf[off:]))
		off += 2
		if off+nameLen+8 > len(buf) {
			return nil, fs.NewError(fs.EIO, "decodeListing", "", nil)
		}
		name := string(buf[off : off+nameLen])
		off += nameLen
		ino := binary.LittleEndian.Uint64(buf[off:])
		off += 8
		l[name] = ino
	}
	return l, nil
}
