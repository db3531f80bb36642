package minix

import "encoding/binary"

// dirEntry is one packed directory-block slot: a 2-byte inode number and a
// 14-byte name, NUL-padded and not NUL-terminated when the name fills all
// 14 bytes. inode == 0 marks a free slot (spec.md §3/§4.8).
type dirEntry struct {
	Inode uint16
	Name  [NameMax]byte
}

func (e dirEntry) encode() []byte {
	buf := make([]byte, DirEntrySize)
	binary.LittleEndian.PutUint16(buf[0:2], e.Inode)
	copy(buf[2:], e.Name[:])
	return buf
}

func decodeDirEntry(buf []byte) dirEntry {
	var e dirEntry
	e.Inode = binary.LittleEndian.Uint16(buf[0:2])
	copy(e.Name[:], buf[2:DirEntrySize])
	return e
}

// name returns the entry's name with trailing NUL padding stripped.
func (e dirEntry) name() string {
	n := 0
	for n < NameMax && e.Name[n] != 0 {
		n++
	}
	return string(e.Name[:n])
}

func newDirEntry(inode uint32, name string) (dirEntry, error) {
	if len(name) > NameMax {
		return dirEntry{}, errTooLongName
	}
	var e dirEntry
	e.Inode = uint16(inode)
	copy(e.Name[:], name)
	return e, nil
}
