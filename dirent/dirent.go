// Package dirent parses the records returned by getdents64.
package dirent

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/msantos/unpacker/buildenv"
	"github.com/msantos/unpacker/layout"
	"github.com/msantos/unpacker/walker"
)

// ErrShortRecord is returned for a record smaller than the fixed header.
var ErrShortRecord = errors.New("record shorter than header")

// File types.
const (
	TypeUnknown = 0
	TypeFIFO    = 1
	TypeChr     = 2
	TypeDir     = 4
	TypeBlk     = 6
	TypeReg     = 8
	TypeLnk     = 10
	TypeSock    = 12
	TypeWht     = 14
)

var typeNames = map[uint8]string{
	TypeUnknown: "Unknown (DT_UNKNOWN)",
	TypeFIFO:    "Pipe (Fifo) (DT_FIFO)",
	TypeChr:     "char Device (DT_CHR)",
	TypeDir:     "Directory (DT_DIR)",
	TypeBlk:     "block Device (DT_BLK)",
	TypeReg:     "Plain file (DT_REG)",
	TypeLnk:     "Symlink (DT_LNK)",
	TypeSock:    "Socket (DT_SOCK)",
	TypeWht:     "WHT (DT_WHT)",
}

// TypeName describes a d_type value.
func TypeName(t uint8) string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("(unknown code %#.2x)", t)
}

// Entry is one directory record.
type Entry struct {
	Offset  int    // position of the record in the buffer
	Ino     uint64 // inode
	Off     int64  // cookie for the next record (telldir)
	Reclen  uint16
	Type    uint8
	Name    string
	Record  []byte // record bytes
	NameEnd int    // index in Record following the name terminator
}

var header = sync.OnceValues(func() (*walker.Report, error) {
	return walker.Walk(layout.Dirent64(), walker.WithOutput(io.Discard))
})

// Parse splits a getdents64 buffer into records. Bytes following the
// last complete record are returned as the residue.
func Parse(buf []byte) ([]Entry, []byte, error) {
	r, err := header()
	if err != nil {
		return nil, buf, err
	}

	var entries []Entry
	ro := 0
	for ro < len(buf) {
		rec := buf[ro:]
		if len(rec) < r.Size {
			break
		}

		e, err := parse(r, rec)
		if err != nil {
			return entries, buf[ro:], fmt.Errorf("record at %d: %w", ro, err)
		}
		if e.Reclen == 0 {
			break
		}
		e.Offset = ro
		entries = append(entries, e)
		ro += len(e.Record)
	}

	return entries, buf[ro:], nil
}

func parse(r *walker.Report, rec []byte) (Entry, error) {
	reclen := int(buildenv.Order().Uint16(rec[16:18]))
	if reclen > 0 && reclen < len(rec) {
		rec = rec[:reclen]
	}
	if reclen > 0 && reclen < r.Size {
		return Entry{}, fmt.Errorf("%w: %d bytes", ErrShortRecord, reclen)
	}

	values, err := r.Decode(rec, buildenv.Order())
	if err != nil {
		return Entry{}, err
	}
	v := walker.ByName(values)

	name := v["name[*]"].Bytes()
	n := bytes.IndexByte(name, 0)
	if n < 0 {
		n = len(name)
	}

	nameEnd := r.Size + n + 1
	if nameEnd > len(rec) {
		nameEnd = len(rec)
	}

	return Entry{
		Ino:     v["ino"].Uint(),
		Off:     v["off"].Int(),
		Reclen:  uint16(v["reclen"].Uint()),
		Type:    uint8(v["type"].Uint()),
		Name:    string(name[:n]),
		Record:  rec,
		NameEnd: nameEnd,
	}, nil
}
