package mapdb

import (
	"encoding/binary"

	"golang.org/x/xerrors"

	"github.com/feldspar/feldspar/changeenc"
	"github.com/feldspar/feldspar/chunk"
	"github.com/feldspar/feldspar/db"
)

// encodeChanges serializes a batch of encoded changes into the byte record
// stored under a version's version-changes entry: a count, then for each
// change its 13-byte key, a 1-byte op, and (for inserts) a length-prefixed
// compressed chunk payload.
func encodeChanges(changes []changeenc.EncodedChange) []byte {
	buf := make([]byte, 0, 4+len(changes)*32)
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(changes)))
	buf = append(buf, countBuf[:]...)
	for _, c := range changes {
		buf = append(buf, c.Key.Encode()...)
		buf = append(buf, byte(c.Change.Op))
		if c.Change.Op == changeenc.Insert {
			var lenBuf [4]byte
			binary.BigEndian.PutUint32(lenBuf[:], uint32(len(c.Change.Value.Bytes)))
			buf = append(buf, lenBuf[:]...)
			buf = append(buf, c.Change.Value.Bytes...)
		}
	}
	return buf
}

func decodeChanges(buf []byte) ([]changeenc.EncodedChange, error) {
	if len(buf) < 4 {
		return nil, xerrors.Errorf("mapdb: truncated change record")
	}
	count := binary.BigEndian.Uint32(buf[:4])
	buf = buf[4:]
	out := make([]changeenc.EncodedChange, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(buf) < db.ChunkDbKeySize+1 {
			return nil, xerrors.Errorf("mapdb: truncated change record at entry %d", i)
		}
		key, err := db.DecodeChunkDbKey(buf[:db.ChunkDbKeySize])
		if err != nil {
			return nil, err
		}
		buf = buf[db.ChunkDbKeySize:]
		op := changeenc.ChangeOp(buf[0])
		buf = buf[1:]
		c := changeenc.Change{Op: op}
		if op == changeenc.Insert {
			if len(buf) < 4 {
				return nil, xerrors.Errorf("mapdb: truncated payload length at entry %d", i)
			}
			n := binary.BigEndian.Uint32(buf[:4])
			buf = buf[4:]
			if uint32(len(buf)) < n {
				return nil, xerrors.Errorf("mapdb: truncated payload at entry %d", i)
			}
			payload := make([]byte, n)
			copy(payload, buf[:n])
			buf = buf[n:]
			c.Value = chunk.CompressedChunk{Bytes: payload}
		}
		out = append(out, changeenc.EncodedChange{Key: key, Change: c})
	}
	return out, nil
}

// invert returns the change that sets key back to `before`: an Insert of
// those bytes, or a Remove when before is nil (the key was absent).
func invert(key db.ChunkDbKey, before []byte) changeenc.EncodedChange {
	if before == nil {
		return changeenc.EncodedChange{Key: key, Change: changeenc.Change{Op: changeenc.Remove}}
	}
	return changeenc.EncodedChange{
		Key:    key,
		Change: changeenc.Change{Op: changeenc.Insert, Value: chunk.CompressedChunk{Bytes: before}},
	}
}

// versionRecord is what's actually stored under a version's
// version-changes entry: the forward changes (for replaying this version
// onto its parent) and their inverse (the prior backup state of every
// touched key, for undoing this version back to its parent) computed once
// at commit time.
type versionRecord struct {
	forward []changeenc.EncodedChange
	inverse []changeenc.EncodedChange
}

func encodeVersionRecord(r versionRecord) []byte {
	f := encodeChanges(r.forward)
	i := encodeChanges(r.inverse)
	buf := make([]byte, 4, 4+len(f)+len(i))
	binary.BigEndian.PutUint32(buf, uint32(len(f)))
	buf = append(buf, f...)
	buf = append(buf, i...)
	return buf
}

func decodeVersionRecord(buf []byte) (versionRecord, error) {
	if len(buf) < 4 {
		return versionRecord{}, xerrors.Errorf("mapdb: truncated version record")
	}
	flen := binary.BigEndian.Uint32(buf[:4])
	buf = buf[4:]
	if uint32(len(buf)) < flen {
		return versionRecord{}, xerrors.Errorf("mapdb: truncated version record forward section")
	}
	forward, err := decodeChanges(buf[:flen])
	if err != nil {
		return versionRecord{}, err
	}
	inverse, err := decodeChanges(buf[flen:])
	if err != nil {
		return versionRecord{}, err
	}
	return versionRecord{forward: forward, inverse: inverse}, nil
}
